package transfer

import (
	"strings"

	"github.com/moyoez/corpus-uploader/tool"
	"github.com/moyoez/corpus-uploader/types"
)

// PrepareSource picks the byte source for a contribution and completes meta.
// Text contributions are wrapped as "<title>.txt"; every other media type needs a
// non-empty file. Language defaults to the one detected in text content, and
// Filename to the source name.
func PrepareSource(meta *types.ContributionMetadata, file Source, text string) (Source, error) {
	if meta == nil {
		return nil, invalidInput("metadata is required")
	}
	meta.MediaType = types.MediaType(strings.ToLower(strings.TrimSpace(string(meta.MediaType))))
	if !meta.MediaType.Valid() {
		return nil, invalidInput("unknown media type %q", meta.MediaType)
	}

	var src Source
	if meta.MediaType == types.MediaTypeText {
		if strings.TrimSpace(text) == "" {
			return nil, invalidInput("text content is empty")
		}
		src = NewTextSource(meta.Title, text)
		if meta.Language == "" {
			meta.Language = tool.DetectLanguage(text + " " + meta.Title)
		}
	} else {
		if file == nil {
			return nil, invalidInput("a file is required for media type %s", meta.MediaType)
		}
		if file.Size() <= 0 {
			return nil, invalidInput("file %s is empty", file.Name())
		}
		src = file
	}

	if meta.Filename == "" {
		meta.Filename = src.Name()
	}
	return src, nil
}
