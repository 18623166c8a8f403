package transfer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/moyoez/corpus-uploader/tool"
)

const textMimeType = "text/plain; charset=utf-8"

// Source is a readable byte source with a known size and name.
type Source interface {
	io.ReaderAt
	Name() string
	Size() int64
	MimeType() string
}

// BytesSource serves an in-memory buffer, e.g. text wrapped as a virtual file.
type BytesSource struct {
	name     string
	mimeType string
	r        *bytes.Reader
}

func NewBytesSource(name, mimeType string, data []byte) *BytesSource {
	if mimeType == "" {
		mimeType = tool.DetectMimeType(name, data)
	}
	return &BytesSource{
		name:     name,
		mimeType: mimeType,
		r:        bytes.NewReader(data),
	}
}

// NewTextSource wraps text content as a virtual file named after the title.
func NewTextSource(title, content string) *BytesSource {
	return NewBytesSource(TextFileName(title), textMimeType, []byte(content))
}

// TextFileName returns "<title>.txt" with path separators replaced.
func TextFileName(title string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "text"
	}
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	return name + ".txt"
}

func (s *BytesSource) ReadAt(p []byte, off int64) (int, error) { return s.r.ReadAt(p, off) }
func (s *BytesSource) Name() string                            { return s.name }
func (s *BytesSource) Size() int64                             { return s.r.Size() }
func (s *BytesSource) MimeType() string                        { return s.mimeType }

// FileSource reads a file from an afero filesystem. Close it when done.
type FileSource struct {
	file     afero.File
	name     string
	size     int64
	mimeType string
}

func OpenFileSource(fsys afero.Fs, path string) (*FileSource, error) {
	name, size, mimeType, err := tool.GetFileInfoFromPath(fsys, path)
	if err != nil {
		return nil, err
	}
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	return &FileSource{
		file:     f,
		name:     name,
		size:     size,
		mimeType: mimeType,
	}, nil
}

func (s *FileSource) ReadAt(p []byte, off int64) (int, error) { return s.file.ReadAt(p, off) }
func (s *FileSource) Name() string                            { return s.name }
func (s *FileSource) Size() int64                             { return s.size }
func (s *FileSource) MimeType() string                        { return s.mimeType }
func (s *FileSource) Close() error                            { return s.file.Close() }
