package types

// MediaType is the kind of content a contribution carries.
type MediaType string

const (
	MediaTypeText  MediaType = "text"
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
	MediaTypeImage MediaType = "image"
)

// Valid reports whether m is one of the media types the corpus API accepts.
func (m MediaType) Valid() bool {
	switch m {
	case MediaTypeText, MediaTypeAudio, MediaTypeVideo, MediaTypeImage:
		return true
	}
	return false
}

// ContributionMetadata is the descriptive payload sent with the finalize request.
// The uploader passes it through untouched, except for Filename which is filled
// from the source when empty.
type ContributionMetadata struct {
	Title         string    `json:"title" form:"title"`
	Description   string    `json:"description" form:"description"`
	CategoryId    string    `json:"category_id" form:"category_id"`
	Language      string    `json:"language" form:"language"`
	MediaType     MediaType `json:"media_type" form:"media_type"`
	ReleaseRights string    `json:"release_rights" form:"release_rights"`
	Filename      string    `json:"filename" form:"filename"`
}

// FinalizeResult is what the corpus API returns once it has created the record.
type FinalizeResult struct {
	RecordId string         `json:"recordId"`
	Raw      map[string]any `json:"raw,omitempty"`
}
