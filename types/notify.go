package types

const (
	NotifyTypeUploadStart     = "upload_start"
	NotifyTypeUploadProgress  = "upload_progress"
	NotifyTypeUploadEnd       = "upload_end"
	NotifyTypeUploadFailed    = "upload_failed"
	NotifyTypeUploadCancelled = "upload_cancelled"
	NotifyTypeInfo            = "info"
)

// Notification represents a notification message structure
type Notification struct {
	Type       string         `json:"type,omitempty"`       // Notification type, e.g. "upload_start", "upload_end", etc.
	Title      string         `json:"title,omitempty"`      // Notification title
	Message    string         `json:"message,omitempty"`    // Notification message/content
	Data       map[string]any `json:"data,omitempty"`       // Additional data fields
	IsTextOnly bool           `json:"isTextOnly,omitempty"` // Indicates if this is plain text content
}

// NotifyHub receives every notification for fan-out (websocket clients).
type NotifyHub interface {
	Broadcast(notification *Notification)
}
