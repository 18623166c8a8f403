package types

import (
	"context"
	"time"
)

// ContributeResponse is returned by POST /api/self/v1/contribute once the upload is accepted.
type ContributeResponse struct {
	TransferId  string `json:"transferId"`
	FileName    string `json:"fileName"`
	TotalChunks int    `json:"totalChunks"`
}

// UploadStatus is the dashboard view of one tracked upload.
type UploadStatus struct {
	TransferId  string       `json:"transferId"`
	Title       string       `json:"title"`
	MediaType   MediaType    `json:"mediaType"`
	FileName    string       `json:"fileName"`
	MimeType    string       `json:"mimeType"`
	Size        int64        `json:"size"`
	SizeHuman   string       `json:"sizeHuman"`
	TotalChunks int          `json:"totalChunks"`
	Percent     int          `json:"percent"`
	State       SessionState `json:"state"`
	RecordId    string       `json:"recordId,omitempty"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  *time.Time   `json:"finishedAt,omitempty"`
}

// UploadContext lets the local API cancel an upload running in the background.
type UploadContext struct {
	Ctx    context.Context
	Cancel context.CancelFunc
}

// UploadHandlerInterface receives lifecycle callbacks for uploads started through the local API.
type UploadHandlerInterface interface {
	OnStart(status UploadStatus)
	OnProgress(status UploadStatus)
	OnEnd(status UploadStatus)
	OnFailed(status UploadStatus, err error)
	OnCancel(status UploadStatus)
}
