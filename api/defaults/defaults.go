package defaults

import (
	"github.com/moyoez/corpus-uploader/notify"
	"github.com/moyoez/corpus-uploader/tool"
	"github.com/moyoez/corpus-uploader/types"
)

// DefaultOnUploadStart is the default callback once an upload has been accepted.
func DefaultOnUploadStart(status types.UploadStatus) {
	tool.DefaultLogger.Infof("[Upload] Accepted %q: transferId=%s, file=%s, size=%s, chunks=%d",
		status.Title, status.TransferId, status.FileName, status.SizeHuman, status.TotalChunks)
	notify.SendUploadNotification(types.NotifyTypeUploadStart, status)
}

// DefaultOnUploadProgress is the default callback after every acknowledged chunk.
func DefaultOnUploadProgress(status types.UploadStatus) {
	tool.DefaultLogger.Debugf("[Upload] Progress: transferId=%s, %d%%", status.TransferId, status.Percent)
	notify.SendUploadNotification(types.NotifyTypeUploadProgress, status)
}

// DefaultOnUploadEnd is the default callback once the record has been created.
func DefaultOnUploadEnd(status types.UploadStatus) {
	tool.DefaultLogger.Infof("[Upload] Record created: transferId=%s, recordId=%s", status.TransferId, status.RecordId)
	notify.SendUploadNotification(types.NotifyTypeUploadEnd, status)
}

// DefaultOnUploadFailed is the default callback for a failed upload.
func DefaultOnUploadFailed(status types.UploadStatus, err error) {
	tool.DefaultLogger.Errorf("[Upload] Failed: transferId=%s, file=%s: %v", status.TransferId, status.FileName, err)
	notify.SendUploadNotification(types.NotifyTypeUploadFailed, status)
}

// DefaultOnUploadCancel is the default callback for an upload cancelled by the user.
func DefaultOnUploadCancel(status types.UploadStatus) {
	tool.DefaultLogger.Infof("[Upload] Cancelled: transferId=%s at %d%%", status.TransferId, status.Percent)
	notify.SendUploadNotification(types.NotifyTypeUploadCancelled, status)
}
