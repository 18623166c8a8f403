package notify

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/corpus-uploader/tool"
	"github.com/moyoez/corpus-uploader/types"
)

// NotifyWriteChunkSize is the chunk size when writing payload to Unix socket (avoid large single write).
const NotifyWriteChunkSize = 32 * 1024 // 32KB

const MaxNotifyErrorLen = 512

var (
	// SocketPath is where upload events are delivered over IPC; empty disables the socket.
	SocketPath = ""
	// UnixSocketTimeout is the timeout for Unix socket operations
	UnixSocketTimeout = 3 * time.Second
	UseNotify         = true
	PlainTextTypes    = []string{
		"text/plain",
		"text/txt",
		"application/txt",
		"text/markdown",
		"text/x-markdown",
	}

	hubMu sync.RWMutex
	hub   types.NotifyHub
)

// SetUseNotify sets whether to use notify
func SetUseNotify(use bool) {
	UseNotify = use
}

// SetSocketPath points IPC notifications at path.
func SetSocketPath(path string) {
	SocketPath = path
}

// SetNotifyHub registers the websocket hub that receives every notification.
// Pass nil to detach it.
func SetNotifyHub(h types.NotifyHub) {
	hubMu.Lock()
	defer hubMu.Unlock()
	hub = h
}

// Notify fans notification out to the websocket hub and, when configured, the Unix socket.
// Socket failures are logged, never returned: a missing listener must not fail an upload.
func Notify(notification *types.Notification) {
	if !UseNotify || notification == nil {
		return
	}
	hubMu.RLock()
	h := hub
	hubMu.RUnlock()
	if h != nil {
		h.Broadcast(notification)
	}
	if SocketPath == "" {
		return
	}
	if err := SendNotification(notification, SocketPath); err != nil {
		tool.DefaultLogger.Debugf("[Notify] %s not delivered: %v", notification.Type, err)
	}
}

// SendNotification writes one length-prefixed JSON notification to the Unix socket
// at socketPath and waits for the listener's reply.
func SendNotification(notification *types.Notification, socketPath string) error {
	if !UseNotify {
		return nil
	}
	if socketPath == "" {
		return fmt.Errorf("unix socket path is empty")
	}

	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return fmt.Errorf("unix socket not found: %s", socketPath)
	}

	var payload []byte
	var err error
	if notification != nil {
		payload, err = sonic.Marshal(notification)
		if err != nil {
			return fmt.Errorf("failed to serialize notification data: %v", err)
		}
	} else {
		payload = []byte("{}")
	}

	if len(payload) > NotifyWriteChunkSize {
		return fmt.Errorf("notification payload too large: %d bytes (max %d)", len(payload), NotifyWriteChunkSize)
	}

	conn, err := net.DialTimeout("unix", socketPath, UnixSocketTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to Unix socket %s: %v", socketPath, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close Unix socket connection: %v", err)
		}
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(UnixSocketTimeout)); err != nil {
		tool.DefaultLogger.Errorf("Failed to set write deadline: %v", err)
	}

	// 4 byte little-endian length, then the payload
	lengthBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lengthBuf, uint32(len(payload)))
	if _, err := conn.Write(lengthBuf); err != nil {
		return fmt.Errorf("failed to write length to Unix socket: %v", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload to Unix socket: %v", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(UnixSocketTimeout)); err != nil {
		tool.DefaultLogger.Errorf("Failed to set read deadline: %v", err)
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read response from Unix socket: %v", err)
	}

	if n > 0 {
		var response map[string]any
		if err := sonic.Unmarshal(buf[:n], &response); err != nil {
			tool.DefaultLogger.Debugf("Unix socket response (raw): %s", string(buf[:n]))
		} else if errMsg, ok := response["error"].(string); ok && errMsg != "" {
			return fmt.Errorf("server returned error: %s", errMsg)
		}
	}

	if notification != nil {
		tool.DefaultLogger.Debugf("[UnixSocket] Notification sent: %s - %s", notification.Type, notification.Title)
	}
	return nil
}

// NewUploadNotification builds the event for one tracked upload.
func NewUploadNotification(eventType string, status types.UploadStatus) *types.Notification {
	notification := &types.Notification{
		Type: eventType,
		Data: map[string]any{
			"transferId":  status.TransferId,
			"fileName":    status.FileName,
			"mediaType":   string(status.MediaType),
			"mimeType":    status.MimeType,
			"size":        status.Size,
			"totalChunks": status.TotalChunks,
			"percent":     status.Percent,
			"state":       string(status.State),
		},
		IsTextOnly: IsTextContribution(status.MediaType, status.FileName, status.MimeType),
	}
	if status.RecordId != "" {
		notification.Data["recordId"] = status.RecordId
	}
	if status.Error != "" {
		errMsg := status.Error
		if len(errMsg) > MaxNotifyErrorLen {
			errMsg = errMsg[:MaxNotifyErrorLen] + "..."
		}
		notification.Data["error"] = errMsg
	}

	kind := "Upload"
	if notification.IsTextOnly {
		kind = "Text Upload"
	}
	switch eventType {
	case types.NotifyTypeUploadStart:
		notification.Title = kind + " Started"
		notification.Message = fmt.Sprintf("Uploading %s (%s, %d chunks)", status.FileName, status.SizeHuman, status.TotalChunks)
	case types.NotifyTypeUploadProgress:
		notification.Title = "Uploading"
		notification.Message = fmt.Sprintf("%s: %d%%", status.FileName, status.Percent)
	case types.NotifyTypeUploadEnd:
		notification.Title = kind + " Completed"
		notification.Message = fmt.Sprintf("%s saved as record %s", status.FileName, status.RecordId)
	case types.NotifyTypeUploadFailed:
		notification.Title = kind + " Failed"
		notification.Message = fmt.Sprintf("%s: %s", status.FileName, notification.Data["error"])
	case types.NotifyTypeUploadCancelled:
		notification.Title = kind + " Cancelled"
		notification.Message = fmt.Sprintf("%s was cancelled", status.FileName)
	default:
		notification.Title = "Upload Event"
		notification.Message = fmt.Sprintf("Upload event: %s, transferId=%s", eventType, status.TransferId)
	}
	return notification
}

// SendUploadNotification publishes an upload lifecycle event.
func SendUploadNotification(eventType string, status types.UploadStatus) {
	Notify(NewUploadNotification(eventType, status))
}

// SendSimpleNotification sends a simple text notification
func SendSimpleNotification(title, message string) {
	Notify(&types.Notification{
		Type:    types.NotifyTypeInfo,
		Title:   title,
		Message: message,
	})
}

// IsTextContribution reports whether an upload carries plain text only.
func IsTextContribution(mediaType types.MediaType, fileName, mimeType string) bool {
	if mediaType == types.MediaTypeText || isPlainTextType(mimeType) {
		return true
	}
	return strings.HasSuffix(strings.ToLower(fileName), ".txt")
}

// isPlainTextType checks if the given MIME type is a plain text type
func isPlainTextType(fileType string) bool {
	if fileType == "" {
		return false
	}
	fileType = strings.ToLower(strings.TrimSpace(fileType))
	if i := strings.IndexByte(fileType, ';'); i >= 0 {
		fileType = strings.TrimSpace(fileType[:i])
	}
	return slices.Contains(PlainTextTypes, fileType) || strings.HasPrefix(fileType, "text/")
}
