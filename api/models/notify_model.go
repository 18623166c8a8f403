package models

import (
	"sync"

	"github.com/moyoez/corpus-uploader/api/notifyhub"
	"github.com/moyoez/corpus-uploader/notify"
)

var (
	notifyHubMu sync.RWMutex
	notifyHub   *notifyhub.Hub
)

// SetNotifyHub sets the hub for WebSocket notification broadcast and hands it to notify.
// Pass nil to disable the websocket route.
func SetNotifyHub(h *notifyhub.Hub) {
	notifyHubMu.Lock()
	defer notifyHubMu.Unlock()
	notifyHub = h
	// a typed nil must not reach the interface
	if h == nil {
		notify.SetNotifyHub(nil)
		return
	}
	notify.SetNotifyHub(h)
}

// GetNotifyHub returns the notify WebSocket hub, or nil if not set.
func GetNotifyHub() *notifyhub.Hub {
	notifyHubMu.RLock()
	defer notifyHubMu.RUnlock()
	return notifyHub
}

// NotifyWSEnabled reports whether /notify-ws is served.
func NotifyWSEnabled() bool {
	return GetNotifyHub() != nil
}
