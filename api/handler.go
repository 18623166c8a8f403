package api

import (
	"github.com/moyoez/corpus-uploader/api/defaults"
	"github.com/moyoez/corpus-uploader/types"
)

// Handler contains callback functions for upload lifecycle events
type Handler struct {
	onStart    func(status types.UploadStatus)
	onProgress func(status types.UploadStatus)
	onEnd      func(status types.UploadStatus)
	onFailed   func(status types.UploadStatus, err error)
	onCancel   func(status types.UploadStatus)
}

// Ensure Handler implements types.UploadHandlerInterface
var _ types.UploadHandlerInterface = (*Handler)(nil)

// OnStart implements types.UploadHandlerInterface
func (h *Handler) OnStart(status types.UploadStatus) {
	if h.onStart != nil {
		h.onStart(status)
	}
}

// OnProgress implements types.UploadHandlerInterface
func (h *Handler) OnProgress(status types.UploadStatus) {
	if h.onProgress != nil {
		h.onProgress(status)
	}
}

// OnEnd implements types.UploadHandlerInterface
func (h *Handler) OnEnd(status types.UploadStatus) {
	if h.onEnd != nil {
		h.onEnd(status)
	}
}

// OnFailed implements types.UploadHandlerInterface
func (h *Handler) OnFailed(status types.UploadStatus, err error) {
	if h.onFailed != nil {
		h.onFailed(status, err)
	}
}

// OnCancel implements types.UploadHandlerInterface
func (h *Handler) OnCancel(status types.UploadStatus) {
	if h.onCancel != nil {
		h.onCancel(status)
	}
}

// NewDefaultHandler returns a Handler that logs every event and forwards it to notify.
func NewDefaultHandler() *Handler {
	return &Handler{
		onStart:    defaults.DefaultOnUploadStart,
		onProgress: defaults.DefaultOnUploadProgress,
		onEnd:      defaults.DefaultOnUploadEnd,
		onFailed:   defaults.DefaultOnUploadFailed,
		onCancel:   defaults.DefaultOnUploadCancel,
	}
}
