package models

import (
	"context"
	"slices"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/corpus-uploader/types"
)

// UploadTTL bounds how long finished uploads stay listed for the dashboard.
var UploadTTL = 24 * time.Hour

var (
	uploadMu       sync.RWMutex
	uploads        = ttlworker.NewCache[string, types.UploadStatus](UploadTTL)
	uploadContexts = ttlworker.NewCache[string, *types.UploadContext](UploadTTL)
)

// TrackUpload starts tracking status under its transfer id.
func TrackUpload(status types.UploadStatus) {
	uploadMu.Lock()
	defer uploadMu.Unlock()
	uploads.Set(status.TransferId, status)
}

func GetUpload(transferId string) (types.UploadStatus, bool) {
	uploadMu.RLock()
	defer uploadMu.RUnlock()
	status := uploads.Get(transferId)
	return status, status.TransferId != ""
}

// UpdateUpload applies fn to the tracked status and returns the result.
func UpdateUpload(transferId string, fn func(status *types.UploadStatus)) (types.UploadStatus, bool) {
	uploadMu.Lock()
	defer uploadMu.Unlock()
	status := uploads.Get(transferId)
	if status.TransferId == "" {
		return status, false
	}
	fn(&status)
	uploads.Set(transferId, status)
	return status, true
}

// ListUploads returns every tracked upload, newest first.
func ListUploads() []types.UploadStatus {
	uploadMu.RLock()
	defer uploadMu.RUnlock()
	list := make([]types.UploadStatus, 0)
	err := uploads.Range(func(_ string, v types.UploadStatus) error {
		list = append(list, v)
		return nil
	})
	if err != nil {
		return nil
	}
	slices.SortFunc(list, func(a, b types.UploadStatus) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return list
}

// CountActiveUploads returns how many tracked uploads have not finished.
func CountActiveUploads() int {
	n := 0
	for _, status := range ListUploads() {
		if !status.State.Terminal() {
			n++
		}
	}
	return n
}

func RemoveUpload(transferId string) {
	uploadMu.Lock()
	defer uploadMu.Unlock()
	uploads.Delete(transferId)
	if uc := uploadContexts.Get(transferId); uc != nil {
		uc.Cancel()
		uploadContexts.Delete(transferId)
	}
}

// CreateUploadContext creates the cancellable context an upload runs under.
func CreateUploadContext(transferId string) context.Context {
	uploadMu.Lock()
	defer uploadMu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	uploadContexts.Set(transferId, &types.UploadContext{
		Ctx:    ctx,
		Cancel: cancel,
	})
	return ctx
}

// CancelUpload cancels a running upload. It reports false when nothing is running under transferId.
func CancelUpload(transferId string) bool {
	uploadMu.Lock()
	defer uploadMu.Unlock()
	uc := uploadContexts.Get(transferId)
	if uc == nil {
		return false
	}
	uc.Cancel()
	return true
}

// ReleaseUploadContext drops the context of a finished upload.
func ReleaseUploadContext(transferId string) {
	uploadMu.Lock()
	defer uploadMu.Unlock()
	if uc := uploadContexts.Get(transferId); uc != nil {
		uc.Cancel()
		uploadContexts.Delete(transferId)
	}
}

// IsUploadCancelled reports whether the upload's context is done or gone.
func IsUploadCancelled(transferId string) bool {
	uploadMu.RLock()
	uc := uploadContexts.Get(transferId)
	uploadMu.RUnlock()
	if uc == nil {
		return true
	}
	select {
	case <-uc.Ctx.Done():
		return true
	default:
		return false
	}
}
