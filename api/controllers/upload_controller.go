package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"github.com/moyoez/corpus-uploader/api/models"
	"github.com/moyoez/corpus-uploader/tool"
	"github.com/moyoez/corpus-uploader/transfer"
	"github.com/moyoez/corpus-uploader/types"
)

// UploadController accepts contributions from the local dashboard and runs them
// through the coordinator in the background.
type UploadController struct {
	coordinator *transfer.Coordinator
	handler     types.UploadHandlerInterface
	// spool holds copies of multipart files; the request's temp files vanish when the handler returns
	spool afero.Fs
}

func NewUploadController(coordinator *transfer.Coordinator, handler types.UploadHandlerInterface, spool afero.Fs) *UploadController {
	if spool == nil {
		spool = afero.NewOsFs()
	}
	return &UploadController{
		coordinator: coordinator,
		handler:     handler,
		spool:       spool,
	}
}

// HandleContribute accepts one contribution and starts uploading it.
// POST /api/self/v1/contribute
func (ctrl *UploadController) HandleContribute(c *gin.Context) {
	var meta types.ContributionMetadata
	if err := c.ShouldBind(&meta); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnErrorWithKind("Invalid form: "+err.Error(), "invalid_input"))
		return
	}
	text := c.PostForm("text")

	var (
		file     transfer.Source
		spoolDir string
	)
	header, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		c.JSON(http.StatusBadRequest, tool.FastReturnErrorWithKind("Invalid file: "+err.Error(), "invalid_input"))
		return
	case !strings.EqualFold(strings.TrimSpace(string(meta.MediaType)), string(types.MediaTypeText)):
		spooled, dir, err := ctrl.spoolFile(c.Request.Context(), header)
		if err != nil {
			tool.DefaultLogger.Errorf("[Contribute] Failed to spool %s: %v", header.Filename, err)
			c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to store file"))
			return
		}
		file, spoolDir = spooled, dir
	}

	cleanup := func() {
		if closer, ok := file.(io.Closer); ok {
			_ = closer.Close()
		}
		if spoolDir != "" {
			if err := ctrl.spool.RemoveAll(spoolDir); err != nil {
				tool.DefaultLogger.Warnf("[Contribute] Failed to remove %s: %v", spoolDir, err)
			}
		}
	}

	src, err := transfer.PrepareSource(&meta, file, text)
	if err != nil {
		cleanup()
		c.JSON(http.StatusBadRequest, tool.FastReturnErrorWithKind(err.Error(), "invalid_input"))
		return
	}
	sess, err := ctrl.coordinator.Begin(src)
	if err != nil {
		cleanup()
		c.JSON(http.StatusBadRequest, tool.FastReturnErrorWithKind(err.Error(), "invalid_input"))
		return
	}

	status := types.UploadStatus{
		TransferId:  sess.TransferId,
		Title:       meta.Title,
		MediaType:   meta.MediaType,
		FileName:    sess.FileName,
		MimeType:    sess.MimeType,
		Size:        sess.FileSizeBytes,
		SizeHuman:   humanize.IBytes(uint64(sess.FileSizeBytes)),
		TotalChunks: sess.TotalChunks,
		State:       sess.State,
		StartedAt:   time.Now(),
	}
	models.TrackUpload(status)
	ctx := models.CreateUploadContext(sess.TransferId)
	ctrl.handler.OnStart(status)

	go func() {
		defer cleanup()
		ctrl.run(ctx, sess, src, meta)
	}()

	c.JSON(http.StatusAccepted, types.ContributeResponse{
		TransferId:  sess.TransferId,
		FileName:    sess.FileName,
		TotalChunks: sess.TotalChunks,
	})
}

func (ctrl *UploadController) run(ctx context.Context, sess *types.UploadSession, src transfer.Source, meta types.ContributionMetadata) {
	defer models.ReleaseUploadContext(sess.TransferId)

	onProgress := func(percent int) {
		status, ok := models.UpdateUpload(sess.TransferId, func(s *types.UploadStatus) {
			s.Percent = percent
			s.State = sess.State
		})
		if ok && percent < 100 {
			ctrl.handler.OnProgress(status)
		}
	}

	recordId, err := ctrl.coordinator.Run(ctx, sess, src, meta, onProgress)
	finished := time.Now()
	status, _ := models.UpdateUpload(sess.TransferId, func(s *types.UploadStatus) {
		s.State = sess.State
		s.FinishedAt = &finished
		if err != nil {
			s.Error = err.Error()
			return
		}
		s.RecordId = recordId
		s.Percent = 100
	})

	switch {
	case err == nil:
		ctrl.handler.OnEnd(status)
	case errors.Is(err, context.Canceled):
		ctrl.handler.OnCancel(status)
	default:
		ctrl.handler.OnFailed(status, err)
	}
}

// spoolFile copies an uploaded multipart file under a fresh directory, keeping
// its original base name so the source reports it.
func (ctrl *UploadController) spoolFile(ctx context.Context, header *multipart.FileHeader) (*transfer.FileSource, string, error) {
	name := tool.SafeBaseName(header.Filename, "upload.bin")
	dir, err := afero.TempDir(ctrl.spool, "", "corpus-upload-")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create spool dir: %v", err)
	}

	in, err := header.Open()
	if err != nil {
		_ = ctrl.spool.RemoveAll(dir)
		return nil, "", fmt.Errorf("failed to open multipart file: %v", err)
	}
	defer in.Close()

	path := filepath.Join(dir, name)
	out, err := ctrl.spool.Create(path)
	if err != nil {
		_ = ctrl.spool.RemoveAll(dir)
		return nil, "", fmt.Errorf("failed to create spool file: %v", err)
	}
	if _, err := tool.CopyWithContext(ctx, out, in); err != nil {
		_ = out.Close()
		_ = ctrl.spool.RemoveAll(dir)
		return nil, "", fmt.Errorf("failed to copy multipart file: %v", err)
	}
	if err := out.Close(); err != nil {
		_ = ctrl.spool.RemoveAll(dir)
		return nil, "", fmt.Errorf("failed to close spool file: %v", err)
	}

	src, err := transfer.OpenFileSource(ctrl.spool, path)
	if err != nil {
		_ = ctrl.spool.RemoveAll(dir)
		return nil, "", err
	}
	return src, dir, nil
}

// HandleListUploads lists tracked uploads, newest first.
// GET /api/self/v1/uploads
func (ctrl *UploadController) HandleListUploads(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(models.ListUploads()))
}

// HandleGetUpload returns the status of one upload.
// GET /api/self/v1/uploads/:transferId
func (ctrl *UploadController) HandleGetUpload(c *gin.Context) {
	transferId := c.Param("transferId")
	status, ok := models.GetUpload(transferId)
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnErrorWithKind("Upload not found", "not_found"))
		return
	}
	c.JSON(http.StatusOK, status)
}
