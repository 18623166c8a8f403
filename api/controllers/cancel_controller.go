package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/corpus-uploader/api/models"
	"github.com/moyoez/corpus-uploader/tool"
)

// HandleCancelUpload cancels a running upload. The upload goroutine records the
// final Failed state once the coordinator has stopped.
// POST /api/self/v1/uploads/:transferId/cancel
func (ctrl *UploadController) HandleCancelUpload(c *gin.Context) {
	transferId := c.Param("transferId")
	if transferId == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing parameters"))
		return
	}

	status, ok := models.GetUpload(transferId)
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnErrorWithKind("Upload not found", "not_found"))
		return
	}
	if status.State.Terminal() {
		c.JSON(http.StatusConflict, tool.FastReturnErrorWithKind("Upload already "+string(status.State), "finished"))
		return
	}

	if models.IsUploadCancelled(transferId) {
		c.JSON(http.StatusConflict, tool.FastReturnErrorWithKind("Upload is already being cancelled", "cancelling"))
		return
	}

	tool.DefaultLogger.Infof("[Cancel] Received cancel request: transferId=%s", transferId)
	if !models.CancelUpload(transferId) {
		c.JSON(http.StatusConflict, tool.FastReturnErrorWithKind("Upload is not running", "finished"))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// HandleRemoveUpload drops a finished upload from the submission history.
// DELETE /api/self/v1/uploads/:transferId
func (ctrl *UploadController) HandleRemoveUpload(c *gin.Context) {
	transferId := c.Param("transferId")
	status, ok := models.GetUpload(transferId)
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnErrorWithKind("Upload not found", "not_found"))
		return
	}
	if !status.State.Terminal() {
		c.JSON(http.StatusConflict, tool.FastReturnErrorWithKind("Upload is still "+string(status.State)+", cancel it first", "running"))
		return
	}
	models.RemoveUpload(transferId)
	tool.DefaultLogger.Infof("[History] Removed upload %s (%s)", transferId, status.FileName)
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}
