package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/moyoez/corpus-uploader/api/models"
	"github.com/moyoez/corpus-uploader/tool"
	"github.com/moyoez/corpus-uploader/types"
)

const (
	defaultQRSize = 200
	maxQRSize     = 512
)

// HandleRecordQRCode returns a PNG QR code linking to the created record.
// GET /api/self/v1/uploads/:transferId/qrcode?size=200x200
func (ctrl *UploadController) HandleRecordQRCode(baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, ok := models.GetUpload(c.Param("transferId"))
		if !ok {
			c.JSON(http.StatusNotFound, tool.FastReturnErrorWithKind("Upload not found", "not_found"))
			return
		}
		if status.State != types.SessionCompleted || status.RecordId == "" {
			c.JSON(http.StatusConflict, tool.FastReturnErrorWithKind("Record not created yet", "not_completed"))
			return
		}
		link, err := tool.BuildRecordURL(baseURL, status.RecordId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to build record URL: "+err.Error()))
			return
		}
		writeQRCode(c, link)
	}
}

// GenerateQRCode returns a PNG QR code image. Compatible with api.qrserver.com create-qr-code API:
// GET ?size=200x200&data=<url-encoded-content>
func GenerateQRCode(c *gin.Context) {
	data := c.Query("data")
	if data == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameter: data"))
		return
	}
	writeQRCode(c, data)
}

func writeQRCode(c *gin.Context, content string) {
	size := parseSize(c.Query("size"))
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}

	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to encode QR code: "+err.Error()))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// parseSize parses size from "200x200" or "200" and returns the pixel dimension.
func parseSize(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if idx := strings.Index(s, "x"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
