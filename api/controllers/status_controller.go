package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/corpus-uploader/api/models"
	"github.com/moyoez/corpus-uploader/tool"
)

// UserStatus returns server status for the dashboard.
// GET /api/self/v1/status
func UserStatus(c *gin.Context) {
	cfg := tool.GetCurrentConfig()
	c.JSON(http.StatusOK, gin.H{
		"running":           true,
		"notify_ws_enabled": models.NotifyWSEnabled(),
		"base_url":          cfg.BaseURL,
		"chunk_size":        cfg.ChunkSizeBytes,
		"active_uploads":    models.CountActiveUploads(),
	})
}

// UserConfigGet returns the loaded config without the bearer token.
// GET /api/self/v1/config
func UserConfigGet(c *gin.Context) {
	cfg := *tool.GetCurrentConfig()
	if cfg.Token != "" {
		cfg.Token = "***"
	}
	c.JSON(http.StatusOK, cfg)
}
