package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/corpus-uploader/api/controllers"
	"github.com/moyoez/corpus-uploader/api/middlewares"
	"github.com/moyoez/corpus-uploader/api/models"
	"github.com/moyoez/corpus-uploader/api/notifyhub"
	"github.com/moyoez/corpus-uploader/tool"
)

// Server is the local contribution API used by the dashboard.
type Server struct {
	port    int
	baseURL string
	upload  *controllers.UploadController
	engine  *gin.Engine
	server  *http.Server
	mu      sync.RWMutex
}

// NewServer creates a server on 127.0.0.1:port. baseURL is the corpus API base,
// used to build record links.
func NewServer(port int, baseURL string, upload *controllers.UploadController) *Server {
	return &Server{
		port:    port,
		baseURL: baseURL,
		upload:  upload,
	}
}

// EnableNotifyWS creates the websocket hub and routes every notification through it.
func EnableNotifyWS() *notifyhub.Hub {
	hub := notifyhub.New()
	models.SetNotifyHub(hub)
	return hub
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.POST("/contribute", s.upload.HandleContribute)                             // Start a chunked upload
		self.GET("/uploads", s.upload.HandleListUploads)                                // Submission history
		self.GET("/uploads/:transferId", s.upload.HandleGetUpload)                      // Progress of one upload
		self.DELETE("/uploads/:transferId", s.upload.HandleRemoveUpload)                // Drop from history
		self.POST("/uploads/:transferId/cancel", s.upload.HandleCancelUpload)           // Cancel a running upload
		self.GET("/uploads/:transferId/qrcode", s.upload.HandleRecordQRCode(s.baseURL)) // QR of the record link
		self.GET("/create-qr-code", controllers.GenerateQRCode)                         // QR code PNG (same params as api.qrserver.com)
		self.GET("/status", controllers.UserStatus)
		self.GET("/config", controllers.UserConfigGet)
		if hub := models.GetNotifyHub(); hub != nil {
			self.GET("/notify-ws", notifyhub.HandleNotifyWS(hub))
		}
	}
	return engine
}

// Handler returns the routed engine, building it on first use.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		s.engine = s.setupRoutes()
	}
	return s.engine
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	handler := s.Handler()

	s.mu.Lock()
	s.server = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting local API server on http://%s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
