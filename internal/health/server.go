package health

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/bayusegara27/discora-backend/internal/cache"
	"github.com/bayusegara27/discora-backend/internal/models"
	"github.com/gin-gonic/gin"
)

// StatusSource lists service heartbeat rows.
type StatusSource interface {
	ListServiceStatuses() ([]models.ServiceStatus, error)
}

// CacheInfo reports the loaded settings generation.
type CacheInfo interface {
	Info() cache.Info
}

type Server struct {
	srv *http.Server
}

// NewRouter builds the health endpoints.
func NewRouter(statuses StatusSource, cacheInfo CacheInfo) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		rows, err := statuses.ListServiceStatuses()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "failed to read service status"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"services": rows,
			"cache":    cacheInfo.Info(),
		})
	})
	return router
}

// NewServer serves the health endpoints on addr.
func NewServer(addr string, statuses StatusSource, cacheInfo CacheInfo) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           NewRouter(statuses, cacheInfo),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		log.Printf("[HEALTH] Listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[HEALTH] Server error: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
