// Package api implements the HTTP surface of the event plane: server-sent
// event streams for background tasks and arbitrary domain aliases, a health
// check endpoint, and the Prometheus metrics endpoint.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/veristack/eventplane/internal/bgtask"
	"github.com/veristack/eventplane/internal/config"
	"github.com/veristack/eventplane/internal/event"
	"github.com/veristack/eventplane/internal/hub"
)

// QueueStats exposes the queue health numbers the /healthz endpoint reports.
type QueueStats interface {
	PendingCount(ctx context.Context) (int64, error)
	StreamLength(ctx context.Context) (int64, error)
}

// Server is the HTTP server for the event-plane API.
type Server struct {
	server  *http.Server
	engine  *gin.Engine
	config  *config.Config
	hub     *hub.Hub
	bgtasks *bgtask.Manager
	queue   QueueStats
	logger  *zap.Logger
}

// HealthResponse is the response body for the health check endpoint.
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	PendingCount  int64     `json:"pending_count"`
	StreamLength  int64     `json:"stream_length"`
	OngoingBgtask int       `json:"ongoing_bgtasks"`
}

// New creates the API server. The server is not started until Start is called.
func New(cfg *config.Config, h *hub.Hub, bgtasks *bgtask.Manager, queue QueueStats, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:  engine,
		config:  cfg,
		hub:     h,
		bgtasks: bgtasks,
		queue:   queue,
		logger:  logger,
		server: &http.Server{
			Addr:        cfg.ListenAddr,
			Handler:     engine,
			ReadTimeout: 30 * time.Second,
			IdleTimeout: 120 * time.Second,
		},
	}

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/v1/bgtasks/:task_id/events", s.handleBgtaskEvents)
	engine.GET("/v1/events/:domain/:id", s.handleDomainEvents)
	if cfg.EnableMetrics {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		engine.GET(path, gin.WrapH(promhttp.Handler()))
	}
	return s
}

// Start runs the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("api server listening", zap.String("addr", s.config.ListenAddr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Timestamp: time.Now()}
	pending, err := s.queue.PendingCount(ctx)
	if err != nil {
		resp.Status = "degraded"
	}
	length, err := s.queue.StreamLength(ctx)
	if err != nil {
		resp.Status = "degraded"
	}
	resp.PendingCount = pending
	resp.StreamLength = length
	resp.OngoingBgtask = s.bgtasks.OngoingCount()

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

// handleBgtaskEvents streams the progress of one background task as SSE. A
// task that already finished replays its terminal state as a single event.
func (s *Server) handleBgtaskEvents(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("task_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	prop := hub.NewBgtask(s.bgtasks, hub.DefaultQueueSize, s.logger)
	s.hub.Register(prop, hub.Alias{Domain: event.DomainBgtask, ID: taskID.String()})
	defer func() {
		s.hub.Unregister(prop.ID())
		prop.Close()
	}()

	ch, err := prop.Receive(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, bgtask.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such task"})
			return
		}
		s.logger.Error("failed to open bgtask event stream",
			zap.String("task_id", taskID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	s.streamSSE(c, ch)
}

// handleDomainEvents streams every event routed to one (domain, id) alias.
func (s *Server) handleDomainEvents(c *gin.Context) {
	domain := event.Domain(c.Param("domain"))
	if !event.KnownDomain(domain) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown domain"})
		return
	}
	id := c.Param("id")

	prop := hub.NewBypass(hub.DefaultQueueSize, s.logger)
	s.hub.Register(prop, hub.Alias{Domain: domain, ID: id})
	defer func() {
		s.hub.Unregister(prop.ID())
		prop.Close()
	}()

	s.streamSSE(c, prop.Receive())
}

func (s *Server) streamSSE(c *gin.Context, ch <-chan event.Event) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name(), ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
