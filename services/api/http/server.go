package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/chart"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/config"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/ingest"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/layers"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/metrics"
)

// Pinger reports backing database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg     config.Config
	session *ingest.Session
	layers  *layers.Composer
	charts  *chart.Composer
	db      Pinger
	log     *slog.Logger
	engine  *gin.Engine

	// baseCtx outlives requests and is cancelled by Close; background
	// downloads run under it.
	baseCtx    context.Context
	cancel     context.CancelFunc
	background sync.WaitGroup
}

// New constructs a server with routes and middleware. db may be nil.
func New(cfg config.Config, session *ingest.Session, db Pinger, log *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(accessLogMiddleware(log))
	engine.Use(corsMiddleware())

	if cfg.BearerToken != "" {
		engine.Use(bearerAuthMiddleware(cfg.BearerToken))
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	server := &Server{
		baseCtx: baseCtx,
		cancel:  cancel,
		cfg:     cfg,
		session: session,
		layers:  layers.New(cfg.Viewer.Layers),
		charts:  chart.New(cfg.Viewer.Chart),
		db:      db,
		log:     log,
		engine:  engine,
	}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Close cancels background downloads and waits for them to finish.
func (s *Server) Close() {
	s.cancel()
	s.background.Wait()
}

// Run starts the HTTP server and blocks until shutdown. Background
// downloads are cancelled and drained before it returns.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Close()
		return err
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	s.registerV1Routes()
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok", "entries": s.session.Registry.Len()}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}
	c.JSON(http.StatusOK, body)
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// accessLogMiddleware logs method, path, status, size and latency at debug.
func accessLogMiddleware(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Debug("http_access",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}
