// Package apihttp serves a read-mostly JSON view of the bot: positions,
// drawdown, orders and signals, plus a manual close.
package apihttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tradebot/internal/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	addr   string
	router *gin.Engine
	log    *slog.Logger
}

type ServerConfig struct {
	Addr string
	Deps Deps
	Log  *slog.Logger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Deps.Positions == nil {
		return nil, errors.New("api server requires a position reader")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	log := logger.OrDiscard(cfg.Log)
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	NewRouter(cfg.Deps).Register(router)
	return &Server{addr: cfg.Addr, router: router, log: log}, nil
}

// requestLogger logs every request at debug level.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}
		c.Next()
		log.Debug("http request", "method", c.Request.Method, "path", path,
			"status", c.Writer.Status(), "ip", c.ClientIP(), "dur", time.Since(start))
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("api server listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
