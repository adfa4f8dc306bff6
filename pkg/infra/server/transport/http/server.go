// Package http provides the gin based HTTP transport.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/kart-io/logger"

	options "github.com/kart-io/nilm-chat/pkg/options/http"
	apierrors "github.com/kart-io/nilm-chat/pkg/utils/errors"
	"github.com/kart-io/nilm-chat/pkg/utils/response"
)

// Server is the HTTP server implementation.
type Server struct {
	opts     *options.Options
	engine   *gin.Engine
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new HTTP server. Middleware is applied before any route
// is registered so that every route group inherits it.
func NewServer(opts *options.Options, middleware ...gin.HandlerFunc) *Server {
	if opts == nil {
		opts = options.NewOptions()
	}

	// 设置 Gin 模式
	gin.SetMode(opts.Mode)

	// 创建 Gin 引擎（不使用默认中间件）
	engine := gin.New()
	engine.Use(middleware...)
	engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, apierrors.ErrRouteNotFound)
	})
	engine.NoMethod(func(c *gin.Context) {
		response.Fail(c, apierrors.ErrRouteNotFound)
	})

	return &Server{opts: opts, engine: engine}
}

// Name returns the server name.
func (s *Server) Name() string {
	return "http[gin]"
}

// Engine returns the underlying gin.Engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// SetValidator sets the global validator used by gin binding.
func (s *Server) SetValidator(v binding.StructValidator) {
	binding.Validator = v
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Start binds the listener and serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server stopped unexpectedly", "error", err.Error())
		}
	}()

	logger.Infow("HTTP server listening", "addr", ln.Addr().String())
	return nil
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
