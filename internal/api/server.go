// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

// Package api serves the bridge over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-bridge/internal/bridge"
)

// DefaultAddress binds to loopback only; the API has no authentication.
const DefaultAddress = "127.0.0.1:23120"

// ServerOptions configures the HTTP server.
// Timeouts are conservative defaults suitable for a local server.
type ServerOptions struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	Logger            *zap.Logger
	// EnableMetrics mounts /metrics and records request metrics.
	EnableMetrics bool
}

// Server hosts the bridge HTTP API.
type Server struct {
	http    *http.Server
	engine  *gin.Engine
	svc     *bridge.Service
	logger  *zap.Logger
	metrics *metrics
	opts    ServerOptions

	listener net.Listener
}

// NewServer builds the router. It does not listen until Start is called.
func NewServer(svc *bridge.Service, opts ServerOptions) *Server {
	if svc == nil {
		panic("api.NewServer: service is nil")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddress
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	s := &Server{
		engine: engine,
		svc:    svc,
		logger: opts.Logger,
		opts:   opts,
	}
	if opts.EnableMetrics {
		s.metrics = newMetrics()
	}

	s.registerMiddlewares()
	s.registerRoutes()

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           engine,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		ErrorLog:          zap.NewStdLog(opts.Logger),
		BaseContext: func(l net.Listener) context.Context {
			return context.Background()
		},
	}
	return s
}

func (s *Server) registerMiddlewares() {
	s.engine.Use(s.recovery())
	s.engine.Use(requestID())
	s.engine.Use(s.requestLogger())
	if s.metrics != nil {
		s.engine.Use(s.metrics.middleware())
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/ping", s.handlePing)
	s.engine.POST("/items", s.handleCreate)
	s.engine.POST("/item", s.handleItem)
	s.engine.POST("/search", s.handleSearch)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
	}

	s.engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start binds the listen address and serves in a background goroutine.
// Bind errors are returned; use Stop for graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	go func() {
		s.logger.Info("api listening", zap.String("addr", ln.Addr().String()))
		if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api serve failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.http.Addr
}

// Stop gracefully shuts down the server, waiting up to ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.opts.ShutdownTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}
