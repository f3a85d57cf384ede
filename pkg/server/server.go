package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gettrapd/trapd/pkg/capture"
	"github.com/gettrapd/trapd/pkg/config"
	"github.com/gettrapd/trapd/pkg/logging"
	"github.com/gettrapd/trapd/pkg/metrics"
	"github.com/gettrapd/trapd/pkg/sink"
)

// Server binds two listeners: the capture listener, which answers every
// request with "OK" while recording it, and the operational listener,
// which serves /health and /metrics. The operational endpoints are kept
// off the capture listener so the trap can capture any path, /health
// included.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	version string

	snk      sink.Sink
	ownsSink bool

	handler       *capture.Handler
	captureServer *http.Server
	opsServer     *http.Server
	captureLn     net.Listener
	opsLn         net.Listener

	mu        sync.RWMutex
	running   bool
	startTime time.Time
}

// Option is a functional option for configuring a Server.
type Option func(*Server)

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSink sets a pre-built sink instead of building one from the
// configuration. The caller keeps ownership: Stop will not close it.
func WithSink(snk sink.Sink) Option {
	return func(s *Server) {
		s.snk = snk
	}
}

// WithVersion sets the version string reported by /health.
func WithVersion(version string) Option {
	return func(s *Server) {
		if version != "" {
			s.version = version
		}
	}
}

// New creates a Server with the given configuration. A nil cfg uses
// defaults. Optional Option functions can be passed to customize the
// server.
func New(cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Server{
		cfg:     cfg,
		log:     logging.Nop(),
		version: "dev",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start binds the listeners and begins serving. It returns once both
// listeners are accepting connections; a configured port of 0 picks a
// free port, readable afterwards through Addr and OpsAddr.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	metrics.Init()
	s.startTime = time.Now()

	if s.snk == nil {
		built, err := sink.New(s.cfg.Sink, sink.WithLogger(s.log.With("component", "sink")))
		if err != nil {
			return fmt.Errorf("build sink: %w", err)
		}
		s.snk = built
		s.ownsSink = true
	}

	handler, err := capture.NewHandler(s.snk,
		capture.WithLogger(s.log.With("component", "capture")),
		capture.WithFilter(s.cfg.Capture.Filter),
		capture.WithIgnorePaths(s.cfg.Capture.IgnorePaths),
	)
	if err != nil {
		s.releaseLocked()
		return err
	}
	s.handler = handler

	captureLn, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		s.releaseLocked()
		return fmt.Errorf("bind capture listener: %w", err)
	}
	s.captureLn = captureLn

	if s.cfg.Ops.IsEnabled() {
		opsLn, err := net.Listen("tcp", s.cfg.OpsAddr())
		if err != nil {
			s.releaseLocked()
			return fmt.Errorf("bind ops listener: %w", err)
		}
		s.opsLn = opsLn
	}

	s.captureServer = &http.Server{
		Handler:      MetricsMiddleware(RequestLogMiddleware(s.log, handler)),
		ReadTimeout:  time.Duration(s.cfg.Listen.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Listen.WriteTimeout) * time.Second,
	}

	s.log.Info("starting capture listener", "addr", captureLn.Addr().String(), "sink", s.snk.Kind())
	go func() {
		if err := s.captureServer.Serve(captureLn); err != nil && err != http.ErrServerClosed {
			s.log.Error("capture server error", "error", err)
		}
	}()

	if s.opsLn != nil {
		s.opsServer = &http.Server{
			Handler:      s.opsHandler(),
			ReadTimeout:  time.Duration(s.cfg.Listen.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(s.cfg.Listen.WriteTimeout) * time.Second,
		}

		s.log.Info("starting ops listener", "addr", s.opsLn.Addr().String())
		go func() {
			if err := s.opsServer.Serve(s.opsLn); err != nil && err != http.ErrServerClosed {
				s.log.Error("ops server error", "error", err)
			}
		}()
	}

	s.running = true
	return nil
}

// Stop gracefully shuts down both listeners and closes the sink if the
// server built it. In-flight requests get five seconds to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error

	if s.opsServer != nil {
		if err := s.opsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("ops shutdown: %w", err))
		}
		s.opsServer = nil
		s.opsLn = nil
	}

	if s.captureServer != nil {
		if err := s.captureServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("capture shutdown: %w", err))
		}
		s.captureServer = nil
		s.captureLn = nil
	}

	if s.ownsSink && s.snk != nil {
		if err := s.snk.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sink close: %w", err))
		}
		s.snk = nil
		s.ownsSink = false
	}

	s.running = false
	s.log.Info("trapd stopped")

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// releaseLocked undoes partial Start work. Callers must hold s.mu.
func (s *Server) releaseLocked() {
	if s.captureLn != nil {
		_ = s.captureLn.Close()
		s.captureLn = nil
	}
	if s.opsLn != nil {
		_ = s.opsLn.Close()
		s.opsLn = nil
	}
	if s.ownsSink && s.snk != nil {
		_ = s.snk.Close()
		s.snk = nil
		s.ownsSink = false
	}
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime in seconds.
func (s *Server) Uptime() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return int(time.Since(s.startTime).Seconds())
}

// Addr returns the capture listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.captureLn == nil {
		return ""
	}
	return s.captureLn.Addr().String()
}

// OpsAddr returns the operational listener address, or "" when the ops
// listener is disabled or the server has not started.
func (s *Server) OpsAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.opsLn == nil {
		return ""
	}
	return s.opsLn.Addr().String()
}

// Config returns the server configuration.
func (s *Server) Config() *config.Config {
	return s.cfg
}
