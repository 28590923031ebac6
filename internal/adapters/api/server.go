package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andrescamacho/dispatch-go/internal/adapters/metrics"
	"github.com/andrescamacho/dispatch-go/internal/application/common"
	"github.com/andrescamacho/dispatch-go/internal/domain/dispatch"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/infrastructure/config"
)

// Defaults are the engine options applied when a request carries no
// overrides. They come from the daemon configuration.
type Defaults struct {
	Dispatch  dispatch.Options
	Batch     dispatch.BatchOptions
	Sequencer routing.Options
}

// Health wires the component probes behind GET /health. Nil probes
// report their component as disabled instead of failing the check.
type Health struct {
	Version   string
	StartedAt time.Time
	DBPing    func(ctx context.Context) error
	Network   routing.NetworkInspector
	Geocoder  ports.GeocoderInspector
}

// Server is the HTTP face of the dispatch daemon. Every operation goes
// through the mediator; the server only translates wire shapes.
type Server struct {
	cfg        config.ServerConfig
	metricsCfg config.MetricsConfig
	mediator   common.Mediator
	defaults   Defaults
	health     Health
	validate   *validator.Validate
	auditOut   io.Writer

	httpMetrics *metrics.HTTPMetricsCollector
	httpSrv     *http.Server
	metricsSrv  *http.Server
}

// NewServer assembles the HTTP server. It must run after the metrics
// registry is initialized so the request collector can register.
func NewServer(
	cfg config.ServerConfig,
	metricsCfg config.MetricsConfig,
	mediator common.Mediator,
	defaults Defaults,
	health Health,
) *Server {
	s := &Server{
		cfg:        cfg,
		metricsCfg: metricsCfg,
		mediator:   mediator,
		defaults:   defaults,
		health:     health,
		validate:   validator.New(),
		auditOut:   os.Stdout,
	}

	if metrics.IsEnabled() {
		collector := metrics.NewHTTPMetricsCollector()
		if err := collector.Register(); err != nil {
			log.Printf("Warning: failed to register http metrics: %v", err)
		} else {
			s.httpMetrics = collector
		}
	}

	return s
}

// SetAuditOutput redirects the request audit stream away from the
// default stdout. Must be called before Handler or Start.
func (s *Server) SetAuditOutput(w io.Writer) {
	if w != nil {
		s.auditOut = w
	}
}

// Handler builds the chi router with the full route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(auditLogger(s.auditOut))
	r.Use(chimiddleware.Recoverer)
	if s.httpMetrics != nil {
		r.Use(s.httpMetrics.Middleware)
	}

	r.Get("/health", s.handleHealth)
	if metrics.IsEnabled() {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/dispatch", s.handleDispatch)
		r.Post("/dispatch/batch", s.handleDispatchBatch)
		r.Post("/routes/resequence", s.handleResequence)
		r.Post("/geocode", s.handleGeocode)
		r.Post("/geocode/reverse", s.handleReverseGeocode)
		r.Get("/streets", s.handleStreets)
		r.Get("/stats", s.handleStats)
	})

	return r
}

// Start serves requests until the context is canceled, then drains
// in-flight calls within the configured shutdown timeout. A second
// listener exposes only /metrics when the metrics port differs from
// the API port.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	s.startMetricsServer(errChan)

	select {
	case err := <-errChan:
		s.drain(context.Background())
		return err
	case <-ctx.Done():
		return s.drain(context.Background())
	}
}

// startMetricsServer launches the standalone Prometheus listener. It
// is skipped when metrics are disabled or share the API port.
func (s *Server) startMetricsServer(errChan chan<- error) {
	if !s.metricsCfg.Enabled || !metrics.IsEnabled() || s.metricsCfg.Port == s.cfg.Port {
		return
	}

	path := s.metricsCfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	addr := fmt.Sprintf("%s:%d", s.metricsCfg.Host, s.metricsCfg.Port)
	s.metricsSrv = &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Printf("Metrics server listening on %s%s", addr, path)
		if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server error: %w", err)
		}
	}()
}

// drain stops both listeners, giving in-flight requests the shutdown
// window before the sockets close.
func (s *Server) drain(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	drainCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Printf("Draining HTTP server (up to %s)", timeout)
	var firstErr error
	if err := s.httpSrv.Shutdown(drainCtx); err != nil {
		firstErr = fmt.Errorf("failed to drain http server: %w", err)
	}
	if s.metricsSrv != nil {
		if err := s.metricsSrv.Shutdown(drainCtx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to drain metrics server: %w", err)
		}
	}
	return firstErr
}
