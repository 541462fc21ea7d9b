package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/offload/api/allocate"
	"github.com/kilianp07/offload/config"
	"github.com/kilianp07/offload/core/allocation"
	coreinsight "github.com/kilianp07/offload/core/insight"
	coremetrics "github.com/kilianp07/offload/core/metrics"
	coremon "github.com/kilianp07/offload/core/monitoring"
	"github.com/kilianp07/offload/core/offload"
	"github.com/kilianp07/offload/core/scoring"
	"github.com/kilianp07/offload/infra/insight"
	"github.com/kilianp07/offload/infra/logger"
	"github.com/kilianp07/offload/infra/metrics"
	"github.com/kilianp07/offload/infra/monitoring"
	"github.com/kilianp07/offload/infra/mqtt"
	"github.com/kilianp07/offload/infra/popcache"
	"github.com/kilianp07/offload/infra/worldpop"
	"github.com/kilianp07/offload/internal/eventbus"
)

// Service owns the HTTP server and every backing component.
type Service struct {
	Offload *offload.Service
	Handler *allocate.Handler

	cfg       *config.Config
	server    *http.Server
	bus       *eventbus.Bus
	sink      coremetrics.MetricsSink
	cache     popcache.Cache
	publisher *mqtt.Publisher
	logFile   io.Closer
	log       logger.Logger
}

var configureLogging = logger.Configure

// New wires the service from cfg. A scorer that cannot be loaded is fatal.
func New(cfg *config.Config) (*Service, error) {
	logFile, err := configureLogging(cfg.Logging.Options())
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logg := logger.New("service")
	s := &Service{cfg: cfg, logFile: logFile, log: logg}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		logg.Warnf("sentry disabled: %v", err)
		mon = coremon.NopMonitor{}
	}
	coremon.Init(mon)

	scorer, err := scoring.New(cfg.Scoring)
	if err != nil {
		s.closeQuietly()
		return nil, fmt.Errorf("scorer: %w", err)
	}
	if err := scoring.Preload(scorer); err != nil {
		s.closeQuietly()
		return nil, fmt.Errorf("load scoring model: %w", err)
	}
	alloc, err := allocation.New(cfg.Allocation)
	if err != nil {
		s.closeQuietly()
		return nil, fmt.Errorf("allocator: %w", err)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		s.closeQuietly()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	s.sink = sink
	s.bus = eventbus.New()

	opts := []offload.Option{
		offload.WithLogger(logger.New("offload")),
		offload.WithMetrics(sink),
		offload.WithBus(s.bus),
	}
	if cfg.Sampling.Seed != nil {
		opts = append(opts, offload.WithSeed(*cfg.Sampling.Seed))
	}
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			s.closeQuietly()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		s.publisher = pub
		opts = append(opts, offload.WithPublisher(pub))
	}
	s.Offload = offload.NewService(scorer, alloc, opts...)

	cache, err := popcache.New(cfg.Population.Cache)
	if err != nil {
		s.closeQuietly()
		return nil, fmt.Errorf("population cache: %w", err)
	}
	s.cache = cache
	wpOpts := []worldpop.Option{worldpop.WithLogger(logger.New("worldpop"))}
	if cache != nil {
		wpOpts = append(wpOpts, worldpop.WithCache(cache))
	}
	pop := worldpop.NewClient(cfg.Population.WorldPop, wpOpts...)

	var gen coreinsight.Generator = coreinsight.PolicyGenerator{}
	if cfg.Insight.Enabled() {
		remote, err := insight.NewClient(cfg.Insight)
		if err != nil {
			s.closeQuietly()
			return nil, fmt.Errorf("insight client: %w", err)
		}
		gen = remote
	}

	s.Handler = allocate.NewHandler(s.Offload,
		allocate.WithPopulation(pop),
		allocate.WithInsights(gen),
		allocate.WithBus(s.bus),
		allocate.WithLogger(logger.New("api")),
	)

	gin.SetMode(gin.ReleaseMode)
	s.server = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           allocate.NewRouter(s.Handler, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}
	logg.Infow("service configured", map[string]any{
		"strategy": s.Offload.Strategy(),
		"scorer":   cfg.Scoring.Type,
		"address":  cfg.Server.Address,
		"mqtt":     cfg.MQTT.Enabled,
	})
	return s, nil
}

// Run serves HTTP until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go metrics.StartEventCollector(ctx, s.bus, s.sink)
	if addr := s.cfg.Metrics.PrometheusAddress; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases resources held by the service. Pending allocation reports
// are drained before the publisher and sinks go away.
func (s *Service) Close() error {
	var errs []error
	if s.Offload != nil {
		s.Offload.Close()
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.bus != nil {
		s.bus.Close()
	}
	if c, ok := s.sink.(coremetrics.Closer); ok {
		c.Close()
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	coremon.Flush(2 * time.Second)
	if s.logFile != nil {
		errs = append(errs, s.logFile.Close())
	}
	return errors.Join(errs...)
}

func (s *Service) closeQuietly() {
	if err := s.Close(); err != nil {
		s.log.Errorf("close after failed start: %v", err)
	}
}
