package offload

import (
	"context"
	"time"

	"github.com/kilianp07/offload/core/logger"
	"github.com/kilianp07/offload/core/metrics"
	"github.com/kilianp07/offload/core/model"
	"github.com/kilianp07/offload/internal/eventbus"
)

// Publisher forwards finished allocations to an external system.
type Publisher interface {
	PublishAllocation(ctx context.Context, source string, res model.AllocationResult) (string, error)
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m metrics.MetricsSink) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithBus(b eventbus.EventBus) Option { return func(s *Service) { s.bus = b } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithSeed makes population sampling reproducible across requests that do
// not carry their own seed.
func WithSeed(seed uint64) Option {
	return func(s *Service) { s.seed = &seed }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithReportQueue bounds how many finished allocations may wait for the
// metrics sink and publisher. Further results are dropped with a warning.
func WithReportQueue(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithPublishTimeout caps each background publish.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}
