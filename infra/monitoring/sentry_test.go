package monitoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/offload/config"
	coremon "github.com/kilianp07/offload/core/monitoring"
)

type recordTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (r *recordTransport) Flush(time.Duration) bool              { return true }
func (r *recordTransport) FlushWithContext(context.Context) bool { return true }
func (r *recordTransport) Configure(sentry.ClientOptions)        {}
func (r *recordTransport) Close()                                {}
func (r *recordTransport) SendEvent(e *sentry.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func TestNewSentryMonitorDisabled(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", m)
	}
}

func TestSentryMonitorCapturesWithTags(t *testing.T) {
	tr := &recordTransport{}
	m, err := newSentryMonitor(sentry.ClientOptions{Dsn: "https://public@example.com/1", Transport: tr})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	m.CaptureException(errors.New("upstream failed"), map[string]string{"module": "worldpop"})
	m.CaptureException(nil, nil)
	m.ReportPanic("boom")
	m.Flush(time.Millisecond)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.events) != 2 {
		t.Fatalf("expected 2 events got %d", len(tr.events))
	}
	if tr.events[0].Tags["module"] != "worldpop" {
		t.Fatalf("tags missing: %v", tr.events[0].Tags)
	}
}

func TestSentryMonitorInvalidDSN(t *testing.T) {
	if _, err := NewSentryMonitor(config.SentryConfig{DSN: "://bad"}); err == nil {
		t.Fatalf("expected error for invalid DSN")
	}
}
