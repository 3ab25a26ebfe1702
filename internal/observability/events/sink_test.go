package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordedMetric struct {
	name string
	tags map[string]string
}

type captureSink struct {
	counts []recordedMetric
}

func (s *captureSink) Count(name string, _ int64, tags map[string]string) {
	s.counts = append(s.counts, recordedMetric{name: name, tags: tags})
}

func (s *captureSink) Gauge(string, float64, map[string]string) {}

func (s *captureSink) Timing(string, time.Duration, map[string]string) {}

func TestMetricsSinkCountsLifecycleEvents(t *testing.T) {
	metrics := &captureSink{}
	sink := NewMetricsSink(metrics, nil)
	ctx := context.Background()

	sink.AuthenticationTransactionStarted(ctx, "alice")
	sink.AuthenticationTransactionSuccessful(ctx, "alice", "accept-users")
	sink.AuthenticationPrincipalResolved(ctx, "alice")
	sink.TicketCreated(ctx, "TGT", "TGT-1")
	sink.TicketDestroyed(ctx, "TGT", "TGT-1")

	assert.Equal(t, []recordedMetric{
		{name: "auth.transaction", tags: map[string]string{"stage": "started"}},
		{name: "auth.transaction", tags: map[string]string{"stage": "successful", "handler": "accept-users"}},
		{name: "auth.principal_resolved"},
		{name: "ticket.created", tags: map[string]string{"kind": "TGT"}},
		{name: "ticket.destroyed", tags: map[string]string{"kind": "TGT"}},
	}, metrics.counts)
}

func TestMetricsSinkWithoutMetrics(t *testing.T) {
	sink := NewMetricsSink(nil, nil)
	ctx := context.Background()

	// Without a metrics backend the sink only logs; nothing must panic.
	sink.AuthenticationTransactionStarted(ctx, "alice")
	sink.TicketCreated(ctx, "TGT", "TGT-1")
}
