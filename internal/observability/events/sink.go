// Package events contains EventSink implementations: lifecycle notifications
// rendered as metrics and structured logs. Sinks are fire-and-forget and never
// block the calling operation.
package events

import (
	"context"
	"log/slog"

	"github.com/charon-sso/charon/internal/observability/statsd"
	"github.com/charon-sso/charon/internal/ports"
)

// MetricsSink emits a counter per lifecycle event and mirrors it to the
// debug log.
type MetricsSink struct {
	metrics statsd.Sink
	logger  *slog.Logger
}

var _ ports.EventSink = (*MetricsSink)(nil)

// NewMetricsSink builds a MetricsSink. Both arguments are optional; a nil
// metrics sink suppresses metric emission.
func NewMetricsSink(metrics statsd.Sink, logger *slog.Logger) *MetricsSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsSink{metrics: metrics, logger: logger.With("component", "events")}
}

// AuthenticationTransactionStarted implements ports.EventSink.
func (s *MetricsSink) AuthenticationTransactionStarted(ctx context.Context, credentialID string) {
	s.count("auth.transaction", map[string]string{"stage": "started"})
	s.logger.DebugContext(ctx, "authentication transaction started", "credential", credentialID)
}

// AuthenticationTransactionSuccessful implements ports.EventSink.
func (s *MetricsSink) AuthenticationTransactionSuccessful(ctx context.Context, credentialID, handlerName string) {
	s.count("auth.transaction", map[string]string{"stage": "successful", "handler": handlerName})
	s.logger.DebugContext(ctx, "authentication transaction successful",
		"credential", credentialID, "handler", handlerName)
}

// AuthenticationPrincipalResolved implements ports.EventSink.
func (s *MetricsSink) AuthenticationPrincipalResolved(ctx context.Context, principalID string) {
	s.count("auth.principal_resolved", nil)
	s.logger.DebugContext(ctx, "principal resolved", "principal", principalID)
}

// TicketCreated implements ports.EventSink.
func (s *MetricsSink) TicketCreated(ctx context.Context, kind, ticketID string) {
	s.count("ticket.created", map[string]string{"kind": kind})
	s.logger.DebugContext(ctx, "ticket created", "kind", kind, "ticket", ticketID)
}

// TicketDestroyed implements ports.EventSink.
func (s *MetricsSink) TicketDestroyed(ctx context.Context, kind, ticketID string) {
	s.count("ticket.destroyed", map[string]string{"kind": kind})
	s.logger.DebugContext(ctx, "ticket destroyed", "kind", kind, "ticket", ticketID)
}

func (s *MetricsSink) count(name string, tags map[string]string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Count(name, 1, tags)
}
