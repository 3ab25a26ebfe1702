package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/charon-sso/charon/internal/core"
	"github.com/charon-sso/charon/internal/domain/ticket"
	"github.com/charon-sso/charon/internal/observability/statsd"
)

// SweeperOptions groups dependencies for Sweeper.
type SweeperOptions struct {
	Registry core.TicketRegistry // Required: ticket registry to sweep
	Interval time.Duration       // Sweep period, defaults to one minute
	Clock    core.Clock          // Optional: time source
	Logger   *slog.Logger        // Optional: structured logger
	Metrics  statsd.Sink         // Optional: metrics sink (StatsD-compatible)
}

// Sweeper periodically deletes expired tickets from the registry. Expired
// tickets already read as absent, so the sweeper only reclaims storage; it is
// safe to interleave with all registry operations and safe to run on several
// instances at once.
type Sweeper struct {
	registry core.TicketRegistry
	interval time.Duration
	clock    core.Clock
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewSweeper constructs a Sweeper.
func NewSweeper(opts SweeperOptions) (*Sweeper, error) {
	if opts.Registry == nil {
		return nil, errors.New("sweeper: a ticket registry is required")
	}
	s := &Sweeper{
		registry: opts.Registry,
		interval: opts.Interval,
		clock:    opts.Clock,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if s.interval <= 0 {
		s.interval = time.Minute
	}
	if s.clock == nil {
		s.clock = core.SystemClock{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "sweeper")
	return s, nil
}

// Run starts the sweep loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting ticket sweeper", "interval", s.interval)

	// Jitter so several instances started together do not sweep in lockstep.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.sweep(ctx); err != nil && !isContextCancellation(err) {
		s.logger.ErrorContext(ctx, "initial sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "ticket sweeper stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil && !isContextCancellation(err) {
				s.logger.ErrorContext(ctx, "sweep failed", "error", err)
			}
		}
	}
}

// waitWithJitter delays up to 10% of the interval before the first sweep.
func (s *Sweeper) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.interval / 10)
	if maxJitter <= 0 {
		return
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)))
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// sweep deletes every ticket that has expired by now. Granting tickets go
// first so their cascade covers descendants in one pass; DeleteTicket treats
// an already-removed id as a no-op.
func (s *Sweeper) sweep(ctx context.Context) error {
	start := time.Now()
	now := s.clock.Now()

	expired, err := s.registry.GetTickets(ctx, func(t ticket.Ticket) bool {
		return t.IsExpired(now)
	})
	if err != nil {
		s.emit(0, err, time.Since(start))
		return err
	}

	var removed int
	var errs []error
	for _, pass := range []func(ticket.Ticket) bool{grantingTicket, serviceTicket} {
		for _, t := range expired {
			if !pass(t) {
				continue
			}
			if err := ctx.Err(); err != nil {
				s.emit(removed, err, time.Since(start))
				return err
			}
			n, err := s.registry.DeleteTicket(ctx, t.TicketID())
			if err != nil {
				errs = append(errs, err)
				continue
			}
			removed += n
		}
	}

	err = errors.Join(errs...)
	s.emit(removed, err, time.Since(start))
	if removed > 0 {
		s.logger.InfoContext(ctx, "swept expired tickets", "removed", removed, "candidates", len(expired))
	}
	return err
}

func grantingTicket(t ticket.Ticket) bool { return t.TicketKind().Satisfies(ticket.KindTGT) }
func serviceTicket(t ticket.Ticket) bool  { return !grantingTicket(t) }

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (s *Sweeper) emit(removed int, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	result := "success"
	switch {
	case err != nil:
		result = "error"
	case removed == 0:
		result = "noop"
	}
	tags := map[string]string{"result": result}
	s.metrics.Count("sweeper.sweep", 1, tags)
	s.metrics.Timing("sweeper.sweep_duration", elapsed, statsd.CloneTags(tags))
	if removed > 0 {
		s.metrics.Count("sweeper.tickets_removed", int64(removed), nil)
	}
}
