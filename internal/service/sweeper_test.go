package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charon-sso/charon/internal/adapters/memory"
	"github.com/charon-sso/charon/internal/domain/services"
	"github.com/charon-sso/charon/internal/domain/ticket"
	"github.com/charon-sso/charon/internal/testutil"
)

func TestNewSweeperRequiresRegistry(t *testing.T) {
	_, err := NewSweeper(SweeperOptions{})
	require.Error(t, err)
}

func TestSweepRemovesExpiredHierarchies(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	registry := memory.NewTicketRegistry(clock)
	ctx := context.Background()

	// An expiring session with one service ticket, and a long-lived one.
	doomed := ticket.NewGrantingTicket("TGT-doomed", testutil.Authentication("alice", clock.Now()),
		ticket.HardTimeoutPolicy(time.Minute), clock.Now())
	st := doomed.GrantServiceTicket("ST-doomed", services.NewService("https://app.example.org"),
		ticket.MultiUseOrTimeoutPolicy(1, 10*time.Second), true, clock.Now())
	survivor := ticket.NewGrantingTicket("TGT-survivor", testutil.Authentication("bob", clock.Now()),
		ticket.NeverExpiresPolicy(), clock.Now())

	require.NoError(t, registry.AddTicket(ctx, doomed))
	require.NoError(t, registry.AddTicket(ctx, st))
	require.NoError(t, registry.AddTicket(ctx, survivor))

	sweeper, err := NewSweeper(SweeperOptions{Registry: registry, Clock: clock})
	require.NoError(t, err)

	// Nothing has expired yet.
	require.NoError(t, sweeper.sweep(ctx))
	remaining, err := registry.GetTickets(ctx, func(ticket.Ticket) bool { return true })
	require.NoError(t, err)
	assert.Len(t, remaining, 3)

	clock.Advance(2 * time.Minute)
	require.NoError(t, sweeper.sweep(ctx))

	remaining, err = registry.GetTickets(ctx, func(ticket.Ticket) bool { return true })
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "TGT-survivor", remaining[0].TicketID())
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	registry := memory.NewTicketRegistry(nil)
	sweeper, err := NewSweeper(SweeperOptions{Registry: registry, Interval: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a graceful shutdown")
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
