package core

import (
	"context"
	"time"

	"github.com/charon-sso/charon/internal/domain/services"
	"github.com/charon-sso/charon/internal/domain/ticket"
)

// This file contains the storage-side port definitions (hexagonal ports).
// Service implementations depend on these interfaces, never on concrete
// registries, so persistence backends stay swappable.

// TicketRegistry is the sole owner of ticket storage. Implementations may
// block on backend I/O; they must honor context cancellation and must never
// leave partially-applied ticket state behind.
type TicketRegistry interface {
	// AddTicket stores a new ticket.
	AddTicket(ctx context.Context, t ticket.Ticket) error

	// GetTicket returns a copy of the identified ticket. It fails with
	// *ticket.InvalidTicketError when the id is blank, unknown, expired, or
	// the stored kind does not satisfy the expected kind ("" accepts any).
	GetTicket(ctx context.Context, id string, expected ticket.Kind) (ticket.Ticket, error)

	// UpdateTicket replaces the stored ticket with the given state.
	UpdateTicket(ctx context.Context, t ticket.Ticket) error

	// DeleteTicket removes a ticket; deleting a granting ticket cascades to
	// every descendant ticket in its hierarchy. It returns the number of
	// tickets removed; a missing id is a no-op, not an error.
	DeleteTicket(ctx context.Context, id string) (int, error)

	// DeleteAll clears the registry and returns the number removed.
	DeleteAll(ctx context.Context) (int, error)

	// GetTickets returns copies of all tickets matching the predicate.
	GetTickets(ctx context.Context, match func(ticket.Ticket) bool) ([]ticket.Ticket, error)
}

// ServiceRegistry looks up and manages registered relying services.
// FindServiceBy returns (nil, nil) when no registration covers the presented
// service; callers map that to an authorization failure.
type ServiceRegistry interface {
	FindServiceBy(ctx context.Context, svc services.Service) (*services.RegisteredService, error)
	Save(ctx context.Context, rs *services.RegisteredService) (*services.RegisteredService, error)
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]*services.RegisteredService, error)
}

// LockFactory serializes read-modify-write sequences against one ticket id,
// guarding a granting ticket's child-service bookkeeping under concurrent
// grants. A disabled factory returns no-op releases; the resulting races are
// an accepted, documented throughput trade-off.
type LockFactory interface {
	// AcquireTicketLock blocks until the per-id lock is held and returns
	// the release function.
	AcquireTicketLock(id string) (release func())
}

// Clock is an injectable time source so expiration behavior is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }
