// Package memory contains process-local adapter implementations backed by
// maps, used for tests and single-node deployments.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/charon-sso/charon/internal/core"
	"github.com/charon-sso/charon/internal/domain/ticket"
)

// TicketRegistry stores tickets in process memory. Reads and writes exchange
// deep copies, so callers never observe another goroutine's mutation. Expired
// tickets read as absent before the sweeper removes them.
type TicketRegistry struct {
	mu      sync.RWMutex
	tickets map[string]ticket.Ticket
	clock   core.Clock
}

var _ core.TicketRegistry = (*TicketRegistry)(nil)

// NewTicketRegistry builds an empty registry. A nil clock means wall time.
func NewTicketRegistry(clock core.Clock) *TicketRegistry {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &TicketRegistry{
		tickets: make(map[string]ticket.Ticket),
		clock:   clock,
	}
}

// AddTicket implements core.TicketRegistry.
func (r *TicketRegistry) AddTicket(ctx context.Context, t ticket.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t == nil || t.TicketID() == "" {
		return errors.New("ticket registry: ticket with empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[t.TicketID()] = t.Clone()
	return nil
}

// GetTicket implements core.TicketRegistry.
func (r *TicketRegistry) GetTicket(ctx context.Context, id string, expected ticket.Kind) (ticket.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ticket.NewInvalidTicketError(id, expected, "blank ticket id")
	}
	r.mu.RLock()
	stored, ok := r.tickets[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ticket.NewInvalidTicketError(id, expected, "ticket not found")
	}
	if stored.IsExpired(r.clock.Now()) {
		return nil, ticket.NewInvalidTicketError(id, expected, "ticket is expired")
	}
	if !stored.TicketKind().Satisfies(expected) {
		return nil, ticket.NewInvalidTicketError(id, expected, "ticket is of kind "+string(stored.TicketKind()))
	}
	return stored.Clone(), nil
}

// UpdateTicket implements core.TicketRegistry.
func (r *TicketRegistry) UpdateTicket(ctx context.Context, t ticket.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t == nil || t.TicketID() == "" {
		return errors.New("ticket registry: ticket with empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[t.TicketID()]; !ok {
		return ticket.NewInvalidTicketError(t.TicketID(), "", "ticket not found")
	}
	r.tickets[t.TicketID()] = t.Clone()
	return nil
}

// DeleteTicket implements core.TicketRegistry. Deleting a granting ticket
// cascades over every ticket rooted in its hierarchy.
func (r *TicketRegistry) DeleteTicket(ctx context.Context, id string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if id == "" {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tickets[id]
	if !ok {
		return 0, nil
	}
	removed := 0
	if stored.TicketKind().Satisfies(ticket.KindTGT) {
		for tid, t := range r.tickets {
			if tid != id && t.RootGrantingID() == stored.RootGrantingID() && descendsFrom(r.tickets, t, id) {
				delete(r.tickets, tid)
				removed++
			}
		}
	}
	delete(r.tickets, id)
	return removed + 1, nil
}

// descendsFrom walks parent links to decide whether t sits beneath ancestorID.
func descendsFrom(tickets map[string]ticket.Ticket, t ticket.Ticket, ancestorID string) bool {
	for {
		parent := parentID(t)
		if parent == "" {
			return false
		}
		if parent == ancestorID {
			return true
		}
		next, ok := tickets[parent]
		if !ok {
			// Broken link; fall back to root identity, which the caller
			// already verified.
			return true
		}
		t = next
	}
}

func parentID(t ticket.Ticket) string {
	switch tt := t.(type) {
	case *ticket.GrantingTicket:
		return tt.ParentID
	case *ticket.ServiceTicket:
		return tt.GrantingID
	default:
		return ""
	}
}

// DeleteAll implements core.TicketRegistry.
func (r *TicketRegistry) DeleteAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.tickets)
	r.tickets = make(map[string]ticket.Ticket)
	return n, nil
}

// GetTickets implements core.TicketRegistry.
func (r *TicketRegistry) GetTickets(ctx context.Context, match func(ticket.Ticket) bool) ([]ticket.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ticket.Ticket
	for _, t := range r.tickets {
		if match == nil || match(t) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}
