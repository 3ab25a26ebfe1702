// Package redis provides Redis-backed adapters for the ticket registry.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/charon-sso/charon/internal/core"
	"github.com/charon-sso/charon/internal/cryptoutil"
	"github.com/charon-sso/charon/internal/domain/ticket"
)

const (
	defaultKeyPrefix = "ticket:"
	rootIndexPrefix  = "ticket-root:"

	// unboundedTTL caps storage lifetime for tickets whose policy has no
	// time bound, so Redis never accumulates immortal keys.
	unboundedTTL = 30 * 24 * time.Hour
)

// envelope is the stored shape: the kind tag selects the concrete ticket
// type on decode.
type envelope struct {
	Kind ticket.Kind     `json:"kind"`
	Body json.RawMessage `json:"body"`
}

// TicketRegistryOptions configures a TicketRegistry.
type TicketRegistryOptions struct {
	Client redis.UniversalClient // Required

	// Encryptor transforms payloads before storage. Defaults to the plain
	// marker codec.
	Encryptor cryptoutil.Encryptor

	// KeyPrefix namespaces ticket keys, defaults to "ticket:".
	KeyPrefix string

	Clock  core.Clock
	Logger *slog.Logger
}

// TicketRegistry stores tickets in Redis as (optionally encrypted) JSON
// envelopes with TTLs derived from each ticket's expiration policy. A
// per-root index set makes cascading destruction a bounded multi-key delete
// instead of a scan.
type TicketRegistry struct {
	client    redis.UniversalClient
	encryptor cryptoutil.Encryptor
	prefix    string
	clock     core.Clock
	logger    *slog.Logger
}

var _ core.TicketRegistry = (*TicketRegistry)(nil)

// NewTicketRegistry builds a TicketRegistry.
func NewTicketRegistry(opts TicketRegistryOptions) (*TicketRegistry, error) {
	if opts.Client == nil {
		return nil, errors.New("redis ticket registry: a client is required")
	}
	r := &TicketRegistry{
		client:    opts.Client,
		encryptor: opts.Encryptor,
		prefix:    opts.KeyPrefix,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
	if r.encryptor == nil {
		r.encryptor = cryptoutil.PlainEncryptor{}
	}
	if r.prefix == "" {
		r.prefix = defaultKeyPrefix
	}
	if r.clock == nil {
		r.clock = core.SystemClock{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "redis-ticket-registry")
	return r, nil
}

func (r *TicketRegistry) key(id string) string { return r.prefix + id }

func (r *TicketRegistry) rootKey(root string) string { return rootIndexPrefix + root }

// AddTicket implements core.TicketRegistry.
func (r *TicketRegistry) AddTicket(ctx context.Context, t ticket.Ticket) error {
	if t == nil || t.TicketID() == "" {
		return errors.New("redis ticket registry: ticket with empty id")
	}
	payload, ttl, err := r.encode(t)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(t.TicketID()), payload, ttl)
	pipe.SAdd(ctx, r.rootKey(t.RootGrantingID()), t.TicketID())
	// The index must outlive every member; refresh it to the longest bound.
	pipe.Expire(ctx, r.rootKey(t.RootGrantingID()), unboundedTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis add ticket: %w", err)
	}
	return nil
}

// GetTicket implements core.TicketRegistry. Expired tickets are deleted on
// read and reported as invalid.
func (r *TicketRegistry) GetTicket(ctx context.Context, id string, expected ticket.Kind) (ticket.Ticket, error) {
	if id == "" {
		return nil, ticket.NewInvalidTicketError(id, expected, "blank ticket id")
	}
	data, err := r.client.Get(ctx, r.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ticket.NewInvalidTicketError(id, expected, "ticket not found")
		}
		return nil, fmt.Errorf("redis get ticket: %w", err)
	}
	t, err := r.decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding ticket %s: %w", id, err)
	}
	if t.IsExpired(r.clock.Now()) {
		// Two phases: mark first so a concurrent reader cannot resurrect
		// the ticket between our check and the delete.
		t.MarkExpired()
		if payload, ttl, encErr := r.encode(t); encErr == nil {
			r.client.Set(ctx, r.key(id), payload, ttl)
		}
		if _, delErr := r.DeleteTicket(ctx, id); delErr != nil {
			r.logger.WarnContext(ctx, "failed to remove expired ticket on read",
				"ticket", id, "error", delErr)
		}
		return nil, ticket.NewInvalidTicketError(id, expected, "ticket is expired")
	}
	if !t.TicketKind().Satisfies(expected) {
		return nil, ticket.NewInvalidTicketError(id, expected, "ticket is of kind "+string(t.TicketKind()))
	}
	return t, nil
}

// UpdateTicket implements core.TicketRegistry.
func (r *TicketRegistry) UpdateTicket(ctx context.Context, t ticket.Ticket) error {
	if t == nil || t.TicketID() == "" {
		return errors.New("redis ticket registry: ticket with empty id")
	}
	payload, ttl, err := r.encode(t)
	if err != nil {
		return err
	}
	set, err := r.client.SetXX(ctx, r.key(t.TicketID()), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis update ticket: %w", err)
	}
	if !set {
		return ticket.NewInvalidTicketError(t.TicketID(), "", "ticket not found")
	}
	return nil
}

// DeleteTicket implements core.TicketRegistry. Deleting a granting ticket
// cascades over the hierarchy recorded in its root index set.
func (r *TicketRegistry) DeleteTicket(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, nil
	}
	data, err := r.client.Get(ctx, r.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis delete ticket: %w", err)
	}
	t, err := r.decode(data)
	if err != nil {
		// Undecodable payloads still get removed.
		r.logger.WarnContext(ctx, "deleting undecodable ticket", "ticket", id, "error", err)
		n, delErr := r.client.Del(ctx, r.key(id)).Result()
		return int(n), delErr
	}

	if !t.TicketKind().Satisfies(ticket.KindTGT) {
		n, err := r.client.Del(ctx, r.key(id)).Result()
		if err != nil {
			return 0, fmt.Errorf("redis delete ticket: %w", err)
		}
		r.client.SRem(ctx, r.rootKey(t.RootGrantingID()), id)
		return int(n), nil
	}

	return r.deleteGranting(ctx, t)
}

// deleteGranting removes a granting ticket and every descendant beneath it.
func (r *TicketRegistry) deleteGranting(ctx context.Context, gt ticket.Ticket) (int, error) {
	rootKey := r.rootKey(gt.RootGrantingID())
	members, err := r.client.SMembers(ctx, rootKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis read root index: %w", err)
	}

	hierarchy := make(map[string]ticket.Ticket, len(members)+1)
	hierarchy[gt.TicketID()] = gt
	for _, id := range members {
		if id == gt.TicketID() {
			continue
		}
		data, err := r.client.Get(ctx, r.key(id)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return 0, fmt.Errorf("redis read descendant %s: %w", id, err)
		}
		if t, decErr := r.decode(data); decErr == nil {
			hierarchy[id] = t
		}
	}

	victims := []string{gt.TicketID()}
	for id, t := range hierarchy {
		if id != gt.TicketID() && descendsFrom(hierarchy, t, gt.TicketID()) {
			victims = append(victims, id)
		}
	}

	keys := make([]string, len(victims))
	for i, id := range victims {
		keys[i] = r.key(id)
	}
	removed, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis delete hierarchy: %w", err)
	}
	if gt.RootGrantingID() == gt.TicketID() {
		r.client.Del(ctx, rootKey)
	} else {
		r.client.SRem(ctx, rootKey, victimsAsAny(victims)...)
	}
	return int(removed), nil
}

// descendsFrom walks parent links within the loaded hierarchy.
func descendsFrom(hierarchy map[string]ticket.Ticket, t ticket.Ticket, ancestorID string) bool {
	for {
		var parent string
		switch tt := t.(type) {
		case *ticket.GrantingTicket:
			parent = tt.ParentID
		case *ticket.ServiceTicket:
			parent = tt.GrantingID
		}
		if parent == "" {
			return false
		}
		if parent == ancestorID {
			return true
		}
		next, ok := hierarchy[parent]
		if !ok {
			// The linking ticket is gone; treat the orphan as part of the
			// hierarchy being torn down.
			return true
		}
		t = next
	}
}

func victimsAsAny(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// DeleteAll implements core.TicketRegistry.
func (r *TicketRegistry) DeleteAll(ctx context.Context) (int, error) {
	removed := 0
	for _, pattern := range []string{r.prefix + "*", rootIndexPrefix + "*"} {
		iter := r.client.Scan(ctx, 0, pattern, 256).Iterator()
		for iter.Next(ctx) {
			n, err := r.client.Del(ctx, iter.Val()).Result()
			if err != nil {
				return removed, fmt.Errorf("redis delete all: %w", err)
			}
			if pattern == r.prefix+"*" {
				removed += int(n)
			}
		}
		if err := iter.Err(); err != nil {
			return removed, fmt.Errorf("redis scan: %w", err)
		}
	}
	return removed, nil
}

// GetTickets implements core.TicketRegistry.
func (r *TicketRegistry) GetTickets(ctx context.Context, match func(ticket.Ticket) bool) ([]ticket.Ticket, error) {
	var out []ticket.Ticket
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("redis get ticket: %w", err)
		}
		t, err := r.decode(data)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping undecodable ticket", "key", iter.Val(), "error", err)
			continue
		}
		if match == nil || match(t) {
			out = append(out, t)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return out, nil
}

// encode marshals, encrypts and derives the storage TTL for a ticket.
func (r *TicketRegistry) encode(t ticket.Ticket) (string, time.Duration, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return "", 0, fmt.Errorf("marshal ticket: %w", err)
	}
	raw, err := json.Marshal(envelope{Kind: t.TicketKind(), Body: body})
	if err != nil {
		return "", 0, fmt.Errorf("marshal envelope: %w", err)
	}
	payload, err := r.encryptor.Encrypt(raw)
	if err != nil {
		return "", 0, fmt.Errorf("encrypt ticket: %w", err)
	}
	ttl := ticketTTL(t)
	return payload, ttl, nil
}

// decode reverses encode.
func (r *TicketRegistry) decode(payload string) (ticket.Ticket, error) {
	raw, err := r.encryptor.Decrypt(payload)
	if err != nil {
		return nil, fmt.Errorf("decrypt ticket: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	switch env.Kind {
	case ticket.KindTGT, ticket.KindPGT:
		var gt ticket.GrantingTicket
		if err := json.Unmarshal(env.Body, &gt); err != nil {
			return nil, fmt.Errorf("unmarshal granting ticket: %w", err)
		}
		return &gt, nil
	case ticket.KindST, ticket.KindPT:
		var st ticket.ServiceTicket
		if err := json.Unmarshal(env.Body, &st); err != nil {
			return nil, fmt.Errorf("unmarshal service ticket: %w", err)
		}
		return &st, nil
	default:
		return nil, fmt.Errorf("unknown ticket kind %q", env.Kind)
	}
}

// ticketTTL derives the storage TTL from the ticket's expiration policy,
// bounded so unbounded policies still age out of storage eventually.
func ticketTTL(t ticket.Ticket) time.Duration {
	var policy ticket.Policy
	switch tt := t.(type) {
	case *ticket.GrantingTicket:
		policy = tt.Expiration
	case *ticket.ServiceTicket:
		policy = tt.Expiration
	}
	ttl := policy.TimeToLive()
	if ttl <= 0 || ttl > unboundedTTL {
		return unboundedTTL
	}
	return ttl
}
