package ticket

// Package ticket models the hierarchy of expiring security tickets: granting
// tickets (TGT and its proxy variant PGT) and service tickets (ST and its
// proxy variant PT). Tickets are owned and persisted exclusively by the
// ticket registry; mutation happens only under the registry's locking
// discipline.

import (
	"fmt"
	"time"

	"github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/domain/services"
)

// Kind tags the closed set of ticket variants.
type Kind string

const (
	KindTGT Kind = "TGT"
	KindST  Kind = "ST"
	KindPGT Kind = "PGT"
	KindPT  Kind = "PT"
)

// granting reports whether the kind belongs to the granting-ticket family.
func (k Kind) granting() bool { return k == KindTGT || k == KindPGT }

// Satisfies reports whether a concrete kind satisfies an expected kind:
// a PGT satisfies an expected TGT and a PT satisfies an expected ST, because
// the proxy variants honor the same contracts.
func (k Kind) Satisfies(expected Kind) bool {
	switch expected {
	case "":
		return true
	case KindTGT:
		return k.granting()
	case KindST:
		return k == KindST || k == KindPT
	default:
		return k == expected
	}
}

// Ticket is the capability surface shared by all ticket variants.
type Ticket interface {
	TicketID() string
	TicketKind() Kind
	// RootGrantingID identifies the root TGT of the hierarchy this ticket
	// belongs to; cascading destruction collects descendants through it.
	RootGrantingID() string
	// IsExpired is a pure function of expiration policy, clock and usage
	// state, plus the explicit mark-expired transition.
	IsExpired(now time.Time) bool
	// MarkExpired forces expiration, used by registries that must make a
	// delete visible in two phases.
	MarkExpired()
	// Clone returns a deep copy, so registries can hand out snapshots and
	// concurrent readers never share mutable state.
	Clone() Ticket
}

// GrantingTicket is the root credential of an SSO session (kind TGT) or of a
// delegated proxy chain (kind PGT). Destruction cascades to every descendant
// ticket in its hierarchy.
type GrantingTicket struct {
	ID           string `json:"id"`
	Kind         Kind   `json:"kind"`
	RootID       string `json:"root_id"`
	ParentID     string `json:"parent_id,omitempty"`
	CreationTime time.Time `json:"creation_time"`
	LastUsedTime time.Time `json:"last_used_time"`
	CountOfUses  int       `json:"count_of_uses"`
	Expiration   Policy    `json:"expiration"`
	Expired      bool      `json:"expired,omitempty"`

	// Authentication is this ticket's own authentication; for a PGT it is
	// the proxy authentication established with the proxying service.
	Authentication auth.Authentication `json:"authentication"`
	// ChainedAuthentications is ordered root-first and ends with this
	// ticket's own authentication.
	ChainedAuthentications []auth.Authentication `json:"chained_authentications"`
	// Supplemental authentications satisfied policy for the session but are
	// excluded from validation assertions.
	Supplemental []auth.Authentication `json:"supplemental,omitempty"`

	// Services records every service ticket granted from this ticket,
	// keyed by service ticket id.
	Services map[string]services.Service `json:"services,omitempty"`

	// ProxiedBy is the identity of the proxying service for a PGT.
	ProxiedBy *services.Service `json:"proxied_by,omitempty"`
}

// NewGrantingTicket creates a root TGT for the given authentication.
func NewGrantingTicket(id string, a auth.Authentication, policy Policy, now time.Time) *GrantingTicket {
	return &GrantingTicket{
		ID:                     id,
		Kind:                   KindTGT,
		RootID:                 id,
		CreationTime:           now,
		LastUsedTime:           now,
		Expiration:             policy,
		Authentication:         a,
		ChainedAuthentications: []auth.Authentication{a},
	}
}

// NewProxyGrantingTicket creates a PGT chained beneath the given granting
// ticket, carrying the new proxy authentication on top of the parent chain.
func NewProxyGrantingTicket(
	id string,
	proxyAuth auth.Authentication,
	parent *GrantingTicket,
	proxiedBy services.Service,
	policy Policy,
	now time.Time,
) *GrantingTicket {
	chain := append([]auth.Authentication(nil), parent.ChainedAuthentications...)
	chain = append(chain, proxyAuth)
	return &GrantingTicket{
		ID:                     id,
		Kind:                   KindPGT,
		RootID:                 parent.RootID,
		ParentID:               parent.ID,
		CreationTime:           now,
		LastUsedTime:           now,
		Expiration:             policy,
		Authentication:         proxyAuth,
		ChainedAuthentications: chain,
		ProxiedBy:              &proxiedBy,
	}
}

// TicketID implements Ticket.
func (t *GrantingTicket) TicketID() string { return t.ID }

// TicketKind implements Ticket.
func (t *GrantingTicket) TicketKind() Kind { return t.Kind }

// RootGrantingID implements Ticket.
func (t *GrantingTicket) RootGrantingID() string { return t.RootID }

// IsExpired implements Ticket.
func (t *GrantingTicket) IsExpired(now time.Time) bool {
	return t.Expired || t.Expiration.IsExpired(t.snapshot(), now)
}

// MarkExpired implements Ticket.
func (t *GrantingTicket) MarkExpired() { t.Expired = true }

func (t *GrantingTicket) snapshot() State {
	return State{CreationTime: t.CreationTime, LastUsedTime: t.LastUsedTime, CountOfUses: t.CountOfUses}
}

// RootAuthentication returns the authentication that established the session,
// i.e. the first element of the root-first chain.
func (t *GrantingTicket) RootAuthentication() auth.Authentication {
	if len(t.ChainedAuthentications) == 0 {
		return t.Authentication
	}
	return t.ChainedAuthentications[0]
}

// IsProxy reports whether this granting ticket is part of a proxy chain.
func (t *GrantingTicket) IsProxy() bool { return t.ProxiedBy != nil }

// HasServiceMatching reports whether a previously granted service ticket
// targeted a service matching the given one.
func (t *GrantingTicket) HasServiceMatching(svc services.Service, matcher services.Matcher) bool {
	for _, recorded := range t.Services {
		if matcher.Matches(svc.ID, recorded.ID) {
			return true
		}
	}
	return false
}

// GrantServiceTicket issues a child service ticket, records it under
// Services and updates usage state. The caller must hold the registry lock
// for this granting ticket and persist both tickets afterwards.
func (t *GrantingTicket) GrantServiceTicket(
	id string,
	svc services.Service,
	policy Policy,
	credentialProvided bool,
	now time.Time,
) *ServiceTicket {
	kind := KindST
	if t.Kind == KindPGT {
		kind = KindPT
	}
	st := &ServiceTicket{
		ID:           id,
		Kind:         kind,
		RootID:       t.RootID,
		GrantingID:   t.ID,
		CreationTime: now,
		LastUsedTime: now,
		Expiration:   policy,
		Service:      svc,
		FromNewLogin: t.CountOfUses == 0 || credentialProvided,
	}
	if t.IsProxy() {
		st.ProxiedBy = t.ProxiedBy
	}
	if t.Services == nil {
		t.Services = make(map[string]services.Service)
	}
	t.Services[id] = svc
	t.CountOfUses++
	t.LastUsedTime = now
	return st
}

// Clone implements Ticket.
func (t *GrantingTicket) Clone() Ticket {
	cp := *t
	cp.ChainedAuthentications = append([]auth.Authentication(nil), t.ChainedAuthentications...)
	cp.Supplemental = append([]auth.Authentication(nil), t.Supplemental...)
	if t.Services != nil {
		cp.Services = make(map[string]services.Service, len(t.Services))
		for k, v := range t.Services {
			cp.Services[k] = v
		}
	}
	if t.ProxiedBy != nil {
		proxied := *t.ProxiedBy
		cp.ProxiedBy = &proxied
	}
	return &cp
}

func (t *GrantingTicket) String() string {
	return fmt.Sprintf("%s(%s)", t.Kind, t.ID)
}

// ServiceTicket is the single-use credential a relying service redeems (kind
// ST), or its proxy-chain variant (kind PT).
type ServiceTicket struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	RootID       string    `json:"root_id"`
	GrantingID   string    `json:"granting_id"`
	CreationTime time.Time `json:"creation_time"`
	LastUsedTime time.Time `json:"last_used_time"`
	CountOfUses  int       `json:"count_of_uses"`
	Expiration   Policy    `json:"expiration"`
	Expired      bool      `json:"expired,omitempty"`

	Service      services.Service  `json:"service"`
	FromNewLogin bool              `json:"from_new_login"`
	ProxiedBy    *services.Service `json:"proxied_by,omitempty"`
}

// TicketID implements Ticket.
func (t *ServiceTicket) TicketID() string { return t.ID }

// TicketKind implements Ticket.
func (t *ServiceTicket) TicketKind() Kind { return t.Kind }

// RootGrantingID implements Ticket.
func (t *ServiceTicket) RootGrantingID() string { return t.RootID }

// IsExpired implements Ticket.
func (t *ServiceTicket) IsExpired(now time.Time) bool {
	return t.Expired || t.Expiration.IsExpired(t.snapshot(), now)
}

// MarkExpired implements Ticket.
func (t *ServiceTicket) MarkExpired() { t.Expired = true }

func (t *ServiceTicket) snapshot() State {
	return State{CreationTime: t.CreationTime, LastUsedTime: t.LastUsedTime, CountOfUses: t.CountOfUses}
}

// Consume records a validation use. With the usual single-use policy the
// ticket is expired afterwards and any further validation fails.
func (t *ServiceTicket) Consume(now time.Time) {
	t.CountOfUses++
	t.LastUsedTime = now
}

// Clone implements Ticket.
func (t *ServiceTicket) Clone() Ticket {
	cp := *t
	if t.ProxiedBy != nil {
		proxied := *t.ProxiedBy
		cp.ProxiedBy = &proxied
	}
	return &cp
}

func (t *ServiceTicket) String() string {
	return fmt.Sprintf("%s(%s)", t.Kind, t.ID)
}
