package ports

// Package ports defines interfaces (hexagonal ports) for authentication
// behavior. Credential-specific implementations live in internal/adapters;
// orchestration in internal/service.

import (
	"context"

	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/domain/services"
)

// AuthenticationHandler authenticates a single credential it supports,
// producing a principal and attributes or failing with a typed
// *auth.HandlerError.
type AuthenticationHandler interface {
	// Name identifies the handler in success/failure maps and policies.
	Name() string

	// Supports reports whether this handler understands the credential type.
	Supports(c domainauth.Credential) bool

	// Authenticate verifies the credential. Implementations may block on
	// backing stores; they must honor context cancellation and must not
	// retry internally.
	Authenticate(ctx context.Context, c domainauth.Credential) (*domainauth.HandlerResult, error)
}

// PrincipalResolver enriches a handler-produced principal, typically from an
// attribute repository. Returning the null principal (or an error) makes the
// manager fall back to the handler's own principal unless principal
// resolution is configured as fatal.
type PrincipalResolver interface {
	Supports(c domainauth.Credential) bool
	Resolve(ctx context.Context, c domainauth.Credential, given domainauth.Principal) (domainauth.Principal, error)
}

// HandlerEntry pairs a handler with its optional principal resolver. The
// manager owns an explicit ordered list of entries; order decides which
// handler's principal wins when several could resolve it.
type HandlerEntry struct {
	Handler  AuthenticationHandler
	Resolver PrincipalResolver
}

// HandlerResolver narrows the candidate handler set for one transaction,
// e.g. to a registered service's required handlers. It fails fast when the
// target service is not authorized at all.
type HandlerResolver interface {
	Resolve(ctx context.Context, candidates []HandlerEntry, tx domainauth.Transaction) ([]HandlerEntry, error)
}

// MetadataPopulator decorates a successful in-progress authentication with
// derived attributes (e.g. multifactor context markers).
type MetadataPopulator interface {
	Supports(c domainauth.Credential) bool
	Populate(builder *domainauth.Builder, tx domainauth.Transaction)
}

// AuthenticationPolicy is a predicate over an in-progress authentication
// record deciding whether security requirements are met.
type AuthenticationPolicy interface {
	Name() string
	IsSatisfiedBy(a domainauth.Authentication) bool
}

// MultifactorProvider describes a registered multifactor authentication
// provider consulted during requested-context validation.
type MultifactorProvider interface {
	// ID is the provider identifier recorded in authentication context
	// attributes (e.g. "mfa-otp").
	ID() string

	// RankingOrder ranks provider strength; a satisfied provider of
	// equal-or-greater order covers a weaker requested one.
	RankingOrder() int

	// Available probes whether the provider can currently serve the given
	// service; unavailability triggers the failure-mode policy.
	Available(ctx context.Context, rs *services.RegisteredService) bool

	// FailureMode is the provider-level default, overridden per service and
	// falling back to the global default when undefined.
	FailureMode() services.FailureMode
}

// EventSink receives fire-and-forget notifications for authentication and
// ticket lifecycle events. Implementations must be non-blocking and must
// tolerate being a no-op; callers never branch on presence.
type EventSink interface {
	AuthenticationTransactionStarted(ctx context.Context, credentialID string)
	AuthenticationTransactionSuccessful(ctx context.Context, credentialID, handlerName string)
	AuthenticationPrincipalResolved(ctx context.Context, principalID string)
	TicketCreated(ctx context.Context, kind, ticketID string)
	TicketDestroyed(ctx context.Context, kind, ticketID string)
}
