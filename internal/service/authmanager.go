package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charon-sso/charon/internal/core"
	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/ports"
)

// nopEventSink discards all events.
type nopEventSink struct{}

func (nopEventSink) AuthenticationTransactionStarted(context.Context, string)       {}
func (nopEventSink) AuthenticationTransactionSuccessful(context.Context, string, string) {
}
func (nopEventSink) AuthenticationPrincipalResolved(context.Context, string) {}
func (nopEventSink) TicketCreated(context.Context, string, string)           {}
func (nopEventSink) TicketDestroyed(context.Context, string, string)         {}

// NopEventSink returns an EventSink that drops everything.
func NopEventSink() ports.EventSink { return nopEventSink{} }

// AuthManagerOptions configures an AuthManager.
type AuthManagerOptions struct {
	// Plan is the ordered list of handler entries. Order is authoritative:
	// the first handler to succeed for a credential decides its principal.
	Plan []ports.HandlerEntry

	// Resolver narrows the plan per transaction. Defaults to passing the
	// whole plan through.
	Resolver ports.HandlerResolver

	// Policies are evaluated, all of them, against the in-progress
	// authentication after each handler success; once every policy is
	// satisfied remaining credentials are skipped. An implicit
	// at-least-one-success requirement always applies first.
	Policies []ports.AuthenticationPolicy

	// Populators decorate the successful authentication with derived
	// attributes before it is sealed.
	Populators []ports.MetadataPopulator

	// Events receives lifecycle notifications. Defaults to a no-op sink.
	Events ports.EventSink

	// PrincipalResolutionFatal makes a resolver error or null-principal
	// resolution fail the handler attempt instead of falling back to the
	// handler-produced principal.
	PrincipalResolutionFatal bool

	Clock  core.Clock
	Logger *slog.Logger
}

// AuthManager runs authentication transactions through an ordered handler
// chain, aggregating per-handler outcomes and enforcing authentication
// policies. It is safe for concurrent use.
type AuthManager struct {
	plan       []ports.HandlerEntry
	resolver   ports.HandlerResolver
	policies   []ports.AuthenticationPolicy
	populators []ports.MetadataPopulator
	events     ports.EventSink
	fatal      bool
	clock      core.Clock
	logger     *slog.Logger
}

// NewAuthManager validates options and builds an AuthManager.
func NewAuthManager(opts AuthManagerOptions) (*AuthManager, error) {
	if len(opts.Plan) == 0 {
		return nil, errors.New("authmanager: at least one handler is required")
	}
	for i, entry := range opts.Plan {
		if entry.Handler == nil {
			return nil, fmt.Errorf("authmanager: plan entry %d has a nil handler", i)
		}
	}
	m := &AuthManager{
		plan:       append([]ports.HandlerEntry(nil), opts.Plan...),
		resolver:   opts.Resolver,
		policies:   append([]ports.AuthenticationPolicy(nil), opts.Policies...),
		populators: append([]ports.MetadataPopulator(nil), opts.Populators...),
		events:     opts.Events,
		fatal:      opts.PrincipalResolutionFatal,
		clock:      opts.Clock,
		logger:     opts.Logger,
	}
	if m.resolver == nil {
		m.resolver = allHandlersResolver{}
	}
	if m.events == nil {
		m.events = nopEventSink{}
	}
	if m.clock == nil {
		m.clock = core.SystemClock{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "authmanager")
	return m, nil
}

// Authenticate runs the transaction's credentials, in order, through the
// handler chain and returns the sealed authentication. The returned
// authentication always has a non-null principal and at least one success;
// any failure path returns a typed error carrying the aggregated outcomes.
func (m *AuthManager) Authenticate(ctx context.Context, tx domainauth.Transaction) (domainauth.Authentication, error) {
	if len(tx.Credentials) == 0 {
		return domainauth.Authentication{}, errors.New("authmanager: transaction has no credentials")
	}

	entries, err := m.resolver.Resolve(ctx, m.plan, tx)
	if err != nil {
		return domainauth.Authentication{}, err
	}
	if len(entries) == 0 {
		return domainauth.Authentication{}, errors.New("authmanager: no authentication handlers can serve this transaction")
	}

	builder := domainauth.NewBuilder(m.clock.Now())
	for _, c := range tx.Credentials {
		builder.AddCredential(domainauth.NewCredentialMetadata(c))
	}

	if err := m.runCredentials(ctx, builder, entries, tx); err != nil {
		return domainauth.Authentication{}, err
	}
	if err := m.evaluateFinal(builder.Build()); err != nil {
		return domainauth.Authentication{}, err
	}

	m.decorate(builder, tx)

	authn := builder.Build()
	if authn.Principal.IsNull() {
		return domainauth.Authentication{}, &UnresolvedPrincipalError{}
	}
	m.events.AuthenticationPrincipalResolved(ctx, authn.Principal.ID)
	m.logger.InfoContext(ctx, "authentication successful",
		"principal", authn.Principal.ID,
		"successes", len(authn.Successes),
		"failures", len(authn.Failures),
	)
	return authn, nil
}

// runCredentials walks credentials in presentation order, attempting each
// supporting handler in plan order, and stops early once every configured
// policy is satisfied.
func (m *AuthManager) runCredentials(
	ctx context.Context,
	builder *domainauth.Builder,
	entries []ports.HandlerEntry,
	tx domainauth.Transaction,
) error {
	for _, credential := range tx.Credentials {
		if err := ctx.Err(); err != nil {
			return err
		}
		supported := false
		for _, entry := range entries {
			if !entry.Handler.Supports(credential) {
				continue
			}
			supported = true
			if m.attempt(ctx, builder, entry, credential) && m.satisfied(builder.Build()) {
				return nil
			}
		}
		if !supported {
			m.logger.WarnContext(ctx, "no handler supports credential",
				"credential", credential.CredentialID())
			builder.AddFailure("unsupported:"+credential.CredentialID(), domainauth.FailurePrevented)
		}
	}
	return nil
}

// attempt runs one handler against one credential and records the outcome.
// It reports whether the attempt succeeded.
func (m *AuthManager) attempt(
	ctx context.Context,
	builder *domainauth.Builder,
	entry ports.HandlerEntry,
	credential domainauth.Credential,
) bool {
	name := entry.Handler.Name()
	m.events.AuthenticationTransactionStarted(ctx, credential.CredentialID())

	result, err := entry.Handler.Authenticate(ctx, credential)
	if err != nil {
		builder.AddFailure(name, failureKind(err))
		m.logger.InfoContext(ctx, "handler failed",
			"handler", name,
			"credential", credential.CredentialID(),
			"error", err,
		)
		return false
	}

	principal, err := m.resolvePrincipal(ctx, entry, credential, result.Principal)
	if err != nil {
		builder.AddFailure(name, domainauth.FailurePrevented)
		m.logger.WarnContext(ctx, "principal resolution failed",
			"handler", name, "error", err)
		return false
	}

	resolved := *result
	resolved.HandlerName = name
	resolved.Principal = principal
	builder.AddSuccess(name, resolved)
	if builder.Principal().IsNull() && !principal.IsNull() {
		builder.SetPrincipal(principal)
		builder.MergeAttributes(principal.Attributes)
	}
	m.events.AuthenticationTransactionSuccessful(ctx, credential.CredentialID(), name)
	m.logger.DebugContext(ctx, "handler succeeded",
		"handler", name, "principal", principal.ID)
	return true
}

// resolvePrincipal applies the entry's resolver when it supports the
// credential, falling back to the handler-produced principal unless
// resolution is fatal.
func (m *AuthManager) resolvePrincipal(
	ctx context.Context,
	entry ports.HandlerEntry,
	credential domainauth.Credential,
	given domainauth.Principal,
) (domainauth.Principal, error) {
	if entry.Resolver == nil || !entry.Resolver.Supports(credential) {
		return given, nil
	}
	resolved, err := entry.Resolver.Resolve(ctx, credential, given)
	if err != nil {
		if m.fatal {
			return domainauth.Principal{}, fmt.Errorf("resolving principal for %s: %w", entry.Handler.Name(), err)
		}
		m.logger.WarnContext(ctx, "principal resolver errored, using handler principal",
			"handler", entry.Handler.Name(), "error", err)
		return given, nil
	}
	if resolved.IsNull() {
		if m.fatal {
			return domainauth.Principal{}, &UnresolvedPrincipalError{Handler: entry.Handler.Name()}
		}
		return given, nil
	}
	return resolved, nil
}

// satisfied reports whether every configured policy holds; with no policies
// configured a single success suffices.
func (m *AuthManager) satisfied(a domainauth.Authentication) bool {
	if len(a.Successes) == 0 {
		return false
	}
	for _, p := range m.policies {
		if !p.IsSatisfiedBy(a) {
			return false
		}
	}
	return true
}

// evaluateFinal turns an unsatisfied transaction into a typed aggregate error.
func (m *AuthManager) evaluateFinal(a domainauth.Authentication) error {
	if m.satisfied(a) {
		return nil
	}
	return &AuthenticationError{Failures: a.Failures, Successes: a.Successes}
}

// decorate stamps the authenticationMethod attribute and runs the metadata
// populators for every supported credential.
func (m *AuthManager) decorate(builder *domainauth.Builder, tx domainauth.Transaction) {
	for name := range builder.Build().Successes {
		builder.AddAttribute(domainauth.AttrAuthenticationMethod, name)
	}
	for _, populator := range m.populators {
		for _, credential := range tx.Credentials {
			if populator.Supports(credential) {
				populator.Populate(builder, tx)
				break
			}
		}
	}
}

// failureKind classifies a handler error, defaulting to prevented for
// anything untyped (backend outages, context cancellation).
func failureKind(err error) domainauth.FailureKind {
	var he *domainauth.HandlerError
	if errors.As(err, &he) && he.Kind != "" {
		return he.Kind
	}
	return domainauth.FailurePrevented
}
