package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/domain/services"
	"github.com/charon-sso/charon/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthenticationHandler = (*StubHandler)(nil)
	_ ports.PrincipalResolver     = (*StubResolver)(nil)
	_ ports.MultifactorProvider   = (*StubProvider)(nil)
	_ ports.EventSink             = (*RecordingEventSink)(nil)
)

// StubHandler is a scriptable authentication handler.
type StubHandler struct {
	HandlerName  string
	SupportsFunc func(c domainauth.Credential) bool
	AuthFunc     func(ctx context.Context, c domainauth.Credential) (*domainauth.HandlerResult, error)

	mu    sync.Mutex
	calls []string
}

// Name implements ports.AuthenticationHandler.
func (h *StubHandler) Name() string { return h.HandlerName }

// Supports implements ports.AuthenticationHandler.
func (h *StubHandler) Supports(c domainauth.Credential) bool {
	if h.SupportsFunc != nil {
		return h.SupportsFunc(c)
	}
	return true
}

// Authenticate implements ports.AuthenticationHandler.
func (h *StubHandler) Authenticate(ctx context.Context, c domainauth.Credential) (*domainauth.HandlerResult, error) {
	h.mu.Lock()
	h.calls = append(h.calls, c.CredentialID())
	h.mu.Unlock()
	if h.AuthFunc != nil {
		return h.AuthFunc(ctx, c)
	}
	return &domainauth.HandlerResult{
		HandlerName: h.HandlerName,
		Principal:   domainauth.NewPrincipal(c.CredentialID()),
		Metadata:    domainauth.NewCredentialMetadata(c),
	}, nil
}

// Calls returns the credential ids this handler was invoked with, in order.
func (h *StubHandler) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

// Succeeding returns a handler that accepts everything and resolves the
// credential id as principal.
func Succeeding(name string) *StubHandler {
	return &StubHandler{HandlerName: name}
}

// Failing returns a handler that fails every credential with the given kind.
func Failing(name string, kind domainauth.FailureKind) *StubHandler {
	return &StubHandler{
		HandlerName: name,
		AuthFunc: func(_ context.Context, _ domainauth.Credential) (*domainauth.HandlerResult, error) {
			return nil, domainauth.NewHandlerError(name, kind, nil)
		},
	}
}

// StubResolver is a scriptable principal resolver.
type StubResolver struct {
	SupportsFunc func(c domainauth.Credential) bool
	ResolveFunc  func(ctx context.Context, c domainauth.Credential, given domainauth.Principal) (domainauth.Principal, error)
}

// Supports implements ports.PrincipalResolver.
func (r *StubResolver) Supports(c domainauth.Credential) bool {
	if r.SupportsFunc != nil {
		return r.SupportsFunc(c)
	}
	return true
}

// Resolve implements ports.PrincipalResolver.
func (r *StubResolver) Resolve(ctx context.Context, c domainauth.Credential, given domainauth.Principal) (domainauth.Principal, error) {
	if r.ResolveFunc != nil {
		return r.ResolveFunc(ctx, c, given)
	}
	return given, nil
}

// StubProvider is a scriptable multifactor provider.
type StubProvider struct {
	ProviderID string
	Order      int
	Up         bool
	Mode       services.FailureMode
}

// ID implements ports.MultifactorProvider.
func (p *StubProvider) ID() string { return p.ProviderID }

// RankingOrder implements ports.MultifactorProvider.
func (p *StubProvider) RankingOrder() int { return p.Order }

// Available implements ports.MultifactorProvider.
func (p *StubProvider) Available(context.Context, *services.RegisteredService) bool { return p.Up }

// FailureMode implements ports.MultifactorProvider.
func (p *StubProvider) FailureMode() services.FailureMode { return p.Mode }

// RecordingEventSink captures every event for assertion.
type RecordingEventSink struct {
	mu     sync.Mutex
	Events []string
}

func (s *RecordingEventSink) record(e string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, e)
}

// AuthenticationTransactionStarted implements ports.EventSink.
func (s *RecordingEventSink) AuthenticationTransactionStarted(_ context.Context, credentialID string) {
	s.record("started:" + credentialID)
}

// AuthenticationTransactionSuccessful implements ports.EventSink.
func (s *RecordingEventSink) AuthenticationTransactionSuccessful(_ context.Context, credentialID, handlerName string) {
	s.record("successful:" + credentialID + ":" + handlerName)
}

// AuthenticationPrincipalResolved implements ports.EventSink.
func (s *RecordingEventSink) AuthenticationPrincipalResolved(_ context.Context, principalID string) {
	s.record("resolved:" + principalID)
}

// TicketCreated implements ports.EventSink.
func (s *RecordingEventSink) TicketCreated(_ context.Context, kind, _ string) {
	s.record("created:" + kind)
}

// TicketDestroyed implements ports.EventSink.
func (s *RecordingEventSink) TicketDestroyed(_ context.Context, kind, _ string) {
	s.record("destroyed:" + kind)
}

// Recorded returns a copy of the captured event log.
func (s *RecordingEventSink) Recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Events...)
}
