package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charon-sso/charon/internal/core"
	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/domain/services"
	"github.com/charon-sso/charon/internal/domain/ticket"
	"github.com/charon-sso/charon/internal/ports"
)

// TicketPolicies bundles the expiration policies applied per ticket kind.
type TicketPolicies struct {
	Granting      ticket.Policy
	Service       ticket.Policy
	ProxyGranting ticket.Policy
	Proxy         ticket.Policy
}

// DefaultTicketPolicies mirrors the usual deployment: sliding-window session
// tickets and short single-use service tickets.
func DefaultTicketPolicies() TicketPolicies {
	return TicketPolicies{
		Granting:      ticket.SlidingWindowPolicy(2*time.Hour, 8*time.Hour),
		Service:       ticket.MultiUseOrTimeoutPolicy(1, 10*time.Second),
		ProxyGranting: ticket.SlidingWindowPolicy(2*time.Hour, 8*time.Hour),
		Proxy:         ticket.MultiUseOrTimeoutPolicy(1, 10*time.Second),
	}
}

// CentralServiceOptions configures a CentralService.
type CentralServiceOptions struct {
	Tickets  core.TicketRegistry
	Services core.ServiceRegistry

	// Locks serializes read-modify-write sequences per granting ticket id.
	Locks core.LockFactory

	// Matcher compares presented service ids against ticket service ids.
	// Defaults to exact normalized-URL matching.
	Matcher services.Matcher

	// ContextValidator checks multifactor requirements at grant time. When
	// nil, services demanding a multifactor context are refused.
	ContextValidator *ContextValidator

	Policies TicketPolicies
	Events   ports.EventSink
	Clock    core.Clock
	Logger   *slog.Logger
}

// CentralService is the ticket-issuing facade: it owns the TGT/ST/PGT/PT
// lifecycle and every authorization decision taken on the way. All operations
// leave no partial visible state behind on error.
type CentralService struct {
	tickets   core.TicketRegistry
	services  core.ServiceRegistry
	locks     core.LockFactory
	matcher   services.Matcher
	validator *ContextValidator
	policies  TicketPolicies
	events    ports.EventSink
	clock     core.Clock
	logger    *slog.Logger
}

// NewCentralService validates options and builds a CentralService.
func NewCentralService(opts CentralServiceOptions) (*CentralService, error) {
	if opts.Tickets == nil {
		return nil, errors.New("central service: a ticket registry is required")
	}
	if opts.Services == nil {
		return nil, errors.New("central service: a service registry is required")
	}
	if opts.Locks == nil {
		return nil, errors.New("central service: a lock factory is required")
	}
	s := &CentralService{
		tickets:   opts.Tickets,
		services:  opts.Services,
		locks:     opts.Locks,
		matcher:   opts.Matcher,
		validator: opts.ContextValidator,
		policies:  opts.Policies,
		events:    opts.Events,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
	if s.matcher == nil {
		s.matcher = services.ExactMatcher{}
	}
	if s.events == nil {
		s.events = nopEventSink{}
	}
	if s.clock == nil {
		s.clock = core.SystemClock{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "central-service")
	zero := TicketPolicies{}
	if s.policies == zero {
		s.policies = DefaultTicketPolicies()
	}
	return s, nil
}

// CreateTicketGrantingTicket establishes a new SSO session from a collected
// authentication result. The most recent authentication becomes the session
// authentication; earlier ones are retained as supplemental and never appear
// in validation assertions.
func (s *CentralService) CreateTicketGrantingTicket(
	ctx context.Context,
	result domainauth.Result,
) (*ticket.GrantingTicket, error) {
	primary, ok := result.Primary()
	if !ok {
		return nil, errors.New("central service: authentication result carries no authentication")
	}
	if merr := result.MixedPrincipals(); merr != nil {
		return nil, merr
	}
	if result.Service != nil {
		rs, err := s.resolveRegisteredService(ctx, *result.Service)
		if err != nil {
			return nil, err
		}
		if err := s.enforceAccess(ctx, rs, primary); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	tgt := ticket.NewGrantingTicket(ticket.NewID(ticket.PrefixTGT), primary, s.policies.Granting, now)
	tgt.Supplemental = append([]domainauth.Authentication(nil),
		result.Authentications[:len(result.Authentications)-1]...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.tickets.AddTicket(ctx, tgt); err != nil {
		return nil, fmt.Errorf("persisting granting ticket: %w", err)
	}
	s.events.TicketCreated(ctx, string(ticket.KindTGT), tgt.ID)
	s.logger.InfoContext(ctx, "granting ticket created",
		"ticket", tgt.ID, "principal", primary.Principal.ID)
	return tgt, nil
}

// GrantServiceTicket issues a service ticket for the given service from an
// established session. A zero result means pure SSO reuse with no fresh
// credential.
func (s *CentralService) GrantServiceTicket(
	ctx context.Context,
	tgtID string,
	svc services.Service,
	result domainauth.Result,
) (*ticket.ServiceTicket, error) {
	release := s.locks.AcquireTicketLock(tgtID)
	defer release()

	gt, err := s.getGrantingTicket(ctx, tgtID, ticket.KindTGT)
	if err != nil {
		return nil, err
	}
	rs, err := s.resolveRegisteredService(ctx, svc)
	if err != nil {
		return nil, err
	}

	root := gt.RootAuthentication()
	if primary, ok := result.Primary(); ok && !primary.SamePrincipal(root) {
		return nil, &domainauth.MixedPrincipalError{
			First:  root.Principal.ID,
			Second: primary.Principal.ID,
		}
	}
	if err := s.enforceAccess(ctx, rs, root); err != nil {
		return nil, err
	}
	if gt.HasServiceMatching(svc, s.matcher) && !result.CredentialProvided && !rs.SSOEnabled {
		return nil, &UnauthorizedSsoServiceError{ServiceID: svc.ID}
	}
	if err := s.enforceMultifactor(ctx, rs, root); err != nil {
		return nil, err
	}

	return s.grant(ctx, gt, svc, result.CredentialProvided)
}

// GrantProxyTicket issues a proxy ticket from a proxy-granting ticket. The
// resulting ticket carries the full proxy chain.
func (s *CentralService) GrantProxyTicket(
	ctx context.Context,
	pgtID string,
	svc services.Service,
) (*ticket.ServiceTicket, error) {
	release := s.locks.AcquireTicketLock(pgtID)
	defer release()

	gt, err := s.getGrantingTicket(ctx, pgtID, ticket.KindPGT)
	if err != nil {
		return nil, err
	}
	rs, err := s.services.FindServiceBy(ctx, svc)
	if err != nil {
		return nil, fmt.Errorf("looking up service %q: %w", svc.ID, err)
	}
	if rs == nil || !rs.Enabled {
		return nil, &UnauthorizedSsoServiceError{ServiceID: svc.ID}
	}
	root := gt.RootAuthentication()
	if err := s.enforceAccess(ctx, rs, root); err != nil {
		return nil, err
	}
	if err := s.enforceMultifactor(ctx, rs, root); err != nil {
		return nil, err
	}

	return s.grant(ctx, gt, svc, false)
}

// CreateProxyGrantingTicket derives a proxy-granting ticket from a validated
// service ticket, allowing the ticket's owning service to act on behalf of
// the user toward back-end services.
func (s *CentralService) CreateProxyGrantingTicket(
	ctx context.Context,
	stID string,
	result domainauth.Result,
) (*ticket.GrantingTicket, error) {
	proxyAuth, ok := result.Primary()
	if !ok {
		return nil, errors.New("central service: proxy authentication result carries no authentication")
	}

	raw, err := s.tickets.GetTicket(ctx, stID, ticket.KindST)
	if err != nil {
		return nil, err
	}
	st, ok := raw.(*ticket.ServiceTicket)
	if !ok {
		return nil, ticket.NewInvalidTicketError(stID, ticket.KindST, "unexpected stored ticket shape")
	}

	rs, err := s.resolveRegisteredService(ctx, st.Service)
	if err != nil {
		return nil, err
	}
	if !rs.Proxy.PermitsProxying(st.Service.ID) {
		return nil, &UnauthorizedProxyingError{ServiceID: st.Service.ID}
	}

	parent, err := s.getGrantingTicket(ctx, st.GrantingID, ticket.KindTGT)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	pgt := ticket.NewProxyGrantingTicket(
		ticket.NewID(ticket.PrefixPGT), proxyAuth, parent, st.Service, s.policies.ProxyGranting, now)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.tickets.AddTicket(ctx, pgt); err != nil {
		return nil, fmt.Errorf("persisting proxy-granting ticket: %w", err)
	}
	s.events.TicketCreated(ctx, string(ticket.KindPGT), pgt.ID)
	s.logger.InfoContext(ctx, "proxy-granting ticket created",
		"ticket", pgt.ID, "proxied_by", st.Service.ID)
	return pgt, nil
}

// ValidateServiceTicket redeems a service ticket for the presented service.
// The ticket is consumed; with the usual single-use policy a second
// validation of the same id fails.
func (s *CentralService) ValidateServiceTicket(
	ctx context.Context,
	stID string,
	presented services.Service,
) (*Assertion, error) {
	release := s.locks.AcquireTicketLock(stID)
	defer release()

	raw, err := s.tickets.GetTicket(ctx, stID, ticket.KindST)
	if err != nil {
		return nil, err
	}
	st, ok := raw.(*ticket.ServiceTicket)
	if !ok {
		return nil, ticket.NewInvalidTicketError(stID, ticket.KindST, "unexpected stored ticket shape")
	}

	rs, err := s.services.FindServiceBy(ctx, presented)
	if err != nil {
		return nil, fmt.Errorf("looking up service %q: %w", presented.ID, err)
	}
	if rs == nil {
		return nil, &UnrecognizableServiceError{Presented: presented.ID}
	}
	if !s.matcher.Matches(presented.ID, st.Service.ID) {
		return nil, &UnrecognizableServiceError{Presented: presented.ID, Expected: st.Service.ID}
	}

	gt, err := s.getGrantingTicket(ctx, st.GrantingID, "")
	if err != nil {
		return nil, err
	}
	if err := s.enforceAccess(ctx, rs, gt.RootAuthentication()); err != nil {
		return nil, err
	}

	st.Consume(s.clock.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.tickets.UpdateTicket(ctx, st); err != nil {
		return nil, fmt.Errorf("consuming service ticket: %w", err)
	}

	assertion, err := newAssertion(gt, st, presented, rs.Release)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "service ticket validated",
		"ticket", stID, "service", presented.ID, "principal", assertion.Primary.Principal.ID)
	return assertion, nil
}

// DestroyTicketGrantingTicket ends a session, cascading to every descendant
// ticket. A missing id is a no-op; the returned count is the number of
// tickets removed.
func (s *CentralService) DestroyTicketGrantingTicket(ctx context.Context, tgtID string) (int, error) {
	release := s.locks.AcquireTicketLock(tgtID)
	defer release()

	removed, err := s.tickets.DeleteTicket(ctx, tgtID)
	if err != nil {
		return 0, fmt.Errorf("destroying granting ticket: %w", err)
	}
	if removed > 0 {
		s.events.TicketDestroyed(ctx, string(ticket.KindTGT), tgtID)
		s.logger.InfoContext(ctx, "granting ticket destroyed",
			"ticket", tgtID, "removed", removed)
	}
	return removed, nil
}

// grant issues a child service ticket under the held lock and persists both
// sides, compensating if the second write fails.
func (s *CentralService) grant(
	ctx context.Context,
	gt *ticket.GrantingTicket,
	svc services.Service,
	credentialProvided bool,
) (*ticket.ServiceTicket, error) {
	prefix := ticket.PrefixST
	policy := s.policies.Service
	if gt.Kind == ticket.KindPGT {
		prefix = ticket.PrefixPT
		policy = s.policies.Proxy
	}
	st := gt.GrantServiceTicket(ticket.NewID(prefix), svc, policy, credentialProvided, s.clock.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.tickets.AddTicket(ctx, st); err != nil {
		return nil, fmt.Errorf("persisting service ticket: %w", err)
	}
	if err := s.tickets.UpdateTicket(ctx, gt); err != nil {
		if _, derr := s.tickets.DeleteTicket(ctx, st.ID); derr != nil {
			s.logger.ErrorContext(ctx, "orphaned service ticket after failed granting-ticket update",
				"ticket", st.ID, "error", derr)
		}
		return nil, fmt.Errorf("updating granting ticket: %w", err)
	}
	s.events.TicketCreated(ctx, string(st.Kind), st.ID)
	s.logger.InfoContext(ctx, "service ticket granted",
		"ticket", st.ID, "granting", gt.ID, "service", svc.ID, "from_new_login", st.FromNewLogin)
	return st, nil
}

// getGrantingTicket fetches and type-asserts a live granting ticket.
func (s *CentralService) getGrantingTicket(ctx context.Context, id string, expected ticket.Kind) (*ticket.GrantingTicket, error) {
	raw, err := s.tickets.GetTicket(ctx, id, expected)
	if err != nil {
		return nil, err
	}
	gt, ok := raw.(*ticket.GrantingTicket)
	if !ok {
		return nil, ticket.NewInvalidTicketError(id, expected, "unexpected stored ticket shape")
	}
	return gt, nil
}

// resolveRegisteredService looks up the registration, failing when the
// service is unknown or disabled.
func (s *CentralService) resolveRegisteredService(ctx context.Context, svc services.Service) (*services.RegisteredService, error) {
	rs, err := s.services.FindServiceBy(ctx, svc)
	if err != nil {
		return nil, fmt.Errorf("looking up service %q: %w", svc.ID, err)
	}
	if rs == nil {
		return nil, &UnauthorizedServiceError{ServiceID: svc.ID, Reason: "service is not registered"}
	}
	if !rs.Enabled {
		return nil, &UnauthorizedServiceError{ServiceID: svc.ID, Reason: "service is disabled"}
	}
	return rs, nil
}

// enforceAccess applies the registration's access strategy against the
// session principal's attributes combined with authentication attributes.
func (s *CentralService) enforceAccess(ctx context.Context, rs *services.RegisteredService, a domainauth.Authentication) error {
	attrs := domainauth.MergeAttributes(
		domainauth.CopyAttributes(a.Principal.Attributes), a.Attributes)
	if !rs.AccessAllowed(attrs) {
		s.logger.WarnContext(ctx, "principal denied by access strategy",
			"principal", a.Principal.ID, "service", rs.ServiceID)
		return &PrincipalAccessError{PrincipalID: a.Principal.ID, ServiceID: rs.ServiceID}
	}
	return nil
}

// enforceMultifactor checks a service's required authentication context.
func (s *CentralService) enforceMultifactor(ctx context.Context, rs *services.RegisteredService, a domainauth.Authentication) error {
	if rs.MFA.ProviderID == "" {
		return nil
	}
	if s.validator == nil {
		return &UnsatisfiedPolicyError{Policy: "multifactor", ProviderID: rs.MFA.ProviderID}
	}
	satisfied, _ := s.validator.Validate(ctx, a, rs.MFA.ProviderID, rs)
	if !satisfied {
		return &UnsatisfiedPolicyError{Policy: "multifactor", ProviderID: rs.MFA.ProviderID}
	}
	return nil
}
