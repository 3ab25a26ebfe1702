package service

import (
	"fmt"
	"sort"

	domainauth "github.com/charon-sso/charon/internal/domain/auth"
)

// AuthenticationError aggregates the per-handler outcomes of a failed
// authentication transaction. Every attempted handler's outcome is retained;
// nothing is silently dropped.
type AuthenticationError struct {
	Failures  map[string]domainauth.FailureKind
	Successes map[string]domainauth.HandlerResult
}

func (e *AuthenticationError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("authentication failed: %d/%d handlers failed %v",
		len(e.Failures), len(e.Failures)+len(e.Successes), names)
}

// UnresolvedPrincipalError reports that authentication succeeded at the
// handler level but no principal could be established.
type UnresolvedPrincipalError struct {
	Handler string
}

func (e *UnresolvedPrincipalError) Error() string {
	if e.Handler != "" {
		return fmt.Sprintf("no principal resolved from handler %q", e.Handler)
	}
	return "no principal resolved for authentication"
}

// UnauthorizedServiceError reports a service that is unknown to the service
// registry or administratively disabled.
type UnauthorizedServiceError struct {
	ServiceID string
	Reason    string
}

func (e *UnauthorizedServiceError) Error() string {
	return fmt.Sprintf("service %q is not authorized: %s", e.ServiceID, e.Reason)
}

// UnauthorizedSsoServiceError reports a ticket request that would reuse an
// existing session against a service that forbids SSO participation, or a
// proxy request whose target cannot be resolved.
type UnauthorizedSsoServiceError struct {
	ServiceID string
}

func (e *UnauthorizedSsoServiceError) Error() string {
	return fmt.Sprintf("service %q may not participate in single sign-on", e.ServiceID)
}

// UnauthorizedProxyingError reports a proxy-granting attempt by a service
// whose proxy policy forbids it.
type UnauthorizedProxyingError struct {
	ServiceID string
}

func (e *UnauthorizedProxyingError) Error() string {
	return fmt.Sprintf("service %q is not authorized to proxy", e.ServiceID)
}

// UnrecognizableServiceError reports that the service presented at
// validation does not match the service a ticket was issued for.
type UnrecognizableServiceError struct {
	Presented string
	Expected  string
}

func (e *UnrecognizableServiceError) Error() string {
	return fmt.Sprintf("presented service %q does not match ticket service %q", e.Presented, e.Expected)
}

// PrincipalAccessError reports a principal denied by a registered service's
// access strategy (required attributes not satisfied).
type PrincipalAccessError struct {
	PrincipalID string
	ServiceID   string
}

func (e *PrincipalAccessError) Error() string {
	return fmt.Sprintf("principal %q is denied access to service %q", e.PrincipalID, e.ServiceID)
}

// UnsatisfiedPolicyError reports an authentication that does not meet the
// security policy demanded for ticket issuance, including an unmet
// multifactor context requirement.
type UnsatisfiedPolicyError struct {
	Policy     string
	ProviderID string
}

func (e *UnsatisfiedPolicyError) Error() string {
	if e.ProviderID != "" {
		return fmt.Sprintf("authentication does not satisfy policy %q (provider %q)", e.Policy, e.ProviderID)
	}
	return fmt.Sprintf("authentication does not satisfy policy %q", e.Policy)
}
