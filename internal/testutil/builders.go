package testutil

import (
	"time"

	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/domain/services"
)

// Authentication builds a minimal successful authentication for a principal.
func Authentication(principalID string, date time.Time) domainauth.Authentication {
	b := domainauth.NewBuilder(date)
	b.SetPrincipal(domainauth.NewPrincipal(principalID))
	b.AddCredential(domainauth.CredentialMetadata{ID: principalID, Type: "UsernamePassword"})
	b.AddSuccess("accept-users", domainauth.HandlerResult{
		HandlerName: "accept-users",
		Principal:   domainauth.NewPrincipal(principalID),
	})
	return b.Build()
}

// AuthenticationWithAttributes builds an authentication carrying the given
// multi-valued attributes.
func AuthenticationWithAttributes(principalID string, date time.Time, attrs map[string][]any) domainauth.Authentication {
	b := domainauth.NewBuilderFrom(Authentication(principalID, date))
	b.SetPrincipal(domainauth.NewPrincipalWithAttributes(principalID, attrs))
	b.MergeAttributes(attrs)
	return b.Build()
}

// RegisteredService builds an enabled exact-match registration for an id.
func RegisteredService(id int64, serviceID string) *services.RegisteredService {
	return &services.RegisteredService{
		ID:         id,
		Name:       serviceID,
		ServiceID:  serviceID,
		MatchKind:  services.MatchExact,
		Enabled:    true,
		SSOEnabled: true,
		Release:    services.ReleasePolicy{Mode: services.ReleaseAll},
	}
}

// AuthResult wraps a single authentication into a result, marking that fresh
// credentials were provided.
func AuthResult(a domainauth.Authentication) domainauth.Result {
	b := domainauth.NewResultBuilder().WithCredentialProvided(true)
	_ = b.Collect(a)
	return b.Build()
}
