package service

import (
	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/ports"
)

// MultifactorContextPopulator records the multifactor provider satisfied by a
// handler into the authentication's context attribute, so later context
// validation can see which factors the session already holds.
type MultifactorContextPopulator struct {
	// ContextAttribute is the authentication attribute collecting satisfied
	// provider ids.
	ContextAttribute string
	// Handler is the authentication handler whose success marks the
	// provider as satisfied.
	Handler ports.AuthenticationHandler
	// ProviderID is the multifactor provider this handler satisfies.
	ProviderID string
}

// Supports implements ports.MetadataPopulator.
func (p *MultifactorContextPopulator) Supports(c domainauth.Credential) bool {
	return p.Handler.Supports(c)
}

// Populate implements ports.MetadataPopulator.
func (p *MultifactorContextPopulator) Populate(builder *domainauth.Builder, _ domainauth.Transaction) {
	if _, ok := builder.Build().Successes[p.Handler.Name()]; ok {
		builder.AddAttribute(p.ContextAttribute, p.ProviderID)
	}
}
