package service

import (
	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/domain/services"
	"github.com/charon-sso/charon/internal/domain/ticket"
)

// Assertion is the validated identity result handed back to a relying
// service. Primary carries the session principal with attributes already
// filtered through the registered service's release policy. Chained lists the
// authentications of the granting chain root-first; supplemental
// authentications that merely satisfied policy never appear here.
type Assertion struct {
	Primary      domainauth.Authentication   `json:"primary"`
	Chained      []domainauth.Authentication `json:"chained,omitempty"`
	Service      services.Service            `json:"service"`
	FromNewLogin bool                        `json:"from_new_login"`
}

// newAssertion projects the granting chain into an assertion for the
// presented service, applying the attribute release policy to the principal.
func newAssertion(
	gt *ticket.GrantingTicket,
	st *ticket.ServiceTicket,
	presented services.Service,
	release services.ReleasePolicy,
) (*Assertion, error) {
	root := gt.RootAuthentication()
	released, err := release.Release(root.Principal.Attributes)
	if err != nil {
		return nil, err
	}
	primary := domainauth.NewBuilderFrom(root).
		SetPrincipal(domainauth.Principal{ID: root.Principal.ID, Attributes: released}).
		Build()
	return &Assertion{
		Primary:      primary,
		Chained:      append([]domainauth.Authentication(nil), gt.ChainedAuthentications...),
		Service:      presented,
		FromNewLogin: st.FromNewLogin,
	}, nil
}
