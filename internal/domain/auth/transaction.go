package auth

import (
	"github.com/charon-sso/charon/internal/domain/services"
)

// Transaction is the unit of work submitted to the authentication manager:
// the credentials collected during one browser/API interaction, plus the
// service the interaction targets when known. Transactions are created per
// request and discarded after use.
type Transaction struct {
	Credentials []Credential
	Service     *services.Service
}

// NewTransaction builds a transaction over the given credentials.
func NewTransaction(credentials ...Credential) Transaction {
	return Transaction{Credentials: credentials}
}

// ForService attaches the target service to the transaction.
func (t Transaction) ForService(svc services.Service) Transaction {
	t.Service = &svc
	return t
}

// Result is the outcome of one or more authentication transactions collected
// toward ticket issuance. CredentialProvided distinguishes a fresh login from
// pure SSO reuse of an existing session.
type Result struct {
	Authentications    []Authentication
	Service            *services.Service
	CredentialProvided bool
}

// ResultBuilder accumulates authentications across chained transactions,
// rejecting principal disagreement as soon as it is observed.
type ResultBuilder struct {
	authentications    []Authentication
	service            *services.Service
	credentialProvided bool
}

// NewResultBuilder starts an empty result builder.
func NewResultBuilder() *ResultBuilder { return &ResultBuilder{} }

// Collect appends an authentication, failing with MixedPrincipalError when it
// disagrees with the previously collected principal.
func (b *ResultBuilder) Collect(a Authentication) error {
	if len(b.authentications) > 0 && !b.authentications[0].SamePrincipal(a) {
		return &MixedPrincipalError{
			First:  b.authentications[0].Principal.ID,
			Second: a.Principal.ID,
		}
	}
	b.authentications = append(b.authentications, a)
	return nil
}

// WithService attaches the service context carried by the result.
func (b *ResultBuilder) WithService(svc services.Service) *ResultBuilder {
	b.service = &svc
	return b
}

// WithCredentialProvided marks that fresh credentials were supplied.
func (b *ResultBuilder) WithCredentialProvided(provided bool) *ResultBuilder {
	b.credentialProvided = provided
	return b
}

// Build produces the collected result.
func (b *ResultBuilder) Build() Result {
	return Result{
		Authentications:    append([]Authentication(nil), b.authentications...),
		Service:            b.service,
		CredentialProvided: b.credentialProvided,
	}
}

// Primary returns the most recently collected authentication. The boolean is
// false when the result is empty.
func (r Result) Primary() (Authentication, bool) {
	if len(r.Authentications) == 0 {
		return Authentication{}, false
	}
	return r.Authentications[len(r.Authentications)-1], true
}

// MixedPrincipals reports the first principal disagreement among the
// collected authentications, if any.
func (r Result) MixedPrincipals() *MixedPrincipalError {
	for i := 1; i < len(r.Authentications); i++ {
		if !r.Authentications[0].SamePrincipal(r.Authentications[i]) {
			return &MixedPrincipalError{
				First:  r.Authentications[0].Principal.ID,
				Second: r.Authentications[i].Principal.ID,
			}
		}
	}
	return nil
}
