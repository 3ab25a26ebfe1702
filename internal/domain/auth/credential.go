package auth

// Package auth contains domain-level types for authentication: credentials,
// principals and the immutable Authentication record. It is pure and free of
// framework/adapter concerns.

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Credential is an opaque input to authentication. The ID is a stable
// identifier used for correlation and logging only; it must never contain
// secret material. Credentials are immutable once presented.
type Credential interface {
	// CredentialID returns the correlation identifier for this credential,
	// typically the username or certificate subject.
	CredentialID() string
}

// UsernamePassword is the classic form-login credential.
type UsernamePassword struct {
	Username string
	Password string
}

// CredentialID implements Credential.
func (c *UsernamePassword) CredentialID() string { return c.Username }

func (c *UsernamePassword) String() string { return c.Username }

// OneTimePassword carries a one-time token for a second authentication factor.
type OneTimePassword struct {
	Username string
	Token    string
}

// CredentialID implements Credential.
func (c *OneTimePassword) CredentialID() string { return c.Username }

func (c *OneTimePassword) String() string { return c.Username }

// DelegatedIDToken is produced by a protocol adapter after an upstream
// identity provider redirected back with a raw OIDC ID token. The nonce is
// the value bound to the login request, verified against the token claims.
type DelegatedIDToken struct {
	RawToken string
	Nonce    string

	// Subject is filled in by the adapter when already known; it is only
	// used for correlation before the token is verified.
	Subject string
}

// CredentialID implements Credential.
func (c *DelegatedIDToken) CredentialID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return "delegated-" + uuid.NewString()
}

func (c *DelegatedIDToken) String() string { return c.CredentialID() }

// CredentialMetadata is a serializable summary of a credential, retained
// after the credential itself (which may hold secrets) is discarded.
type CredentialMetadata struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// NewCredentialMetadata captures the identifying summary of a credential.
func NewCredentialMetadata(c Credential) CredentialMetadata {
	return CredentialMetadata{
		ID:   c.CredentialID(),
		Type: credentialType(c),
	}
}

// credentialType derives a short, stable type tag from the concrete credential
// type, e.g. "UsernamePassword".
func credentialType(c Credential) string {
	t := fmt.Sprintf("%T", c)
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		t = t[i+1:]
	}
	return strings.TrimPrefix(t, "*")
}
