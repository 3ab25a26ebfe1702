package auth

import "fmt"

// FailureKind classifies a handler-level authentication failure. The kinds
// mirror the typed security exceptions surfaced to protocol layers.
type FailureKind string

const (
	// FailureBadCredentials means the credential was recognized but wrong.
	FailureBadCredentials FailureKind = "bad_credentials"
	// FailureAccountNotFound means no account matches the credential id.
	FailureAccountNotFound FailureKind = "account_not_found"
	// FailureAccountLocked means the account exists but is administratively locked.
	FailureAccountLocked FailureKind = "account_locked"
	// FailureCredentialExpired means the credential is valid but past its lifetime.
	FailureCredentialExpired FailureKind = "credential_expired"
	// FailurePrevented means the handler could not complete the attempt at
	// all (backend unavailable, protocol error).
	FailurePrevented FailureKind = "prevented"
)

// HandlerError is the typed failure a handler returns for a credential it
// supports but cannot authenticate. The chain recovers from handler errors
// locally; they are aggregated, never silently dropped.
type HandlerError struct {
	Handler string
	Kind    FailureKind
	Err     error
}

func (e *HandlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("handler %s: %s: %v", e.Handler, e.Kind, e.Err)
	}
	return fmt.Sprintf("handler %s: %s", e.Handler, e.Kind)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// NewHandlerError builds a HandlerError with the given classification.
func NewHandlerError(handler string, kind FailureKind, err error) *HandlerError {
	return &HandlerError{Handler: handler, Kind: kind, Err: err}
}

// MixedPrincipalError reports that two authentications collected into one
// result, or an authentication presented against an existing session,
// disagree on principal id.
type MixedPrincipalError struct {
	First  string
	Second string
}

func (e *MixedPrincipalError) Error() string {
	return fmt.Sprintf("mixed principals: %q does not match %q", e.Second, e.First)
}
