package auth

import (
	"time"
)

// AttrAuthenticationMethod records which handler name(s) produced the
// successful authentication.
const AttrAuthenticationMethod = "authenticationMethod"

// MessageDescriptor is a renderable, parameterized message attached to a
// handler result (e.g. password-expiry warnings).
type MessageDescriptor struct {
	Code           string `json:"code"`
	DefaultMessage string `json:"default_message,omitempty"`
	Params         []any  `json:"params,omitempty"`
}

// HandlerResult is the output of a successful handler invocation.
type HandlerResult struct {
	HandlerName string              `json:"handler_name"`
	Principal   Principal           `json:"principal"`
	Metadata    CredentialMetadata  `json:"metadata"`
	Warnings    []MessageDescriptor `json:"warnings,omitempty"`
}

// Authentication is the immutable record of one successful authentication
// transaction. For any Authentication handed to callers, Successes is
// non-empty and Principal is never the null principal.
type Authentication struct {
	Date               time.Time                `json:"date"`
	Principal          Principal                `json:"principal"`
	CredentialMetadata []CredentialMetadata     `json:"credential_metadata,omitempty"`
	Successes          map[string]HandlerResult `json:"successes"`
	Failures           map[string]FailureKind   `json:"failures,omitempty"`
	Attributes         map[string][]any         `json:"attributes,omitempty"`
}

// SamePrincipal reports whether two authentications agree on principal id.
func (a Authentication) SamePrincipal(other Authentication) bool {
	return a.Principal.ID == other.Principal.ID
}

// Builder accumulates the state of an in-progress authentication and produces
// immutable Authentication snapshots. It is not safe for concurrent use; a
// builder belongs to exactly one transaction.
type Builder struct {
	date        time.Time
	principal   Principal
	credentials []CredentialMetadata
	successes   map[string]HandlerResult
	failures    map[string]FailureKind
	attributes  map[string][]any
}

// NewBuilder starts a builder seeded with the null principal at the given
// authentication instant.
func NewBuilder(date time.Time) *Builder {
	return &Builder{
		date:      date,
		principal: NullPrincipal(),
		successes: make(map[string]HandlerResult),
		failures:  make(map[string]FailureKind),
	}
}

// NewBuilderFrom seeds a builder with the contents of an existing
// authentication, used to derive a projection (e.g. attribute release).
func NewBuilderFrom(a Authentication) *Builder {
	b := NewBuilder(a.Date)
	b.principal = a.Principal
	b.credentials = append(b.credentials, a.CredentialMetadata...)
	for k, v := range a.Successes {
		b.successes[k] = v
	}
	for k, v := range a.Failures {
		b.failures[k] = v
	}
	b.attributes = CopyAttributes(a.Attributes)
	return b
}

// SetPrincipal records the winning principal for the transaction.
func (b *Builder) SetPrincipal(p Principal) *Builder {
	b.principal = p
	return b
}

// Principal returns the currently recorded principal.
func (b *Builder) Principal() Principal { return b.principal }

// AddCredential records the metadata summary of an attempted credential.
func (b *Builder) AddCredential(m CredentialMetadata) *Builder {
	b.credentials = append(b.credentials, m)
	return b
}

// AddSuccess records a successful handler invocation under the handler name.
func (b *Builder) AddSuccess(name string, result HandlerResult) *Builder {
	b.successes[name] = result
	return b
}

// AddFailure records a failed handler invocation under the handler name.
func (b *Builder) AddFailure(name string, kind FailureKind) *Builder {
	b.failures[name] = kind
	return b
}

// HasSuccesses reports whether at least one handler has succeeded so far.
func (b *Builder) HasSuccesses() bool { return len(b.successes) > 0 }

// AddAttribute merges a single value into the multi-valued attribute map.
func (b *Builder) AddAttribute(key string, value any) *Builder {
	b.attributes = MergeAttributes(b.attributes, map[string][]any{key: {value}})
	return b
}

// MergeAttributes merges a whole attribute map, unioning values per key.
func (b *Builder) MergeAttributes(attributes map[string][]any) *Builder {
	b.attributes = MergeAttributes(b.attributes, attributes)
	return b
}

// Build produces an immutable snapshot of the builder state.
func (b *Builder) Build() Authentication {
	successes := make(map[string]HandlerResult, len(b.successes))
	for k, v := range b.successes {
		successes[k] = v
	}
	failures := make(map[string]FailureKind, len(b.failures))
	for k, v := range b.failures {
		failures[k] = v
	}
	return Authentication{
		Date:               b.date,
		Principal:          b.principal,
		CredentialMetadata: append([]CredentialMetadata(nil), b.credentials...),
		Successes:          successes,
		Failures:           failures,
		Attributes:         CopyAttributes(b.attributes),
	}
}
