package services

// Package services contains the domain model for relying services: the
// caller-presented Service identity and the RegisteredService policy record
// consulted for every authorization decision. The package is pure; attribute
// values are plain multi-valued maps so it carries no dependency on the
// authentication model.

import (
	"regexp"
	"time"
)

// Service identifies the relying party a request targets, normally a URL.
type Service struct {
	ID string `json:"id"`
}

// NewService wraps a service identifier.
func NewService(id string) Service { return Service{ID: id} }

// FailureMode governs behavior when a multifactor provider is unavailable.
type FailureMode string

const (
	// FailureModeUndefined defers to the provider or global default.
	FailureModeUndefined FailureMode = ""
	// FailureModeClosed fails the context requirement when the provider is
	// unavailable. This is the default.
	FailureModeClosed FailureMode = "CLOSED"
	// FailureModeOpen treats the requirement as satisfied by whichever
	// provider was already satisfied, even none.
	FailureModeOpen FailureMode = "OPEN"
	// FailureModePhantom treats the requested provider as satisfied to
	// avoid lockout, reporting the requested provider back to the caller.
	FailureModePhantom FailureMode = "PHANTOM"
)

// MatchKind selects how a registered service pattern is compared against a
// presented service id.
type MatchKind string

const (
	MatchExact       MatchKind = "exact"
	MatchWildcard    MatchKind = "wildcard"
	MatchRegex       MatchKind = "regex"
	MatchETLDPlusOne MatchKind = "etld+1"
)

// ProxyPolicy controls whether a service may obtain proxy-granting tickets.
// When Pattern is non-empty the proxying service id must also match it.
type ProxyPolicy struct {
	Allowed bool   `json:"allowed"`
	Pattern string `json:"pattern,omitempty"`
}

// PermitsProxying reports whether the given service id may act as a proxy.
func (p ProxyPolicy) PermitsProxying(serviceID string) bool {
	if !p.Allowed {
		return false
	}
	if p.Pattern == "" {
		return true
	}
	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return false
	}
	return re.MatchString(serviceID)
}

// MultifactorPolicy names the authentication context a service demands before
// tickets are issued for it.
type MultifactorPolicy struct {
	ProviderID  string      `json:"provider_id,omitempty"`
	FailureMode FailureMode `json:"failure_mode,omitempty"`
}

// RegisteredService is the policy record for a known relying service.
type RegisteredService struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ServiceID string    `json:"service_id"`
	MatchKind MatchKind `json:"match_kind"`

	// Enabled gates all access; a disabled service fails authorization
	// before any handler runs.
	Enabled bool `json:"enabled"`
	// SSOEnabled permits ticket issuance from an existing session without
	// fresh credentials.
	SSOEnabled bool `json:"sso_enabled"`

	// RequiredHandlers narrows the authentication handler set for
	// transactions targeting this service.
	RequiredHandlers []string `json:"required_handlers,omitempty"`

	// RequiredAttributes must all be present (any listed value) on the
	// authenticated principal for access to be granted.
	RequiredAttributes map[string][]string `json:"required_attributes,omitempty"`

	Proxy   ProxyPolicy       `json:"proxy"`
	MFA     MultifactorPolicy `json:"mfa"`
	Release ReleasePolicy     `json:"release"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// MatchesService reports whether this registration covers the presented
// service id, per the registration's match kind.
func (rs *RegisteredService) MatchesService(serviceID string) bool {
	return matchPattern(serviceID, rs.ServiceID, rs.MatchKind)
}

// AccessAllowed evaluates the access strategy against resolved principal
// attributes: the service must be enabled and every required attribute must
// be present with at least one of its listed values.
func (rs *RegisteredService) AccessAllowed(attributes map[string][]any) bool {
	if !rs.Enabled {
		return false
	}
	for key, wanted := range rs.RequiredAttributes {
		if !attributeSatisfied(attributes[key], wanted) {
			return false
		}
	}
	return true
}

func attributeSatisfied(have []any, wanted []string) bool {
	if len(wanted) == 0 {
		return len(have) > 0
	}
	for _, w := range wanted {
		for _, h := range have {
			if s, ok := h.(string); ok && s == w {
				return true
			}
		}
	}
	return false
}
