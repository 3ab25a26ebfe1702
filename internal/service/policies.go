package service

import (
	domainauth "github.com/charon-sso/charon/internal/domain/auth"
)

// AnyPolicy is satisfied when any handler succeeded. With TryAll set it
// additionally requires that every presented credential was attempted,
// forcing exhaustive evaluation so the success/failure maps are complete.
type AnyPolicy struct {
	TryAll bool
}

// Name implements ports.AuthenticationPolicy.
func (AnyPolicy) Name() string { return "any" }

// IsSatisfiedBy implements ports.AuthenticationPolicy.
func (p AnyPolicy) IsSatisfiedBy(a domainauth.Authentication) bool {
	if p.TryAll && len(a.Successes)+len(a.Failures) < len(a.CredentialMetadata) {
		return false
	}
	return len(a.Successes) > 0
}

// RequiredHandlerPolicy is satisfied only when the named handler succeeded.
type RequiredHandlerPolicy struct {
	HandlerName string
	TryAll      bool
}

// Name implements ports.AuthenticationPolicy.
func (p RequiredHandlerPolicy) Name() string { return "required-handler:" + p.HandlerName }

// IsSatisfiedBy implements ports.AuthenticationPolicy.
func (p RequiredHandlerPolicy) IsSatisfiedBy(a domainauth.Authentication) bool {
	if p.TryAll && len(a.Successes)+len(a.Failures) < len(a.CredentialMetadata) {
		return false
	}
	_, ok := a.Successes[p.HandlerName]
	return ok
}

// AtLeastOneCredentialPolicy is satisfied when the number of successfully
// validated credentials meets a configurable minimum.
type AtLeastOneCredentialPolicy struct {
	Minimum int
}

// Name implements ports.AuthenticationPolicy.
func (AtLeastOneCredentialPolicy) Name() string { return "at-least-one-credential" }

// IsSatisfiedBy implements ports.AuthenticationPolicy.
func (p AtLeastOneCredentialPolicy) IsSatisfiedBy(a domainauth.Authentication) bool {
	minimum := p.Minimum
	if minimum <= 0 {
		minimum = 1
	}
	return len(a.Successes) >= minimum
}
