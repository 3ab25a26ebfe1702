package service

import (
	"context"
	"log/slog"
	"sort"

	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/domain/services"
	"github.com/charon-sso/charon/internal/ports"
)

// Default attribute names for multifactor context bookkeeping.
const (
	DefaultContextAttribute          = "authnContextClass"
	DefaultTrustedDeviceAttribute    = "trustedDevice"
	DefaultBypassAttribute           = "bypassMultifactorAuthentication"
	DefaultBypassedProviderAttribute = "bypassedMultifactorAuthenticationProviderId"
)

// ContextValidatorOptions configures a ContextValidator.
type ContextValidatorOptions struct {
	// Providers are all registered multifactor providers, keyed by ID().
	Providers []ports.MultifactorProvider

	// ContextAttribute is the authentication attribute listing satisfied
	// provider ids. Defaults to DefaultContextAttribute.
	ContextAttribute string

	// TrustedDeviceAttribute marks an authentication sourced from a device
	// the principal previously registered as trusted; its presence bypasses
	// a re-challenge. Defaults to DefaultTrustedDeviceAttribute.
	TrustedDeviceAttribute string

	// BypassAttribute and BypassedProviderAttribute together record an
	// upstream bypass decision. Defaults to the package constants.
	BypassAttribute           string
	BypassedProviderAttribute string

	// GlobalFailureMode applies when neither the service policy nor the
	// provider defines one. Defaults to services.FailureModeClosed.
	GlobalFailureMode services.FailureMode

	Logger *slog.Logger
}

// ContextValidator decides whether an established authentication already
// satisfies a requested multifactor context, and which provider covers it.
type ContextValidator struct {
	providers      map[string]ports.MultifactorProvider
	contextAttr    string
	trustedAttr    string
	bypassAttr     string
	bypassedByAttr string
	globalMode     services.FailureMode
	logger         *slog.Logger
}

// NewContextValidator builds a ContextValidator.
func NewContextValidator(opts ContextValidatorOptions) *ContextValidator {
	v := &ContextValidator{
		providers:      make(map[string]ports.MultifactorProvider, len(opts.Providers)),
		contextAttr:    opts.ContextAttribute,
		trustedAttr:    opts.TrustedDeviceAttribute,
		bypassAttr:     opts.BypassAttribute,
		bypassedByAttr: opts.BypassedProviderAttribute,
		globalMode:     opts.GlobalFailureMode,
		logger:         opts.Logger,
	}
	for _, p := range opts.Providers {
		v.providers[p.ID()] = p
	}
	if v.contextAttr == "" {
		v.contextAttr = DefaultContextAttribute
	}
	if v.trustedAttr == "" {
		v.trustedAttr = DefaultTrustedDeviceAttribute
	}
	if v.bypassAttr == "" {
		v.bypassAttr = DefaultBypassAttribute
	}
	if v.bypassedByAttr == "" {
		v.bypassedByAttr = DefaultBypassedProviderAttribute
	}
	if v.globalMode == services.FailureModeUndefined {
		v.globalMode = services.FailureModeClosed
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	v.logger = v.logger.With("component", "mfa-validator")
	return v
}

// Validate reports whether the authentication satisfies the requested
// multifactor context for the given registered service. The returned provider
// drives flow selection: on success it is the provider that covers the
// requirement; on failure it is the requested provider when known.
func (v *ContextValidator) Validate(
	ctx context.Context,
	authn domainauth.Authentication,
	requestedContextID string,
	rs *services.RegisteredService,
) (bool, ports.MultifactorProvider) {
	requested, ok := v.providers[requestedContextID]
	if !ok {
		v.logger.WarnContext(ctx, "requested multifactor provider is not registered",
			"requested", requestedContextID)
		return false, nil
	}

	satisfiedIDs := attributeStrings(authn.Attributes, v.contextAttr)
	for _, id := range satisfiedIDs {
		if id == requestedContextID {
			return true, requested
		}
	}

	if len(authn.Attributes[v.trustedAttr]) > 0 {
		v.logger.DebugContext(ctx, "trusted device marker present, accepting context",
			"requested", requestedContextID)
		return true, requested
	}

	if v.bypassed(authn, requestedContextID) {
		v.logger.DebugContext(ctx, "multifactor bypass recorded for provider",
			"requested", requestedContextID)
		return true, requested
	}

	satisfied := v.satisfiedProviders(satisfiedIDs)
	for _, p := range satisfied {
		if p.RankingOrder() >= requested.RankingOrder() {
			v.logger.DebugContext(ctx, "stronger provider already satisfied",
				"requested", requestedContextID, "satisfied", p.ID())
			return true, p
		}
	}

	mode := v.failureMode(requested, rs)
	if !requested.Available(ctx, rs) {
		switch mode {
		case services.FailureModePhantom:
			v.logger.WarnContext(ctx, "provider unavailable, phantom mode treats context as satisfied",
				"requested", requestedContextID)
			return true, requested
		case services.FailureModeOpen:
			v.logger.WarnContext(ctx, "provider unavailable, open mode waives the requirement",
				"requested", requestedContextID)
			if len(satisfied) > 0 {
				return true, satisfied[len(satisfied)-1]
			}
			return true, nil
		}
	}
	return false, requested
}

// bypassed reports whether an upstream bypass decision covers the requested
// provider.
func (v *ContextValidator) bypassed(authn domainauth.Authentication, requestedContextID string) bool {
	byPassed := false
	for _, val := range authn.Attributes[v.bypassAttr] {
		if b, ok := val.(bool); ok && b {
			byPassed = true
		}
		if s, ok := val.(string); ok && s == "true" {
			byPassed = true
		}
	}
	if !byPassed {
		return false
	}
	for _, id := range attributeStrings(authn.Attributes, v.bypassedByAttr) {
		if id == requestedContextID {
			return true
		}
	}
	return false
}

// satisfiedProviders maps satisfied provider ids back to registered providers,
// ordered weakest first.
func (v *ContextValidator) satisfiedProviders(ids []string) []ports.MultifactorProvider {
	out := make([]ports.MultifactorProvider, 0, len(ids))
	for _, id := range ids {
		if p, ok := v.providers[id]; ok {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RankingOrder() < out[j].RankingOrder()
	})
	return out
}

// failureMode resolves the effective failure mode: service policy first, then
// the provider default, then the global default.
func (v *ContextValidator) failureMode(p ports.MultifactorProvider, rs *services.RegisteredService) services.FailureMode {
	if rs != nil && rs.MFA.FailureMode != services.FailureModeUndefined {
		return rs.MFA.FailureMode
	}
	if mode := p.FailureMode(); mode != services.FailureModeUndefined {
		return mode
	}
	return v.globalMode
}

// attributeStrings extracts string values of a multi-valued attribute.
func attributeStrings(attrs map[string][]any, key string) []string {
	values := attrs[key]
	out := make([]string, 0, len(values))
	for _, val := range values {
		if s, ok := val.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
