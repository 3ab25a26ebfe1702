package config

import (
	"fmt"
	"strings"
)

// PolicyMode selects the authentication policy enforced by the manager.
type PolicyMode string

const (
	// PolicyAny is satisfied by any handler success.
	PolicyAny PolicyMode = "any"
	// PolicyAll requires every presented credential to be attempted and at
	// least one success.
	PolicyAll PolicyMode = "all"
	// PolicyRequiredHandler requires a named handler to have succeeded.
	PolicyRequiredHandler PolicyMode = "required-handler"
)

// UnmarshalText implements encoding.TextUnmarshaler so the mode can be set
// directly from an environment variable.
func (m *PolicyMode) UnmarshalText(text []byte) error {
	switch v := PolicyMode(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case PolicyAny, PolicyAll, PolicyRequiredHandler, "":
		if v == "" {
			v = PolicyAny
		}
		*m = v
		return nil
	default:
		return fmt.Errorf("unknown authentication policy mode %q", string(text))
	}
}

// AuthConfig configures the authentication handler chain.
type AuthConfig struct {
	// StaticUsers maps username to password for the accept-users handler,
	// e.g. AUTH_STATIC_USERS="alice:alice,bob:secret".
	StaticUsers map[string]string `env:"AUTH_STATIC_USERS" envSeparator:","`

	// StaticOTPTokens maps username to one-time token for the static OTP
	// handler.
	StaticOTPTokens map[string]string `env:"AUTH_STATIC_OTP_TOKENS" envSeparator:","`

	// PolicyMode selects the authentication policy.
	PolicyMode PolicyMode `env:"AUTH_POLICY_MODE" envDefault:"any"`

	// RequiredHandler names the handler the required-handler policy demands.
	RequiredHandler string `env:"AUTH_REQUIRED_HANDLER"`

	// PrincipalResolutionFatal makes resolver failures fail the handler
	// attempt instead of falling back to the handler principal.
	PrincipalResolutionFatal bool `env:"AUTH_PRINCIPAL_RESOLUTION_FATAL" envDefault:"false"`

	// OIDC configures the delegated upstream identity provider; disabled
	// when no client id is set.
	OIDC OIDCConfig `envPrefix:"AUTH_OIDC_"`
}

// Sanitize applies guardrails to authentication configuration.
func (c *AuthConfig) Sanitize() {
	if c.PolicyMode == "" {
		c.PolicyMode = PolicyAny
	}
	if c.PolicyMode == PolicyRequiredHandler && c.RequiredHandler == "" {
		c.PolicyMode = PolicyAny
	}
	c.OIDC.Sanitize()
}

// OIDCConfig configures delegated authentication to an upstream OIDC
// identity provider.
type OIDCConfig struct {
	ClientID       string `env:"CLIENT_ID"`
	ClientSecret   string `env:"CLIENT_SECRET"`
	RedirectURL    string `env:"REDIRECT_URL"`
	Scope          string `env:"SCOPE"           envDefault:"openid profile email"`
	DiscoveryURL   string `env:"DISCOVERY_URL"`
	PrincipalClaim string `env:"PRINCIPAL_CLAIM" envDefault:""`
}

// Enabled reports whether delegated authentication is configured.
func (c *OIDCConfig) Enabled() bool {
	return c.ClientID != "" && c.DiscoveryURL != ""
}

// Sanitize normalises OIDC configuration values.
func (c *OIDCConfig) Sanitize() {
	c.DiscoveryURL = strings.TrimSpace(c.DiscoveryURL)
	c.Scope = strings.TrimSpace(c.Scope)
}
