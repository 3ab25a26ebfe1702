package config

import "strings"

// MFAConfig configures multifactor context validation.
type MFAConfig struct {
	// ContextAttribute is the authentication attribute listing satisfied
	// provider ids.
	ContextAttribute string `env:"MFA_CONTEXT_ATTRIBUTE" envDefault:"authnContextClass"`

	// TrustedDeviceAttribute marks an authentication from a registered
	// trusted device.
	TrustedDeviceAttribute string `env:"MFA_TRUSTED_DEVICE_ATTRIBUTE" envDefault:"trustedDevice"`

	// GlobalFailureMode applies when neither the service nor the provider
	// defines one: CLOSED, OPEN or PHANTOM.
	GlobalFailureMode string `env:"MFA_GLOBAL_FAILURE_MODE" envDefault:"CLOSED"`
}

// Sanitize normalises multifactor configuration values.
func (c *MFAConfig) Sanitize() {
	c.ContextAttribute = strings.TrimSpace(c.ContextAttribute)
	c.TrustedDeviceAttribute = strings.TrimSpace(c.TrustedDeviceAttribute)
	c.GlobalFailureMode = strings.ToUpper(strings.TrimSpace(c.GlobalFailureMode))
	switch c.GlobalFailureMode {
	case "CLOSED", "OPEN", "PHANTOM":
	default:
		c.GlobalFailureMode = "CLOSED"
	}
}
