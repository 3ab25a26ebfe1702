package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/domain/services"
	mocksauth "github.com/charon-sso/charon/internal/mocks/auth"
	"github.com/charon-sso/charon/internal/ports"
)

func mfaAuthentication(attrs map[string][]any) domainauth.Authentication {
	b := domainauth.NewBuilder(time.Now())
	b.SetPrincipal(domainauth.NewPrincipal("alice"))
	b.AddSuccess("accept-users", domainauth.HandlerResult{HandlerName: "accept-users"})
	b.MergeAttributes(attrs)
	return b.Build()
}

func mfaService(providerID string, mode services.FailureMode) *services.RegisteredService {
	return &services.RegisteredService{
		ID:        1,
		ServiceID: "https://app.example.org",
		Enabled:   true,
		MFA:       services.MultifactorPolicy{ProviderID: providerID, FailureMode: mode},
	}
}

func TestValidateUnknownProviderFailsClosed(t *testing.T) {
	v := NewContextValidator(ContextValidatorOptions{})

	ok, provider := v.Validate(context.Background(), mfaAuthentication(nil), "mfa-unknown", mfaService("mfa-unknown", ""))
	assert.False(t, ok)
	assert.Nil(t, provider)
}

func TestValidateSatisfiedContextAttribute(t *testing.T) {
	otp := &mocksauth.StubProvider{ProviderID: "mfa-otp", Order: 100, Up: true}
	v := NewContextValidator(ContextValidatorOptions{Providers: []ports.MultifactorProvider{otp}})

	authn := mfaAuthentication(map[string][]any{
		DefaultContextAttribute: {"mfa-otp"},
	})
	ok, provider := v.Validate(context.Background(), authn, "mfa-otp", mfaService("mfa-otp", ""))
	assert.True(t, ok)
	require.NotNil(t, provider)
	assert.Equal(t, "mfa-otp", provider.ID())
}

func TestValidateTrustedDeviceBypassesChallenge(t *testing.T) {
	otp := &mocksauth.StubProvider{ProviderID: "mfa-otp", Order: 100, Up: true}
	v := NewContextValidator(ContextValidatorOptions{Providers: []ports.MultifactorProvider{otp}})

	authn := mfaAuthentication(map[string][]any{
		DefaultTrustedDeviceAttribute: {"device-42"},
	})
	ok, provider := v.Validate(context.Background(), authn, "mfa-otp", mfaService("mfa-otp", ""))
	assert.True(t, ok)
	assert.Equal(t, "mfa-otp", provider.ID())
}

func TestValidateBypassRequiresMatchingProvider(t *testing.T) {
	otp := &mocksauth.StubProvider{ProviderID: "mfa-otp", Order: 100, Up: true}
	v := NewContextValidator(ContextValidatorOptions{Providers: []ports.MultifactorProvider{otp}})

	// Bypass recorded for the requested provider.
	authn := mfaAuthentication(map[string][]any{
		DefaultBypassAttribute:           {true},
		DefaultBypassedProviderAttribute: {"mfa-otp"},
	})
	ok, _ := v.Validate(context.Background(), authn, "mfa-otp", mfaService("mfa-otp", ""))
	assert.True(t, ok)

	// Bypass recorded as the string form.
	authn = mfaAuthentication(map[string][]any{
		DefaultBypassAttribute:           {"true"},
		DefaultBypassedProviderAttribute: {"mfa-otp"},
	})
	ok, _ = v.Validate(context.Background(), authn, "mfa-otp", mfaService("mfa-otp", ""))
	assert.True(t, ok)

	// Bypass recorded for a different provider does not cover the request.
	authn = mfaAuthentication(map[string][]any{
		DefaultBypassAttribute:           {true},
		DefaultBypassedProviderAttribute: {"mfa-push"},
	})
	ok, _ = v.Validate(context.Background(), authn, "mfa-otp", mfaService("mfa-otp", ""))
	assert.False(t, ok)
}

func TestValidateStrongerProviderCoversWeakerRequest(t *testing.T) {
	weak := &mocksauth.StubProvider{ProviderID: "mfa-sms", Order: 50, Up: true}
	strong := &mocksauth.StubProvider{ProviderID: "mfa-webauthn", Order: 200, Up: true}
	v := NewContextValidator(ContextValidatorOptions{Providers: []ports.MultifactorProvider{weak, strong}})

	authn := mfaAuthentication(map[string][]any{
		DefaultContextAttribute: {"mfa-webauthn"},
	})
	ok, provider := v.Validate(context.Background(), authn, "mfa-sms", mfaService("mfa-sms", ""))
	assert.True(t, ok)
	assert.Equal(t, "mfa-webauthn", provider.ID())
}

func TestValidateWeakerProviderDoesNotCoverStrongerRequest(t *testing.T) {
	weak := &mocksauth.StubProvider{ProviderID: "mfa-sms", Order: 50, Up: true}
	strong := &mocksauth.StubProvider{ProviderID: "mfa-webauthn", Order: 200, Up: true}
	v := NewContextValidator(ContextValidatorOptions{Providers: []ports.MultifactorProvider{weak, strong}})

	authn := mfaAuthentication(map[string][]any{
		DefaultContextAttribute: {"mfa-sms"},
	})
	ok, provider := v.Validate(context.Background(), authn, "mfa-webauthn", mfaService("mfa-webauthn", ""))
	assert.False(t, ok)
	require.NotNil(t, provider)
	assert.Equal(t, "mfa-webauthn", provider.ID())
}

func TestValidateUnavailableProviderFailureModes(t *testing.T) {
	t.Run("closed fails the requirement", func(t *testing.T) {
		down := &mocksauth.StubProvider{ProviderID: "mfa-otp", Order: 100, Up: false}
		v := NewContextValidator(ContextValidatorOptions{Providers: []ports.MultifactorProvider{down}})

		ok, provider := v.Validate(context.Background(), mfaAuthentication(nil), "mfa-otp",
			mfaService("mfa-otp", services.FailureModeClosed))
		assert.False(t, ok)
		assert.Equal(t, "mfa-otp", provider.ID())
	})

	t.Run("phantom reports the requested provider as satisfied", func(t *testing.T) {
		down := &mocksauth.StubProvider{ProviderID: "mfa-otp", Order: 100, Up: false}
		v := NewContextValidator(ContextValidatorOptions{Providers: []ports.MultifactorProvider{down}})

		ok, provider := v.Validate(context.Background(), mfaAuthentication(nil), "mfa-otp",
			mfaService("mfa-otp", services.FailureModePhantom))
		assert.True(t, ok)
		assert.Equal(t, "mfa-otp", provider.ID())
	})

	t.Run("open waives with no satisfied provider", func(t *testing.T) {
		down := &mocksauth.StubProvider{ProviderID: "mfa-otp", Order: 100, Up: false}
		v := NewContextValidator(ContextValidatorOptions{Providers: []ports.MultifactorProvider{down}})

		ok, provider := v.Validate(context.Background(), mfaAuthentication(nil), "mfa-otp",
			mfaService("mfa-otp", services.FailureModeOpen))
		assert.True(t, ok)
		assert.Nil(t, provider)
	})

	t.Run("open reports the strongest already-satisfied provider", func(t *testing.T) {
		down := &mocksauth.StubProvider{ProviderID: "mfa-webauthn", Order: 200, Up: false}
		weaker := &mocksauth.StubProvider{ProviderID: "mfa-sms", Order: 50, Up: true}
		v := NewContextValidator(ContextValidatorOptions{Providers: []ports.MultifactorProvider{down, weaker}})

		authn := mfaAuthentication(map[string][]any{
			DefaultContextAttribute: {"mfa-sms"},
		})
		ok, provider := v.Validate(context.Background(), authn, "mfa-webauthn",
			mfaService("mfa-webauthn", services.FailureModeOpen))
		assert.True(t, ok)
		require.NotNil(t, provider)
		assert.Equal(t, "mfa-sms", provider.ID())
	})
}

func TestValidateAvailableProviderIgnoresFailureMode(t *testing.T) {
	up := &mocksauth.StubProvider{ProviderID: "mfa-otp", Order: 100, Up: true}
	v := NewContextValidator(ContextValidatorOptions{Providers: []ports.MultifactorProvider{up}})

	// The provider is reachable, so open mode does not waive the unmet
	// requirement.
	ok, provider := v.Validate(context.Background(), mfaAuthentication(nil), "mfa-otp",
		mfaService("mfa-otp", services.FailureModeOpen))
	assert.False(t, ok)
	assert.Equal(t, "mfa-otp", provider.ID())
}

func TestValidateFailureModePrecedence(t *testing.T) {
	// Provider default says open, the service policy overrides with closed.
	down := &mocksauth.StubProvider{ProviderID: "mfa-otp", Order: 100, Up: false, Mode: services.FailureModeOpen}
	v := NewContextValidator(ContextValidatorOptions{Providers: []ports.MultifactorProvider{down}})

	ok, _ := v.Validate(context.Background(), mfaAuthentication(nil), "mfa-otp",
		mfaService("mfa-otp", services.FailureModeClosed))
	assert.False(t, ok)

	// Without a service mode the provider default applies.
	ok, _ = v.Validate(context.Background(), mfaAuthentication(nil), "mfa-otp",
		mfaService("mfa-otp", services.FailureModeUndefined))
	assert.True(t, ok)

	// With neither, the global default (closed) applies.
	noDefault := &mocksauth.StubProvider{ProviderID: "mfa-otp", Order: 100, Up: false}
	v = NewContextValidator(ContextValidatorOptions{Providers: []ports.MultifactorProvider{noDefault}})
	ok, _ = v.Validate(context.Background(), mfaAuthentication(nil), "mfa-otp",
		mfaService("mfa-otp", services.FailureModeUndefined))
	assert.False(t, ok)
}
