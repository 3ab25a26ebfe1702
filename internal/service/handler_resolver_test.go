package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charon-sso/charon/internal/adapters/memory"
	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/domain/services"
	mocksauth "github.com/charon-sso/charon/internal/mocks/auth"
	"github.com/charon-sso/charon/internal/ports"
	"github.com/charon-sso/charon/internal/testutil"
)

func resolverPlan() []ports.HandlerEntry {
	return []ports.HandlerEntry{
		{Handler: mocksauth.Succeeding("accept-users")},
		{Handler: mocksauth.Succeeding("static-otp")},
		{Handler: mocksauth.Succeeding("oidc-delegated")},
	}
}

func TestRegisteredServiceHandlerResolver(t *testing.T) {
	restricted := testutil.RegisteredService(0, "https://app.example.org")
	restricted.RequiredHandlers = []string{"static-otp", "oidc-delegated"}
	open := testutil.RegisteredService(0, "https://open.example.org")
	disabled := testutil.RegisteredService(0, "https://off.example.org")
	disabled.Enabled = false

	registry := memory.NewServiceRegistry(nil, restricted, open, disabled)
	resolver := &RegisteredServiceHandlerResolver{Services: registry}
	ctx := context.Background()
	cred := &domainauth.UsernamePassword{Username: "alice"}

	t.Run("no target service passes through", func(t *testing.T) {
		entries, err := resolver.Resolve(ctx, resolverPlan(), domainauth.NewTransaction(cred))
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("narrows to required handlers", func(t *testing.T) {
		tx := domainauth.NewTransaction(cred).ForService(services.NewService("https://app.example.org"))
		entries, err := resolver.Resolve(ctx, resolverPlan(), tx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "static-otp", entries[0].Handler.Name())
		assert.Equal(t, "oidc-delegated", entries[1].Handler.Name())
	})

	t.Run("service without required handlers keeps all", func(t *testing.T) {
		tx := domainauth.NewTransaction(cred).ForService(services.NewService("https://open.example.org"))
		entries, err := resolver.Resolve(ctx, resolverPlan(), tx)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("unknown service fails before any handler runs", func(t *testing.T) {
		tx := domainauth.NewTransaction(cred).ForService(services.NewService("https://rogue.example.net"))
		_, err := resolver.Resolve(ctx, resolverPlan(), tx)
		var unauthorized *UnauthorizedServiceError
		require.ErrorAs(t, err, &unauthorized)
		assert.Contains(t, unauthorized.Reason, "not registered")
	})

	t.Run("disabled service fails", func(t *testing.T) {
		tx := domainauth.NewTransaction(cred).ForService(services.NewService("https://off.example.org"))
		_, err := resolver.Resolve(ctx, resolverPlan(), tx)
		var unauthorized *UnauthorizedServiceError
		require.ErrorAs(t, err, &unauthorized)
		assert.Contains(t, unauthorized.Reason, "disabled")
	})
}

func TestAuthManagerUsesResolver(t *testing.T) {
	restricted := testutil.RegisteredService(0, "https://app.example.org")
	restricted.RequiredHandlers = []string{"static-otp"}
	registry := memory.NewServiceRegistry(nil, restricted)

	password := mocksauth.Succeeding("accept-users")
	otp := mocksauth.Succeeding("static-otp")
	manager, err := NewAuthManager(AuthManagerOptions{
		Plan: []ports.HandlerEntry{
			{Handler: password},
			{Handler: otp},
		},
		Resolver: &RegisteredServiceHandlerResolver{Services: registry},
	})
	require.NoError(t, err)

	tx := domainauth.NewTransaction(&domainauth.UsernamePassword{Username: "alice", Password: "alice"}).
		ForService(services.NewService("https://app.example.org"))
	authn, err := manager.Authenticate(context.Background(), tx)
	require.NoError(t, err)

	// Only the required handler was consulted.
	assert.Empty(t, password.Calls())
	assert.Equal(t, []string{"alice"}, otp.Calls())
	_, ok := authn.Successes["static-otp"]
	assert.True(t, ok)
}
