package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/domain/services"
)

func TestNewStaticOTPHandlerRequiresTokens(t *testing.T) {
	_, err := NewStaticOTPHandler(StaticOTPOptions{})
	require.Error(t, err)
}

func TestStaticOTPHandlerAuthenticate(t *testing.T) {
	h, err := NewStaticOTPHandler(StaticOTPOptions{Tokens: map[string]string{"alice": "31415"}})
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, h.Supports(&domainauth.OneTimePassword{Username: "alice"}))
	assert.False(t, h.Supports(&domainauth.UsernamePassword{Username: "alice"}))

	result, err := h.Authenticate(ctx, &domainauth.OneTimePassword{Username: "alice", Token: "31415"})
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Principal.ID)

	var handlerErr *domainauth.HandlerError

	_, err = h.Authenticate(ctx, &domainauth.OneTimePassword{Username: "alice", Token: "27182"})
	require.ErrorAs(t, err, &handlerErr)
	assert.Equal(t, domainauth.FailureBadCredentials, handlerErr.Kind)

	_, err = h.Authenticate(ctx, &domainauth.OneTimePassword{Username: "mallory", Token: "31415"})
	require.ErrorAs(t, err, &handlerErr)
	assert.Equal(t, domainauth.FailureAccountNotFound, handlerErr.Kind)
}

func TestStaticOTPHandlerIsMultifactorProvider(t *testing.T) {
	h, err := NewStaticOTPHandler(StaticOTPOptions{Tokens: map[string]string{"alice": "31415"}})
	require.NoError(t, err)

	assert.Equal(t, ProviderID, h.ID())
	assert.Equal(t, 100, h.RankingOrder())
	assert.True(t, h.Available(context.Background(), nil))
	assert.Equal(t, services.FailureModeUndefined, h.FailureMode())
}
