package data_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charon-sso/charon/internal/data"
	"github.com/charon-sso/charon/internal/domain/services"
	"github.com/charon-sso/charon/internal/testutil"
)

func fullRegistration() *services.RegisteredService {
	return &services.RegisteredService{
		Name:             "app",
		ServiceID:        "https://app.example.org",
		MatchKind:        services.MatchExact,
		Enabled:          true,
		SSOEnabled:       true,
		RequiredHandlers: []string{"accept-users"},
		RequiredAttributes: map[string][]string{
			"role": {"staff"},
		},
		Proxy:   services.ProxyPolicy{Allowed: true, Pattern: `^https://api\.example\.org`},
		MFA:     services.MultifactorPolicy{ProviderID: "mfa-otp", FailureMode: services.FailureModeClosed},
		Release: services.ReleasePolicy{Mode: services.ReleaseAllowed, Allowed: []string{"email"}},
	}
}

func TestServiceRegistryRepoSaveAndRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := data.NewServiceRegistryRepo(db)
	ctx := context.Background()

	saved, err := repo.Save(ctx, fullRegistration())
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	got := all[0]
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "app", got.Name)
	assert.Equal(t, services.MatchExact, got.MatchKind)
	assert.Equal(t, []string{"accept-users"}, got.RequiredHandlers)
	assert.Equal(t, map[string][]string{"role": {"staff"}}, got.RequiredAttributes)
	assert.True(t, got.Proxy.Allowed)
	assert.Equal(t, "mfa-otp", got.MFA.ProviderID)
	assert.Equal(t, services.FailureModeClosed, got.MFA.FailureMode)
	assert.Equal(t, services.ReleaseAllowed, got.Release.Mode)
	assert.Equal(t, []string{"email"}, got.Release.Allowed)
}

func TestServiceRegistryRepoUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := data.NewServiceRegistryRepo(db)
	ctx := context.Background()

	saved, err := repo.Save(ctx, fullRegistration())
	require.NoError(t, err)

	saved.Name = "renamed"
	saved.Enabled = false
	updated, err := repo.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	assert.Equal(t, "renamed", updated.Name)
	assert.False(t, updated.Enabled)
	assert.True(t, updated.CreatedAt.Equal(saved.CreatedAt))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestServiceRegistryRepoDuplicateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := data.NewServiceRegistryRepo(db)
	ctx := context.Background()

	_, err := repo.Save(ctx, fullRegistration())
	require.NoError(t, err)

	dup := fullRegistration()
	dup.ServiceID = "https://other.example.org"
	_, err = repo.Save(ctx, dup)
	require.ErrorIs(t, err, data.ErrServiceNameExists)
}

func TestServiceRegistryRepoUpdateUnknownID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := data.NewServiceRegistryRepo(db)

	rs := fullRegistration()
	rs.ID = 99999
	_, err := repo.Save(context.Background(), rs)
	require.ErrorIs(t, err, data.ErrServiceNotFound)
}

func TestServiceRegistryRepoValidatesReleasePolicy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := data.NewServiceRegistryRepo(db)

	rs := fullRegistration()
	rs.Release = services.ReleasePolicy{Mode: services.ReleaseExpression}
	_, err := repo.Save(context.Background(), rs)
	require.Error(t, err)
}

func TestServiceRegistryRepoFindServiceBy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := data.NewServiceRegistryRepo(db)
	ctx := context.Background()

	wildcard := fullRegistration()
	wildcard.Name = "farm"
	wildcard.ServiceID = "https://*.example.org"
	wildcard.MatchKind = services.MatchWildcard
	_, err := repo.Save(ctx, wildcard)
	require.NoError(t, err)

	exact := fullRegistration()
	_, err = repo.Save(ctx, exact)
	require.NoError(t, err)

	// Evaluation is ascending id; the wildcard registered first wins.
	found, err := repo.FindServiceBy(ctx, services.NewService("https://app.example.org"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "farm", found.Name)

	found, err = repo.FindServiceBy(ctx, services.NewService("https://unknown.example.net"))
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestServiceRegistryRepoDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := data.NewServiceRegistryRepo(db)
	ctx := context.Background()

	saved, err := repo.Save(ctx, fullRegistration())
	require.NoError(t, err)

	ok, err := repo.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
