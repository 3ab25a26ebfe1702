package ticket

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/domain/services"
)

func testAuthentication(principalID string, date time.Time) auth.Authentication {
	b := auth.NewBuilder(date)
	b.SetPrincipal(auth.NewPrincipal(principalID))
	b.AddSuccess("accept-users", auth.HandlerResult{
		HandlerName: "accept-users",
		Principal:   auth.NewPrincipal(principalID),
	})
	return b.Build()
}

func TestKindSatisfies(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected Kind
		want     bool
	}{
		{KindTGT, KindTGT, true},
		{KindPGT, KindTGT, true},
		{KindTGT, KindPGT, false},
		{KindPGT, KindPGT, true},
		{KindST, KindST, true},
		{KindPT, KindST, true},
		{KindST, KindPT, false},
		{KindST, KindTGT, false},
		{KindTGT, "", true},
		{KindPT, "", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.Satisfies(tt.expected),
			"%s satisfies %q", tt.kind, tt.expected)
	}
}

func TestNewIDHasPrefixAndEntropy(t *testing.T) {
	a := NewID(PrefixTGT)
	b := NewID(PrefixTGT)
	assert.True(t, strings.HasPrefix(a, "TGT-"))
	assert.NotEqual(t, a, b)
	assert.Greater(t, len(a), 30)
}

func TestGrantServiceTicket(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	authn := testAuthentication("alice", now)
	tgt := NewGrantingTicket("TGT-1", authn, SlidingWindowPolicy(2*time.Hour, 8*time.Hour), now)

	svc := services.NewService("https://app.example.org")
	st := tgt.GrantServiceTicket("ST-1", svc, MultiUseOrTimeoutPolicy(1, 10*time.Second), true, now)

	require.NotNil(t, st)
	assert.Equal(t, KindST, st.Kind)
	assert.Equal(t, "TGT-1", st.GrantingID)
	assert.Equal(t, "TGT-1", st.RootID)
	assert.Equal(t, svc, st.Service)
	assert.True(t, st.FromNewLogin)

	assert.Equal(t, 1, tgt.CountOfUses)
	assert.Contains(t, tgt.Services, "ST-1")

	// A second grant without fresh credentials is no longer from a new login.
	st2 := tgt.GrantServiceTicket("ST-2", svc, MultiUseOrTimeoutPolicy(1, 10*time.Second), false, now.Add(time.Minute))
	assert.False(t, st2.FromNewLogin)
	assert.Equal(t, 2, tgt.CountOfUses)
	assert.Equal(t, now.Add(time.Minute), tgt.LastUsedTime)
}

func TestGrantFromProxyGrantingTicketProducesProxyTicket(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	root := NewGrantingTicket("TGT-1", testAuthentication("alice", now), NeverExpiresPolicy(), now)
	proxying := services.NewService("https://portal.example.org")
	pgt := NewProxyGrantingTicket("PGT-1", testAuthentication("alice", now), root, proxying, NeverExpiresPolicy(), now)

	assert.Equal(t, KindPGT, pgt.Kind)
	assert.Equal(t, "TGT-1", pgt.RootID)
	assert.Equal(t, "TGT-1", pgt.ParentID)
	assert.True(t, pgt.IsProxy())
	require.Len(t, pgt.ChainedAuthentications, 2)
	assert.Equal(t, "alice", pgt.RootAuthentication().Principal.ID)

	pt := pgt.GrantServiceTicket("PT-1", services.NewService("https://backend.example.org"),
		MultiUseOrTimeoutPolicy(1, 10*time.Second), false, now)
	assert.Equal(t, KindPT, pt.Kind)
	assert.Equal(t, "TGT-1", pt.RootID)
	require.NotNil(t, pt.ProxiedBy)
	assert.Equal(t, proxying.ID, pt.ProxiedBy.ID)
}

func TestServiceTicketConsumeExpiresSingleUse(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tgt := NewGrantingTicket("TGT-1", testAuthentication("alice", now), NeverExpiresPolicy(), now)
	st := tgt.GrantServiceTicket("ST-1", services.NewService("https://app.example.org"),
		MultiUseOrTimeoutPolicy(1, 10*time.Second), true, now)

	assert.False(t, st.IsExpired(now))
	st.Consume(now)
	assert.True(t, st.IsExpired(now))
}

func TestMarkExpiredForcesExpiration(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tgt := NewGrantingTicket("TGT-1", testAuthentication("alice", now), NeverExpiresPolicy(), now)
	assert.False(t, tgt.IsExpired(now))
	tgt.MarkExpired()
	assert.True(t, tgt.IsExpired(now))
}

func TestGrantingTicketCloneIsDeep(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tgt := NewGrantingTicket("TGT-1", testAuthentication("alice", now), NeverExpiresPolicy(), now)
	tgt.GrantServiceTicket("ST-1", services.NewService("https://app.example.org"),
		MultiUseOrTimeoutPolicy(1, 10*time.Second), true, now)

	clone, ok := tgt.Clone().(*GrantingTicket)
	require.True(t, ok)

	clone.Services["ST-2"] = services.NewService("https://other.example.org")
	clone.ChainedAuthentications = append(clone.ChainedAuthentications, testAuthentication("bob", now))

	assert.Len(t, tgt.Services, 1)
	assert.Len(t, tgt.ChainedAuthentications, 1)
}
