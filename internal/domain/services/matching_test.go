package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExactMatcherNormalizesURLs(t *testing.T) {
	m := ExactMatcher{}

	tests := []struct {
		name      string
		candidate string
		ticket    string
		want      bool
	}{
		{"identical", "https://app.example.org/login", "https://app.example.org/login", true},
		{"case insensitive host", "https://APP.Example.ORG/login", "https://app.example.org/login", true},
		{"default https port dropped", "https://app.example.org:443/login", "https://app.example.org/login", true},
		{"default http port dropped", "http://app.example.org:80/", "http://app.example.org", true},
		{"non-default port kept", "https://app.example.org:8443/login", "https://app.example.org/login", false},
		{"trailing slash dropped", "https://app.example.org/login/", "https://app.example.org/login", true},
		{"jsessionid path parameter stripped", "https://app.example.org/login;jsessionid=abc123", "https://app.example.org/login", true},
		{"query is significant", "https://app.example.org/login?next=a", "https://app.example.org/login?next=b", false},
		{"different path", "https://app.example.org/a", "https://app.example.org/b", false},
		{"non-url ids compare case-insensitively", "imaps://Mail.example.org", "imaps://mail.example.org", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Matches(tt.candidate, tt.ticket))
		})
	}
}

func TestHostMatcherComparesRegistrableDomain(t *testing.T) {
	m := HostMatcher{}

	assert.True(t, m.Matches("https://a.example.org/x", "https://b.example.org/y"))
	assert.True(t, m.Matches("https://deep.a.example.org", "https://example.org"))
	assert.False(t, m.Matches("https://example.org", "https://example.com"))
	assert.False(t, m.Matches("", "https://example.org"))
}

func TestRegisteredServiceMatchesService(t *testing.T) {
	tests := []struct {
		name      string
		kind      MatchKind
		pattern   string
		candidate string
		want      bool
	}{
		{"exact hit", MatchExact, "https://app.example.org", "https://app.example.org", true},
		{"exact miss", MatchExact, "https://app.example.org", "https://other.example.org", false},
		{"wildcard subdomain", MatchWildcard, "https://*.example.org", "https://app.example.org", true},
		{"wildcard prefix covers bare prefix", MatchWildcard, "https://app.example.org/*", "https://app.example.org/", true},
		{"wildcard miss", MatchWildcard, "https://*.example.org", "https://app.example.com", false},
		{"regex hit", MatchRegex, `^https://app\d+\.example\.org`, "https://app42.example.org/cb", true},
		{"regex invalid pattern never matches", MatchRegex, `^https://(`, "https://app.example.org", false},
		{"etld+1 hit", MatchETLDPlusOne, "https://example.org", "https://anything.example.org/path", true},
		{"etld+1 miss", MatchETLDPlusOne, "https://example.org", "https://example.net", false},
		{"blank candidate never matches", MatchExact, "https://app.example.org", "", false},
		{"unknown kind falls back to exact", MatchKind("bogus"), "https://app.example.org", "https://app.example.org", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := &RegisteredService{ServiceID: tt.pattern, MatchKind: tt.kind}
			assert.Equal(t, tt.want, rs.MatchesService(tt.candidate))
		})
	}
}

func TestAccessAllowed(t *testing.T) {
	rs := &RegisteredService{
		Enabled: true,
		RequiredAttributes: map[string][]string{
			"role": {"admin", "auditor"},
		},
	}

	assert.True(t, rs.AccessAllowed(map[string][]any{"role": {"admin"}}))
	assert.True(t, rs.AccessAllowed(map[string][]any{"role": {"user", "auditor"}}))
	assert.False(t, rs.AccessAllowed(map[string][]any{"role": {"user"}}))
	assert.False(t, rs.AccessAllowed(nil))

	rs.Enabled = false
	assert.False(t, rs.AccessAllowed(map[string][]any{"role": {"admin"}}))
}

func TestAccessAllowedPresenceOnlyRequirement(t *testing.T) {
	rs := &RegisteredService{
		Enabled:            true,
		RequiredAttributes: map[string][]string{"memberOf": nil},
	}
	assert.True(t, rs.AccessAllowed(map[string][]any{"memberOf": {"staff"}}))
	assert.False(t, rs.AccessAllowed(map[string][]any{}))
}

func TestProxyPolicyPermitsProxying(t *testing.T) {
	assert.False(t, ProxyPolicy{}.PermitsProxying("https://portal.example.org"))
	assert.True(t, ProxyPolicy{Allowed: true}.PermitsProxying("https://portal.example.org"))
	assert.True(t, ProxyPolicy{Allowed: true, Pattern: `^https://portal\.`}.PermitsProxying("https://portal.example.org"))
	assert.False(t, ProxyPolicy{Allowed: true, Pattern: `^https://portal\.`}.PermitsProxying("https://evil.example.org"))
	assert.False(t, ProxyPolicy{Allowed: true, Pattern: `^(`}.PermitsProxying("https://portal.example.org"))
}
