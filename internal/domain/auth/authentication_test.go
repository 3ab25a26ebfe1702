package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderProducesImmutableSnapshots(t *testing.T) {
	date := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := NewBuilder(date)
	b.SetPrincipal(NewPrincipal("alice"))
	b.AddSuccess("accept-users", HandlerResult{HandlerName: "accept-users", Principal: NewPrincipal("alice")})
	b.AddAttribute("role", "admin")

	first := b.Build()
	b.AddSuccess("static-otp", HandlerResult{HandlerName: "static-otp", Principal: NewPrincipal("alice")})
	b.AddFailure("ldap", FailurePrevented)
	second := b.Build()

	assert.Len(t, first.Successes, 1)
	assert.Empty(t, first.Failures)
	assert.Len(t, second.Successes, 2)
	assert.Len(t, second.Failures, 1)

	// Mutating a snapshot's maps must not leak back into the builder.
	first.Successes["injected"] = HandlerResult{}
	assert.Len(t, b.Build().Successes, 2)
}

func TestBuilderStartsWithNullPrincipal(t *testing.T) {
	b := NewBuilder(time.Now())
	assert.True(t, b.Principal().IsNull())
	assert.True(t, b.Build().Principal.IsNull())
}

func TestNewBuilderFromCopiesState(t *testing.T) {
	date := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := NewBuilder(date)
	b.SetPrincipal(NewPrincipal("alice"))
	b.AddSuccess("accept-users", HandlerResult{HandlerName: "accept-users"})
	b.AddAttribute("role", "admin")
	original := b.Build()

	derived := NewBuilderFrom(original)
	derived.AddAttribute("role", "auditor")
	projected := derived.Build()

	assert.Equal(t, []any{"admin"}, original.Attributes["role"])
	assert.Equal(t, []any{"admin", "auditor"}, projected.Attributes["role"])
	assert.Equal(t, original.Date, projected.Date)
	assert.Equal(t, original.Principal, projected.Principal)
}

func TestMergeAttributesUnionsWithoutDuplicates(t *testing.T) {
	dst := map[string][]any{"role": {"admin"}}
	merged := MergeAttributes(dst, map[string][]any{
		"role":  {"admin", "auditor"},
		"email": {"alice@example.org"},
	})

	assert.Equal(t, []any{"admin", "auditor"}, merged["role"])
	assert.Equal(t, []any{"alice@example.org"}, merged["email"])

	assert.Nil(t, MergeAttributes(nil, nil))
	fromNil := MergeAttributes(nil, map[string][]any{"k": {"v"}})
	assert.Equal(t, []any{"v"}, fromNil["k"])
}

func TestCredentialMetadataDerivesTypeTag(t *testing.T) {
	m := NewCredentialMetadata(&UsernamePassword{Username: "alice", Password: "secret"})
	assert.Equal(t, "alice", m.ID)
	assert.Equal(t, "UsernamePassword", m.Type)

	m = NewCredentialMetadata(&OneTimePassword{Username: "alice", Token: "31415"})
	assert.Equal(t, "OneTimePassword", m.Type)
}

func TestResultBuilderRejectsMixedPrincipals(t *testing.T) {
	date := time.Now()
	alice := NewBuilder(date)
	alice.SetPrincipal(NewPrincipal("alice"))
	alice.AddSuccess("accept-users", HandlerResult{})
	bob := NewBuilder(date)
	bob.SetPrincipal(NewPrincipal("bob"))
	bob.AddSuccess("accept-users", HandlerResult{})

	b := NewResultBuilder()
	require.NoError(t, b.Collect(alice.Build()))

	err := b.Collect(bob.Build())
	var mixed *MixedPrincipalError
	require.ErrorAs(t, err, &mixed)
	assert.Equal(t, "alice", mixed.First)
	assert.Equal(t, "bob", mixed.Second)
}

func TestResultPrimaryIsMostRecent(t *testing.T) {
	date := time.Now()
	first := NewBuilder(date)
	first.SetPrincipal(NewPrincipal("alice"))
	first.AddSuccess("accept-users", HandlerResult{})
	second := NewBuilder(date.Add(time.Minute))
	second.SetPrincipal(NewPrincipal("alice"))
	second.AddSuccess("static-otp", HandlerResult{})

	b := NewResultBuilder()
	require.NoError(t, b.Collect(first.Build()))
	require.NoError(t, b.Collect(second.Build()))
	result := b.WithCredentialProvided(true).Build()

	primary, ok := result.Primary()
	require.True(t, ok)
	assert.Contains(t, primary.Successes, "static-otp")
	assert.True(t, result.CredentialProvided)
	assert.Nil(t, result.MixedPrincipals())

	_, ok = Result{}.Primary()
	assert.False(t, ok)
}
