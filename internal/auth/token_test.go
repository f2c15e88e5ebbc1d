package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

func fixedTokens(t *testing.T, now time.Time) *Tokens {
	t.Helper()
	tokens, err := NewTokens(TokenConfig{Secret: "secret", TTL: time.Hour, ClockSkew: time.Second})
	require.NoError(t, err)
	tokens.now = func() time.Time { return now }
	return tokens
}

func TestTokensRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	tokens := fixedTokens(t, now)

	raw, exp, err := tokens.Issue(User{ID: "u1", Email: "a@kodeit.test", Role: "editor"})
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), exp)

	p, err := tokens.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "u1", p.ID)
	require.Equal(t, "a@kodeit.test", p.Email)
	require.Equal(t, "editor", p.Role)
}

func TestTokensRejectForeignSecret(t *testing.T) {
	now := time.Now()
	raw, _, err := fixedTokens(t, now).Issue(User{ID: "u1"})
	require.NoError(t, err)

	other, err := NewTokens(TokenConfig{Secret: "other"})
	require.NoError(t, err)
	_, err = other.Parse(raw)
	require.Error(t, err)
}

func TestTokensRejectWrongAudience(t *testing.T) {
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Subject("u1").
		Issuer(defaultIssuer).
		Audience([]string{"someone-else"}).
		IssuedAt(now).
		Expiration(now.Add(time.Minute)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("secret")))
	require.NoError(t, err)

	_, err = fixedTokens(t, now).Parse(string(signed))
	require.Error(t, err)
}

func TestTokensRejectOtherAlgorithms(t *testing.T) {
	now := time.Now()
	tok, err := jwt.NewBuilder().Subject("u1").Expiration(now.Add(time.Minute)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS512, []byte("secret")))
	require.NoError(t, err)

	_, err = fixedTokens(t, now).Parse(string(signed))
	require.ErrorContains(t, err, "unexpected token algorithm")

	_, err = fixedTokens(t, now).Parse("   ")
	require.ErrorContains(t, err, "missing token")
}

func TestTokensRespectNotBefore(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	raw, _, err := fixedTokens(t, now).Issue(User{ID: "u1"})
	require.NoError(t, err)

	_, err = fixedTokens(t, now.Add(-time.Minute)).Parse(raw)
	require.Error(t, err)
}
