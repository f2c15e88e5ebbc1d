package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/kodeit-calculator/internal/common"
)

const (
	defaultAccessTTL = 8 * time.Hour
	defaultIssuer    = "kodeit-calculator"
	defaultAudience  = "kodeit-admin"

	claimEmail = "email"
	claimRole  = "role"
)

// Tokens signs and verifies HS256 admin access tokens.
type Tokens struct {
	secret    []byte
	ttl       time.Duration
	issuer    string
	audience  string
	clockSkew time.Duration
	algorithm jwa.SignatureAlgorithm
	now       func() time.Time
}

// TokenConfig configures Tokens. Zero values fall back to 8h tokens issued
// by kodeit-calculator for the kodeit-admin audience.
type TokenConfig struct {
	Secret    string
	TTL       time.Duration
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

// NewTokens validates cfg and returns a token signer.
func NewTokens(cfg TokenConfig) (*Tokens, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	t := &Tokens{
		secret:    []byte(secret),
		ttl:       cfg.TTL,
		issuer:    strings.TrimSpace(cfg.Issuer),
		audience:  strings.TrimSpace(cfg.Audience),
		clockSkew: cfg.ClockSkew,
		algorithm: jwa.HS256,
		now:       time.Now,
	}
	if t.ttl <= 0 {
		t.ttl = defaultAccessTTL
	}
	if t.issuer == "" {
		t.issuer = defaultIssuer
	}
	if t.audience == "" {
		t.audience = defaultAudience
	}
	if t.clockSkew < 0 {
		t.clockSkew = 0
	}
	return t, nil
}

// Issue signs a token carrying the user's id, email and role.
func (t *Tokens) Issue(u User) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	token, err := jwt.NewBuilder().
		Subject(u.ID).
		Issuer(t.issuer).
		Audience([]string{t.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-t.clockSkew)).
		Expiration(expiresAt).
		Claim(claimEmail, u.Email).
		Claim(claimRole, u.Role).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(t.algorithm, t.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

// Parse verifies raw and returns the principal it identifies.
func (t *Tokens) Parse(raw string) (common.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return common.Principal{}, common.Unauthorized("missing token", nil)
	}
	algorithm, err := signatureAlgorithm(raw)
	if err != nil {
		return common.Principal{}, common.Unauthorized("invalid token", err)
	}
	if algorithm != t.algorithm {
		return common.Principal{}, common.Unauthorized("invalid token", fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(raw, jwt.WithKey(algorithm, t.secret), jwt.WithValidate(false))
	if err != nil {
		return common.Principal{}, common.Unauthorized("invalid token", err)
	}
	if err := t.validate(parsed); err != nil {
		return common.Principal{}, common.Unauthorized("invalid token", err)
	}
	if parsed.Subject() == "" {
		return common.Principal{}, common.Unauthorized("invalid token", errors.New("auth: token has no subject"))
	}
	return common.Principal{
		ID:    parsed.Subject(),
		Email: stringClaim(parsed, claimEmail),
		Role:  stringClaim(parsed, claimRole),
	}, nil
}

func (t *Tokens) validate(tok jwt.Token) error {
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(t.now)),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
	}
	if t.clockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(t.clockSkew))
	}
	return jwt.Validate(tok, options...)
}

func stringClaim(tok jwt.Token, name string) string {
	v, ok := tok.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// signatureAlgorithm reads the alg header without trusting it, rejecting
// unsigned and mixed-algorithm tokens.
func signatureAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		switch {
		case alg == "":
			return "", errors.New("auth: token missing algorithm")
		case alg == jwa.NoSignature:
			return "", errors.New("auth: token uses none algorithm")
		case algorithm == "":
			algorithm = alg
		case algorithm != alg:
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
