// Package auth manages admin accounts and their access tokens.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kodeit-calculator/internal/common"
	"github.com/noah-isme/kodeit-calculator/internal/obs"
)

// RoleAdmin is the only role allowed to create other accounts.
const RoleAdmin = "admin"

// Service coordinates admin authentication and account management.
type Service struct {
	store   Store
	tokens  *Tokens
	metrics *obs.DomainMetrics
	logger  zerolog.Logger
}

// Config configures the auth service.
type Config struct {
	Store          Store
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
	Metrics        *obs.DomainMetrics
	Logger         zerolog.Logger
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// RegisterInput describes a new admin account.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=admin editor"`
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	tokens, err := NewTokens(TokenConfig{
		Secret:    cfg.Secret,
		TTL:       cfg.AccessTokenTTL,
		Issuer:    cfg.Issuer,
		Audience:  cfg.Audience,
		ClockSkew: cfg.ClockSkew,
	})
	if err != nil {
		return nil, err
	}
	return &Service{store: cfg.Store, tokens: tokens, metrics: cfg.Metrics, logger: cfg.Logger}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.tokens.now = now
	}
}

// Login checks the credentials and issues an access token. Wrong email and
// wrong password are indistinguishable; a deactivated account is rejected only
// after its password matched.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	acc, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.metrics.Login("invalid")
			return LoginResult{}, common.Unauthorized("invalid credentials", nil)
		}
		return LoginResult{}, err
	}
	ok, legacy, err := VerifyPassword(password, acc.PasswordHash)
	if err != nil || !ok {
		s.metrics.Login("invalid")
		return LoginResult{}, common.Unauthorized("invalid credentials", err)
	}
	if !acc.IsActive {
		s.metrics.Login("inactive")
		return LoginResult{}, common.Forbidden("user is deactivated")
	}
	if legacy {
		s.upgradeHash(ctx, acc.ID, password)
	}

	token, expiresAt, err := s.tokens.Issue(acc.User)
	if err != nil {
		return LoginResult{}, err
	}
	s.metrics.Login("success")
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: acc.User}, nil
}

func (s *Service) upgradeHash(ctx context.Context, id, password string) {
	hash, err := HashPassword(password)
	if err == nil {
		err = s.store.UpdatePassword(ctx, id, hash)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", id).Msg("password hash upgrade failed")
		return
	}
	s.logger.Info().Str("user_id", id).Msg("legacy password hash upgraded")
}

// Register creates an account on behalf of requesterRole, which must be admin.
func (s *Service) Register(ctx context.Context, requesterRole string, in RegisterInput) (User, error) {
	if requesterRole != RoleAdmin {
		return User{}, common.Forbidden("only admins can register accounts")
	}
	in.Email = normalizeEmail(in.Email)
	if err := common.ValidateStruct(in); err != nil {
		return User{}, err
	}
	if _, err := s.store.GetByEmail(ctx, in.Email); err == nil {
		return User{}, common.Conflict("email already exists", ErrEmailTaken)
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}
	return s.create(ctx, in.Email, in.Password, in.Role)
}

// EnsureAdmin creates an admin with the given credentials unless the email
// is already registered. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.store.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}
	if _, err := s.create(ctx, email, password, RoleAdmin); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) create(ctx context.Context, email, password, role string) (User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	if strings.TrimSpace(role) == "" {
		role = RoleAdmin
	}
	u, err := s.store.Create(ctx, Account{
		User:         User{Email: normalizeEmail(email), Role: role, IsActive: true},
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return User{}, common.Conflict("email already exists", err)
		}
		return User{}, err
	}
	return u, nil
}

// List returns every admin account.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

// Get returns one admin account.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	u, err := s.store.GetByID(ctx, id)
	return u, notFound(err)
}

// Deactivate disables login for the account. Only admins may deactivate
// accounts, and never their own.
func (s *Service) Deactivate(ctx context.Context, requester common.Principal, id string) error {
	if err := authorizeAccountChange(requester, id, false); err != nil {
		return err
	}
	return notFound(s.store.Deactivate(ctx, id))
}

// Delete removes the account. Only admins may delete accounts, and never
// their own.
func (s *Service) Delete(ctx context.Context, requester common.Principal, id string) error {
	if err := authorizeAccountChange(requester, id, false); err != nil {
		return err
	}
	return notFound(s.store.Delete(ctx, id))
}

// UpdatePassword sets a new password for the account. Admins may change any
// password; other roles only their own.
func (s *Service) UpdatePassword(ctx context.Context, requester common.Principal, id, newPassword string) error {
	if err := authorizeAccountChange(requester, id, true); err != nil {
		return err
	}
	if err := common.ValidateStruct(passwordInput{NewPassword: newPassword}); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return notFound(s.store.UpdatePassword(ctx, id, hash))
}

// authorizeAccountChange checks whether requester may modify account id.
// selfAllowed permits non-admins to act on their own account and admins to
// act on theirs.
func authorizeAccountChange(requester common.Principal, id string, selfAllowed bool) error {
	self := requester.ID != "" && requester.ID == strings.TrimSpace(id)
	switch {
	case self && selfAllowed:
		return nil
	case self:
		return common.Forbidden("cannot modify your own account")
	case requester.Role != RoleAdmin:
		return common.Forbidden("only admins can manage other accounts")
	}
	return nil
}

// ParseAccessToken validates a bearer token and returns its principal.
func (s *Service) ParseAccessToken(token string) (common.Principal, error) {
	return s.tokens.Parse(token)
}

type passwordInput struct {
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

func notFound(err error) error {
	if errors.Is(err, ErrUserNotFound) {
		return common.NewAppError("NOT_FOUND", "admin user not found", http.StatusNotFound, err)
	}
	return err
}
