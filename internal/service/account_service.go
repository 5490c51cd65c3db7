package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/donor-auth/internal/auth"
	"github.com/spec-kit/donor-auth/internal/config"
	"github.com/spec-kit/donor-auth/internal/domain"
	"github.com/spec-kit/donor-auth/internal/events"
	"github.com/spec-kit/donor-auth/internal/repository"
	apperrors "github.com/spec-kit/donor-auth/pkg/errorutil"
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6

// SignupInput carries the signup form as received.
type SignupInput struct {
	Name        string
	Email       string
	Password    string
	AccountType string
	BloodType   string
	Phone       string
	Address     string
}

// AuthResult is a principal together with a freshly issued session token.
type AuthResult struct {
	Principal *domain.Principal
	Token     domain.IssuedToken
}

// AccountService coordinates signup, login and self-service flows.
type AccountService struct {
	principals repository.PrincipalRepository
	hasher     *auth.PasswordHasher
	tokens     *auth.TokenManager
	denylist   auth.TokenDenylist
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AccountDependencies encapsulates collaborators for the account service.
// Denylist and Dispatcher are optional.
type AccountDependencies struct {
	Principals repository.PrincipalRepository
	Tokens     *auth.TokenManager
	Denylist   auth.TokenDenylist
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(cfg config.AuthConfig, deps AccountDependencies) *AccountService {
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		principals: deps.Principals,
		hasher:     auth.NewPasswordHasher(cfg.BcryptCost),
		tokens:     tokens,
		denylist:   deps.Denylist,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Signup creates a principal and signs it in.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	accountType := domain.AccountType(strings.TrimSpace(in.AccountType))

	if name == "" || email == "" || in.Password == "" || accountType == "" {
		return nil, apperrors.NewBadRequest("missing required fields")
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength),
			map[string]any{"field": "password"},
		)
	}
	if !accountType.Valid() {
		return nil, apperrors.NewValidationError("invalid account type", map[string]any{"field": "accountType"})
	}

	var bloodType *domain.BloodType
	if raw := strings.TrimSpace(in.BloodType); raw != "" {
		bt := domain.BloodType(raw)
		if !bt.Valid() {
			return nil, apperrors.NewValidationError("invalid blood type", map[string]any{"field": "bloodType"})
		}
		bloodType = &bt
	}

	if _, err := s.principals.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(fmt.Errorf("signup: lookup email: %w", err))
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if auth.IsPasswordTooLong(err) {
			return nil, apperrors.NewValidationError("password is too long", map[string]any{"field": "password"})
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("signup: hash password: %w", err))
	}

	principal := &domain.Principal{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		AccountType:  accountType,
		BloodType:    bloodType,
		Phone:        domain.OptionalString(in.Phone),
		Address:      domain.OptionalString(in.Address),
		Availability: true,
		IsActive:     true,
	}
	// The unique index is authoritative; the lookup above only gives an early answer.
	if err := s.principals.Create(ctx, principal); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewConflict("email already registered", nil)
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("signup: create principal: %w", err))
	}

	token, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("signup: issue token: %w", err))
	}

	s.publish(ctx, events.New(events.EventPrincipalSignedUp, principal.ID,
		events.SignedUpPayload{AccountType: principal.AccountType}))
	return &AuthResult{Principal: principal, Token: token}, nil
}

// Login authenticates a principal by email and password.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewBadRequest("email and password required")
	}

	principal, err := s.principals.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.publish(ctx, events.New(events.EventLoginRejected, "", events.LoginRejectedPayload{Reason: "unknown_email"}))
			return nil, apperrors.NewNotFound("user")
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("login: lookup email: %w", err))
	}

	if !s.hasher.Verify(password, principal.PasswordHash) {
		s.publish(ctx, events.New(events.EventLoginRejected, principal.ID, events.LoginRejectedPayload{Reason: "bad_password"}))
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("login: issue token: %w", err))
	}

	s.publish(ctx, events.New(events.EventPrincipalLoggedIn, principal.ID, nil))
	return &AuthResult{Principal: principal, Token: token}, nil
}

// Me loads the authenticated principal. A principal deleted after its token was issued
// surfaces here as NotFound.
func (s *AccountService) Me(ctx context.Context, principalID string) (*domain.Principal, error) {
	principal, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("me: load principal: %w", err))
	}
	return principal, nil
}

// UpdateAvailability sets the donor availability flag and nothing else. A nil available
// means the caller sent no boolean.
func (s *AccountService) UpdateAvailability(ctx context.Context, principalID string, available *bool) (*domain.Principal, error) {
	if available == nil {
		return nil, apperrors.NewValidationError("availability must be boolean", map[string]any{"field": "available"})
	}

	principal, err := s.principals.UpdateAvailability(ctx, principalID, *available)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("update availability: %w", err))
	}

	s.publish(ctx, events.New(events.EventAvailabilityChanged, principal.ID,
		events.AvailabilityChangedPayload{Available: principal.Availability}))
	return principal, nil
}

// Logout revokes the presented token when a denylist is configured. It never fails:
// the client drops its cookie regardless. The return value reports whether the token
// was revoked server-side.
func (s *AccountService) Logout(ctx context.Context, rawToken string) bool {
	if rawToken == "" {
		return false
	}
	identity, err := s.tokens.Verify(rawToken)
	if err != nil {
		return false
	}

	revoked := false
	if s.denylist != nil && identity.TokenID != "" {
		if err := s.denylist.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
			s.logger.Warn("token revocation failed", zap.String("principal_id", identity.PrincipalID), zap.Error(err))
		} else {
			revoked = true
		}
	}

	s.publish(ctx, events.New(events.EventPrincipalLoggedOut, identity.PrincipalID, events.LoggedOutPayload{Revoked: revoked}))
	return revoked
}

func (s *AccountService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
