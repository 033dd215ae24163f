package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/pkg/util/errorutil"
	"github.com/spec-kit/support-desk/pkg/util/validation"
)

// ErrInvalidCredentials is returned for any failed login, whatever the cause.
var ErrInvalidCredentials = errors.New("invalid username or password")

// RegisterInput is the self-service sign-up payload. There is no role field:
// every registered account is a customer.
type RegisterInput struct {
	Username        string `form:"username" validate:"required,max=150,username"`
	Email           string `form:"email" validate:"required,email,max=254"`
	Password        string `form:"password1" validate:"required,min=8"`
	PasswordConfirm string `form:"password2" validate:"required,eqfield=Password"`
}

// LoginResult carries the data needed to set the session cookie.
type LoginResult struct {
	Account   *domain.Account
	SessionID string
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	accounts   repository.AccountRepository
	sessions   *auth.SessionStore
	tokens     *auth.TokenManager
	bcryptCost int
	dummyHash  []byte
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	AccountRepo  repository.AccountRepository
	Sessions     *auth.SessionStore
	TokenManager *auth.TokenManager
	BcryptCost   int
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts:   deps.AccountRepo,
		sessions:   deps.Sessions,
		tokens:     deps.TokenManager,
		bcryptCost: deps.BcryptCost,
		dummyHash:  auth.DummyHash(deps.BcryptCost),
	}
}

// Register creates a customer account together with its role row.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetByUsername(ctx, input.Username); err == nil {
		return nil, errorutil.FieldError("username", "A user with that username already exists.")
	} else if !errorutil.IsNotFound(err) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, errorutil.ErrConflict) {
			return nil, errorutil.FieldError("username", "A user with that username already exists.")
		}
		return nil, err
	}
	return account, nil
}

// Login verifies credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	account, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errorutil.IsNotFound(err) {
			auth.BurnCompare(s.dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	sessionID, err := s.sessions.Create(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.tokens.GenerateToken(sessionID, account.ID)
	if err != nil {
		_ = s.sessions.Destroy(ctx, sessionID)
		return nil, err
	}
	return &LoginResult{Account: account, SessionID: sessionID, Token: token, ExpiresAt: exp}, nil
}

// Logout ends the session. An empty id is a no-op.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Destroy(ctx, sessionID)
}

// SetRole changes the role of an existing account. Used by the operator CLI.
func (s *AuthService) SetRole(ctx context.Context, username string, role domain.Role) (*domain.Account, error) {
	if !role.Valid() {
		return nil, errorutil.FieldError("role", "Select a valid choice.")
	}
	account, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if err := s.accounts.SetRole(ctx, account.ID, role); err != nil {
		return nil, err
	}
	account.Role = role
	return account, nil
}

// EnsureAdmin makes sure username exists with the admin role. A missing
// account is registered with email and password first; an existing one keeps
// its password. created reports whether the account was new.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) (account *domain.Account, created bool, err error) {
	_, err = s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	switch {
	case errorutil.IsNotFound(err):
		if _, err = s.Register(ctx, RegisterInput{
			Username:        username,
			Email:           email,
			Password:        password,
			PasswordConfirm: password,
		}); err != nil {
			return nil, false, err
		}
		created = true
	case err != nil:
		return nil, false, err
	}

	account, err = s.SetRole(ctx, username, domain.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return account, created, nil
}
