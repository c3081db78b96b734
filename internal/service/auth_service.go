// Package service holds the business rules that sit between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

// TokenRevoker records and checks revoked token ids.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) bool
}

// CacheRevoker keeps the revocation list in Redis when it is available.
type CacheRevoker struct{}

func (CacheRevoker) Revoke(ctx context.Context, jti string, until time.Time) error {
	return cache.RevokeToken(ctx, jti, until)
}

func (CacheRevoker) IsRevoked(ctx context.Context, jti string) bool {
	return cache.IsTokenRevoked(ctx, jti)
}

// Session is the result of a successful register or login.
type Session struct {
	Token  string
	Claims *auth.Claims
	User   *models.User
}

type AuthService struct {
	users   repository.UserRepository
	tokens  *auth.TokenManager
	revoker TokenRevoker
}

// NewAuthService wires the auth flow. A nil revoker uses CacheRevoker.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, revoker TokenRevoker) *AuthService {
	if revoker == nil {
		revoker = CacheRevoker{}
	}
	return &AuthService{users: users, tokens: tokens, revoker: revoker}
}

// TokenTTL is the lifetime of issued tokens.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AuthService) Register(ctx context.Context, in models.NewUserInput) (*Session, error) {
	ctx, span := observability.StartSpan(ctx, "service", "auth.register")
	user, err := s.register(ctx, in)
	observability.EndSpan(span, err)
	if err != nil {
		middleware.AuthEvents.WithLabelValues("register", "failure").Inc()
		return nil, err
	}
	middleware.AuthEvents.WithLabelValues("register", "success").Inc()
	return s.issue(user)
}

func (s *AuthService) register(ctx context.Context, in models.NewUserInput) (*models.User, error) {
	if _, err := models.ParseSelfServiceRole(in.Role); err != nil {
		return nil, err
	}
	user, err := models.NewUser(in)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login accepts an email or phone number as identifier. Unknown identifiers
// and wrong passwords produce the same InvalidCredentials error.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, models.NewValidationError("Email or phone and password are required")
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.CheckPassword(password) {
		middleware.AuthEvents.WithLabelValues("login", "failure").Inc()
		return nil, models.NewInvalidCredentialsError()
	}

	middleware.AuthEvents.WithLabelValues("login", "success").Inc()
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Session{Token: token, Claims: claims, User: user}, nil
}

// Authenticate validates a token and checks it was not revoked.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, auth.ErrMissingToken) {
			return nil, models.NewUnauthenticatedError("Not authenticated")
		}
		return nil, &models.AppError{Code: models.CodeUnauthenticated, Message: "Invalid or expired token", Err: err}
	}
	if s.revoker.IsRevoked(ctx, claims.ID) {
		return nil, models.NewUnauthenticatedError("Token has been revoked")
	}
	return claims, nil
}

// Profile resolves a token to its user. Any failure, including a token for
// a user that no longer exists, is Unauthenticated.
func (s *AuthService) Profile(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.CurrentUser(ctx, claims.UserID())
}

// CurrentUser loads the user behind an already validated token.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthenticatedError("User no longer exists")
		}
		return nil, err
	}
	return user, nil
}

// Logout revokes the token when it is still valid. It never fails.
func (s *AuthService) Logout(ctx context.Context, token string) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.Expiry()); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to revoke token",
			"jti", claims.ID, "error", err)
	}
	middleware.AuthEvents.WithLabelValues("logout", "success").Inc()
}
