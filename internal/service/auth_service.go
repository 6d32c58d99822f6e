package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"smartlearn-auth/internal/credential"
	"smartlearn-auth/internal/model"
	"smartlearn-auth/internal/session"
	"smartlearn-auth/internal/token"
	"smartlearn-auth/pkg/apierror"
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)
)

// UserStore is the slice of the identity repository the orchestrator needs.
type UserStore interface {
	Create(ctx context.Context, u model.User) error
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
	UpdateProfile(ctx context.Context, u model.User) error
	Delete(ctx context.Context, id string) error
}

type AuthService struct {
	users    UserStore
	hasher   *credential.Hasher
	issuer   *token.Issuer
	sessions session.Registry
}

func NewAuthService(users UserStore, hasher *credential.Hasher, issuer *token.Issuer, sessions session.Registry) *AuthService {
	return &AuthService{users: users, hasher: hasher, issuer: issuer, sessions: sessions}
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	if !emailPattern.MatchString(email) {
		return model.AuthResult{}, apierror.ValidationFailed("a valid email is required", "email")
	}
	if !usernamePattern.MatchString(username) {
		return model.AuthResult{}, apierror.ValidationFailed("username must be 3-32 characters of letters, digits or underscore", "username")
	}
	if err := validatePassword(req.Password); err != nil {
		return model.AuthResult{}, err
	}

	// Fast-path checks; the database constraints remain authoritative for
	// two concurrent registrations.
	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return model.AuthResult{}, apierror.Conflict("email already registered", "email")
	}

	taken, err = s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return model.AuthResult{}, apierror.Conflict("username already registered", "username")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.AuthResult{}, err
	}

	prefs := model.DefaultPreferences()
	if req.Preferences != nil {
		prefs = *req.Preferences
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Preferences:  prefs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return model.AuthResult{}, err
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return model.AuthResult{}, err
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	return result, nil
}

// Login never reveals whether the email was unknown or the password wrong.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if isNotFound(err) {
			return model.AuthResult{}, apierror.InvalidCredentials("invalid email or password")
		}
		return model.AuthResult{}, err
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return model.AuthResult{}, apierror.InvalidCredentials("invalid email or password")
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return model.AuthResult{}, err
	}

	slog.Info("user logged in", "user_id", user.ID)
	return result, nil
}

// Refresh accepts a token only when it verifies cryptographically AND
// matches the stored session record AND the identity still exists. On
// success the record is rotated, so the presented token is dead afterwards.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.AuthResult, error) {
	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return model.AuthResult{}, apierror.InvalidRefreshToken()
	}

	stored, err := s.sessions.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return model.AuthResult{}, apierror.InvalidRefreshToken()
		}
		return model.AuthResult{}, err
	}
	if stored != refreshToken {
		return model.AuthResult{}, apierror.InvalidRefreshToken()
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return model.AuthResult{}, apierror.InvalidRefreshToken()
		}
		return model.AuthResult{}, err
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return model.AuthResult{}, err
	}

	slog.Info("session refreshed", "user_id", user.ID)
	return result, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.Revoke(ctx, userID); err != nil {
		return err
	}

	slog.Info("user logged out", "user_id", userID)
	return nil
}

// ChangePassword stores a new hash and revokes the session record, so every
// previously issued refresh token stops working immediately.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req model.ChangePasswordRequest) error {
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify current password: %w", err)
	}
	if !ok {
		return apierror.New(apierror.CodeInvalidCredentials, "current password is incorrect", "", http.StatusUnauthorized)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	if err := s.sessions.Revoke(ctx, userID); err != nil {
		return err
	}

	slog.Info("password changed", "user_id", userID)
	return nil
}

// ValidateToken decodes an access token, failing closed on any defect.
func (s *AuthService) ValidateToken(tokenString string) (*token.Claims, error) {
	claims, err := s.issuer.VerifyAccess(tokenString)
	if err != nil {
		return nil, apierror.InvalidToken()
	}

	return claims, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID string) (model.User, error) {
	return s.users.FindByID(ctx, userID)
}

// UpdateProfile mutates username and preferences only. Identity, email,
// password hash and timestamps are not reachable through this operation.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if !usernamePattern.MatchString(username) {
			return model.User{}, apierror.ValidationFailed("username must be 3-32 characters of letters, digits or underscore", "username")
		}
		if !strings.EqualFold(username, user.Username) {
			taken, err := s.users.ExistsByUsername(ctx, username)
			if err != nil {
				return model.User{}, fmt.Errorf("check username: %w", err)
			}
			if taken {
				return model.User{}, apierror.Conflict("username already registered", "username")
			}
		}
		user.Username = username
	}

	if req.Preferences != nil {
		user.Preferences = *req.Preferences
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return model.User{}, err
	}

	return user, nil
}

// DeleteAccount revokes the live session before removing the identity, so
// a refresh token cannot outlive its user even briefly.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.sessions.Revoke(ctx, userID); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	slog.Info("account deleted", "user_id", userID)
	return nil
}

// startSession issues a token pair and stores the refresh token as the
// single live session record for the user, superseding any prior one.
func (s *AuthService) startSession(ctx context.Context, user model.User) (model.AuthResult, error) {
	pair, err := s.issuer.Issue(user)
	if err != nil {
		return model.AuthResult{}, err
	}

	if err := s.sessions.Put(ctx, user.ID, pair.RefreshToken); err != nil {
		return model.AuthResult{}, err
	}

	return model.AuthResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return apierror.ValidationFailed("password must be at least 8 characters", "password")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apierror.ValidationFailed("password must contain upper and lower case letters and a digit", "password")
	}

	return nil
}

func isNotFound(err error) bool {
	var apiErr *apierror.APIError
	return errors.As(err, &apiErr) && apiErr.Code == apierror.CodeNotFound
}
