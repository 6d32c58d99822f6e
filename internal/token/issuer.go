package token

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"smartlearn-auth/internal/model"
)

// ErrInvalidToken covers malformed encoding, signature mismatch, expiry and
// wrong-key verification. The causes are deliberately not distinguished.
var ErrInvalidToken = errors.New("invalid or expired token")

// AccessKey and RefreshKey are distinct types so the two signing secrets
// cannot be swapped at a call site.
type AccessKey []byte

type RefreshKey []byte

type Config struct {
	AccessSecret  AccessKey
	RefreshSecret RefreshKey
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Claims is the payload embedded in both access and refresh tokens. The two
// token kinds carry the same shape and differ only in signing key and TTL.
type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Issuer struct {
	cfg Config
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access signing key is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh signing key is required")
	}
	if bytes.Equal(cfg.AccessSecret, []byte(cfg.RefreshSecret)) {
		return nil, errors.New("access and refresh signing keys must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	return &Issuer{cfg: cfg}, nil
}

// Issue mints an access/refresh token pair bound to the given identity.
func (i *Issuer) Issue(user model.User) (model.TokenPair, error) {
	now := time.Now().UTC()

	accessToken, err := i.sign(user, now, i.cfg.AccessTTL, []byte(i.cfg.AccessSecret))
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := i.sign(user, now, i.cfg.RefreshTTL, []byte(i.cfg.RefreshSecret))
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(i.cfg.AccessTTL.Seconds()),
	}, nil
}

func (i *Issuer) VerifyAccess(tokenString string) (*Claims, error) {
	return verify(tokenString, []byte(i.cfg.AccessSecret))
}

func (i *Issuer) VerifyRefresh(tokenString string) (*Claims, error) {
	return verify(tokenString, []byte(i.cfg.RefreshSecret))
}

func (i *Issuer) sign(user model.User, now time.Time, ttl time.Duration, secret []byte) (string, error) {
	// The jti makes every issued token unique even when two issuances land
	// in the same second, which iat alone cannot guarantee at second
	// precision. Session rotation relies on this.
	claims := Claims{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func verify(tokenString string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ExtractBearer parses an Authorization header. A missing header or wrong
// scheme is reported as absent, which is a distinct outcome from a token
// that is present but invalid.
func ExtractBearer(header string) (string, bool) {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	tokenString := strings.TrimSpace(header[len(prefix):])
	if tokenString == "" {
		return "", false
	}

	return tokenString, true
}
