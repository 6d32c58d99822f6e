package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"smartlearn-auth/internal/model"
	"smartlearn-auth/internal/token"
	"smartlearn-auth/pkg/apierror"
)

type accessVerifier interface {
	ValidateToken(tokenString string) (*token.Claims, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

type AuthMiddleware struct {
	verifier accessVerifier
}

func NewAuthMiddleware(verifier accessVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth distinguishes an absent bearer token (TOKEN_REQUIRED) from one
// that is present but fails verification (INVALID_TOKEN).
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := token.ExtractBearer(r.Header.Get("Authorization"))
		if !ok {
			writeAuthError(w, apierror.TokenRequired())
			return
		}

		claims, err := m.verifier.ValidateToken(tokenString)
		if err != nil {
			writeAuthError(w, apierror.InvalidToken())
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*token.Claims)
	return claims, ok
}

func writeAuthError(w http.ResponseWriter, apiErr *apierror.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus)

	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}
