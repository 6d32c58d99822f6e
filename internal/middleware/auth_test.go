package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartlearn-auth/internal/model"
	"smartlearn-auth/internal/token"
	"smartlearn-auth/pkg/apierror"
)

type stubVerifier struct {
	claims *token.Claims
	err    error
}

func (s *stubVerifier) ValidateToken(string) (*token.Claims, error) {
	return s.claims, s.err
}

func authTestHandler(t *testing.T, verifier accessVerifier) http.Handler {
	t.Helper()

	mw := NewAuthMiddleware(verifier)
	return mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-User-ID", claims.UserID)
		w.WriteHeader(http.StatusOK)
	}))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()

	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	handler := authTestHandler(t, &stubVerifier{err: apierror.InvalidToken()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, apierror.CodeTokenRequired, resp.Error.Code)
}

func TestRequireAuth_WrongScheme(t *testing.T) {
	handler := authTestHandler(t, &stubVerifier{err: apierror.InvalidToken()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, apierror.CodeTokenRequired, resp.Error.Code)
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	handler := authTestHandler(t, &stubVerifier{err: apierror.InvalidToken()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, apierror.CodeInvalidToken, resp.Error.Code)
}

func TestRequireAuth_ValidToken(t *testing.T) {
	handler := authTestHandler(t, &stubVerifier{claims: &token.Claims{UserID: "user-1"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Header().Get("X-User-ID"))
}
