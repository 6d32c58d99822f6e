package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartlearn-auth/internal/config"
	"smartlearn-auth/internal/credential"
	"smartlearn-auth/internal/handler"
	"smartlearn-auth/internal/middleware"
	"smartlearn-auth/internal/model"
	"smartlearn-auth/internal/router"
	"smartlearn-auth/internal/service"
	"smartlearn-auth/internal/session"
	"smartlearn-auth/internal/token"
	"smartlearn-auth/pkg/apierror"
)

// memoryStore is an in-process stand-in for the postgres repository so the
// full HTTP stack can be exercised without external services.
type memoryStore struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: map[string]model.User{}}
}

func (s *memoryStore) Create(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apierror.Conflict("email already registered", "email")
		}
		if strings.EqualFold(existing.Username, u.Username) {
			return apierror.Conflict("username already registered", "username")
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *memoryStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, apierror.NotFound("user not found", "")
	}
	return u, nil
}

func (s *memoryStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, apierror.NotFound("user not found", "")
}

func (s *memoryStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) UpdatePassword(_ context.Context, userID string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return apierror.NotFound("user not found", "")
	}
	u.PasswordHash = passwordHash
	s.users[userID] = u
	return nil
}

func (s *memoryStore) UpdateProfile(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return apierror.NotFound("user not found", "")
	}
	existing.Username = u.Username
	existing.Preferences = u.Preferences
	existing.UpdatedAt = u.UpdatedAt
	s.users[u.ID] = existing
	return nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return apierror.NotFound("user not found", "")
	}
	delete(s.users, id)
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hasher, err := credential.NewHasher(credential.MinCost)
	require.NoError(t, err)

	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:  token.AccessKey("router-test-access-secret"),
		RefreshSecret: token.RefreshKey("router-test-refresh-secret"),
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	sessions := session.NewRedisRegistry(client, 7*24*time.Hour)
	authService := service.NewAuthService(newMemoryStore(), hasher, issuer, sessions)

	cfg := &config.Config{
		RequestTimeout:   30 * time.Second,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}

	healthCheck := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}

	h := router.New(cfg,
		middleware.NewAuthMiddleware(authService),
		handler.NewAuthHandler(authService),
		handler.NewUserHandler(authService),
		healthCheck,
	)

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any, bearer string) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getWithBearer(t *testing.T, url string, bearer string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) model.APIResponse {
	t.Helper()

	var body model.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func registerUser(t *testing.T, serverURL string) (access string, refresh string) {
	t.Helper()

	resp := postJSON(t, serverURL+"/api/v1/auth/register", map[string]string{
		"email":    "ada@example.com",
		"username": "ada_l",
		"password": "Strong1!",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	require.True(t, body.Success)

	data, err := json.Marshal(body.Data)
	require.NoError(t, err)
	var result model.AuthResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	return result.AccessToken, result.RefreshToken
}

func TestAuthFlow(t *testing.T) {
	server := newTestServer(t)
	access, refresh := registerUser(t, server.URL)

	meResp := getWithBearer(t, server.URL+"/api/v1/auth/me", access)
	assert.Equal(t, http.StatusOK, meResp.StatusCode)

	refreshResp := postJSON(t, server.URL+"/api/v1/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, "")
	assert.Equal(t, http.StatusOK, refreshResp.StatusCode)

	// Rotation defeated the original refresh token.
	replayResp := postJSON(t, server.URL+"/api/v1/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, replayResp.StatusCode)
	replayBody := decodeBody(t, replayResp)
	require.NotNil(t, replayBody.Error)
	assert.Equal(t, apierror.CodeInvalidRefreshToken, replayBody.Error.Code)
}

func TestProtectedEndpointsRejectMissingToken(t *testing.T) {
	server := newTestServer(t)

	resp := getWithBearer(t, server.URL+"/api/v1/profile", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	require.NotNil(t, body.Error)
	assert.Equal(t, apierror.CodeTokenRequired, body.Error.Code)

	resp2 := getWithBearer(t, server.URL+"/api/v1/profile", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
	body2 := decodeBody(t, resp2)
	require.NotNil(t, body2.Error)
	assert.Equal(t, apierror.CodeInvalidToken, body2.Error.Code)
}

func TestValidateEndpoint(t *testing.T) {
	server := newTestServer(t)
	access, refresh := registerUser(t, server.URL)

	okResp := getWithBearer(t, server.URL+"/api/v1/auth/validate", access)
	assert.Equal(t, http.StatusOK, okResp.StatusCode)
	okBody := decodeBody(t, okResp)
	require.True(t, okBody.Success)

	// Refresh tokens are not valid on the access surface.
	wrongKind := getWithBearer(t, server.URL+"/api/v1/auth/validate", refresh)
	assert.Equal(t, http.StatusUnauthorized, wrongKind.StatusCode)
	wrongBody := decodeBody(t, wrongKind)
	require.NotNil(t, wrongBody.Error)
	assert.Equal(t, apierror.CodeInvalidToken, wrongBody.Error.Code)

	missing := getWithBearer(t, server.URL+"/api/v1/auth/validate", "")
	assert.Equal(t, http.StatusUnauthorized, missing.StatusCode)
	missingBody := decodeBody(t, missing)
	require.NotNil(t, missingBody.Error)
	assert.Equal(t, apierror.CodeTokenRequired, missingBody.Error.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	server := newTestServer(t)
	access, refresh := registerUser(t, server.URL)

	logoutResp := postJSON(t, server.URL+"/api/v1/auth/logout", map[string]string{}, access)
	assert.Equal(t, http.StatusOK, logoutResp.StatusCode)

	refreshResp := postJSON(t, server.URL+"/api/v1/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, refreshResp.StatusCode)
}

func TestProfileUpdate(t *testing.T) {
	server := newTestServer(t)
	access, _ := registerUser(t, server.URL)

	req, err := http.NewRequest(http.MethodPut, server.URL+"/api/v1/profile",
		strings.NewReader(`{"username":"ada_updated"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+access)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	require.True(t, body.Success)

	data, err := json.Marshal(body.Data)
	require.NoError(t, err)
	var user model.User
	require.NoError(t, json.Unmarshal(data, &user))
	assert.Equal(t, "ada_updated", user.Username)
}

func TestDeleteAccount(t *testing.T) {
	server := newTestServer(t)
	access, refresh := registerUser(t, server.URL)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/profile", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+access)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Both the profile and the session are gone.
	profileResp := getWithBearer(t, server.URL+"/api/v1/profile", access)
	assert.Equal(t, http.StatusNotFound, profileResp.StatusCode)

	refreshResp := postJSON(t, server.URL+"/api/v1/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, refreshResp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
