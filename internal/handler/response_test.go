package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartlearn-auth/internal/model"
	"smartlearn-auth/pkg/apierror"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()

	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteError_APIError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, apierror.Conflict("email already registered", "email"))

	assert.Equal(t, 409, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apierror.CodeConflict, resp.Error.Code)
	assert.Equal(t, "email", resp.Error.Details)
}

func TestWriteError_WrappedAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("check username: %w", apierror.InvalidRefreshToken()))

	assert.Equal(t, 401, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apierror.CodeInvalidRefreshToken, resp.Error.Code)
}

func TestWriteError_UnclassifiedIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("connection reset by peer"))

	assert.Equal(t, 500, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apierror.CodeInternal, resp.Error.Code)
	// The raw cause stays in the logs, not the response.
	assert.NotContains(t, resp.Error.Message, "connection reset")
	assert.Empty(t, resp.Error.Details)
}

func TestWriteSuccess_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(rec, 201, map[string]string{"id": "abc"})

	assert.Equal(t, 201, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}
