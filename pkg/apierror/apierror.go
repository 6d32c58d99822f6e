package apierror

import (
	"fmt"
	"net/http"
)

// Stable machine-checkable error codes exposed at the API boundary.
const (
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeConflict            = "CONFLICT"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeTokenRequired       = "TOKEN_REQUIRED"
	CodeNotAuthenticated    = "NOT_AUTHENTICATED"
	CodeNotFound            = "NOT_FOUND"
	CodeInternal            = "INTERNAL_ERROR"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

func ValidationFailed(message string, details string) *APIError {
	return New(CodeValidationFailed, message, details, http.StatusBadRequest)
}

func Conflict(message string, details string) *APIError {
	return New(CodeConflict, message, details, http.StatusConflict)
}

func InvalidCredentials(message string) *APIError {
	return New(CodeInvalidCredentials, message, "", http.StatusUnauthorized)
}

func InvalidToken() *APIError {
	return New(CodeInvalidToken, "invalid or expired token", "", http.StatusUnauthorized)
}

func InvalidRefreshToken() *APIError {
	return New(CodeInvalidRefreshToken, "invalid or expired refresh token", "", http.StatusUnauthorized)
}

func TokenRequired() *APIError {
	return New(CodeTokenRequired, "authorization token is required", "", http.StatusUnauthorized)
}

func NotAuthenticated() *APIError {
	return New(CodeNotAuthenticated, "authentication required", "", http.StatusUnauthorized)
}

func NotFound(message string, details string) *APIError {
	return New(CodeNotFound, message, details, http.StatusNotFound)
}
