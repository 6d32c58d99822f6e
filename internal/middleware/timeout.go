package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"smartlearn-auth/internal/model"
)

// Timeout cuts off handlers that outlive the request budget and answers
// with the same response envelope the handlers use.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	body, _ := json.Marshal(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    "REQUEST_TIMEOUT",
			Message: "Request timed out",
		},
	})

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(body))
	}
}
