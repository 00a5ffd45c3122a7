package openai

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"

	"github.com/rhuss/enginehub/pkg/api"
)

// mapError converts an openai-go error into an APIError. Errors that did
// not come from an HTTP response are reported as connection errors.
func mapError(name string, err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: backend connection error: %w", name, err)
	}

	message := apiErr.Message
	switch {
	case apiErr.StatusCode == http.StatusBadRequest:
		if message == "" {
			message = "invalid request to backend"
		}
		return api.NewInvalidRequestError("", message)

	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		if message == "" {
			message = "backend authentication failed"
		}
		return api.NewServerError(message)

	case apiErr.StatusCode == http.StatusNotFound:
		if message == "" {
			message = "backend resource not found"
		}
		return api.NewNotFoundError(message)

	case apiErr.StatusCode == http.StatusTooManyRequests:
		if message == "" {
			message = "backend rate limit exceeded"
		}
		return api.NewTooManyRequestsError(message)

	default:
		if message == "" {
			message = fmt.Sprintf("backend server error (HTTP %d)", apiErr.StatusCode)
		}
		return api.NewServerError(message)
	}
}
