package witsy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rhuss/enginehub/pkg/api"
)

// mapHTTPError converts a non-2xx catalog response into an APIError.
func mapHTTPError(resp *http.Response) *api.APIError {
	message := extractErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		if message == "" {
			message = "invalid catalog request"
		}
		return api.NewInvalidRequestError("", message)

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if message == "" {
			message = "catalog authentication failed"
		}
		return api.NewServerError(message)

	case resp.StatusCode == http.StatusNotFound:
		if message == "" {
			message = "catalog endpoint not found"
		}
		return api.NewNotFoundError(message)

	case resp.StatusCode == http.StatusTooManyRequests:
		if message == "" {
			message = "catalog rate limit exceeded"
		}
		return api.NewTooManyRequestsError(message)

	default:
		if message == "" {
			message = fmt.Sprintf("unexpected catalog response (HTTP %d)", resp.StatusCode)
		}
		return api.NewServerError(message)
	}
}

// extractErrorMessage reads at most 4KiB of an error body and returns the
// message it carries, if any. Both {"error":"..."}, {"error":{"message":"..."}}
// and {"message":"..."} are understood.
func extractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp errorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		return ""
	}

	if len(errResp.Error) > 0 {
		var s string
		if json.Unmarshal(errResp.Error, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(errResp.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return errResp.Message
}
