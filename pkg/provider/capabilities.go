package provider

import (
	"github.com/rhuss/enginehub/pkg/api"
)

// ValidateCapabilities checks whether a completion request in the given
// mode is compatible with the engine's declared capabilities. Returns an
// APIError identifying the unsupported feature, or nil if the request is
// compatible.
func ValidateCapabilities(caps Capabilities, stream bool) *api.APIError {
	if stream && !caps.Streaming {
		return api.NewInvalidRequestError("stream",
			"the selected engine does not support streaming responses")
	}
	if !stream && !caps.Completion {
		return api.NewInvalidRequestError("stream",
			"the selected engine does not support non-streaming responses")
	}
	return nil
}
