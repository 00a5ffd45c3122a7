package provider

import (
	"context"

	"github.com/rhuss/enginehub/pkg/api"
)

// Engine is a live handle on one inference backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Engine interface {
	// Name returns the engine identifier (e.g., "witsy", "openai").
	Name() string

	// Capabilities returns what this engine supports.
	Capabilities() Capabilities

	// ListModels returns the chat models offered by the backend, in the
	// order the backend reports them.
	ListModels(ctx context.Context) ([]api.Model, error)

	// Complete performs non-streaming inference over the conversation thread.
	Complete(ctx context.Context, model string, thread []Message, opts CompletionOptions) (*Response, error)

	// Stream performs streaming inference. The returned channel receives
	// Event values and is closed by the engine when the stream completes
	// or errors.
	Stream(ctx context.Context, model string, thread []Message, opts CompletionOptions) (<-chan Event, error)

	// Close releases engine resources (HTTP clients, connections).
	Close() error
}
