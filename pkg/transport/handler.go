package transport

import (
	"context"

	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/provider"
	"github.com/rhuss/enginehub/pkg/registry"
)

// EngineRegistry is the registry surface served over HTTP and MCP.
// *registry.Manager implements it.
type EngineRegistry interface {
	SupportsFavorites() bool
	StandardEngines() []string
	PriorityEngines() []string
	NonChatEngines() []string
	ChatEngines(opts registry.ChatEnginesOptions) []string

	Statuses() []registry.EngineStatus
	Status(engine string) (registry.EngineStatus, bool)

	Models(engine string) *api.ModelsList
	ChatModels(engine string) []api.Model
	ValidModel(engine string, kind api.Kind, id string) (string, bool)

	// LoadModels refreshes and persists the catalog of engine.
	LoadModels(ctx context.Context, engine string) (bool, error)

	// DiscoverModels asks the ignited engine for its models directly.
	DiscoverModels(ctx context.Context, engine string) ([]api.Model, error)

	// IgniteEngine returns a live engine; never nil.
	IgniteEngine(engine string) provider.Engine
}

var _ EngineRegistry = (*registry.Manager)(nil)

// StreamEvent is one event of a streamed completion.
type StreamEvent struct {
	Type         string          `json:"type"`
	StreamID     string          `json:"stream_id,omitempty"`
	Delta        string          `json:"delta,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Usage        *provider.Usage `json:"usage,omitempty"`
	Error        *api.APIError   `json:"error,omitempty"`
}

// Stream event types.
const (
	EventStreamCreated = "stream.created"
	EventDelta         = "completion.delta"
	EventDone          = "completion.done"
	EventError         = "error"
)

// IsTerminal reports whether t ends a stream.
func IsTerminal(t string) bool {
	return t == EventDone || t == EventError
}

// EventWriter abstracts streamed and buffered completion output.
//
// WriteEvent and WriteResult are mutually exclusive on one writer.
// Writing after a terminal event or after WriteResult fails.
type EventWriter interface {
	// WriteEvent sends one streaming event.
	WriteEvent(ctx context.Context, event StreamEvent) error

	// WriteResult sends a complete non-streaming result.
	WriteResult(ctx context.Context, v any) error

	// Flush pushes buffered data to the client.
	Flush() error
}
