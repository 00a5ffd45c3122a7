package provider

// Capabilities declares what features the engine supports.
// Used by the transport for early request validation.
type Capabilities struct {
	// Completion indicates whether Complete returns real results.
	Completion bool

	// Streaming indicates whether Stream returns real results.
	Streaming bool

	// ModelDiscovery indicates whether ListModels queries the backend.
	ModelDiscovery bool
}

// Role values for Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation thread.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionOptions carries optional sampling parameters. Nil fields are
// left to the backend default.
type CompletionOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Response is the engine's complete non-streaming answer.
type Response struct {
	Model        string `json:"model"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        Usage  `json:"usage"`
}

// Usage reports token consumption for one request.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// EventType classifies a streaming event from the engine.
type EventType int

const (
	EventTextDelta EventType = iota // Incremental text content
	EventDone                       // Stream finished
	EventError                      // Stream error
)

func (t EventType) String() string {
	switch t {
	case EventTextDelta:
		return "text_delta"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is a single streaming event from the engine.
type Event struct {
	// Type indicates what kind of event this is.
	Type EventType

	// Delta contains incremental text.
	Delta string

	// FinishReason is populated on the done event when the backend reports one.
	FinishReason string

	// Usage is populated on the final event when the backend reports it.
	Usage *Usage

	// Err is populated if the stream encountered an error.
	Err error
}
