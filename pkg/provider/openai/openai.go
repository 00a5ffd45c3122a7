package openai

import (
	"context"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/debug"
	"github.com/rhuss/enginehub/pkg/observability"
	"github.com/rhuss/enginehub/pkg/provider"
)

// Provider is a custom engine backed by an OpenAI-compatible endpoint.
type Provider struct {
	cfg    Config
	client *openai.Client
}

// Compile-time check.
var _ provider.Engine = (*Provider)(nil)

// New creates a custom engine client.
func New(cfg Config) *Provider {
	cfg.applyDefaults()

	opts := []option.RequestOption{
		option.WithHTTPClient(cfg.HTTPClient),
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)
	return &Provider{cfg: cfg, client: &client}
}

// Name returns the configured engine name.
func (p *Provider) Name() string {
	return p.cfg.Name
}

// Label returns the display name of the engine.
func (p *Provider) Label() string {
	return p.cfg.Label
}

// Capabilities reports full support.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Completion:     true,
		Streaming:      true,
		ModelDiscovery: true,
	}
}

// ListModels queries the models endpoint. The model id doubles as the
// display name; owner and creation time are kept as meta.
func (p *Provider) ListModels(ctx context.Context) ([]api.Model, error) {
	debug.Log("providers", "custom engine model list", "engine", p.cfg.Name, "url", p.cfg.BaseURL)

	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, mapError(p.cfg.Name, err)
	}

	models := make([]api.Model, 0, len(page.Data))
	for _, m := range page.Data {
		meta := api.Meta{
			"id":      api.StringValue(m.ID),
			"created": api.NumberValue(float64(m.Created)),
		}
		if m.OwnedBy != "" {
			meta["owned_by"] = api.StringValue(m.OwnedBy)
		}
		models = append(models, api.Model{ID: m.ID, Name: m.ID, Meta: meta})
	}
	return models, nil
}

// Complete performs a non-streaming chat completion.
func (p *Provider) Complete(ctx context.Context, model string, thread []provider.Message, opts provider.CompletionOptions) (*provider.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	params := buildParams(model, thread, opts)
	debug.Log("providers", "custom engine completion", "engine", p.cfg.Name, "model", model, "messages", len(thread))

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	observability.EngineLatency.WithLabelValues(p.cfg.Name, "complete").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.EngineRequestsTotal.WithLabelValues(p.cfg.Name, "complete", "error").Inc()
		return nil, mapError(p.cfg.Name, err)
	}
	observability.EngineRequestsTotal.WithLabelValues(p.cfg.Name, "complete", "ok").Inc()

	out := &provider.Response{
		Model: resp.Model,
		Usage: provider.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.FinishReason = string(resp.Choices[0].FinishReason)
	}
	p.recordUsage(&out.Usage)
	if debug.TraceIsEnabled("providers") {
		debug.Trace("providers", "custom engine completion response",
			"engine", p.cfg.Name, "content", debug.Truncate(out.Content, 2048),
			"total_tokens", out.Usage.TotalTokens)
	}
	return out, nil
}

// Stream performs a streaming chat completion. Errors the backend reports
// before the first chunk are returned directly; later errors arrive as
// an EventError.
func (p *Provider) Stream(ctx context.Context, model string, thread []provider.Message, opts provider.CompletionOptions) (<-chan provider.Event, error) {
	params := buildParams(model, thread, opts)
	debug.Log("providers", "custom engine stream", "engine", p.cfg.Name, "model", model, "messages", len(thread))

	start := time.Now()
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	// Pull the first chunk so HTTP errors surface before the caller
	// commits to an event stream.
	first := stream.Next()
	if !first {
		if err := stream.Err(); err != nil {
			stream.Close()
			observability.EngineRequestsTotal.WithLabelValues(p.cfg.Name, "stream", "error").Inc()
			return nil, mapError(p.cfg.Name, err)
		}
	}

	ch := make(chan provider.Event, 16)
	go func() {
		defer close(ch)
		defer stream.Close()

		var (
			usage  *provider.Usage
			finish string
		)
		for ok := first; ok; ok = stream.Next() {
			chunk := stream.Current()
			if chunk.Usage.TotalTokens > 0 {
				usage = &provider.Usage{
					InputTokens:  int(chunk.Usage.PromptTokens),
					OutputTokens: int(chunk.Usage.CompletionTokens),
					TotalTokens:  int(chunk.Usage.TotalTokens),
				}
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if choice.FinishReason != "" {
				finish = string(choice.FinishReason)
			}
			if choice.Delta.Content == "" {
				continue
			}
			if !send(ctx, ch, provider.Event{Type: provider.EventTextDelta, Delta: choice.Delta.Content}) {
				return
			}
		}

		observability.EngineLatency.WithLabelValues(p.cfg.Name, "stream").Observe(time.Since(start).Seconds())
		if err := stream.Err(); err != nil {
			observability.EngineRequestsTotal.WithLabelValues(p.cfg.Name, "stream", "error").Inc()
			send(ctx, ch, provider.Event{Type: provider.EventError, Err: mapError(p.cfg.Name, err)})
			return
		}
		observability.EngineRequestsTotal.WithLabelValues(p.cfg.Name, "stream", "ok").Inc()
		p.recordUsage(usage)
		send(ctx, ch, provider.Event{Type: provider.EventDone, FinishReason: finish, Usage: usage})
	}()

	return ch, nil
}

// Close is a no-op; the HTTP client is shared.
func (p *Provider) Close() error {
	return nil
}

func (p *Provider) recordUsage(u *provider.Usage) {
	if u == nil {
		return
	}
	observability.EngineTokensTotal.WithLabelValues(p.cfg.Name, "input").Add(float64(u.InputTokens))
	observability.EngineTokensTotal.WithLabelValues(p.cfg.Name, "output").Add(float64(u.OutputTokens))
}

// send delivers ev unless ctx is done.
func send(ctx context.Context, ch chan<- provider.Event, ev provider.Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// buildParams translates a thread into Chat Completions parameters.
func buildParams(model string, thread []provider.Message, opts provider.CompletionOptions) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: toMessages(thread),
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}
	if opts.TopP != nil {
		params.TopP = openai.Float(*opts.TopP)
	}
	if opts.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*opts.MaxTokens))
	}
	if len(opts.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.Stop}
	}
	return params
}

func toMessages(thread []provider.Message) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(thread))
	for _, msg := range thread {
		switch msg.Role {
		case provider.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case provider.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	return messages
}
