package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/enginehub/pkg/agents"
	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/auth"
	"github.com/rhuss/enginehub/pkg/debug"
	"github.com/rhuss/enginehub/pkg/observability"
	"github.com/rhuss/enginehub/pkg/provider"
	"github.com/rhuss/enginehub/pkg/registry"
	"github.com/rhuss/enginehub/pkg/transport"
)

// ScopeCatalogWrite is required to refresh engine catalogs.
const ScopeCatalogWrite = "catalog:write"

// Adapter serves the engine registry over HTTP.
type Adapter struct {
	reg         transport.EngineRegistry
	inflight    *transport.InFlight
	mux         *http.ServeMux
	config      Config
	middlewares []transport.Middleware
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64

	// AgentsDir is scanned by GET /v1/agents. Empty disables agents.
	AgentsDir string

	// ReadyCheck backs /readyz. Nil means always ready.
	ReadyCheck func(ctx context.Context) error
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter over reg. Middleware wraps every
// route, the first one outermost.
func NewAdapter(reg transport.EngineRegistry, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	a := &Adapter{
		reg:         reg,
		inflight:    transport.NewInFlight(),
		mux:         http.NewServeMux(),
		config:      cfg,
		middlewares: middlewares,
	}

	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReadyz)

	a.mux.HandleFunc("GET /v1/engines", a.handleListEngines)
	a.mux.HandleFunc("GET /v1/engines/{engine}", a.handleGetEngine)
	a.mux.HandleFunc("GET /v1/engines/{engine}/models", a.handleListModels)
	a.mux.HandleFunc("GET /v1/engines/{engine}/models/valid", a.handleValidModel)
	a.mux.Handle("POST /v1/engines/{engine}/models/refresh",
		auth.RequireScope(ScopeCatalogWrite, http.HandlerFunc(a.handleRefreshModels)))
	a.mux.HandleFunc("POST /v1/engines/{engine}/completions", a.handleCompletion)

	a.mux.HandleFunc("GET /v1/streams", a.handleListStreams)
	a.mux.HandleFunc("DELETE /v1/streams/{id}", a.handleCancelStream)

	a.mux.HandleFunc("GET /v1/agents", a.handleListAgents)

	return a
}

// Handle mounts an extra handler (metrics, MCP) on the adapter's mux.
func (a *Adapter) Handle(pattern string, h http.Handler) {
	a.mux.Handle(pattern, h)
}

// Handler returns the http.Handler for this adapter: the middleware chain
// around the metrics middleware around the mux.
func (a *Adapter) Handler() http.Handler {
	return transport.Chain(a.middlewares...)(observability.MetricsMiddleware(a.mux))
}

// InFlight exposes the tracker of running completion streams.
func (a *Adapter) InFlight() *transport.InFlight {
	return a.inflight
}

func (a *Adapter) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *Adapter) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.config.ReadyCheck != nil {
		if err := a.config.ReadyCheck(r.Context()); err != nil {
			transport.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// EnginesResponse is the body of GET /v1/engines.
type EnginesResponse struct {
	Engines           []registry.EngineStatus `json:"engines"`
	Standard          []string                `json:"standard"`
	Chat              []string                `json:"chat"`
	Priority          []string                `json:"priority"`
	NonChat           []string                `json:"non_chat"`
	SupportsFavorites bool                    `json:"supports_favorites"`
}

func (a *Adapter) handleListEngines(w http.ResponseWriter, r *http.Request) {
	favorites, apiErr := boolParam(r, "favorites")
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}
	transport.WriteJSON(w, http.StatusOK, EnginesResponse{
		Engines:           a.reg.Statuses(),
		Standard:          a.reg.StandardEngines(),
		Chat:              a.reg.ChatEngines(registry.ChatEnginesOptions{Favorites: favorites}),
		Priority:          a.reg.PriorityEngines(),
		NonChat:           a.reg.NonChatEngines(),
		SupportsFavorites: a.reg.SupportsFavorites(),
	})
}

func (a *Adapter) handleGetEngine(w http.ResponseWriter, r *http.Request) {
	engine := r.PathValue("engine")
	st, ok := a.reg.Status(engine)
	if !ok {
		transport.WriteAPIError(w, api.NewNotFoundError("engine "+engine+" is not configured"))
		return
	}
	transport.WriteJSON(w, http.StatusOK, st)
}

// CatalogResponse is the body of GET /v1/engines/{engine}/models without a kind.
type CatalogResponse struct {
	Engine  string          `json:"engine"`
	Catalog *api.ModelsList `json:"catalog"`
}

// ModelsResponse is the body of a models listing filtered by kind.
type ModelsResponse struct {
	Engine string      `json:"engine"`
	Kind   api.Kind    `json:"kind"`
	Models []api.Model `json:"models"`
}

// handleListModels serves the cached catalog of a configured engine. For
// engines only proxied through witsy, the matching witsy chat models are
// served instead. live=true asks the ignited engine directly.
func (a *Adapter) handleListModels(w http.ResponseWriter, r *http.Request) {
	engine := r.PathValue("engine")

	kind, hasKind, apiErr := kindParam(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}
	live, apiErr := boolParam(r, "live")
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	var catalog *api.ModelsList
	switch {
	case live:
		models, err := a.reg.DiscoverModels(r.Context(), engine)
		if err != nil {
			transport.WriteError(w, err)
			return
		}
		catalog = api.ChatCatalog(models)
	default:
		if _, configured := a.reg.Status(engine); configured {
			catalog = a.reg.Models(engine)
			if catalog == nil {
				catalog = api.NewModelsList()
			}
			break
		}
		chat := a.reg.ChatModels(engine)
		if len(chat) == 0 {
			transport.WriteAPIError(w, api.NewNotFoundError("no models known for engine "+engine))
			return
		}
		catalog = api.ChatCatalog(chat)
	}

	if !hasKind {
		transport.WriteJSON(w, http.StatusOK, CatalogResponse{Engine: engine, Catalog: catalog})
		return
	}
	models := catalog.Models(kind)
	if models == nil {
		models = []api.Model{}
	}
	transport.WriteJSON(w, http.StatusOK, ModelsResponse{Engine: engine, Kind: kind, Models: models})
}

// ValidModelResponse is the body of GET /v1/engines/{engine}/models/valid.
// ID is null when the catalog of that kind is empty.
type ValidModelResponse struct {
	ID *string `json:"id"`
}

func (a *Adapter) handleValidModel(w http.ResponseWriter, r *http.Request) {
	kind, hasKind, apiErr := kindParam(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}
	if !hasKind {
		kind = api.KindChat
	}

	var resp ValidModelResponse
	if id, ok := a.reg.ValidModel(r.PathValue("engine"), kind, r.URL.Query().Get("id")); ok {
		resp.ID = &id
	}
	transport.WriteJSON(w, http.StatusOK, resp)
}

// RefreshResponse is the body of POST /v1/engines/{engine}/models/refresh.
type RefreshResponse struct {
	Engine string `json:"engine"`
	Saved  bool   `json:"saved"`
	Models int    `json:"models"`
}

func (a *Adapter) handleRefreshModels(w http.ResponseWriter, r *http.Request) {
	engine := r.PathValue("engine")
	if _, ok := a.reg.Status(engine); !ok {
		transport.WriteAPIError(w, api.NewNotFoundError("engine "+engine+" is not configured"))
		return
	}

	saved, err := a.reg.LoadModels(r.Context(), engine)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, RefreshResponse{
		Engine: engine,
		Saved:  saved,
		Models: a.reg.Models(engine).Len(),
	})
}

// CompletionRequest is the body of POST /v1/engines/{engine}/completions.
type CompletionRequest struct {
	Model    string                     `json:"model"`
	Messages []provider.Message         `json:"messages"`
	Stream   bool                       `json:"stream"`
	Options  provider.CompletionOptions `json:"options"`
}

// CompletionResponse is the non-streaming completion result.
type CompletionResponse struct {
	Engine string `json:"engine"`
	*provider.Response
}

func (a *Adapter) handleCompletion(w http.ResponseWriter, r *http.Request) {
	engine := r.PathValue("engine")

	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteAPIError(w, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()))
		return
	}
	if len(req.Messages) == 0 {
		transport.WriteAPIError(w, api.NewInvalidRequestError("messages", "at least one message is required"))
		return
	}
	if req.Model == "" {
		model, ok := a.reg.ValidModel(engine, api.KindChat, "")
		if !ok {
			transport.WriteAPIError(w, api.NewInvalidRequestError("model", "model is required"))
			return
		}
		req.Model = model
	}

	eng := a.reg.IgniteEngine(engine)
	defer eng.Close()

	if apiErr := provider.ValidateCapabilities(eng.Capabilities(), req.Stream); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	debug.Log("transport", "completion", "engine", engine, "resolved", eng.Name(), "model", req.Model, "stream", req.Stream)

	if req.Stream {
		a.streamCompletion(w, r, engine, eng, &req)
		return
	}

	resp, err := eng.Complete(r.Context(), req.Model, req.Messages, req.Options)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	newEventWriter(w).WriteResult(r.Context(), CompletionResponse{Engine: engine, Response: resp})
}

// streamCompletion relays engine events as SSE. The stream is registered
// under a fresh id so that DELETE /v1/streams/{id} can cancel it.
func (a *Adapter) streamCompletion(w http.ResponseWriter, r *http.Request, engine string, eng provider.Engine, req *CompletionRequest) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id := "stream_" + uuid.NewString()
	release := a.inflight.Track(transport.StreamInfo{
		ID:      id,
		Engine:  engine,
		Model:   req.Model,
		Started: time.Now(),
	}, cancel)
	defer release()

	events, err := eng.Stream(ctx, req.Model, req.Messages, req.Options)
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	ew := newEventWriter(w)
	if err := ew.WriteEvent(ctx, transport.StreamEvent{Type: transport.EventStreamCreated, StreamID: id}); err != nil {
		debug.Log("transport", "client gone", "stream", id, "error", err)
		return
	}

	for ev := range events {
		var out transport.StreamEvent
		switch ev.Type {
		case provider.EventTextDelta:
			out = transport.StreamEvent{Type: transport.EventDelta, StreamID: id, Delta: ev.Delta}
		case provider.EventDone:
			out = transport.StreamEvent{Type: transport.EventDone, StreamID: id, FinishReason: ev.FinishReason, Usage: ev.Usage}
		case provider.EventError:
			out = transport.StreamEvent{Type: transport.EventError, StreamID: id, Error: transport.AsAPIError(ev.Err)}
		default:
			continue
		}
		if err := ew.WriteEvent(ctx, out); err != nil {
			debug.Log("transport", "client gone", "stream", id, "error", err)
			return
		}
		if transport.IsTerminal(out.Type) {
			return
		}
	}

	// The engine closed the channel without a terminal event: the stream
	// was cancelled or the engine gave up.
	if ew.streaming() {
		msg := "stream ended unexpectedly"
		if ctx.Err() != nil {
			msg = "stream cancelled"
		}
		ew.WriteEvent(context.WithoutCancel(ctx), transport.StreamEvent{
			Type:     transport.EventError,
			StreamID: id,
			Error:    api.NewServerError(msg),
		})
	}
}

// StreamsResponse is the body of GET /v1/streams.
type StreamsResponse struct {
	Streams []transport.StreamInfo `json:"streams"`
}

func (a *Adapter) handleListStreams(w http.ResponseWriter, _ *http.Request) {
	transport.WriteJSON(w, http.StatusOK, StreamsResponse{Streams: a.inflight.List()})
}

func (a *Adapter) handleCancelStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !a.inflight.Cancel(id) {
		transport.WriteAPIError(w, api.NewNotFoundError("stream "+id+" is not running"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AgentsResponse is the body of GET /v1/agents.
type AgentsResponse struct {
	Agents []*agents.Agent `json:"agents"`
}

// handleListAgents loads agent definitions and sanitizes their models
// against the current catalogs.
func (a *Adapter) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	list := []*agents.Agent{}
	if a.config.AgentsDir != "" {
		list = agents.Load(a.config.AgentsDir)
		for _, ag := range list {
			if agents.Sanitize(ag, a.reg) {
				debug.Log("transport", "agent model replaced", "agent", ag.ID, "model", ag.ModelName())
			}
		}
	}
	transport.WriteJSON(w, http.StatusOK, AgentsResponse{Agents: list})
}

func kindParam(r *http.Request) (api.Kind, bool, *api.APIError) {
	s := r.URL.Query().Get("kind")
	if s == "" {
		return "", false, nil
	}
	kind, ok := api.ParseKind(s)
	if !ok {
		return "", false, api.NewInvalidRequestError("kind", "unknown model kind "+strconv.Quote(s))
	}
	return kind, true, nil
}

func boolParam(r *http.Request, name string) (bool, *api.APIError) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, api.NewInvalidRequestError(name, name+" must be a boolean")
	}
	return b, nil
}
