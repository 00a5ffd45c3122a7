package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/debug"
	"github.com/rhuss/enginehub/pkg/registry"
	"github.com/rhuss/enginehub/pkg/transport"
)

// ImplementationName identifies the server during the MCP handshake.
const ImplementationName = "enginehub"

// Server wraps an MCP server whose tools read and refresh the registry.
type Server struct {
	reg    transport.EngineRegistry
	server *mcp.Server
}

// New creates an MCP server over reg and registers all tools.
func New(reg transport.EngineRegistry, version string) *Server {
	s := &Server{
		reg: reg,
		server: mcp.NewServer(
			&mcp.Implementation{Name: ImplementationName, Version: version},
			nil,
		),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_engines",
		Description: "Lists configured engines with their status, plus the standard, chat, priority and non-chat engine listings",
	}, s.listEngines)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_models",
		Description: "Lists the cached model catalog of an engine",
	}, s.listModels)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "refresh_models",
		Description: "Reloads the model catalog of an engine from its backend and persists it",
	}, s.refreshModels)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "engine_status",
		Description: "Reports whether an engine is configured and ready, and how many models it offers per kind",
	}, s.engineStatus)

	return s
}

// MCP returns the underlying MCP server, for in-process transports.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Handler serves the MCP streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// ListEnginesInput is the argument of list_engines.
type ListEnginesInput struct {
	Favorites bool `json:"favorites,omitempty" jsonschema:"prepend the favorites pseudo engine to the chat listing when supported"`
}

// EnginesOutput is the result of list_engines.
type EnginesOutput struct {
	Engines           []registry.EngineStatus `json:"engines"`
	Standard          []string                `json:"standard"`
	Chat              []string                `json:"chat"`
	Priority          []string                `json:"priority"`
	NonChat           []string                `json:"non_chat"`
	SupportsFavorites bool                    `json:"supports_favorites"`
}

func (s *Server) listEngines(_ context.Context, _ *mcp.CallToolRequest, in ListEnginesInput) (*mcp.CallToolResult, any, error) {
	debug.Log("mcp", "list_engines", "favorites", in.Favorites)
	return jsonResult(EnginesOutput{
		Engines:           s.reg.Statuses(),
		Standard:          s.reg.StandardEngines(),
		Chat:              s.reg.ChatEngines(registry.ChatEnginesOptions{Favorites: in.Favorites}),
		Priority:          s.reg.PriorityEngines(),
		NonChat:           s.reg.NonChatEngines(),
		SupportsFavorites: s.reg.SupportsFavorites(),
	})
}

// ListModelsInput is the argument of list_models.
type ListModelsInput struct {
	Engine string `json:"engine" jsonschema:"engine name, for example witsy or openai"`
	Kind   string `json:"kind,omitempty" jsonschema:"catalog kind: chat, image, video, embedding, realtime, computer, tts or stt"`
}

// ModelsOutput is the result of list_models with a kind.
type ModelsOutput struct {
	Engine string      `json:"engine"`
	Kind   api.Kind    `json:"kind"`
	Models []api.Model `json:"models"`
}

// CatalogOutput is the result of list_models without a kind.
type CatalogOutput struct {
	Engine  string          `json:"engine"`
	Catalog *api.ModelsList `json:"catalog"`
}

func (s *Server) listModels(_ context.Context, _ *mcp.CallToolRequest, in ListModelsInput) (*mcp.CallToolResult, any, error) {
	debug.Log("mcp", "list_models", "engine", in.Engine, "kind", in.Kind)

	var catalog *api.ModelsList
	if _, ok := s.reg.Status(in.Engine); ok {
		catalog = s.reg.Models(in.Engine)
		if catalog == nil {
			catalog = api.NewModelsList()
		}
	} else {
		chat := s.reg.ChatModels(in.Engine)
		if len(chat) == 0 {
			return errorResult("no models known for engine %q", in.Engine)
		}
		catalog = api.ChatCatalog(chat)
	}

	if in.Kind == "" {
		return jsonResult(CatalogOutput{Engine: in.Engine, Catalog: catalog})
	}
	kind, ok := api.ParseKind(in.Kind)
	if !ok {
		return errorResult("unknown model kind %q", in.Kind)
	}
	models := catalog.Models(kind)
	if models == nil {
		models = []api.Model{}
	}
	return jsonResult(ModelsOutput{Engine: in.Engine, Kind: kind, Models: models})
}

// EngineInput names one engine.
type EngineInput struct {
	Engine string `json:"engine" jsonschema:"engine name"`
}

// RefreshOutput is the result of refresh_models.
type RefreshOutput struct {
	Engine string `json:"engine"`
	Saved  bool   `json:"saved"`
	Models int    `json:"models"`
}

func (s *Server) refreshModels(ctx context.Context, _ *mcp.CallToolRequest, in EngineInput) (*mcp.CallToolResult, any, error) {
	debug.Log("mcp", "refresh_models", "engine", in.Engine)
	if _, ok := s.reg.Status(in.Engine); !ok {
		return errorResult("engine %q is not configured", in.Engine)
	}
	saved, err := s.reg.LoadModels(ctx, in.Engine)
	if err != nil {
		return errorResult("%v", err)
	}
	return jsonResult(RefreshOutput{
		Engine: in.Engine,
		Saved:  saved,
		Models: s.reg.Models(in.Engine).Len(),
	})
}

func (s *Server) engineStatus(_ context.Context, _ *mcp.CallToolRequest, in EngineInput) (*mcp.CallToolResult, any, error) {
	st, ok := s.reg.Status(in.Engine)
	if !ok {
		return errorResult("engine %q is not configured", in.Engine)
	}
	return jsonResult(st)
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func errorResult(format string, args ...any) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}, nil, nil
}
