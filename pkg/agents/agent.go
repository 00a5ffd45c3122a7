// Package agents loads agent definitions: named presets that bind an
// engine, a model and instructions. Definitions live as JSON files in a
// directory, one agent per file.
package agents

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rhuss/enginehub/pkg/api"
)

// Agent is a stored agent definition. Nullable fields of the on-disk
// format are pointers.
type Agent struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Engine           *string  `json:"engine"`
	Model            *string  `json:"model"`
	ModelOpts        api.Meta `json:"modelOpts"`
	DisableStreaming bool     `json:"disableStreaming"`
	Locale           *string  `json:"locale"`
	Tools            []string `json:"tools"`
	DocRepo          *string  `json:"docrepo"`
	Instructions     string   `json:"instructions"`
	Prompt           *string  `json:"prompt"`
}

// New returns an empty agent with a fresh id.
func New() *Agent {
	return &Agent{ID: uuid.NewString()}
}

// FromJSON decodes an agent definition. A missing or empty id is replaced
// with a fresh one.
func FromJSON(data []byte) (*Agent, error) {
	var a Agent
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decoding agent: %w", err)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return &a, nil
}

// EngineName returns the bound engine, or "".
func (a *Agent) EngineName() string {
	if a.Engine == nil {
		return ""
	}
	return *a.Engine
}

// ModelName returns the bound model, or "".
func (a *Agent) ModelName() string {
	if a.Model == nil {
		return ""
	}
	return *a.Model
}

// ModelValidator sanitizes a model id against an engine catalog.
type ModelValidator interface {
	ValidModel(engine string, kind api.Kind, id string) (string, bool)
}

// Sanitize replaces a model the engine catalog no longer offers with the
// first chat model of that catalog. Agents without an engine, or bound to
// an engine with an empty catalog, are left alone. It reports whether the
// model changed.
func Sanitize(a *Agent, v ModelValidator) bool {
	engine := a.EngineName()
	if engine == "" {
		return false
	}
	current := a.ModelName()
	valid, ok := v.ValidModel(engine, api.KindChat, current)
	if !ok || valid == current {
		return false
	}
	a.Model = &valid
	return true
}
