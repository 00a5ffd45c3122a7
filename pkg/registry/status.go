package registry

import (
	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/config"
)

// EngineStatus summarizes one configured engine.
type EngineStatus struct {
	Name       string           `json:"name"`
	Label      string           `json:"label,omitempty"`
	Custom     bool             `json:"custom"`
	Configured bool             `json:"configured"`
	Ready      bool             `json:"ready"`
	Model      string           `json:"model,omitempty"`
	Models     map[api.Kind]int `json:"models"`
}

// Status reports the state of a configured engine. The boolean is false
// for engines absent from the configuration.
func (m *Manager) Status(engine string) (EngineStatus, bool) {
	ec := m.engineConfig(engine)
	if ec == nil {
		return EngineStatus{}, false
	}

	m.mu.RLock()
	st := EngineStatus{
		Name:   engine,
		Label:  ec.Label,
		Custom: ec.IsCustom(),
		Models: make(map[api.Kind]int, len(api.Kinds)),
	}
	for _, kind := range api.Kinds {
		st.Models[kind] = len(ec.Models.Models(kind))
	}
	m.mu.RUnlock()

	st.Configured = m.IsEngineConfigured(engine)
	st.Ready = m.IsEngineReady(engine)
	if id, ok := m.ValidModel(engine, api.KindChat, ec.Model); ok {
		st.Model = id
	}
	if st.Label == "" && engine == config.DefaultEngine {
		st.Label = "Witsy"
	}
	return st, true
}

// Statuses reports every configured engine, sorted by name.
func (m *Manager) Statuses() []EngineStatus {
	names := m.Engines()
	out := make([]EngineStatus, 0, len(names))
	for _, name := range names {
		if st, ok := m.Status(name); ok {
			out = append(out, st)
		}
	}
	return out
}
