package registry

import (
	"log/slog"

	"github.com/rhuss/enginehub/pkg/config"
	"github.com/rhuss/enginehub/pkg/provider"
	"github.com/rhuss/enginehub/pkg/provider/witsy"
)

// WitsyFactory builds a witsy adapter bound to an engine configuration.
type WitsyFactory func(ec *config.EngineConfig) provider.Engine

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for warnings and load results.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithWitsyFactory replaces the constructor of witsy adapters.
func WithWitsyFactory(f WitsyFactory) Option {
	return func(m *Manager) {
		if f != nil {
			m.newWitsy = f
		}
	}
}

// WithDelegates replaces the ordered ignition delegates. The witsy
// fallback always applies after them.
func WithDelegates(delegates ...Delegate) Option {
	return func(m *Manager) {
		m.delegates = delegates
	}
}

func defaultWitsyFactory(ec *config.EngineConfig) provider.Engine {
	return witsy.New(witsy.ConfigFrom(ec))
}
