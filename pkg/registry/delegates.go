package registry

import (
	"errors"
	"fmt"

	"github.com/rhuss/enginehub/pkg/config"
	"github.com/rhuss/enginehub/pkg/provider"
	"github.com/rhuss/enginehub/pkg/provider/openai"
)

// FavoritesEngine is the pseudo engine name that selects the favorites
// delegate.
const FavoritesEngine = "__favorites__"

// Delegate is an ignition strategy. The Manager asks each delegate in
// order whether it claims an engine name and ignites through the first
// one that does.
type Delegate interface {
	// Name identifies the delegate in logs and metrics.
	Name() string

	// Matches reports whether the delegate handles engine.
	Matches(engine string) bool

	// Ignite builds a live engine handle.
	Ignite(engine string) (provider.Engine, error)
}

var errNoFavorite = errors.New("no usable favorite")

// customDelegate ignites user-defined OpenAI-compatible engines.
type customDelegate struct {
	m *Manager
}

// CustomDelegate returns the delegate for engines whose configuration
// names a wire protocol (api: openai).
func CustomDelegate(m *Manager) Delegate {
	return customDelegate{m: m}
}

func (d customDelegate) Name() string { return "custom" }

func (d customDelegate) Matches(engine string) bool {
	return d.m.engineConfig(engine).IsCustom()
}

func (d customDelegate) Ignite(engine string) (provider.Engine, error) {
	ec := d.m.engineConfig(engine)
	if !ec.IsCustom() {
		return nil, fmt.Errorf("engine %q is not a custom engine", engine)
	}
	if ec.BaseURL == "" {
		return nil, fmt.Errorf("custom engine %q has no base_url", engine)
	}
	return openai.New(openai.ConfigFrom(engine, ec)), nil
}

// favoritesDelegate ignites the engine of the first usable favorite.
type favoritesDelegate struct {
	m *Manager
}

// FavoritesDelegate returns the delegate for the FavoritesEngine name.
func FavoritesDelegate(m *Manager) Delegate {
	return favoritesDelegate{m: m}
}

func (d favoritesDelegate) Name() string { return "favorites" }

func (d favoritesDelegate) Matches(engine string) bool {
	return engine == FavoritesEngine
}

func (d favoritesDelegate) Ignite(_ string) (provider.Engine, error) {
	for _, fav := range d.m.favorites() {
		switch {
		case fav.Engine == config.DefaultEngine:
			if d.m.IsEngineConfigured(fav.Engine) {
				return d.m.newWitsy(d.m.engineConfig(fav.Engine)), nil
			}
		case d.m.engineConfig(fav.Engine).IsCustom():
			return CustomDelegate(d.m).Ignite(fav.Engine)
		}
	}
	return nil, errNoFavorite
}
