package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/config"
	"github.com/rhuss/enginehub/pkg/debug"
	"github.com/rhuss/enginehub/pkg/observability"
	"github.com/rhuss/enginehub/pkg/provider"
	"github.com/rhuss/enginehub/pkg/provider/witsy"
	"github.com/rhuss/enginehub/pkg/storage"
)

// Separators used to derive engine names from witsy catalog ids. The
// standard listing and the chat listing split on different tokens; both
// are kept as-is.
const (
	standardSeparator = "___"
	chatSeparator     = "-"
)

// generalEngines and mediaEngines make up the fixed non-chat listing.
var (
	generalEngines = []string{"openai", "anthropic", "google", "xai", "ollama", "mistralai", "deepseek", "openrouter", "groq", "cerebras"}
	mediaEngines   = []string{"huggingface", "replicate", "elevenlabs", "sdwebui", "falai", "gladia"}
)

// ChatEnginesOptions tunes ChatEngines.
type ChatEnginesOptions struct {
	// Favorites asks for the favorites pseudo engine to be listed first.
	// Ignored when the registry does not support favorites.
	Favorites bool
}

// Manager is the engine registry. It reads engine settings from the
// configuration, persists catalogs through a CatalogStore and rewrites the
// cached catalog of an engine after a successful load.
type Manager struct {
	mu  sync.RWMutex
	cfg *config.Config

	store     storage.CatalogStore
	logger    *slog.Logger
	newWitsy  WitsyFactory
	delegates []Delegate
}

// New creates a Manager. Without WithDelegates the favorites and custom
// delegates are installed in that order.
func New(cfg *config.Config, store storage.CatalogStore, opts ...Option) *Manager {
	if cfg == nil {
		d := config.Defaults()
		cfg = &d
	}
	m := &Manager{
		cfg:      cfg,
		store:    store,
		logger:   slog.Default(),
		newWitsy: defaultWitsyFactory,
	}
	m.delegates = []Delegate{FavoritesDelegate(m), CustomDelegate(m)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SupportsFavorites reports whether the favorites feature is available.
// It is not, even though a favorites delegate exists.
func (m *Manager) SupportsFavorites() bool {
	return false
}

// StandardEngines lists the engines proxied by witsy, derived from the
// chat catalog ids (the part before "___"), sorted and deduplicated. With
// an empty catalog it returns just "witsy".
func (m *Manager) StandardEngines() []string {
	chat := m.witsyChat()
	if len(chat) == 0 {
		return []string{config.DefaultEngine}
	}
	return prefixes(chat, standardSeparator)
}

// PriorityEngines lists the engines to rank first.
func (m *Manager) PriorityEngines() []string {
	return []string{config.DefaultEngine}
}

// NonChatEngines returns the fixed list of known third-party providers.
func (m *Manager) NonChatEngines() []string {
	out := make([]string, 0, len(generalEngines)+len(mediaEngines))
	out = append(out, generalEngines...)
	return append(out, mediaEngines...)
}

// ChatEngines lists the engines found in the witsy chat catalog, derived
// from the part of each id before the first "-", sorted and deduplicated.
func (m *Manager) ChatEngines(opts ChatEnginesOptions) []string {
	engines := prefixes(m.witsyChat(), chatSeparator)
	if opts.Favorites && m.SupportsFavorites() {
		engines = append([]string{FavoritesEngine}, engines...)
	}
	debug.Log("registry", "chat engines", "engines", engines)
	return engines
}

// IsEngineConfigured reports whether witsy holds a credential. Every
// other engine is assumed configured.
func (m *Manager) IsEngineConfigured(engine string) bool {
	if engine != config.DefaultEngine {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return witsy.IsConfigured(m.cfg.Engine(config.DefaultEngine))
}

// IsEngineReady reports whether witsy is configured and has chat models.
// Every other engine is assumed ready.
func (m *Manager) IsEngineReady(engine string) bool {
	if engine != config.DefaultEngine {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return witsy.IsReady(m.cfg.Engine(config.DefaultEngine))
}

// ChatModels returns the witsy chat models whose id starts with
// "<engine>-", in catalog order.
func (m *Manager) ChatModels(engine string) []api.Model {
	prefix := engine + chatSeparator
	out := []api.Model{}
	for _, model := range m.witsyChat() {
		if strings.HasPrefix(model.ID, prefix) {
			out = append(out, model)
		}
	}
	return out
}

// IgniteEngine returns a live engine handle. Delegates are tried in
// order; a delegate error or panic counts as no match. When nothing
// matches, a fresh witsy adapter is returned. The result is never nil.
func (m *Manager) IgniteEngine(engine string) provider.Engine {
	for _, d := range m.delegates {
		e, err := m.tryDelegate(d, engine)
		if err != nil {
			observability.IgnitionFailuresTotal.WithLabelValues(d.Name()).Inc()
			debug.Log("registry", "delegate failed", "delegate", d.Name(), "engine", engine, "error", err)
			continue
		}
		if e != nil {
			observability.IgnitionsTotal.WithLabelValues(d.Name()).Inc()
			return e
		}
	}

	if engine != config.DefaultEngine {
		m.logger.Warn("engine unknown, falling back to witsy", "engine", engine)
	}
	observability.IgnitionsTotal.WithLabelValues("fallback").Inc()
	return m.newWitsy(m.engineConfig(config.DefaultEngine))
}

// tryDelegate ignites through d when it claims engine. A nil engine with
// a nil error means d did not match.
func (m *Manager) tryDelegate(d Delegate, engine string) (e provider.Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, err = nil, fmt.Errorf("delegate %s panicked: %v", d.Name(), r)
		}
	}()
	if !d.Matches(engine) {
		return nil, nil
	}
	e, err = d.Ignite(engine)
	if err == nil && e == nil {
		err = fmt.Errorf("delegate %s returned no engine", d.Name())
	}
	return e, err
}

// LoadModels refreshes the catalog of engine and persists it. Only witsy
// is fetched; for other engines the save step runs with no catalog and
// reports false. A fetch failure is returned as an error and leaves the
// cached catalog untouched. The boolean reports whether the save succeeded.
func (m *Manager) LoadModels(ctx context.Context, engine string) (bool, error) {
	debug.Log("catalog", "loading models", "engine", engine)

	var models *api.ModelsList
	if engine == config.DefaultEngine {
		var err error
		models, err = m.loadWitsyModels(ctx, m.engineConfig(engine))
		if err != nil {
			return false, fmt.Errorf("loading %s models: %w", engine, err)
		}
	}
	return m.saveModels(ctx, engine, models), nil
}

// loadWitsyModels fetches the witsy catalog and wraps it into a full
// catalog with every non-chat kind empty.
func (m *Manager) loadWitsyModels(ctx context.Context, ec *config.EngineConfig) (*api.ModelsList, error) {
	adapter := m.newWitsy(ec)
	defer adapter.Close()

	chat, err := adapter.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	return api.ChatCatalog(chat), nil
}

// saveModels persists models and, on success, replaces the cached
// catalog of the engine.
func (m *Manager) saveModels(ctx context.Context, engine string, models *api.ModelsList) bool {
	if m.store == nil {
		observability.CatalogSavesTotal.WithLabelValues(engine, "error").Inc()
		m.logger.Error("no catalog store configured", "engine", engine)
		return false
	}

	err := m.store.SaveModels(ctx, engine, models)
	switch {
	case errors.Is(err, storage.ErrNoCatalog):
		observability.CatalogSavesTotal.WithLabelValues(engine, "no_catalog").Inc()
		debug.Log("catalog", "nothing to save", "engine", engine)
		return false
	case err != nil:
		observability.CatalogSavesTotal.WithLabelValues(engine, "error").Inc()
		m.logger.Error("saving models failed", "engine", engine, "error", err)
		return false
	}

	observability.CatalogSavesTotal.WithLabelValues(engine, "ok").Inc()
	m.setModels(engine, models)
	m.logger.Info("models loaded", "engine", engine, "chat", len(models.Chat), "total", models.Len())
	return true
}

// Restore hydrates cached catalogs from the store. Stored catalogs of
// engines missing from the configuration are skipped.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	engines, err := m.store.ListEngines(ctx)
	if err != nil {
		return fmt.Errorf("listing stored catalogs: %w", err)
	}
	for _, engine := range engines {
		if m.engineConfig(engine) == nil {
			debug.Log("catalog", "skipping stored catalog of unknown engine", "engine", engine)
			continue
		}
		c, err := m.store.GetModels(ctx, engine)
		if err != nil {
			m.logger.Warn("restoring catalog failed", "engine", engine, "error", err)
			continue
		}
		m.setModels(engine, c.Models)
		debug.Log("catalog", "restored catalog", "engine", engine, "models", c.Models.Len(), "updated_at", c.UpdatedAt)
	}
	return nil
}

// ValidModel sanitizes id against the cached catalog of engine.
func (m *Manager) ValidModel(engine string, kind api.Kind, id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ValidModelID(m.cfg.Engine(engine), kind, id)
}

// Models returns the cached catalog of engine, or nil when none is loaded.
func (m *Manager) Models(engine string) *api.ModelsList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ec := m.cfg.Engine(engine)
	if ec == nil {
		return nil
	}
	return ec.Models
}

// Engines returns the names of all configured engines, sorted.
func (m *Manager) Engines() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.cfg.Engines))
	for name := range m.cfg.Engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) setModels(engine string, models *api.ModelsList) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ec := m.cfg.Engine(engine)
	if ec == nil {
		return
	}
	ec.Models = models
	for _, kind := range api.Kinds {
		observability.CatalogModels.WithLabelValues(engine, string(kind)).Set(float64(len(models.Models(kind))))
	}
}

func (m *Manager) engineConfig(engine string) *config.EngineConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Engine(engine)
}

func (m *Manager) favorites() []config.FavoriteConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]config.FavoriteConfig(nil), m.cfg.Favorites...)
}

func (m *Manager) witsyChat() []api.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ec := m.cfg.Engine(config.DefaultEngine)
	if ec == nil {
		return nil
	}
	return ec.Models.Models(api.KindChat)
}

// prefixes returns the sorted distinct parts of the model ids before sep.
func prefixes(models []api.Model, sep string) []string {
	seen := make(map[string]struct{}, len(models))
	out := []string{}
	for _, model := range models {
		prefix, _, _ := strings.Cut(model.ID, sep)
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		out = append(out, prefix)
	}
	sort.Strings(out)
	return out
}

// DiscoverModels ignites engine and asks it for its models directly,
// bypassing the cached catalog. Nothing is persisted.
func (m *Manager) DiscoverModels(ctx context.Context, engine string) ([]api.Model, error) {
	e := m.IgniteEngine(engine)
	defer e.Close()
	return e.ListModels(ctx)
}
