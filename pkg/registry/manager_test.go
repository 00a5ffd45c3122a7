package registry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/config"
	"github.com/rhuss/enginehub/pkg/provider"
	"github.com/rhuss/enginehub/pkg/provider/openai"
	"github.com/rhuss/enginehub/pkg/provider/witsy"
	"github.com/rhuss/enginehub/pkg/storage"
	"github.com/rhuss/enginehub/pkg/storage/memory"
)

// witsyServer serves a fixed catalog body on /llm/models and counts calls.
func witsyServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// testConfig returns a config whose witsy engine points at baseURL.
func testConfig(apiKey, baseURL string) *config.Config {
	cfg := config.Defaults()
	cfg.Engines[config.DefaultEngine].APIKey = apiKey
	cfg.Engines[config.DefaultEngine].BaseURL = baseURL
	return &cfg
}

// withChat seeds the witsy chat catalog with models of the given ids.
func withChat(cfg *config.Config, ids ...string) *config.Config {
	chat := make([]api.Model, 0, len(ids))
	for _, id := range ids {
		chat = append(chat, api.Model{ID: id, Name: id})
	}
	cfg.Engines[config.DefaultEngine].Models = api.ChatCatalog(chat)
	return cfg
}

func TestSupportsFavorites(t *testing.T) {
	m := New(testConfig("", ""), memory.New())
	if m.SupportsFavorites() {
		t.Error("SupportsFavorites() = true, want false")
	}
}

func TestStandardEngines(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want []string
	}{
		{"empty catalog", nil, []string{"witsy"}},
		{"distinct sorted", []string{"openai___gpt-4", "anthropic___claude", "openai___gpt-3.5"}, []string{"anthropic", "openai"}},
		{"no separator keeps id", []string{"mistral"}, []string{"mistral"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(withChat(testConfig("k", ""), tt.ids...), memory.New())
			if got := m.StandardEngines(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("StandardEngines() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChatEngines(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want []string
	}{
		{"empty catalog", nil, []string{}},
		{"distinct sorted", []string{"openai-gpt-4", "anthropic-claude", "openai-gpt-3.5", "anthropic-claude"}, []string{"anthropic", "openai"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(withChat(testConfig("k", ""), tt.ids...), memory.New())
			if got := m.ChatEngines(ChatEnginesOptions{}); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ChatEngines() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChatEngines_FavoritesIgnored(t *testing.T) {
	m := New(withChat(testConfig("k", ""), "openai-gpt-4"), memory.New())
	got := m.ChatEngines(ChatEnginesOptions{Favorites: true})
	if !reflect.DeepEqual(got, []string{"openai"}) {
		t.Errorf("ChatEngines(Favorites) = %v, want [openai]", got)
	}
}

func TestEngineListingsDivergeOnlyInSeparator(t *testing.T) {
	m := New(withChat(testConfig("k", ""), "openai___gpt-4", "mistral-large"), memory.New())

	standard := m.StandardEngines()
	chat := m.ChatEngines(ChatEnginesOptions{})

	if want := []string{"mistral-large", "openai"}; !reflect.DeepEqual(standard, want) {
		t.Errorf("StandardEngines() = %v, want %v", standard, want)
	}
	if want := []string{"mistral", "openai___gpt"}; !reflect.DeepEqual(chat, want) {
		t.Errorf("ChatEngines() = %v, want %v", chat, want)
	}

	// Same ids split on the other separator give the other listing.
	if got := prefixes(m.witsyChat(), chatSeparator); !reflect.DeepEqual(got, chat) {
		t.Errorf("prefixes(-) = %v, want %v", got, chat)
	}
	if got := prefixes(m.witsyChat(), standardSeparator); !reflect.DeepEqual(got, standard) {
		t.Errorf("prefixes(___) = %v, want %v", got, standard)
	}
}

func TestPriorityEngines(t *testing.T) {
	m := New(testConfig("", ""), memory.New())
	if got := m.PriorityEngines(); !reflect.DeepEqual(got, []string{"witsy"}) {
		t.Errorf("PriorityEngines() = %v, want [witsy]", got)
	}
}

func TestNonChatEngines(t *testing.T) {
	m := New(testConfig("", ""), memory.New())
	got := m.NonChatEngines()
	if len(got) != 16 {
		t.Fatalf("NonChatEngines() has %d entries, want 16", len(got))
	}
	if got[0] != "openai" || got[9] != "cerebras" || got[10] != "huggingface" || got[15] != "gladia" {
		t.Errorf("NonChatEngines() = %v", got)
	}

	got[0] = "changed"
	if m.NonChatEngines()[0] != "openai" {
		t.Error("NonChatEngines() must return a fresh slice")
	}
}

func TestIsEngineConfiguredAndReady(t *testing.T) {
	tests := []struct {
		name           string
		cfg            *config.Config
		engine         string
		wantConfigured bool
		wantReady      bool
	}{
		{"witsy without key", testConfig("", ""), "witsy", false, false},
		{"witsy with key, empty catalog", testConfig("k", ""), "witsy", true, false},
		{"witsy with key and chat", withChat(testConfig("k", ""), "openai-gpt-4"), "witsy", true, true},
		{"witsy catalog without key", withChat(testConfig("", ""), "openai-gpt-4"), "witsy", false, false},
		{"other engine", testConfig("", ""), "openai", true, true},
		{"unknown engine", testConfig("", ""), "nope", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.cfg, memory.New())
			if got := m.IsEngineConfigured(tt.engine); got != tt.wantConfigured {
				t.Errorf("IsEngineConfigured(%q) = %v, want %v", tt.engine, got, tt.wantConfigured)
			}
			if got := m.IsEngineReady(tt.engine); got != tt.wantReady {
				t.Errorf("IsEngineReady(%q) = %v, want %v", tt.engine, got, tt.wantReady)
			}
		})
	}
}

func TestIsEngineConfigured_NoWitsyEntry(t *testing.T) {
	cfg := config.Defaults()
	delete(cfg.Engines, config.DefaultEngine)
	m := New(&cfg, memory.New())
	if m.IsEngineConfigured("witsy") || m.IsEngineReady("witsy") {
		t.Error("witsy without an engine entry must be neither configured nor ready")
	}
	if got := m.StandardEngines(); !reflect.DeepEqual(got, []string{"witsy"}) {
		t.Errorf("StandardEngines() = %v, want [witsy]", got)
	}
}

func TestChatModels(t *testing.T) {
	m := New(withChat(testConfig("k", ""), "openai-gpt-4", "anthropic-claude", "openai-o1", "open-x"), memory.New())

	got := m.ChatModels("openai")
	if len(got) != 2 || got[0].ID != "openai-gpt-4" || got[1].ID != "openai-o1" {
		t.Errorf("ChatModels(openai) = %v", got)
	}
	if got := m.ChatModels("open"); len(got) != 1 || got[0].ID != "open-x" {
		t.Errorf("ChatModels(open) = %v, want [open-x]", got)
	}
	if got := m.ChatModels("google"); got == nil || len(got) != 0 {
		t.Errorf("ChatModels(google) = %#v, want empty non-nil", got)
	}
}

func TestLoadModels_EndToEnd(t *testing.T) {
	srv, calls := witsyServer(t, http.StatusOK, `{"models":[
		{"engine":"openai","model":"gpt-4","label":"GPT-4"},
		{"engine":"openai","model":"gpt-4","label":"GPT-4 dup"}
	]}`)
	cfg := testConfig("k1", srv.URL)
	store := memory.New()
	m := New(cfg, store)

	ok, err := m.LoadModels(context.Background(), "witsy")
	if err != nil {
		t.Fatalf("LoadModels() error = %v", err)
	}
	if !ok {
		t.Fatal("LoadModels() = false, want true")
	}
	if calls.Load() != 1 {
		t.Errorf("catalog calls = %d, want 1", calls.Load())
	}

	got := m.ChatModels("openai")
	if len(got) != 2 {
		t.Fatalf("ChatModels(openai) = %d models, want 2", len(got))
	}
	for i, wantName := range []string{"GPT-4", "GPT-4 dup"} {
		if got[i].ID != "openai-gpt-4" || got[i].Name != wantName {
			t.Errorf("model %d = %s/%s, want openai-gpt-4/%s", i, got[i].ID, got[i].Name, wantName)
		}
	}

	// Catalog completeness: eight kinds, seven empty.
	models := m.Models("witsy")
	for _, kind := range api.Kinds {
		list := models.Models(kind)
		if list == nil {
			t.Errorf("kind %s is absent", kind)
		}
		if kind != api.KindChat && len(list) != 0 {
			t.Errorf("kind %s has %d models, want 0", kind, len(list))
		}
	}

	stored, err := store.GetModels(context.Background(), "witsy")
	if err != nil {
		t.Fatalf("store.GetModels() error = %v", err)
	}
	if len(stored.Models.Chat) != 2 {
		t.Errorf("stored chat models = %d, want 2", len(stored.Models.Chat))
	}

	if !m.IsEngineReady("witsy") {
		t.Error("witsy should be ready after loading a non-empty catalog")
	}
}

func TestLoadModels_NoKeySkipsFetch(t *testing.T) {
	srv, calls := witsyServer(t, http.StatusOK, `{"models":[]}`)
	m := New(testConfig("", srv.URL), memory.New())

	ok, err := m.LoadModels(context.Background(), "witsy")
	if err != nil {
		t.Fatalf("LoadModels() error = %v", err)
	}
	if !ok {
		t.Error("LoadModels() = false, want true (empty catalog is saved)")
	}
	if calls.Load() != 0 {
		t.Errorf("catalog calls = %d, want 0", calls.Load())
	}
	if got := m.Models("witsy"); got == nil || got.Len() != 0 {
		t.Errorf("Models(witsy) = %+v, want empty catalog", got)
	}
}

func TestLoadModels_OtherEngineSavesNothing(t *testing.T) {
	store := memory.New()
	existing := api.ChatCatalog([]api.Model{{ID: "keep", Name: "Keep"}})
	if err := store.SaveModels(context.Background(), "openai", existing); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig("k", "")
	cfg.Engines["openai"] = &config.EngineConfig{Models: existing}
	m := New(cfg, store)

	ok, err := m.LoadModels(context.Background(), "openai")
	if err != nil {
		t.Fatalf("LoadModels() error = %v", err)
	}
	if ok {
		t.Error("LoadModels(openai) = true, want false")
	}

	stored, err := store.GetModels(context.Background(), "openai")
	if err != nil {
		t.Fatalf("store.GetModels() error = %v", err)
	}
	if len(stored.Models.Chat) != 1 || stored.Models.Chat[0].ID != "keep" {
		t.Errorf("stored catalog was modified: %+v", stored.Models)
	}
	if m.Models("openai") != existing {
		t.Error("cached catalog was replaced")
	}
}

func TestLoadModels_FetchFailureKeepsCache(t *testing.T) {
	srv, _ := witsyServer(t, http.StatusInternalServerError, `{"error":"boom"}`)
	cfg := withChat(testConfig("k", srv.URL), "openai-gpt-4")
	before := cfg.Engines["witsy"].Models
	m := New(cfg, memory.New())

	ok, err := m.LoadModels(context.Background(), "witsy")
	if err == nil {
		t.Fatal("LoadModels() error = nil, want fetch error")
	}
	if ok {
		t.Error("LoadModels() = true on fetch failure")
	}
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != api.ErrorTypeServerError {
		t.Errorf("error = %v, want wrapped server_error", err)
	}
	if m.Models("witsy") != before {
		t.Error("cached catalog changed after failed fetch")
	}
}

// failingStore rejects every save.
type failingStore struct {
	*memory.Store
}

func (failingStore) SaveModels(context.Context, string, *api.ModelsList) error {
	return errors.New("disk full")
}

func TestLoadModels_SaveFailure(t *testing.T) {
	srv, _ := witsyServer(t, http.StatusOK, `{"models":[{"engine":"openai","model":"gpt-4","label":"GPT-4"}]}`)
	cfg := testConfig("k", srv.URL)
	m := New(cfg, failingStore{memory.New()})

	ok, err := m.LoadModels(context.Background(), "witsy")
	if err != nil {
		t.Fatalf("LoadModels() error = %v, want nil (save failures are reported as false)", err)
	}
	if ok {
		t.Error("LoadModels() = true, want false")
	}
	if m.Models("witsy") != nil {
		t.Error("cached catalog set although the save failed")
	}
}

func TestRestore(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	saved := api.ChatCatalog([]api.Model{{ID: "openai-gpt-4", Name: "GPT-4"}})
	if err := store.SaveModels(ctx, "witsy", saved); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveModels(ctx, "ghost", saved); err != nil {
		t.Fatal(err)
	}

	m := New(testConfig("k", ""), store)
	if err := m.Restore(ctx); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if got := m.ChatModels("openai"); len(got) != 1 {
		t.Errorf("ChatModels(openai) after restore = %v", got)
	}
	if _, ok := m.Status("ghost"); ok {
		t.Error("Restore must not create engine entries")
	}
}

// stubEngine is a minimal engine used to observe which delegate ran.
type stubEngine struct {
	name string
}

func (s stubEngine) Name() string                        { return s.name }
func (s stubEngine) Capabilities() provider.Capabilities { return provider.Capabilities{} }
func (s stubEngine) ListModels(context.Context) ([]api.Model, error) {
	return []api.Model{{ID: s.name + "-m", Name: "M"}}, nil
}
func (s stubEngine) Complete(context.Context, string, []provider.Message, provider.CompletionOptions) (*provider.Response, error) {
	return nil, provider.ErrNotImplemented
}
func (s stubEngine) Stream(context.Context, string, []provider.Message, provider.CompletionOptions) (<-chan provider.Event, error) {
	return nil, provider.ErrNotImplemented
}
func (s stubEngine) Close() error { return nil }

// funcDelegate adapts functions to the Delegate interface.
type funcDelegate struct {
	name    string
	matches func(string) bool
	ignite  func(string) (provider.Engine, error)
}

func (d funcDelegate) Name() string                                  { return d.name }
func (d funcDelegate) Matches(engine string) bool                    { return d.matches(engine) }
func (d funcDelegate) Ignite(engine string) (provider.Engine, error) { return d.ignite(engine) }

func always(string) bool { return true }

func TestIgniteEngine_FallbackToWitsy(t *testing.T) {
	m := New(testConfig("k", ""), memory.New())
	for _, name := range []string{"", "witsy", "unknown", "openai", FavoritesEngine} {
		e := m.IgniteEngine(name)
		if e == nil {
			t.Fatalf("IgniteEngine(%q) = nil", name)
		}
		if _, ok := e.(*witsy.Provider); !ok {
			t.Errorf("IgniteEngine(%q) = %T, want *witsy.Provider", name, e)
		}
	}
}

func TestIgniteEngine_Custom(t *testing.T) {
	cfg := testConfig("k", "")
	cfg.Engines["local"] = &config.EngineConfig{API: "openai", BaseURL: "http://localhost:8000/v1"}
	cfg.Engines["broken"] = &config.EngineConfig{API: "openai"}
	m := New(cfg, memory.New())

	e := m.IgniteEngine("local")
	p, ok := e.(*openai.Provider)
	if !ok {
		t.Fatalf("IgniteEngine(local) = %T, want *openai.Provider", e)
	}
	if p.Name() != "local" {
		t.Errorf("Name() = %q, want %q", p.Name(), "local")
	}

	if _, ok := m.IgniteEngine("broken").(*witsy.Provider); !ok {
		t.Error("custom engine without base_url should fall back to witsy")
	}
}

func TestIgniteEngine_Favorites(t *testing.T) {
	cfg := testConfig("", "")
	cfg.Engines["local"] = &config.EngineConfig{API: "openai", BaseURL: "http://localhost:8000/v1"}
	cfg.Favorites = []config.FavoriteConfig{
		{ID: "f1", Engine: "witsy", Model: "openai-gpt-4"},
		{ID: "f2", Engine: "local", Model: "llama3"},
	}
	m := New(cfg, memory.New())

	// witsy has no key, so the second favorite wins.
	e := m.IgniteEngine(FavoritesEngine)
	if p, ok := e.(*openai.Provider); !ok || p.Name() != "local" {
		t.Errorf("IgniteEngine(favorites) = %T, want the local custom engine", e)
	}
}

func TestIgniteEngine_DelegateOrderAndFailures(t *testing.T) {
	tests := []struct {
		name      string
		delegates []Delegate
		want      string
	}{
		{
			name: "first match wins",
			delegates: []Delegate{
				funcDelegate{"a", always, func(string) (provider.Engine, error) { return stubEngine{"a"}, nil }},
				funcDelegate{"b", always, func(string) (provider.Engine, error) { return stubEngine{"b"}, nil }},
			},
			want: "a",
		},
		{
			name: "error counts as no match",
			delegates: []Delegate{
				funcDelegate{"a", always, func(string) (provider.Engine, error) { return nil, errors.New("bad config") }},
				funcDelegate{"b", always, func(string) (provider.Engine, error) { return stubEngine{"b"}, nil }},
			},
			want: "b",
		},
		{
			name: "panic counts as no match",
			delegates: []Delegate{
				funcDelegate{"a", always, func(string) (provider.Engine, error) { panic("boom") }},
			},
			want: "witsy",
		},
		{
			name: "panic in Matches",
			delegates: []Delegate{
				funcDelegate{"a", func(string) bool { panic("boom") }, nil},
			},
			want: "witsy",
		},
		{
			name: "nil engine without error",
			delegates: []Delegate{
				funcDelegate{"a", always, func(string) (provider.Engine, error) { return nil, nil }},
			},
			want: "witsy",
		},
		{
			name: "no delegate matches",
			delegates: []Delegate{
				funcDelegate{"a", func(string) bool { return false }, nil},
			},
			want: "witsy",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(testConfig("k", ""), memory.New(), WithDelegates(tt.delegates...))
			e := m.IgniteEngine("anything")
			if e == nil {
				t.Fatal("IgniteEngine() = nil")
			}
			if e.Name() != tt.want {
				t.Errorf("IgniteEngine() engine = %q, want %q", e.Name(), tt.want)
			}
		})
	}
}

func TestWithWitsyFactory(t *testing.T) {
	var seen *config.EngineConfig
	m := New(testConfig("k", ""), memory.New(),
		WithDelegates(),
		WithWitsyFactory(func(ec *config.EngineConfig) provider.Engine {
			seen = ec
			return stubEngine{"stub"}
		}))

	if got := m.IgniteEngine("x").Name(); got != "stub" {
		t.Errorf("IgniteEngine() = %q, want stub", got)
	}
	if seen == nil || seen.APIKey != "k" {
		t.Errorf("factory received %+v, want witsy engine config", seen)
	}

	models, err := m.DiscoverModels(context.Background(), "x")
	if err != nil {
		t.Fatalf("DiscoverModels() error = %v", err)
	}
	if len(models) != 1 || models[0].ID != "stub-m" {
		t.Errorf("DiscoverModels() = %v", models)
	}
}

func TestStatus(t *testing.T) {
	cfg := withChat(testConfig("k", ""), "openai-gpt-4", "openai-o1")
	cfg.Engines["witsy"].Model = "stale"
	cfg.Engines["local"] = &config.EngineConfig{API: "openai", Label: "Local", BaseURL: "http://x/v1"}
	m := New(cfg, memory.New())

	st, ok := m.Status("witsy")
	if !ok {
		t.Fatal("Status(witsy) not found")
	}
	if !st.Configured || !st.Ready || st.Custom {
		t.Errorf("Status(witsy) = %+v", st)
	}
	if st.Model != "openai-gpt-4" {
		t.Errorf("Model = %q, want sanitized to first chat model", st.Model)
	}
	if st.Models[api.KindChat] != 2 || len(st.Models) != 8 {
		t.Errorf("Models = %v", st.Models)
	}

	all := m.Statuses()
	if len(all) != 2 || all[0].Name != "local" || all[1].Name != "witsy" {
		t.Errorf("Statuses() = %+v", all)
	}
	if !all[0].Custom || all[0].Label != "Local" {
		t.Errorf("Status(local) = %+v", all[0])
	}

	if _, ok := m.Status("missing"); ok {
		t.Error("Status(missing) found")
	}
}

func TestNew_NilStore(t *testing.T) {
	m := New(testConfig("", ""), nil)
	ok, err := m.LoadModels(context.Background(), "witsy")
	if err != nil || ok {
		t.Errorf("LoadModels() = %v, %v; want false, nil without a store", ok, err)
	}
	if err := m.Restore(context.Background()); err != nil {
		t.Errorf("Restore() error = %v", err)
	}
}

var _ storage.CatalogStore = failingStore{}
