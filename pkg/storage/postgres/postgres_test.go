package postgres

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/config"
	"github.com/rhuss/enginehub/pkg/storage"
)

func init() {
	// Point testcontainers at the podman socket when no Docker host is set.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	_, podmanErr := exec.LookPath("podman")
	_, dockerErr := exec.LookPath("docker")
	if podmanErr != nil && dockerErr != nil {
		t.Skip("no container runtime found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("enginehub_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func makeCatalog(ids ...string) *api.ModelsList {
	chat := make([]api.Model, 0, len(ids))
	for _, id := range ids {
		engine, model, _ := strings.Cut(id, "-")
		chat = append(chat, api.Model{
			ID:   id,
			Name: strings.ToUpper(id),
			Meta: api.Meta{
				"engine":  api.StringValue(engine),
				"model":   api.StringValue(model),
				"context": api.NumberValue(8192),
				"tags":    api.ListValue(api.StringValue("chat")),
			},
		})
	}
	return api.ChatCatalog(chat)
}

func TestPostgres_SaveAndGet(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.SaveModels(ctx, "witsy", makeCatalog("openai-gpt-4", "openai-gpt-4", "mistralai-large")); err != nil {
		t.Fatalf("SaveModels: %v", err)
	}

	got, err := store.GetModels(ctx, "witsy")
	if err != nil {
		t.Fatalf("GetModels: %v", err)
	}
	if len(got.Models.Chat) != 3 {
		t.Fatalf("chat models = %d, want 3 (duplicates preserved)", len(got.Models.Chat))
	}
	if got.Models.Chat[2].ID != "mistralai-large" {
		t.Errorf("order not preserved: %+v", got.Models.Chat)
	}
	if n, ok := got.Models.Chat[0].Meta["context"].AsNumber(); !ok || n != 8192 {
		t.Errorf("meta.context = %v, want 8192", n)
	}
	for _, k := range api.Kinds {
		if got.Models.Models(k) == nil {
			t.Errorf("kind %s missing after round trip", k)
		}
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestPostgres_GetNotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.GetModels(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetModels() error = %v, want ErrNotFound", err)
	}
}

func TestPostgres_SaveNilKeepsData(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	store.SaveModels(ctx, "witsy", makeCatalog("openai-gpt-4"))
	if err := store.SaveModels(ctx, "witsy", nil); !errors.Is(err, storage.ErrNoCatalog) {
		t.Fatalf("SaveModels(nil) = %v, want ErrNoCatalog", err)
	}

	got, err := store.GetModels(ctx, "witsy")
	if err != nil {
		t.Fatalf("GetModels: %v", err)
	}
	if len(got.Models.Chat) != 1 {
		t.Errorf("nil save changed stored catalog: %+v", got.Models.Chat)
	}
}

func TestPostgres_UpsertReplaces(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	store.SaveModels(ctx, "witsy", makeCatalog("a-1", "b-2"))
	first, _ := store.GetModels(ctx, "witsy")

	time.Sleep(10 * time.Millisecond)
	store.SaveModels(ctx, "witsy", makeCatalog("c-3"))
	second, err := store.GetModels(ctx, "witsy")
	if err != nil {
		t.Fatalf("GetModels: %v", err)
	}

	if len(second.Models.Chat) != 1 || second.Models.Chat[0].ID != "c-3" {
		t.Errorf("upsert did not replace catalog: %+v", second.Models.Chat)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt not advanced: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestPostgres_ConcurrentSavesLastWriteWins(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.SaveModels(ctx, "witsy", makeCatalog("openai-gpt-4")); err != nil {
				t.Errorf("SaveModels: %v", err)
			}
		}()
	}
	wg.Wait()

	names, err := store.ListEngines(ctx)
	if err != nil {
		t.Fatalf("ListEngines: %v", err)
	}
	if len(names) != 1 || names[0] != "witsy" {
		t.Errorf("ListEngines() = %v, want [witsy]", names)
	}
}

func TestPostgres_ListEngines(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	names, err := store.ListEngines(ctx)
	if err != nil {
		t.Fatalf("ListEngines: %v", err)
	}
	if names == nil || len(names) != 0 {
		t.Errorf("ListEngines() on empty table = %#v, want empty slice", names)
	}

	store.SaveModels(ctx, "witsy", makeCatalog("x-1"))
	store.SaveModels(ctx, "local", makeCatalog("y-1"))

	names, _ = store.ListEngines(ctx)
	if len(names) != 2 || names[0] != "local" || names[1] != "witsy" {
		t.Errorf("ListEngines() = %v, want [local witsy]", names)
	}
}

func TestPostgres_MigrateIsIdempotent(t *testing.T) {
	store := setupTestDB(t)

	if err := store.migrate(context.Background()); err != nil {
		t.Errorf("second migrate() = %v", err)
	}
}

func TestPostgres_HealthCheck(t *testing.T) {
	store := setupTestDB(t)

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}
}

func TestPendingMigrationsOrdered(t *testing.T) {
	migrations, err := pendingMigrations()
	if err != nil {
		t.Fatalf("pendingMigrations: %v", err)
	}
	if len(migrations) < 2 {
		t.Fatalf("expected embedded migrations, got %d", len(migrations))
	}
	for i, m := range migrations {
		if m.version != i+1 {
			t.Errorf("migrations[%d].version = %d, want %d", i, m.version, i+1)
		}
	}
}

func TestNewInvalidDSN(t *testing.T) {
	_, err := New(context.Background(), Config{DSN: "://not a dsn"})
	if err == nil {
		t.Fatal("expected error for invalid DSN")
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.PostgresConfig{
		DSN:            "postgres://hub@db/catalogs",
		DSNFile:        "/run/secrets/dsn",
		MaxConns:       8,
		MigrateOnStart: true,
	})
	if cfg.DSN != "postgres://hub@db/catalogs" || cfg.MaxConns != 8 || !cfg.MigrateOnStart {
		t.Errorf("ConfigFrom() = %+v", cfg)
	}
}

func TestConfigDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		want Config
	}{
		{
			"zero",
			Config{},
			Config{MaxConns: 25, MinConns: 1, MaxConnLifetime: 5 * time.Minute, ApplicationName: "enginehub"},
		},
		{
			"min above max",
			Config{MaxConns: 2, MinConns: 4, ApplicationName: "catalog-sync"},
			Config{MaxConns: 2, MinConns: 2, MaxConnLifetime: 5 * time.Minute, ApplicationName: "catalog-sync"},
		},
		{
			"negative values",
			Config{MaxConns: -1, MinConns: -1, MaxConnLifetime: -time.Second},
			Config{MaxConns: 25, MinConns: 1, MaxConnLifetime: 5 * time.Minute, ApplicationName: "enginehub"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			got.defaults()
			if got != tt.want {
				t.Errorf("defaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
