// Command server runs the engine hub.
//
// Configuration is read from a YAML file (-config, ENGINEHUB_CONFIG,
// ./config.yaml or /etc/enginehub/config.yaml) with ENGINEHUB_* environment
// overrides. See pkg/config for the full list.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/enginehub/pkg/auth"
	"github.com/rhuss/enginehub/pkg/auth/apikey"
	"github.com/rhuss/enginehub/pkg/auth/jwt"
	"github.com/rhuss/enginehub/pkg/auth/noop"
	"github.com/rhuss/enginehub/pkg/config"
	"github.com/rhuss/enginehub/pkg/debug"
	"github.com/rhuss/enginehub/pkg/mcpserver"
	"github.com/rhuss/enginehub/pkg/registry"
	"github.com/rhuss/enginehub/pkg/storage"
	"github.com/rhuss/enginehub/pkg/storage/memory"
	"github.com/rhuss/enginehub/pkg/storage/postgres"
	"github.com/rhuss/enginehub/pkg/transport"
	transporthttp "github.com/rhuss/enginehub/pkg/transport/http"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := debug.Init(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		JSON:       cfg.Logging.Format == "json",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := registry.New(cfg, store, registry.WithLogger(logger))
	if err := reg.Restore(ctx); err != nil {
		logger.Warn("restoring catalogs failed", "error", err)
	}
	go preloadCatalog(ctx, reg, logger)

	chain, err := newAuthChain(cfg.Auth)
	if err != nil {
		return err
	}
	var limiter *auth.Limiter
	if cfg.Auth.RateLimitRPM > 0 {
		limiter = auth.NewLimiter(cfg.Auth.RateLimitRPM)
	}
	bypass := auth.DefaultBypassEndpoints
	if cfg.Observability.Metrics.Enabled && !slices.Contains(bypass, cfg.Observability.Metrics.Path) {
		bypass = append(slices.Clone(bypass), cfg.Observability.Metrics.Path)
	}

	adapterCfg := transporthttp.DefaultConfig()
	adapterCfg.AgentsDir = cfg.Agents.Dir
	adapterCfg.ReadyCheck = store.HealthCheck

	adapter := transporthttp.NewAdapter(reg, adapterCfg,
		transport.Recovery(logger),
		transport.RequestID(),
		transport.Logging(logger),
		auth.Middleware(chain, limiter, bypass),
	)

	if cfg.Observability.Metrics.Enabled {
		adapter.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}
	if cfg.MCP.Enabled {
		// The MCP tools include refresh_models, so the whole endpoint
		// requires the catalog write scope.
		mcpSrv := mcpserver.New(reg, version)
		adapter.Handle(cfg.MCP.Path, auth.RequireScope(transporthttp.ScopeCatalogWrite, mcpSrv.Handler()))
		logger.Info("mcp endpoint enabled", "path", cfg.MCP.Path)
	}

	srv := transporthttp.NewServer(adapter,
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithLogger(logger),
	)

	logger.Info("engine hub starting",
		"version", version,
		"storage", cfg.Storage.Type,
		"auth", cfg.Auth.Type,
		"engines", reg.Engines(),
	)
	return srv.ListenAndServe(ctx)
}

func newStore(ctx context.Context, cfg config.StorageConfig) (storage.CatalogStore, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.New(), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.ConfigFrom(cfg.Postgres))
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
}

func newAuthChain(cfg config.AuthConfig) (*auth.Chain, error) {
	switch cfg.Type {
	case "none", "":
		return &auth.Chain{Authenticators: []auth.Authenticator{noop.Authenticator{}}}, nil
	case "apikey":
		keys := make([]apikey.Key, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			keys = append(keys, apikey.Key{Key: k.Key, Subject: k.Subject, Scopes: k.Scopes})
		}
		return &auth.Chain{Authenticators: []auth.Authenticator{apikey.New(keys)}, DefaultDecision: auth.No}, nil
	case "jwt":
		return &auth.Chain{
			Authenticators: []auth.Authenticator{jwt.New(jwt.Config{
				Issuer:    cfg.JWT.Issuer,
				Audience:  cfg.JWT.Audience,
				JWKSURL:   cfg.JWT.JWKSURL,
				Secret:    cfg.JWT.Secret,
				UserClaim: cfg.JWT.UserClaim,
			})},
			DefaultDecision: auth.No,
		}, nil
	}
	return nil, errors.New("unsupported auth type " + strconv.Quote(cfg.Type))
}

// preloadCatalog refreshes the witsy catalog once at startup. Failures
// keep the restored catalog.
func preloadCatalog(ctx context.Context, reg *registry.Manager, logger *slog.Logger) {
	if !reg.IsEngineConfigured(config.DefaultEngine) {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if _, err := reg.LoadModels(ctx, config.DefaultEngine); err != nil {
		logger.Warn("initial catalog load failed", "engine", config.DefaultEngine, "error", err)
	}
}
