package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"finboard/internal/cache"
	"finboard/internal/config"
	"finboard/internal/configstore"
	"finboard/internal/httpapi"
	"finboard/internal/provider"
	"finboard/internal/provider/alphavantage"
	"finboard/internal/provider/newsdata"
	"finboard/internal/refresh"
	"finboard/internal/service"
	"finboard/internal/storage"
	"finboard/internal/widgets"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// components holds the wired core: stores rehydrated from durable storage,
// the façade, and the widget registry.
type components struct {
	store    *storage.Store
	configs  *configstore.Store
	registry *widgets.Registry
	svc      *service.Service
}

// bootstrap opens durable storage, rehydrates both stores, applies
// first-run provider seeding, and wires the fetch façade.
func (a *App) bootstrap() (*components, error) {
	store, err := storage.NewStore(a.Config.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	configs := configstore.NewStore(store, a.Logger)
	configs.Load()
	configs.Seed(a.Config.DefaultProviderConfigs())

	registry := widgets.NewRegistry(store, a.Logger)
	registry.Load()

	svc := service.New(configs, cache.New(a.Config.Cache.TTL, a.Config.Cache.Capacity), a.newAdapterRegistry(), a.Logger)

	return &components{
		store:    store,
		configs:  configs,
		registry: registry,
		svc:      svc,
	}, nil
}

func (a *App) newAdapterRegistry() *provider.Registry {
	timeout := a.Config.Providers.RequestTimeout
	reg := provider.NewRegistry()
	reg.Register(configstore.ProviderAlphaVantage, func(cfg configstore.ProviderConfig) provider.Adapter {
		return alphavantage.FromConfig(cfg, timeout, a.Logger)
	})
	reg.Register(configstore.ProviderNewsData, func(cfg configstore.ProviderConfig) provider.Adapter {
		return newsdata.FromConfig(cfg, timeout, a.Logger)
	})
	return reg
}

// Serve runs the HTTP API and the widget refresh engine until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	core, err := a.bootstrap()
	if err != nil {
		return err
	}

	engine := refresh.NewEngine(core.svc, core.registry, a.Logger)
	core.registry.SetOnChange(engine.Sync)
	engine.Start(ctx, core.registry.List())
	defer engine.Stop()

	handler := httpapi.NewHandler(core.svc, core.configs, core.registry, a.Logger)
	server := &http.Server{
		Addr:         a.Config.Server.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", server.Addr).Msg("http api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
