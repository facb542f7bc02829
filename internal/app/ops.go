package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"finboard/internal/configstore"
	"finboard/internal/market"
)

// Quote fetches one quote and writes it as JSON.
func (a *App) Quote(ctx context.Context, out io.Writer, symbol string, providerID configstore.ProviderID) error {
	core, err := a.bootstrap()
	if err != nil {
		return err
	}
	quote, err := core.svc.Quote(ctx, symbol, providerID)
	if err != nil {
		return err
	}
	return writeJSON(out, quote)
}

// Chart fetches a chart series and writes it as JSON.
func (a *App) Chart(ctx context.Context, out io.Writer, symbol string, interval market.Interval, providerID configstore.ProviderID) error {
	core, err := a.bootstrap()
	if err != nil {
		return err
	}
	points, err := core.svc.ChartSeries(ctx, symbol, interval, providerID)
	if err != nil {
		return err
	}
	return writeJSON(out, points)
}

// Gainers fetches the top gainers and writes them as JSON.
func (a *App) Gainers(ctx context.Context, out io.Writer, providerID configstore.ProviderID, limit int) error {
	core, err := a.bootstrap()
	if err != nil {
		return err
	}
	return writeJSON(out, core.svc.Gainers(ctx, providerID, limit))
}

// News fetches headlines and writes them as JSON.
func (a *App) News(ctx context.Context, out io.Writer, category string, limit int, providerID configstore.ProviderID) error {
	core, err := a.bootstrap()
	if err != nil {
		return err
	}
	return writeJSON(out, core.svc.News(ctx, category, limit, providerID))
}

// AddProvider stores a provider configuration.
func (a *App) AddProvider(cfg configstore.ProviderConfig) error {
	core, err := a.bootstrap()
	if err != nil {
		return err
	}
	return core.configs.Add(cfg)
}

// RemoveProvider deletes a provider configuration.
func (a *App) RemoveProvider(id configstore.ProviderID) error {
	core, err := a.bootstrap()
	if err != nil {
		return err
	}
	return core.configs.Remove(id)
}

// ListProviders writes the configured providers as JSON.
func (a *App) ListProviders(out io.Writer) error {
	core, err := a.bootstrap()
	if err != nil {
		return err
	}
	return writeJSON(out, core.svc.Providers())
}

// TestProvider probes a provider's live endpoint.
func (a *App) TestProvider(ctx context.Context, out io.Writer, id configstore.ProviderID) error {
	core, err := a.bootstrap()
	if err != nil {
		return err
	}
	ok := core.svc.TestConnection(ctx, id)
	_, err = fmt.Fprintf(out, "provider %s: connected=%v\n", id, ok)
	return err
}

// ListWidgets writes the widget collection as JSON.
func (a *App) ListWidgets(out io.Writer) error {
	core, err := a.bootstrap()
	if err != nil {
		return err
	}
	return writeJSON(out, core.registry.List())
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
