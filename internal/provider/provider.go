package provider

import (
	"context"

	"finboard/internal/configstore"
	"finboard/internal/market"
)

// Adapter translates between the normalized domain model and one provider's
// wire format. Capabilities beyond identity are optional: the façade probes
// with type assertions and falls back to synthetic data for anything an
// adapter does not implement.
type Adapter interface {
	Provider() configstore.ProviderID
}

// QuoteFetcher is the quote-lookup capability.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) (market.Quote, error)
}

// ChartFetcher is the time-series capability.
type ChartFetcher interface {
	FetchChartSeries(ctx context.Context, symbol string, interval market.Interval) ([]market.ChartPoint, error)
}

// NewsFetcher is the headline-lookup capability.
type NewsFetcher interface {
	FetchNews(ctx context.Context, category string, limit int) ([]market.Article, error)
}

// Factory builds an adapter from a user-supplied provider config.
type Factory func(cfg configstore.ProviderConfig) Adapter

// Registry maps provider ids to adapter factories.
type Registry struct {
	factories map[configstore.ProviderID]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[configstore.ProviderID]Factory)}
}

// Register installs the factory for a provider id, replacing any prior one.
func (r *Registry) Register(id configstore.ProviderID, f Factory) {
	r.factories[id] = f
}

// Build constructs an adapter for cfg. The second return is false when no
// factory is registered for the provider.
func (r *Registry) Build(cfg configstore.ProviderConfig) (Adapter, bool) {
	f, ok := r.factories[cfg.Provider]
	if !ok {
		return nil, false
	}
	return f(cfg), true
}
