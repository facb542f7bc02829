// Package service implements the fetch façade: the single entry point
// widgets use for market data. Every operation consults the response cache,
// dispatches to a provider adapter when one is configured, and degrades to
// synthetic data on any provider failure so the dashboard stays populated.
package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"finboard/internal/cache"
	"finboard/internal/configstore"
	"finboard/internal/market"
	"finboard/internal/provider"
	"finboard/internal/provider/synthetic"
)

// canonicalSymbol is the probe symbol for connection tests.
const canonicalSymbol = "AAPL"

// Service orchestrates cache lookup, adapter dispatch, and fallback.
type Service struct {
	configs  *configstore.Store
	cache    *cache.Cache
	registry *provider.Registry
	synth    *synthetic.Generator
	logger   zerolog.Logger
}

// New constructs the façade. All collaborators are injected; the service
// holds no global state.
func New(configs *configstore.Store, responseCache *cache.Cache, registry *provider.Registry, logger zerolog.Logger) *Service {
	return &Service{
		configs:  configs,
		cache:    responseCache,
		registry: registry,
		synth:    synthetic.New(),
		logger:   logger.With().Str("component", "service").Logger(),
	}
}

// adapterFor resolves the configured adapter for a provider id. The second
// return is false when the provider is unconfigured or has no adapter.
func (s *Service) adapterFor(id configstore.ProviderID) (provider.Adapter, bool) {
	cfg, err := s.configs.Get(id)
	if err != nil {
		return nil, false
	}
	adapter, ok := s.registry.Build(cfg)
	if !ok {
		return nil, false
	}
	return adapter, true
}

func validateSymbol(symbol string) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", errors.New("symbol must not be empty")
	}
	return symbol, nil
}

// Quote returns the current quote for symbol. Provider failures resolve to
// synthetic data; the only error is a malformed symbol.
func (s *Service) Quote(ctx context.Context, symbol string, providerID configstore.ProviderID) (market.Quote, error) {
	symbol, err := validateSymbol(symbol)
	if err != nil {
		return market.Quote{}, err
	}

	key := cache.Key("quote", string(providerID), symbol)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(market.Quote), nil
	}

	quote := s.liveOrSyntheticQuote(ctx, symbol, providerID)
	s.cache.Put(key, quote)
	return quote, nil
}

func (s *Service) liveOrSyntheticQuote(ctx context.Context, symbol string, providerID configstore.ProviderID) market.Quote {
	adapter, ok := s.adapterFor(providerID)
	if !ok {
		s.logger.Debug().Str("provider", string(providerID)).Str("symbol", symbol).
			Msg("provider unavailable for quotes; using synthetic data")
		return s.synth.Quote(symbol)
	}
	fetcher, ok := adapter.(provider.QuoteFetcher)
	if !ok {
		s.logger.Debug().Str("provider", string(providerID)).
			Msg("provider does not support quotes; using synthetic data")
		return s.synth.Quote(symbol)
	}

	quote, err := fetcher.FetchQuote(ctx, symbol)
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", string(providerID)).Str("symbol", symbol).
			Msg("live quote failed; using synthetic data")
		return s.synth.Quote(symbol)
	}
	return quote
}

// Quotes fetches several symbols concurrently. Failures are isolated per
// symbol: a bad symbol yields a synthetic quote in its slot and never fails
// the batch. Result order matches input order.
func (s *Service) Quotes(ctx context.Context, symbols []string, providerID configstore.ProviderID) []market.Quote {
	results := make([]market.Quote, len(symbols))

	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			quote, err := s.Quote(ctx, symbol, providerID)
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", symbol).Msg("quote rejected; substituting synthetic data")
				quote = s.synth.Quote(symbol)
			}
			results[i] = quote
		}(i, symbol)
	}
	wg.Wait()

	return results
}

// ChartSeries returns an OHLCV series for symbol over interval, keyed in the
// cache by provider, symbol, and interval.
func (s *Service) ChartSeries(ctx context.Context, symbol string, interval market.Interval, providerID configstore.ProviderID) ([]market.ChartPoint, error) {
	symbol, err := validateSymbol(symbol)
	if err != nil {
		return nil, err
	}

	key := cache.Key("chart", string(providerID), symbol, string(interval))
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]market.ChartPoint), nil
	}

	points := s.liveOrSyntheticSeries(ctx, symbol, interval, providerID)
	s.cache.Put(key, points)
	return points, nil
}

func (s *Service) liveOrSyntheticSeries(ctx context.Context, symbol string, interval market.Interval, providerID configstore.ProviderID) []market.ChartPoint {
	adapter, ok := s.adapterFor(providerID)
	if !ok {
		s.logger.Debug().Str("provider", string(providerID)).Str("symbol", symbol).
			Msg("provider unavailable for charts; using synthetic data")
		return s.synth.ChartSeries(interval)
	}
	fetcher, ok := adapter.(provider.ChartFetcher)
	if !ok {
		s.logger.Debug().Str("provider", string(providerID)).
			Msg("provider does not support charts; using synthetic data")
		return s.synth.ChartSeries(interval)
	}

	points, err := fetcher.FetchChartSeries(ctx, symbol, interval)
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", string(providerID)).Str("symbol", symbol).
			Msg("live chart series failed; using synthetic data")
		return s.synth.ChartSeries(interval)
	}
	return points
}

// Gainers returns up to limit records whose change is positive, cached like
// every other operation.
func (s *Service) Gainers(ctx context.Context, providerID configstore.ProviderID, limit int) []market.Quote {
	if limit <= 0 {
		limit = 10
	}

	key := cache.Key("gainers", string(providerID), strconv.Itoa(limit))
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]market.Quote)
	}

	// No supported provider exposes a gainers endpoint yet.
	gainers := s.synth.Gainers(limit)
	s.cache.Put(key, gainers)
	return gainers
}

// News returns up to limit articles for a category. Provider failures
// resolve to sample articles.
func (s *Service) News(ctx context.Context, category string, limit int, providerID configstore.ProviderID) []market.Article {
	if category == "" {
		category = "business"
	}
	if limit <= 0 {
		limit = 10
	}

	key := cache.Key("news", string(providerID), category, strconv.Itoa(limit))
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]market.Article)
	}

	articles := s.liveOrSyntheticNews(ctx, category, limit, providerID)
	s.cache.Put(key, articles)
	return articles
}

func (s *Service) liveOrSyntheticNews(ctx context.Context, category string, limit int, providerID configstore.ProviderID) []market.Article {
	adapter, ok := s.adapterFor(providerID)
	if !ok {
		s.logger.Debug().Str("provider", string(providerID)).
			Msg("provider unavailable for news; using sample articles")
		return s.synth.News(category, limit)
	}
	fetcher, ok := adapter.(provider.NewsFetcher)
	if !ok {
		s.logger.Debug().Str("provider", string(providerID)).
			Msg("provider does not support news; using sample articles")
		return s.synth.News(category, limit)
	}

	articles, err := fetcher.FetchNews(ctx, category, limit)
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", string(providerID)).Str("category", category).
			Msg("live news failed; using sample articles")
		return s.synth.News(category, limit)
	}
	return articles
}

// TestConnection probes the provider's live endpoint with its stored
// credentials, bypassing cache and synthetic fallback. It reports false on
// any failure and is used only for user-facing diagnostics.
func (s *Service) TestConnection(ctx context.Context, providerID configstore.ProviderID) bool {
	adapter, ok := s.adapterFor(providerID)
	if !ok {
		return false
	}

	switch a := adapter.(type) {
	case provider.QuoteFetcher:
		if _, err := a.FetchQuote(ctx, canonicalSymbol); err != nil {
			s.logger.Debug().Err(err).Str("provider", string(providerID)).Msg("connection test failed")
			return false
		}
	case provider.NewsFetcher:
		if _, err := a.FetchNews(ctx, "business", 1); err != nil {
			s.logger.Debug().Err(err).Str("provider", string(providerID)).Msg("connection test failed")
			return false
		}
	default:
		return false
	}
	return true
}

// ProviderStatus summarises a configured provider for diagnostics output.
type ProviderStatus struct {
	Provider configstore.ProviderID `json:"provider"`
	Name     string                 `json:"name,omitempty"`
	BaseURL  string                 `json:"baseUrl,omitempty"`
	Live     bool                   `json:"live"`
}

// Providers lists the configured providers and whether each has a live
// adapter registered.
func (s *Service) Providers() []ProviderStatus {
	configs := s.configs.List()
	out := make([]ProviderStatus, 0, len(configs))
	for _, cfg := range configs {
		_, live := s.registry.Build(cfg)
		out = append(out, ProviderStatus{
			Provider: cfg.Provider,
			Name:     cfg.Name,
			BaseURL:  cfg.BaseURL,
			Live:     live,
		})
	}
	return out
}
