// Package newsdata implements the live NewsData.io adapter used by news
// widgets.
package newsdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"finboard/internal/configstore"
	"finboard/internal/market"
)

const defaultBaseURL = "https://newsdata.io/api/1"

// Options parameterise the adapter.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Adapter fetches headlines from NewsData.io.
type Adapter struct {
	opts    Options
	client  *http.Client
	logger  zerolog.Logger
	baseURL string
}

// New constructs a NewsData adapter.
func New(opts Options, logger zerolog.Logger) *Adapter {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "newsdata").Logger(),
		baseURL: baseURL,
	}
}

// FromConfig builds an adapter from a stored provider config.
func FromConfig(cfg configstore.ProviderConfig, timeout time.Duration, logger zerolog.Logger) *Adapter {
	return New(Options{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Timeout: timeout}, logger)
}

// Provider reports the adapter's provider id.
func (a *Adapter) Provider() configstore.ProviderID {
	return configstore.ProviderNewsData
}

type newsResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Link        string   `json:"link"`
		PubDate     string   `json:"pubDate"`
		SourceID    string   `json:"source_id"`
		Category    []string `json:"category"`
	} `json:"results"`
}

// FetchNews retrieves up to limit English US headlines for a category.
func (a *Adapter) FetchNews(ctx context.Context, category string, limit int) ([]market.Article, error) {
	params := url.Values{}
	params.Set("apikey", a.opts.APIKey)
	params.Set("category", category)
	params.Set("language", "en")
	params.Set("country", "us")

	endpoint := a.baseURL + "/news?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create news request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send news request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsdata status %d", resp.StatusCode)
	}

	var payload newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode news response: %w", err)
	}
	if payload.Status != "success" || len(payload.Results) == 0 {
		return nil, fmt.Errorf("newsdata returned status %q with %d results", payload.Status, len(payload.Results))
	}

	results := payload.Results
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	articles := make([]market.Article, 0, len(results))
	for _, r := range results {
		article := market.Article{
			Title:       r.Title,
			Description: r.Description,
			Link:        r.Link,
			Source:      r.SourceID,
		}
		if len(r.Category) > 0 {
			article.Category = r.Category[0]
		}
		if ts, err := time.Parse("2006-01-02 15:04:05", r.PubDate); err == nil {
			article.PublishedAt = ts
		}
		articles = append(articles, article)
	}
	return articles, nil
}
