// Package alphavantage implements the live Alpha Vantage adapter. Responses
// are nested documents keyed by human-readable field labels ("05. price",
// "Time Series (Daily)", ...); an absent or empty expected key means the
// request quota was exhausted and is reported as an error so the caller can
// degrade to synthetic data.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"finboard/internal/configstore"
	"finboard/internal/market"
)

const defaultBaseURL = "https://www.alphavantage.co/query"

// ErrEmptyPayload indicates the provider answered 200 with no usable data,
// which is how Alpha Vantage signals rate limiting.
var ErrEmptyPayload = errors.New("alphavantage: empty payload")

// Options parameterise the adapter.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries uint64
}

// Adapter fetches quotes and time series from Alpha Vantage.
type Adapter struct {
	opts    Options
	client  *http.Client
	logger  zerolog.Logger
	baseURL string
}

// New constructs an Alpha Vantage adapter.
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
		logger:  logger.With().Str("component", "alphavantage").Logger(),
		baseURL: baseURL,
	}
}

// FromConfig builds an adapter from a stored provider config.
func FromConfig(cfg configstore.ProviderConfig, timeout time.Duration, logger zerolog.Logger) *Adapter {
	return New(Options{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Timeout: timeout}, logger)
}

// Provider reports the adapter's provider id.
func (a *Adapter) Provider() configstore.ProviderID {
	return configstore.ProviderAlphaVantage
}

// FetchQuote retrieves the GLOBAL_QUOTE document for symbol.
func (a *Adapter) FetchQuote(ctx context.Context, symbol string) (market.Quote, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", a.opts.APIKey)

	var envelope struct {
		GlobalQuote map[string]string `json:"Global Quote"`
	}
	if err := a.getJSON(ctx, params, &envelope); err != nil {
		return market.Quote{}, err
	}
	if len(envelope.GlobalQuote) == 0 {
		return market.Quote{}, fmt.Errorf("%w: no Global Quote for %s", ErrEmptyPayload, symbol)
	}

	q := envelope.GlobalQuote
	price, err := decimal.NewFromString(q["05. price"])
	if err != nil {
		return market.Quote{}, fmt.Errorf("parse price: %w", err)
	}
	change, err := decimal.NewFromString(q["09. change"])
	if err != nil {
		return market.Quote{}, fmt.Errorf("parse change: %w", err)
	}
	pctStr := strings.TrimSuffix(q["10. change percent"], "%")
	changePct, err := decimal.NewFromString(pctStr)
	if err != nil {
		return market.Quote{}, fmt.Errorf("parse change percent: %w", err)
	}
	volume, err := strconv.ParseInt(q["06. volume"], 10, 64)
	if err != nil {
		return market.Quote{}, fmt.Errorf("parse volume: %w", err)
	}

	quote := market.Quote{
		Symbol:        q["01. symbol"],
		Name:          symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		Volume:        volume,
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	if high, err := decimal.NewFromString(q["03. high"]); err == nil {
		quote.High = &high
	}
	if low, err := decimal.NewFromString(q["04. low"]); err == nil {
		quote.Low = &low
	}
	if open, err := decimal.NewFromString(q["02. open"]); err == nil {
		quote.Open = &open
	}
	return quote, nil
}

// seriesFunction maps an interval to the Alpha Vantage function and the
// label under which the series document appears.
func seriesFunction(interval market.Interval) (function, seriesKey string) {
	switch interval.Granularity() {
	case market.GranularityIntraday:
		return "TIME_SERIES_INTRADAY", "Time Series (60min)"
	case market.GranularityDaily:
		return "TIME_SERIES_DAILY", "Time Series (Daily)"
	default:
		return "TIME_SERIES_WEEKLY", "Weekly Time Series"
	}
}

// FetchChartSeries retrieves an OHLCV series for symbol, ordered oldest
// first and truncated to the interval's point count.
func (a *Adapter) FetchChartSeries(ctx context.Context, symbol string, interval market.Interval) ([]market.ChartPoint, error) {
	function, seriesKey := seriesFunction(interval)

	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", symbol)
	params.Set("apikey", a.opts.APIKey)
	if function == "TIME_SERIES_INTRADAY" {
		params.Set("interval", "60min")
	}

	var envelope map[string]json.RawMessage
	if err := a.getJSON(ctx, params, &envelope); err != nil {
		return nil, err
	}

	raw, ok := envelope[seriesKey]
	if !ok {
		return nil, fmt.Errorf("%w: no %q for %s", ErrEmptyPayload, seriesKey, symbol)
	}

	var series map[string]seriesEntry
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: empty %q for %s", ErrEmptyPayload, seriesKey, symbol)
	}

	// Timestamps sort lexicographically; keep the newest window, oldest first.
	dates := make([]string, 0, len(series))
	for date := range series {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if limit := interval.Points(); len(dates) > limit {
		dates = dates[len(dates)-limit:]
	}

	points := make([]market.ChartPoint, 0, len(dates))
	for _, date := range dates {
		point, err := series[date].toChartPoint(date)
		if err != nil {
			return nil, fmt.Errorf("point %s: %w", date, err)
		}
		points = append(points, point)
	}
	return points, nil
}

type seriesEntry struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

func (e seriesEntry) toChartPoint(date string) (market.ChartPoint, error) {
	open, err := decimal.NewFromString(e.Open)
	if err != nil {
		return market.ChartPoint{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := decimal.NewFromString(e.High)
	if err != nil {
		return market.ChartPoint{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := decimal.NewFromString(e.Low)
	if err != nil {
		return market.ChartPoint{}, fmt.Errorf("parse low: %w", err)
	}
	closeVal, err := decimal.NewFromString(e.Close)
	if err != nil {
		return market.ChartPoint{}, fmt.Errorf("parse close: %w", err)
	}
	volume, err := strconv.ParseInt(e.Volume, 10, 64)
	if err != nil {
		return market.ChartPoint{}, fmt.Errorf("parse volume: %w", err)
	}
	return market.ChartPoint{
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closeVal,
		Volume: volume,
	}, nil
}

// getJSON issues a GET with bounded retries on transport errors and 5xx.
func (a *Adapter) getJSON(ctx context.Context, params url.Values, out any) error {
	endpoint := a.baseURL + "?" + params.Encode()

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("alphavantage status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("alphavantage status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	retries := a.opts.MaxRetries
	if retries == 0 {
		retries = 2
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return err
	}
	return nil
}
