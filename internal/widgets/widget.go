// Package widgets holds the dashboard widget registry: the ordered
// collection of widget definitions the grid renders, persisted to durable
// storage after every mutation.
package widgets

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"finboard/internal/configstore"
	"finboard/internal/market"
)

// Type enumerates the widget kinds.
type Type string

const (
	TypeTable Type = "table"
	TypeCard  Type = "card"
	TypeChart Type = "chart"
	TypeNews  Type = "news"
)

// CardKind selects what a card widget displays.
type CardKind string

const (
	CardWatchlist   CardKind = "watchlist"
	CardGainers     CardKind = "gainers"
	CardPerformance CardKind = "performance"
	CardFinancial   CardKind = "financial"
)

// RefreshInterval is a widget refresh cadence in seconds.
type RefreshInterval int

// Refresh cadences offered by the dashboard.
const (
	Refresh30s RefreshInterval = 30
	Refresh1m  RefreshInterval = 60
	Refresh5m  RefreshInterval = 300
	Refresh10m RefreshInterval = 600
)

func (r RefreshInterval) valid() bool {
	switch r {
	case 0, Refresh30s, Refresh1m, Refresh5m, Refresh10m:
		return true
	}
	return false
}

// Duration converts the cadence to a time.Duration, defaulting to one
// minute when unset.
func (r RefreshInterval) Duration() time.Duration {
	if r == 0 {
		r = Refresh1m
	}
	return time.Duration(r) * time.Second
}

// Position is a widget's grid coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is a widget's grid footprint.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// TableConfig configures a table widget.
type TableConfig struct {
	Symbols  []string `json:"symbols"`
	Columns  []string `json:"columns,omitempty"`
	PageSize int      `json:"pageSize,omitempty"`
}

// CardConfig configures a card widget.
type CardConfig struct {
	Kind    CardKind `json:"cardType"`
	Symbols []string `json:"symbols,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// ChartConfig configures a chart widget.
type ChartConfig struct {
	Symbol    string          `json:"symbol"`
	Interval  market.Interval `json:"interval"`
	ChartType string          `json:"chartType,omitempty"` // line or candlestick
}

// NewsConfig configures a news widget.
type NewsConfig struct {
	Category string `json:"newsCategory,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Config is a tagged variant: exactly the section matching the widget's
// type must be present. Shared fields (provider, refresh cadence) apply to
// every type.
type Config struct {
	Provider configstore.ProviderID `json:"apiProvider,omitempty"`
	Refresh  RefreshInterval        `json:"refreshInterval,omitempty"`

	Table *TableConfig `json:"table,omitempty"`
	Card  *CardConfig  `json:"card,omitempty"`
	Chart *ChartConfig `json:"chart,omitempty"`
	News  *NewsConfig  `json:"news,omitempty"`
}

// Validate checks the config against the widget type it is attached to.
func (c Config) Validate(t Type) error {
	if !c.Refresh.valid() {
		return fmt.Errorf("refresh interval %d not supported", c.Refresh)
	}

	variants := 0
	for _, set := range []bool{c.Table != nil, c.Card != nil, c.Chart != nil, c.News != nil} {
		if set {
			variants++
		}
	}
	if variants > 1 {
		return fmt.Errorf("widget config carries %d variants, want one", variants)
	}

	switch t {
	case TypeTable:
		if c.Table == nil {
			return fmt.Errorf("table widget requires a table config")
		}
		if len(c.Table.Symbols) == 0 {
			return fmt.Errorf("table widget requires at least one symbol")
		}
	case TypeCard:
		if c.Card == nil {
			return fmt.Errorf("card widget requires a card config")
		}
		switch c.Card.Kind {
		case CardWatchlist, CardGainers, CardPerformance, CardFinancial:
		default:
			return fmt.Errorf("unknown card type %q", c.Card.Kind)
		}
	case TypeChart:
		if c.Chart == nil {
			return fmt.Errorf("chart widget requires a chart config")
		}
		if c.Chart.Symbol == "" {
			return fmt.Errorf("chart widget requires a symbol")
		}
		if _, err := market.ParseInterval(string(c.Chart.Interval)); err != nil {
			return err
		}
	case TypeNews:
		if c.News == nil {
			return fmt.Errorf("news widget requires a news config")
		}
	default:
		return fmt.Errorf("unknown widget type %q", t)
	}
	return nil
}

// Widget is one dashboard tile. ID is immutable and unique for the widget's
// lifetime; Data is the opaque last-fetched snapshot its view renders.
type Widget struct {
	ID          string          `json:"id"`
	Type        Type            `json:"type"`
	Title       string          `json:"title"`
	Position    Position        `json:"position"`
	Size        Size            `json:"size"`
	Config      Config          `json:"config"`
	Data        json.RawMessage `json:"data,omitempty"`
	LastUpdated *time.Time      `json:"lastUpdated,omitempty"`
}

// Validate checks a fully formed widget definition.
func (w Widget) Validate() error {
	if w.Title == "" {
		return fmt.Errorf("widget title is required")
	}
	return w.Config.Validate(w.Type)
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// newID builds a widget id from time plus randomness, enough to avoid
// collision under interactive use.
func newID() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return fmt.Sprintf("widget-%d-%s", time.Now().UnixMilli(), suffix)
}
