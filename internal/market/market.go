package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the normalized quote shape consumed by table and card widgets
// regardless of which provider (or the synthetic generator) produced it.
type Quote struct {
	Symbol        string           `json:"symbol"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	Change        decimal.Decimal  `json:"change"`
	ChangePercent decimal.Decimal  `json:"changePercent"`
	Volume        int64            `json:"volume"`
	High          *decimal.Decimal `json:"high,omitempty"`
	Low           *decimal.Decimal `json:"low,omitempty"`
	Open          *decimal.Decimal `json:"open,omitempty"`
	MarketCap     *decimal.Decimal `json:"marketCap,omitempty"`
}

// ChartPoint is a single OHLCV observation. Series are ordered oldest first.
type ChartPoint struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Article is a normalized news item.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      string    `json:"source"`
	Category    string    `json:"category,omitempty"`
}

// Interval selects the span of a chart series.
type Interval string

const (
	Interval1D Interval = "1D"
	Interval1W Interval = "1W"
	Interval1M Interval = "1M"
	Interval3M Interval = "3M"
	Interval1Y Interval = "1Y"
)

// Granularity is the sampling resolution behind an interval.
type Granularity string

const (
	GranularityIntraday Granularity = "intraday"
	GranularityDaily    Granularity = "daily"
	GranularityWeekly   Granularity = "weekly"
)

// ParseInterval validates an interval string.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case Interval1D, Interval1W, Interval1M, Interval3M, Interval1Y:
		return Interval(s), nil
	}
	return "", fmt.Errorf("unknown interval %q", s)
}

// Granularity maps an interval to its sampling resolution.
func (i Interval) Granularity() Granularity {
	switch i {
	case Interval1D:
		return GranularityIntraday
	case Interval1W, Interval1M:
		return GranularityDaily
	default:
		return GranularityWeekly
	}
}

// Points is the exact number of chart points a series for this interval holds.
func (i Interval) Points() int {
	switch i {
	case Interval1D:
		return 24
	case Interval1W:
		return 7
	case Interval1M:
		return 30
	case Interval3M:
		return 90
	case Interval1Y:
		return 365
	default:
		return 30
	}
}
