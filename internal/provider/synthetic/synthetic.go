// Package synthetic produces plausible placeholder records so widgets always
// have something to render when no real provider is configured or a live
// call fails. Every call is independent; values are random, not seeded.
package synthetic

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"finboard/internal/market"
)

var gainerSymbols = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "NVDA", "META", "NFLX", "AMD", "INTC"}

// Generator emits synthetic market data. It holds no state.
type Generator struct{}

// New constructs a Generator.
func New() *Generator {
	return &Generator{}
}

// Quote returns a placeholder quote with price in a plausible range and a
// signed change. ChangePercent is derived from change and price.
func (g *Generator) Quote(symbol string) market.Quote {
	price := decimal.NewFromFloat(rand.Float64()*500 + 50)
	change := decimal.NewFromFloat((rand.Float64() - 0.5) * 10)
	marketCap := price.Mul(decimal.NewFromInt(rand.Int63n(1_000_000_000)))

	return market.Quote{
		Symbol:        symbol,
		Name:          symbol,
		Price:         price,
		Change:        change,
		ChangePercent: change.Div(price).Mul(decimal.NewFromInt(100)),
		Volume:        rand.Int63n(10_000_000) + 1_000_000,
		MarketCap:     &marketCap,
	}
}

// ChartSeries returns a random walk with the exact point count the interval
// dictates, oldest first. Every point keeps high above and low below both
// open and close.
func (g *Generator) ChartSeries(interval market.Interval) []market.ChartPoint {
	count := interval.Points()
	step := stepFor(interval.Granularity())
	now := time.Now()

	points := make([]market.ChartPoint, 0, count)
	base := 150.0
	for i := 0; i < count; i++ {
		base += (rand.Float64() - 0.5) * 5
		open := base + (rand.Float64()-0.5)*2
		closeVal := base + (rand.Float64()-0.5)*2
		high := max(open, closeVal) + rand.Float64()*3
		low := min(open, closeVal) - rand.Float64()*3

		points = append(points, market.ChartPoint{
			Date:   labelFor(now.Add(-time.Duration(count-i)*step), interval.Granularity()),
			Open:   decimal.NewFromFloat(open),
			High:   decimal.NewFromFloat(high),
			Low:    decimal.NewFromFloat(low),
			Close:  decimal.NewFromFloat(closeVal),
			Volume: rand.Int63n(10_000_000) + 1_000_000,
		})
	}
	return points
}

// Gainers returns count quotes whose change is strictly positive.
func (g *Generator) Gainers(count int) []market.Quote {
	if count <= 0 {
		count = 10
	}
	quotes := make([]market.Quote, 0, count)
	for i := 0; i < count; i++ {
		symbol := gainerSymbols[i%len(gainerSymbols)]
		price := decimal.NewFromFloat(rand.Float64()*500 + 50)
		change := decimal.NewFromFloat(rand.Float64()*10 + 2)

		quotes = append(quotes, market.Quote{
			Symbol:        symbol,
			Name:          symbol,
			Price:         price,
			Change:        change,
			ChangePercent: change.Div(price).Mul(decimal.NewFromInt(100)),
			Volume:        rand.Int63n(10_000_000) + 1_000_000,
		})
	}
	return quotes
}

var sampleHeadlines = []struct {
	title       string
	description string
}{
	{
		title:       "Stock Market Reaches New Heights Amid Economic Recovery",
		description: "Major indices hit record highs as investor confidence grows following positive economic indicators and strong corporate earnings reports.",
	},
	{
		title:       "Central Bank Holds Rates Steady as Inflation Cools",
		description: "Policy makers signalled patience on further moves, citing easing price pressures and a resilient labour market.",
	},
	{
		title:       "Tech Sector Leads Rally on Strong Cloud Demand",
		description: "Large-cap technology shares outperformed after several vendors raised full-year guidance on enterprise cloud spending.",
	},
	{
		title:       "Energy Prices Retreat as Supply Concerns Ease",
		description: "Crude benchmarks fell for a third session while analysts trimmed forecasts on improving inventory data.",
	},
	{
		title:       "Manufacturing Activity Expands for Sixth Straight Month",
		description: "Factory output and new orders climbed again, pointing to sustained momentum in the industrial economy.",
	},
}

// News returns count placeholder articles tagged with the category.
func (g *Generator) News(category string, count int) []market.Article {
	if count <= 0 {
		count = 10
	}
	now := time.Now()
	articles := make([]market.Article, 0, count)
	for i := 0; i < count; i++ {
		sample := sampleHeadlines[i%len(sampleHeadlines)]
		articles = append(articles, market.Article{
			Title:       sample.title,
			Description: sample.description,
			Link:        fmt.Sprintf("https://example.com/news/%s/%d", category, i+1),
			PublishedAt: now.Add(-time.Duration(i) * time.Hour),
			Source:      "sample",
			Category:    category,
		})
	}
	return articles
}

func stepFor(g market.Granularity) time.Duration {
	switch g {
	case market.GranularityIntraday:
		return time.Hour
	case market.GranularityWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func labelFor(t time.Time, g market.Granularity) string {
	if g == market.GranularityIntraday {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("2006-01-02")
}
