// Package refresh drives per-widget auto-refresh: one timer loop per widget
// at its configured cadence, feeding fetched data back into the registry as
// display snapshots. Loops stop when a widget is removed or its cadence
// changes, so no background work outlives its widget.
package refresh

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"finboard/internal/configstore"
	"finboard/internal/market"
	"finboard/internal/widgets"
)

// DataSource is the slice of the fetch façade the engine consumes.
type DataSource interface {
	Quotes(ctx context.Context, symbols []string, providerID configstore.ProviderID) []market.Quote
	ChartSeries(ctx context.Context, symbol string, interval market.Interval, providerID configstore.ProviderID) ([]market.ChartPoint, error)
	Gainers(ctx context.Context, providerID configstore.ProviderID, limit int) []market.Quote
	News(ctx context.Context, category string, limit int, providerID configstore.ProviderID) []market.Article
}

// SnapshotSink receives fetched data keyed by widget id.
type SnapshotSink interface {
	UpdateData(id string, snapshot json.RawMessage) error
}

type worker struct {
	widget widgets.Widget
	cancel context.CancelFunc
}

// Engine owns the refresh loops. Each issued request carries a per-widget
// generation; a result whose generation is stale by the time it lands is
// discarded instead of overwriting a newer snapshot.
type Engine struct {
	source DataSource
	sink   SnapshotSink
	logger zerolog.Logger

	mu      sync.Mutex
	root    context.Context
	workers map[string]*worker
	issued  map[string]uint64
	applied map[string]uint64
}

// NewEngine constructs a stopped engine.
func NewEngine(source DataSource, sink SnapshotSink, logger zerolog.Logger) *Engine {
	return &Engine{
		source:  source,
		sink:    sink,
		logger:  logger.With().Str("component", "refresh").Logger(),
		workers: make(map[string]*worker),
		issued:  make(map[string]uint64),
		applied: make(map[string]uint64),
	}
}

// Start records the root context and spawns loops for the given widgets.
// Cancelling ctx stops every loop.
func (e *Engine) Start(ctx context.Context, ws []widgets.Widget) {
	e.mu.Lock()
	e.root = ctx
	e.mu.Unlock()
	e.Sync(ws)
}

// Sync reconciles the running loops against the current widget collection:
// new widgets gain a loop, removed widgets lose theirs, and widgets whose
// cadence or configuration changed are restarted.
func (e *Engine) Sync(ws []widgets.Widget) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.root == nil {
		return
	}

	current := make(map[string]widgets.Widget, len(ws))
	for _, w := range ws {
		current[w.ID] = w
	}

	for id, wk := range e.workers {
		w, alive := current[id]
		if alive && sameSchedule(wk.widget, w) {
			continue
		}
		wk.cancel()
		delete(e.workers, id)
		if !alive {
			delete(e.issued, id)
			delete(e.applied, id)
			e.logger.Debug().Str("widget", id).Msg("refresh loop cancelled")
		}
	}

	for id, w := range current {
		if _, running := e.workers[id]; running {
			continue
		}
		ctx, cancel := context.WithCancel(e.root)
		e.workers[id] = &worker{widget: w, cancel: cancel}
		go e.run(ctx, w)
	}
}

// Stop cancels every loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, wk := range e.workers {
		wk.cancel()
		delete(e.workers, id)
	}
}

// sameSchedule reports whether a widget's loop can keep running unchanged.
// Data snapshots and layout moves do not restart loops.
func sameSchedule(a, b widgets.Widget) bool {
	return a.Type == b.Type && reflect.DeepEqual(a.Config, b.Config)
}

func (e *Engine) run(ctx context.Context, w widgets.Widget) {
	e.refreshOnce(ctx, w)

	ticker := time.NewTicker(w.Config.Refresh.Duration())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.refreshOnce(ctx, w)
		}
	}
}

func (e *Engine) refreshOnce(ctx context.Context, w widgets.Widget) {
	gen := e.nextGen(w.ID)

	payload, err := e.fetch(ctx, w)
	if err != nil {
		e.logger.Warn().Err(err).Str("widget", w.ID).Msg("refresh fetch failed")
		return
	}
	if ctx.Err() != nil {
		return
	}

	snapshot, err := json.Marshal(payload)
	if err != nil {
		e.logger.Warn().Err(err).Str("widget", w.ID).Msg("snapshot encode failed")
		return
	}

	if !e.apply(w.ID, gen) {
		e.logger.Debug().Str("widget", w.ID).Uint64("generation", gen).Msg("stale refresh discarded")
		return
	}
	if err := e.sink.UpdateData(w.ID, snapshot); err != nil {
		e.logger.Warn().Err(err).Str("widget", w.ID).Msg("snapshot store failed")
	}
}

func (e *Engine) fetch(ctx context.Context, w widgets.Widget) (any, error) {
	cfg := w.Config
	switch w.Type {
	case widgets.TypeTable:
		return e.source.Quotes(ctx, cfg.Table.Symbols, cfg.Provider), nil
	case widgets.TypeCard:
		if cfg.Card.Kind == widgets.CardGainers {
			return e.source.Gainers(ctx, cfg.Provider, cfg.Card.Limit), nil
		}
		return e.source.Quotes(ctx, cfg.Card.Symbols, cfg.Provider), nil
	case widgets.TypeChart:
		return e.source.ChartSeries(ctx, cfg.Chart.Symbol, cfg.Chart.Interval, cfg.Provider)
	case widgets.TypeNews:
		return e.source.News(ctx, cfg.News.Category, cfg.News.Limit, cfg.Provider), nil
	}
	return nil, nil
}

func (e *Engine) nextGen(id string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.issued[id]++
	return e.issued[id]
}

// apply records gen as delivered for id unless a newer generation already
// landed.
func (e *Engine) apply(id string, gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen <= e.applied[id] {
		return false
	}
	e.applied[id] = gen
	return true
}
