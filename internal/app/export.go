package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"

	"finboard/internal/configstore"
	"finboard/internal/market"
	"finboard/internal/widgets"
)

// ExportOptions configure the export command.
type ExportOptions struct {
	JSONPath string
	PNGPath  string

	// PNG rendering source: an ad-hoc series fetch.
	Symbol   string
	Interval market.Interval
	Provider configstore.ProviderID
}

// Export writes the dashboard as a portable JSON envelope and/or renders a
// chart series to PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.JSONPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --out or --png must be provided")
	}

	core, err := a.bootstrap()
	if err != nil {
		return err
	}

	if opts.JSONPath != "" {
		env := core.registry.Export()
		if err := writeDashboardJSON(opts.JSONPath, env); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.JSONPath).Int("widgets", len(env.Widgets)).Msg("dashboard exported")
	}

	if opts.PNGPath != "" {
		if opts.Symbol == "" {
			return errors.New("--symbol is required with --png")
		}
		points, err := core.svc.ChartSeries(ctx, opts.Symbol, opts.Interval, opts.Provider)
		if err != nil {
			return err
		}
		if err := writeSeriesPNG(opts.PNGPath, opts.Symbol, points); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Str("symbol", opts.Symbol).Msg("chart rendered")
	}

	return nil
}

// Import replaces the dashboard with the envelope stored at path. Malformed
// files are rejected before any state changes.
func (a *App) Import(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read dashboard file: %w", err)
	}

	var env widgets.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("parse dashboard file: %w", err)
	}

	core, err := a.bootstrap()
	if err != nil {
		return err
	}
	if err := core.registry.Import(env); err != nil {
		return err
	}
	a.Logger.Info().Str("path", path).Int("widgets", len(env.Widgets)).Msg("dashboard imported")
	return nil
}

func writeDashboardJSON(path string, env widgets.Envelope) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dashboard: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	return nil
}

func writeSeriesPNG(path, symbol string, points []market.ChartPoint) error {
	if len(points) == 0 {
		return errors.New("no chart points to render")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	xs := make([]float64, len(points))
	closes := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(i)
		closes[i] = p.Close.InexactFloat64()
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name: "point",
		},
		YAxis: chart.YAxis{
			Name: "close",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.2f")
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    symbol,
				XValues: xs,
				YValues: closes,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	defer file.Close()

	if err := graph.Render(chart.PNG, file); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}
