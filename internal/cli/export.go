package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"finboard/internal/app"
	"finboard/internal/configstore"
	"finboard/internal/market"
)

var (
	exportOutPath  string
	exportPNGPath  string
	exportSymbol   string
	exportInterval string
	exportProvider string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the dashboard as JSON and/or render a chart PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			JSONPath: exportOutPath,
			PNGPath:  exportPNGPath,
			Symbol:   exportSymbol,
			Provider: configstore.ProviderID(exportProvider),
		}

		if exportPNGPath != "" {
			interval, err := market.ParseInterval(exportInterval)
			if err != nil {
				return fmt.Errorf("invalid --interval value: %w", err)
			}
			opts.Interval = interval
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the dashboard with a previously exported JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Import(cmd.Context(), args[0])
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutPath, "out", "", "Path to write the dashboard JSON")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write a chart PNG")
	exportCmd.Flags().StringVar(&exportSymbol, "symbol", "", "Symbol to chart (with --png)")
	exportCmd.Flags().StringVar(&exportInterval, "interval", "1M", "Chart interval (with --png)")
	exportCmd.Flags().StringVar(&exportProvider, "provider", "alphavantage", "Provider id to fetch from")
}
