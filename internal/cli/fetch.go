package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"finboard/internal/configstore"
	"finboard/internal/market"
)

var (
	fetchProvider string
	fetchInterval string
	fetchLimit    int
	fetchCategory string
)

var quoteCmd = &cobra.Command{
	Use:   "quote SYMBOL",
	Short: "Fetch a quote for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Quote(cmd.Context(), cmd.OutOrStdout(), args[0], configstore.ProviderID(fetchProvider))
	},
}

var chartCmd = &cobra.Command{
	Use:   "chart SYMBOL",
	Short: "Fetch an OHLCV chart series for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, err := market.ParseInterval(fetchInterval)
		if err != nil {
			return fmt.Errorf("invalid --interval value: %w", err)
		}
		return getApp().Chart(cmd.Context(), cmd.OutOrStdout(), args[0], interval, configstore.ProviderID(fetchProvider))
	},
}

var gainersCmd = &cobra.Command{
	Use:   "gainers",
	Short: "Fetch the top market gainers",
	RunE: func(cmd *cobra.Command, args []string) error {
		if fetchLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		return getApp().Gainers(cmd.Context(), cmd.OutOrStdout(), configstore.ProviderID(fetchProvider), fetchLimit)
	},
}

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Fetch market news headlines",
	RunE: func(cmd *cobra.Command, args []string) error {
		if fetchLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		return getApp().News(cmd.Context(), cmd.OutOrStdout(), fetchCategory, fetchLimit, configstore.ProviderNewsData)
	},
}

func init() {
	quoteCmd.Flags().StringVar(&fetchProvider, "provider", "alphavantage", "Provider id to fetch from")
	chartCmd.Flags().StringVar(&fetchProvider, "provider", "alphavantage", "Provider id to fetch from")
	chartCmd.Flags().StringVar(&fetchInterval, "interval", "1M", "Chart interval (1D, 1W, 1M, 3M, 1Y)")
	gainersCmd.Flags().StringVar(&fetchProvider, "provider", "alphavantage", "Provider id to fetch from")
	gainersCmd.Flags().IntVar(&fetchLimit, "limit", 10, "Maximum number of records")
	newsCmd.Flags().StringVar(&fetchCategory, "category", "business", "News category")
	newsCmd.Flags().IntVar(&fetchLimit, "limit", 10, "Maximum number of articles")
}
