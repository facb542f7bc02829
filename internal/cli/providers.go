package cli

import (
	"github.com/spf13/cobra"

	"finboard/internal/configstore"
)

var (
	providerKey     string
	providerBaseURL string
	providerName    string
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Manage API provider configurations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListProviders(cmd.OutOrStdout())
	},
}

var providersAddCmd = &cobra.Command{
	Use:   "add PROVIDER",
	Short: "Add or replace a provider configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().AddProvider(configstore.ProviderConfig{
			Provider: configstore.ProviderID(args[0]),
			APIKey:   providerKey,
			BaseURL:  providerBaseURL,
			Name:     providerName,
		})
	},
}

var providersRemoveCmd = &cobra.Command{
	Use:   "remove PROVIDER",
	Short: "Remove a provider configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().RemoveProvider(configstore.ProviderID(args[0]))
	},
}

var providersTestCmd = &cobra.Command{
	Use:   "test PROVIDER",
	Short: "Probe a provider's live endpoint with its stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().TestProvider(cmd.Context(), cmd.OutOrStdout(), configstore.ProviderID(args[0]))
	},
}

var widgetsCmd = &cobra.Command{
	Use:   "widgets",
	Short: "List the dashboard widgets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListWidgets(cmd.OutOrStdout())
	},
}

func init() {
	providersAddCmd.Flags().StringVar(&providerKey, "key", "", "API credential")
	providersAddCmd.Flags().StringVar(&providerBaseURL, "base-url", "", "Provider base address")
	providersAddCmd.Flags().StringVar(&providerName, "name", "", "Display name")

	providersCmd.AddCommand(providersAddCmd)
	providersCmd.AddCommand(providersRemoveCmd)
	providersCmd.AddCommand(providersTestCmd)
}
