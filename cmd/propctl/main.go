// Command propctl browses the properties API from a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/PropertyListing/pkg/config"
	"github.com/PropertyListing/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	apiURL   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "propctl",
	Short: "Browse properties from the properties API",
	Long: `propctl pages through the properties API with the same filters, sorting and
page accumulation a listing renderer uses.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(os.Stderr, "text", logLevel)
	},
}

func init() {
	cfg := config.Load()
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", cfg.PropertiesAPIURL, "properties API base URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	registerListFlags(listCmd, cfg.ListingPageSize)
	rootCmd.AddCommand(listCmd, getCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
