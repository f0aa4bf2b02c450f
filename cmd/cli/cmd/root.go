package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"rastreo/internal/api"
	"rastreo/internal/cli"
)

var (
	serverURL string
	format    string
	quiet     bool
	noColor   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rastreo",
	Short: "CLI client for the shipment tracking API",
	Long: `Rastreo CLI queries the tracking server for Argentine parcel
carriers (Via Cargo, BusPack, Andreani, OCA, Correo Argentino), lists the
query history and triggers background refreshes.`,
	Version: "1.0.0",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "API server address")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "", "Output format (table, json)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (minimal output)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")
}

// initializeClient sets up configuration, formatter, and API client
func initializeClient() (*cli.Config, *cli.OutputFormatter, *api.Client, error) {
	config, err := cli.LoadConfig(serverURL, format, quiet, noColor)
	if err != nil {
		return nil, nil, nil, err
	}

	formatter := cli.NewOutputFormatter(config.Format, config.Quiet, config.NoColor)
	client := api.NewClient(config.ServerURL)

	if err := client.HealthCheck(); err != nil {
		formatter.PrintError(err)
		return nil, nil, nil, err
	}
	return config, formatter, client, nil
}
