package cmd

import (
	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyStatus string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the query history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent queries",
	RunE: func(c *cobra.Command, args []string) error {
		_, formatter, client, err := initializeClient()
		if err != nil {
			return err
		}
		entries, err := client.GetHistory(historyLimit, historyStatus)
		if err != nil {
			formatter.PrintError(err)
			return err
		}
		return formatter.PrintHistory(entries)
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one history entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		config, formatter, client, err := initializeClient()
		if err != nil {
			return err
		}
		if err := client.DeleteHistoryEntry(args[0]); err != nil {
			formatter.PrintError(err)
			return err
		}
		if !config.Quiet {
			formatter.PrintSuccess("Entrada eliminada")
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the whole history",
	RunE: func(c *cobra.Command, args []string) error {
		config, formatter, client, err := initializeClient()
		if err != nil {
			return err
		}
		if err := client.ClearHistory(); err != nil {
			formatter.PrintError(err)
			return err
		}
		if !config.Quiet {
			formatter.PrintSuccess("Historial vacío")
		}
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Maximum entries to list")
	historyListCmd.Flags().StringVar(&historyStatus, "status", "", "Filter: delivered or in-transit")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
