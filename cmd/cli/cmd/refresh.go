package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-query in-flight shipments from the history",
	RunE: func(c *cobra.Command, args []string) error {
		config, formatter, client, err := initializeClient()
		if err != nil {
			return err
		}
		refreshed, err := client.Refresh()
		if err != nil {
			formatter.PrintError(err)
			return err
		}
		if config.Quiet {
			fmt.Println(refreshed)
			return nil
		}
		if refreshed == 0 {
			formatter.PrintSuccess("Nada para actualizar")
		} else {
			formatter.PrintSuccess(fmt.Sprintf("%d envíos actualizados", refreshed))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
