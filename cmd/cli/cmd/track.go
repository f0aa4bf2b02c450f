package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rastreo/internal/carriers"
	"rastreo/internal/handlers"
)

var trackCmd = &cobra.Command{
	Use:   "track <carrier> <identifier...>",
	Short: "Track a shipment",
	Long: `Track a shipment with one of the supported carriers.

Most carriers take a single tracking number:

  rastreo track andreani 360002701689990
  rastreo track correo-argentino HC261803236AR

BusPack uses its three-part key (letra, boca, numero):

  rastreo track buspack R 3101 10055`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
}

func runTrack(c *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	carrier := carriers.Carrier(args[0])
	if !carrier.IsValid() {
		err := fmt.Errorf("unknown carrier %q (see: rastreo carriers)", args[0])
		formatter.PrintError(err)
		return err
	}

	req := handlers.TrackRequest{Carrier: string(carrier)}
	if carrier == carriers.BusPack {
		if len(args) != 4 {
			err := fmt.Errorf("buspack needs three values: letra boca numero")
			formatter.PrintError(err)
			return err
		}
		req.Letra, req.Boca, req.Numero = args[1], args[2], args[3]
	} else {
		if len(args) != 2 {
			err := fmt.Errorf("%s takes a single tracking number", carrier)
			formatter.PrintError(err)
			return err
		}
		req.TrackingNumber = args[1]
	}

	result, err := client.Track(req)
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	return formatter.PrintResult(result)
}
