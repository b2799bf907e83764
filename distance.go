package main

import (
	"fmt"
	"strconv"

	"ble-beacon.klederson.com/internal/bluetooth"
	"ble-beacon.klederson.com/internal/config"
	"github.com/spf13/cobra"
)

// newDistanceCmd prints the log-distance estimate for one reading. RSSI is
// negative, so it goes after "--".
func newDistanceCmd() *cobra.Command {
	var txPower float64
	cmd := &cobra.Command{
		Use:     "distance <rssi>",
		Short:   "Estimate distance in metres from an RSSI reading",
		Example: "  ble-beacon distance -- -79\n  ble-beacon distance --tx-power -65 -- -70",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseInt(args[0], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid rssi %q: %w", args[0], err)
			}
			d, ok := bluetooth.EstimateDistance(bluetooth.RSSI(int16(v)), txPower)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "n/a")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", d)
			return nil
		},
	}
	cmd.Flags().Float64Var(&txPower, "tx-power", config.MeasuredPower, "Measured RSSI at one metre")
	return cmd
}
