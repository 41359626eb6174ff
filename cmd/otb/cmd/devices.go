package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bench"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List attached shield devices",
	Long: `Devices enumerates the USB bus for shield hardware: fx2lafw logic
analyzers and CY7C65211 serial bridges. With --serial, only the devices
belonging to that shield are shown.

Examples:
  otb devices
  otb devices --serial SN002`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	addShieldFlags(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	devices, err := bench.DiscoverShields(cmd.Context(), shieldConfig())
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("no shield devices found")
		return nil
	}
	for _, d := range devices {
		fmt.Println(d.Label())
	}
	fmt.Printf("%d device(s)\n", len(devices))
	return nil
}
