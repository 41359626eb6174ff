package cmd

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bridge"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/harness"
	"github.com/spf13/cobra"
)

var (
	hostTestName string
	hostTestPort string
	hostTestBaud int
)

var hostTestCmd = &cobra.Command{
	Use:   "host-test",
	Short: "Run a greentea host test against the DUT console",
	Long: `Host-test drives one built-in greentea host test over the DUT's serial
console, answering the firmware's {{key;value}} requests with live
capture results from the shield's logic analyzer.

Built-in tests: ` + strings.Join(harness.BuiltinNames(), ", ") + `

Without --port the console is resolved from the shield's CY7C65211
bridge under /dev/serial/by-id. The uart test claims the bridge CDC
port for itself, so give the console with --port when running it.

Examples:
  otb host-test --name i2c_basic
  otb host-test --name signal_analyzer --port /dev/ttyACM0 --baud 9600`,
	RunE: runHostTest,
}

func init() {
	rootCmd.AddCommand(hostTestCmd)
	addShieldFlags(hostTestCmd)

	hostTestCmd.Flags().StringVarP(&hostTestName, "name", "n", "", "host test to run")
	hostTestCmd.Flags().StringVarP(&hostTestPort, "port", "p", "", "DUT console device (default: resolve from shield bridge)")
	hostTestCmd.Flags().IntVarP(&hostTestBaud, "baud", "b", 9600, "console baud rate")

	hostTestCmd.MarkFlagRequired("name")
}

func runHostTest(cmd *cobra.Command, args []string) error {
	cfg, err := captureConfig(cmd.Context())
	if err != nil {
		return err
	}

	test, err := harness.NewBuiltin(hostTestName, cfg, shieldConfig())
	if err != nil {
		return err
	}

	port := hostTestPort
	if port == "" {
		port, err = bridge.ResolveCDCPort(shieldConfig().BridgeSerial())
		if err != nil {
			return fmt.Errorf("resolving DUT console: %w", err)
		}
		if verbose {
			fmt.Printf("Using console %s\n", port)
		}
	}

	console, err := bridge.OpenUART(port, hostTestBaud)
	if err != nil {
		return fmt.Errorf("opening DUT console: %w", err)
	}
	defer console.Close()

	runner := harness.NewRunner(console, harness.DefaultLogger())
	res, err := runner.Run(test)
	if err != nil {
		return fmt.Errorf("host test aborted: %w", err)
	}

	fmt.Printf("verdict: %s\n", res.Verdict)
	if !res.Passed {
		return fmt.Errorf("host test %s failed", hostTestName)
	}
	return nil
}
