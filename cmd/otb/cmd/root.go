package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bench"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/sigrok"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose      bool
	shieldSerial string
	captureExtra string
)

var rootCmd = &cobra.Command{
	Use:   "otb",
	Short: "OpenTraceBench - CI shield bus capture and verification tools",
	Long: `OpenTraceBench (otb) drives the CI shield rig: the fx2lafw logic
analyzer and CY7C65211 serial bridge attached to each device under test.

Examples:
  otb devices                                  # List attached shields
  otb record i2c --duration 50ms               # Capture and decode I2C traffic
  otb decode spi --input capture.txt --cs      # Decode a saved capture
  otb verify i2c --seq seqs --name write_2_to_0x1 --input capture.txt
  otb measure --pin 6 --plot wave.png          # Measure a PWM signal
  otb host-test --name i2c_basic               # Run a greentea host test
  otb results import --db ci.db --log run.log --suite i2c --target DISCO_L475VG`,
	Version: "0.9.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// addShieldFlags registers the shield-selection flags shared by every
// command that touches the rig hardware.
func addShieldFlags(c *cobra.Command) {
	c.PersistentFlags().StringVarP(&shieldSerial, "serial", "s", "",
		"shield serial number, e.g. SN002 (default: $"+bench.SerialEnvVar+" or any attached shield)")
	c.PersistentFlags().StringVar(&captureExtra, "extra-args", "",
		"extra arguments passed through to the capture tool")
}

// shieldConfig resolves the shield selection from flags and environment.
func shieldConfig() bench.Config {
	cfg := bench.ConfigFromEnv()
	if shieldSerial != "" {
		cfg.SerialNumber = shieldSerial
	}
	return cfg
}

// captureConfig builds the capture tool configuration, pinning the
// analyzer by USB address when a specific shield is selected.
func captureConfig(ctx context.Context) (sigrok.Config, error) {
	cfg := sigrok.DefaultConfig()
	cfg.ExtraArgs = captureExtra

	bcfg := shieldConfig()
	if bcfg.SerialNumber != "" {
		conn, err := bench.AnalyzerConn(ctx, bcfg)
		if err != nil {
			return cfg, err
		}
		cfg.Driver = cfg.Driver + ":conn=" + conn
		if verbose {
			fmt.Printf("Using analyzer at %s\n", conn)
		}
	}
	return cfg, nil
}
