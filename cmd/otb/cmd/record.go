package cmd

import (
	"fmt"
	"time"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/busevent"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/sigrok"
	"github.com/spf13/cobra"
)

var (
	recordDuration  time.Duration
	recordCSPin     string
	recordMOSIFirst bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Capture live bus traffic and decode it",
	Long: `Record arms the logic analyzer, waits for the bus trigger, captures
traffic for the given window and prints the decoded events.

The analyzer channels are fixed by the shield wiring: I2C uses D0 (SCL)
and D1 (SDA); SPI uses D0 (clk), D1 (mosi), D2 (miso) and an optional
chip select channel.

Examples:
  otb record i2c --duration 50ms
  otb record spi --duration 50ms --cs-pin D3
  otb record spi --duration 50ms --serial SN002`,
}

var recordI2CCmd = &cobra.Command{
	Use:   "i2c",
	Short: "Record I2C traffic",
	RunE:  runRecordI2C,
}

var recordSPICmd = &cobra.Command{
	Use:   "spi",
	Short: "Record SPI traffic",
	RunE:  runRecordSPI,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.AddCommand(recordI2CCmd, recordSPICmd)
	addShieldFlags(recordCmd)

	recordCmd.PersistentFlags().DurationVarP(&recordDuration, "duration", "d", 50*time.Millisecond,
		"capture window after the trigger")
	recordSPICmd.Flags().StringVar(&recordCSPin, "cs-pin", "",
		"analyzer channel wired to chip select (e.g. D3); empty records without CS framing")
	recordSPICmd.Flags().BoolVar(&recordMOSIFirst, "mosi-first", false,
		"decoder prints the MOSI line before MISO")
}

func runRecordI2C(cmd *cobra.Command, args []string) error {
	cfg, err := captureConfig(cmd.Context())
	if err != nil {
		return err
	}

	rec := sigrok.NewI2CRecorder(cfg, nil)
	defer rec.Teardown()

	if verbose {
		fmt.Printf("Arming I2C capture for %s...\n", recordDuration)
	}
	if err := rec.Record(recordDuration); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}

	events, warnings, err := rec.Result()
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}
	printWarnings(warnings)

	fmt.Println(busevent.FormatTransactions(events))
	return nil
}

func runRecordSPI(cmd *cobra.Command, args []string) error {
	cfg, err := captureConfig(cmd.Context())
	if err != nil {
		return err
	}

	rec := sigrok.NewSPIRecorder(cfg, nil)
	rec.MOSIFirst = recordMOSIFirst
	defer rec.Teardown()

	if verbose {
		fmt.Printf("Arming SPI capture for %s...\n", recordDuration)
	}
	if err := rec.Record(recordCSPin, recordDuration); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}

	txns, warnings, err := rec.Result()
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}
	printWarnings(warnings)

	fmt.Println(busevent.FormatSPITransactions(txns))
	return nil
}
