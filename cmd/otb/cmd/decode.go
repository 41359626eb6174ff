package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/busevent"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/sigrok"
	"github.com/spf13/cobra"
)

var (
	decodeInput     string
	decodeCS        bool
	decodeMOSIFirst bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode saved capture tool output into bus events",
	Long: `Decode re-runs the protocol decoding step on capture tool output that
was saved to a file, without touching any hardware. Useful for debugging
a failed CI run from its artifacts.

Examples:
  otb decode i2c --input i2c_capture.txt
  otb decode spi --input spi_capture.txt --cs`,
}

var decodeI2CCmd = &cobra.Command{
	Use:   "i2c",
	Short: "Decode I2C protocol-decoder output",
	RunE:  runDecodeI2C,
}

var decodeSPICmd = &cobra.Command{
	Use:   "spi",
	Short: "Decode SPI protocol-decoder output",
	RunE:  runDecodeSPI,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.AddCommand(decodeI2CCmd, decodeSPICmd)

	decodeCmd.PersistentFlags().StringVarP(&decodeInput, "input", "i", "",
		"file holding saved capture tool output")
	decodeSPICmd.Flags().BoolVar(&decodeCS, "cs", false,
		"capture was recorded with a chip select channel")
	decodeSPICmd.Flags().BoolVar(&decodeMOSIFirst, "mosi-first", false,
		"decoder prints the MOSI line before MISO")

	decodeCmd.MarkPersistentFlagRequired("input")
}

func runDecodeI2C(cmd *cobra.Command, args []string) error {
	lines, err := readCaptureLines(decodeInput)
	if err != nil {
		return err
	}

	events, warnings := sigrok.DecodeI2C(lines)
	printWarnings(warnings)

	fmt.Println(busevent.FormatTransactions(events))
	return nil
}

func runDecodeSPI(cmd *cobra.Command, args []string) error {
	lines, err := readCaptureLines(decodeInput)
	if err != nil {
		return err
	}

	txns, warnings, err := sigrok.DecodeSPI(lines, sigrok.SPIDecodeOptions{
		ChipSelect: decodeCS,
		MOSIFirst:  decodeMOSIFirst,
	})
	printWarnings(warnings)
	if err != nil {
		return fmt.Errorf("decoding failed: %w", err)
	}

	fmt.Println(busevent.FormatSPITransactions(txns))
	return nil
}

// readCaptureLines loads a saved capture output file as decoder input.
func readCaptureLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading capture: %w", err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
}
