package cmd

import (
	"fmt"
	"time"

	"github.com/OpenTraceLab/OpenTraceBench/internal/waveplot"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/sigrok"
	"github.com/spf13/cobra"
)

var (
	measurePin  int
	measurePlot string
)

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Measure frequency and duty cycle of a digital signal",
	Long: `Measure samples one analyzer channel and reports the frequency and
duty cycle of the signal on it. The signal must already be running and
stay below half of the analyzer sample rate.

Examples:
  otb measure --pin 6
  otb measure --pin 6 --plot wave.png`,
	RunE: runMeasure,
}

func init() {
	rootCmd.AddCommand(measureCmd)
	addShieldFlags(measureCmd)

	measureCmd.Flags().IntVarP(&measurePin, "pin", "p", 0, "analyzer channel to sample (0-7)")
	measureCmd.Flags().StringVar(&measurePlot, "plot", "", "write the captured waveform to a PNG file")

	measureCmd.MarkFlagRequired("pin")
}

func runMeasure(cmd *cobra.Command, args []string) error {
	cfg, err := captureConfig(cmd.Context())
	if err != nil {
		return err
	}

	analyzer := sigrok.NewSignalAnalyzer(cfg, nil)
	defer analyzer.Teardown()

	if measurePlot == "" {
		m, err := analyzer.Measure(measurePin)
		if err != nil {
			return fmt.Errorf("measurement failed: %w", err)
		}
		fmt.Println(m)
		return nil
	}

	samples, err := analyzer.Samples(measurePin)
	if err != nil {
		return fmt.Errorf("measurement failed: %w", err)
	}

	window := time.Duration(float64(len(samples)) / analyzer.SampleRateHz() * float64(time.Second))
	fmt.Println(sigrok.AnalyzeSamples(samples, window))

	if err := waveplot.Render(samples, analyzer.SampleRateHz(), measurePlot); err != nil {
		return fmt.Errorf("writing plot: %w", err)
	}
	if verbose {
		fmt.Printf("Waveform written to %s\n", measurePlot)
	}
	return nil
}
