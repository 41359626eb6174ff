// Package waveplot renders a raw logic capture as a step waveform PNG,
// for eyeballing a signal when a measurement looks off.
package waveplot

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Render saves a step-rendered 0/1 trace of the samples to path. The
// sample rate converts sample indices to seconds on the X axis.
func Render(samples []bool, sampleRateHz float64, path string) error {
	if len(samples) == 0 {
		return fmt.Errorf("waveplot: no samples to plot")
	}
	if sampleRateHz <= 0 {
		return fmt.Errorf("waveplot: invalid sample rate %v", sampleRateHz)
	}

	p := plot.New()
	p.Title.Text = "Captured waveform"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Level"
	p.Y.Min = -0.1
	p.Y.Max = 1.1

	line, err := plotter.NewLine(stepPoints(samples, sampleRateHz))
	if err != nil {
		return fmt.Errorf("waveplot: building line: %w", err)
	}
	p.Add(line)

	if err := p.Save(10*vg.Inch, 3*vg.Inch, path); err != nil {
		return fmt.Errorf("waveplot: saving %s: %w", path, err)
	}
	return nil
}

// stepPoints emits two points per level change so the trace renders as
// square steps instead of ramps.
func stepPoints(samples []bool, sampleRateHz float64) plotter.XYs {
	level := func(s bool) float64 {
		if s {
			return 1
		}
		return 0
	}

	pts := plotter.XYs{{X: 0, Y: level(samples[0])}}
	for i := 1; i < len(samples); i++ {
		if samples[i] == samples[i-1] {
			continue
		}
		t := float64(i) / sampleRateHz
		pts = append(pts,
			plotter.XY{X: t, Y: level(samples[i-1])},
			plotter.XY{X: t, Y: level(samples[i])})
	}
	pts = append(pts, plotter.XY{
		X: float64(len(samples)-1) / sampleRateHz,
		Y: level(samples[len(samples)-1]),
	})
	return pts
}
