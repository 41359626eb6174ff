package sigrok

import (
	"time"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/busevent"
)

// csvHeaderLines is the fixed number of header lines sigrok-cli prints
// before the first sample in CSV output format.
const csvHeaderLines = 5

// signalRecordTime is how long a signal measurement captures raw
// samples. 100ms gives accurate frequency estimates for the signal
// frequencies the rig works with.
const signalRecordTime = 100 * time.Millisecond

// ParseCSVSamples converts the capture tool's CSV output into per-sample
// logic levels. The header is skipped; each remaining line is one sample
// and "1" means high.
func ParseCSVSamples(lines []string) []bool {
	if len(lines) <= csvHeaderLines {
		return nil
	}
	lines = lines[csvHeaderLines:]
	samples := make([]bool, len(lines))
	for i, line := range lines {
		samples[i] = line == "1"
	}
	return samples
}

// AnalyzeSamples estimates frequency and duty cycle from raw samples
// covering the given capture window. Duty cycle is the high fraction of
// all samples. Frequency is the rising-edge count divided by the window;
// the first two samples never count as an edge boundary since sample 0
// has no defined predecessor. The signal frequency must be at most half
// the sample rate (Nyquist); that precondition is the caller's to honor
// and is not checked here.
func AnalyzeSamples(samples []bool, window time.Duration) busevent.SignalMeasurement {
	if len(samples) == 0 || window <= 0 {
		return busevent.SignalMeasurement{}
	}

	highSamples := 0
	risingEdges := 0
	for i, s := range samples {
		if i > 1 && !samples[i-1] && s {
			risingEdges++
		}
		if s {
			highSamples++
		}
	}

	return busevent.SignalMeasurement{
		Frequency: float64(risingEdges) / window.Seconds(),
		DutyCycle: float64(highSamples) / float64(len(samples)),
	}
}
