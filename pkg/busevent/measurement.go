package busevent

import "fmt"

// SignalMeasurement is the derived frequency and duty cycle of one
// recorded digital signal. DutyCycle is the high fraction in [0, 1].
type SignalMeasurement struct {
	Frequency float64 // Hz
	DutyCycle float64
}

func (m SignalMeasurement) String() string {
	return fmt.Sprintf("%.1f Hz, %.1f%% duty", m.Frequency, m.DutyCycle*100)
}
