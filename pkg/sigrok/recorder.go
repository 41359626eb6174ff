package sigrok

import (
	"errors"
	"time"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/busevent"
)

// RunnerFactory produces a fresh Runner per recording. Passing nil to a
// recorder constructor selects real ExecRunners.
type RunnerFactory func() Runner

func execRunnerFactory() Runner { return &ExecRunner{} }

// I2CRecorder records I2C traffic on the analyzer's D0/D1 channels. One
// recorder handles one recording at a time; Record may be called again
// after the previous result was collected or torn down.
type I2CRecorder struct {
	cfg        Config
	newRunner  RunnerFactory
	session    *Session
	lastWindow time.Duration
}

// NewI2CRecorder builds a recorder. newRunner may be nil for live use.
func NewI2CRecorder(cfg Config, newRunner RunnerFactory) *I2CRecorder {
	if newRunner == nil {
		newRunner = execRunnerFactory
	}
	return &I2CRecorder{cfg: cfg, newRunner: newRunner}
}

// Record starts capturing I2C data for the given window after the first
// falling SCL edge. It returns once the capture is armed.
func (r *I2CRecorder) Record(window time.Duration) error {
	r.session = NewSession(r.cfg, r.newRunner())
	r.lastWindow = window
	return r.session.Start(i2cArgs(), window)
}

// Result collects the capture and decodes it. The warnings are the
// unparsed-line diagnostics from the decoder; they never fail the call.
func (r *I2CRecorder) Result() ([]busevent.Event, []string, error) {
	if r.session == nil {
		return nil, nil, errors.New("sigrok: no recording in progress")
	}
	lines, err := r.session.Collect()
	if err != nil {
		return nil, nil, err
	}
	events, warnings := DecodeI2C(lines)
	return events, warnings, nil
}

// Teardown stops any in-flight capture. Safe to call repeatedly and from
// test-failure paths.
func (r *I2CRecorder) Teardown() error {
	if r.session == nil {
		return nil
	}
	return r.session.Teardown()
}

// SPIRecorder records SPI traffic on D0 (clk), D1 (mosi), D2 (miso) and
// optionally a chip select channel.
type SPIRecorder struct {
	cfg       Config
	newRunner RunnerFactory

	// MOSIFirst flips the assumed line order of the tool's output; see
	// SPIDecodeOptions.
	MOSIFirst bool

	session *Session
	csPin   string
}

// NewSPIRecorder builds a recorder. newRunner may be nil for live use.
func NewSPIRecorder(cfg Config, newRunner RunnerFactory) *SPIRecorder {
	if newRunner == nil {
		newRunner = execRunnerFactory
	}
	return &SPIRecorder{cfg: cfg, newRunner: newRunner}
}

// Record starts capturing SPI data for the given window. csPin names the
// analyzer channel wired to chip select (e.g. "D3"); pass "" to record
// without CS segmentation, in which case the whole window decodes into a
// single transaction.
func (r *SPIRecorder) Record(csPin string, window time.Duration) error {
	r.session = NewSession(r.cfg, r.newRunner())
	r.csPin = csPin
	return r.session.Start(spiArgs(csPin), window)
}

// Result collects the capture and decodes it using the framing mode the
// recording was started with.
func (r *SPIRecorder) Result() ([]busevent.SPITransaction, []string, error) {
	if r.session == nil {
		return nil, nil, errors.New("sigrok: no recording in progress")
	}
	lines, err := r.session.Collect()
	if err != nil {
		return nil, nil, err
	}
	return DecodeSPI(lines, SPIDecodeOptions{
		ChipSelect: r.csPin != "",
		MOSIFirst:  r.MOSIFirst,
	})
}

// Teardown stops any in-flight capture.
func (r *SPIRecorder) Teardown() error {
	if r.session == nil {
		return nil
	}
	return r.session.Teardown()
}

// SignalAnalyzer measures frequency and duty cycle of a digital signal
// by capturing raw samples on one analyzer pin. The signal must already
// be running when Measure is called and stay stable until it returns,
// and its frequency must respect the Nyquist limit of the configured
// sample rate.
type SignalAnalyzer struct {
	cfg       Config
	newRunner RunnerFactory
	session   *Session
}

// NewSignalAnalyzer builds an analyzer. newRunner may be nil for live use.
func NewSignalAnalyzer(cfg Config, newRunner RunnerFactory) *SignalAnalyzer {
	if newRunner == nil {
		newRunner = execRunnerFactory
	}
	return &SignalAnalyzer{cfg: cfg, newRunner: newRunner}
}

// Measure captures raw samples of analyzer pin 0-7 for the fixed
// measurement window and derives the signal statistics.
func (a *SignalAnalyzer) Measure(pin int) (busevent.SignalMeasurement, error) {
	samples, err := a.Samples(pin)
	if err != nil {
		return busevent.SignalMeasurement{}, err
	}
	return AnalyzeSamples(samples, signalRecordTime), nil
}

// Samples captures and returns the raw per-sample logic levels, for
// callers that want the waveform itself (e.g. plotting).
func (a *SignalAnalyzer) Samples(pin int) ([]bool, error) {
	a.session = NewSession(a.cfg, a.newRunner())
	if err := a.session.Start(signalArgs(pin), signalRecordTime); err != nil {
		return nil, err
	}
	lines, err := a.session.Collect()
	if err != nil {
		return nil, err
	}
	return ParseCSVSamples(lines), nil
}

// SampleRateHz returns the analyzer sampling rate in Hz, for rendering
// sample indices as time.
func (a *SignalAnalyzer) SampleRateHz() float64 {
	return float64(a.cfg.SampleRateMHz) * 1e6
}

// Teardown stops any in-flight capture.
func (a *SignalAnalyzer) Teardown() error {
	if a.session == nil {
		return nil
	}
	return a.session.Teardown()
}
