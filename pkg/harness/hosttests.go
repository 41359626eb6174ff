package harness

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bench"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/bridge"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/busevent"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/sigrok"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/verify"
)

// recordWindow covers every bus exchange the standard suites perform.
const recordWindow = 50 * time.Millisecond

// pwmPin is the analyzer channel wired to the DUT's PWM output.
const pwmPin = 6

// I2CRecorder is the capture capability the I2C host test needs; the
// live implementation is sigrok.I2CRecorder.
type I2CRecorder interface {
	Record(window time.Duration) error
	Result() ([]busevent.Event, []string, error)
	Teardown() error
}

// SPIRecorder is the capture capability the SPI host test needs.
type SPIRecorder interface {
	Record(csPin string, window time.Duration) error
	Result() ([]busevent.SPITransaction, []string, error)
	Teardown() error
}

// SignalMeasurer is the capability of the signal analyzer host test.
type SignalMeasurer interface {
	Measure(pin int) (busevent.SignalMeasurement, error)
	Teardown() error
}

// i2cBasicSequences are the wire patterns the I2C basic suite's cases
// produce; the DUT names one per verification request.
var i2cBasicSequences = map[string][]busevent.Event{
	// Write to the EEPROM address, then stop.
	"correct_addr_only": {
		busevent.Start(), busevent.WriteToAddr(0xA0), busevent.Ack(), busevent.Stop(),
	},

	// Write to an unoccupied address, then stop.
	"incorrect_addr_only_write": {
		busevent.Start(), busevent.WriteToAddr(0x20), busevent.Nack(), busevent.Stop(),
	},

	// Read from an unoccupied address, then stop.
	"incorrect_addr_only_read": {
		busevent.Start(), busevent.ReadFromAddr(0x21), busevent.Nack(), busevent.Stop(),
	},

	// Write the byte 2 to EEPROM cell 0x1.
	"write_2_to_0x1": {
		busevent.Start(), busevent.WriteToAddr(0xA0), busevent.Ack(),
		busevent.DataByte(0x00), busevent.Ack(),
		busevent.DataByte(0x01), busevent.Ack(),
		busevent.DataByte(0x02), busevent.Ack(), busevent.Stop(),
	},

	// Write the byte 3 to EEPROM cell 0x1.
	"write_3_to_0x1": {
		busevent.Start(), busevent.WriteToAddr(0xA0), busevent.Ack(),
		busevent.DataByte(0x00), busevent.Ack(),
		busevent.DataByte(0x01), busevent.Ack(),
		busevent.DataByte(0x03), busevent.Ack(), busevent.Stop(),
	},

	// Read the byte 2 back from EEPROM cell 0x1.
	"read_2_from_0x1": {
		busevent.Start(), busevent.WriteToAddr(0xA0), busevent.Ack(),
		busevent.DataByte(0x00), busevent.Ack(),
		busevent.DataByte(0x01), busevent.Ack(),
		busevent.RepeatedStart(), busevent.ReadFromAddr(0xA1), busevent.Ack(),
		busevent.DataByte(0x02), busevent.Nack(), busevent.Stop(),
	},

	// Read the byte 3 back from EEPROM cell 0x1.
	"read_3_from_0x1": {
		busevent.Start(), busevent.WriteToAddr(0xA0), busevent.Ack(),
		busevent.DataByte(0x00), busevent.Ack(),
		busevent.DataByte(0x01), busevent.Ack(),
		busevent.RepeatedStart(), busevent.ReadFromAddr(0xA1), busevent.Ack(),
		busevent.DataByte(0x03), busevent.Nack(), busevent.Stop(),
	},
}

// spiBasicSequences are the transactions the SPI basic suite produces.
var spiBasicSequences = map[string]busevent.SPITransaction{
	"standard_word": {
		MOSI: []byte{0x01, 0x02, 0x04, 0x08},
		MISO: []byte{0x01, 0x02, 0x04, 0x08},
	},
}

// I2CBasicTest verifies the DUT's I2C traffic against the named
// expected sequences.
type I2CBasicTest struct {
	recorder I2CRecorder
	// Sequences may be replaced to verify against a loaded repository
	// instead of the built-in table.
	Sequences map[string][]busevent.Event
}

// NewI2CBasicTest wires the test to a recorder.
func NewI2CBasicTest(rec I2CRecorder) *I2CBasicTest {
	return &I2CBasicTest{recorder: rec, Sequences: i2cBasicSequences}
}

func (t *I2CBasicTest) Name() string { return "i2c_basic" }

func (t *I2CBasicTest) Setup(r *Runner) error {
	r.RegisterCallback("start_recording_i2c", func(key, value string) {
		if err := t.recorder.Record(recordWindow); err != nil {
			r.Log().Err("starting recording: %v", err)
			r.SendKV(key, "failed")
			return
		}
		r.SendKV(key, "complete")
	})
	r.RegisterCallback("verify_sequence", func(key, value string) {
		expected, ok := t.Sequences[value]
		if !ok {
			r.Log().Err("unknown sequence %q", value)
			r.SendKV(key, "failed")
			return
		}
		actual, warnings, err := t.recorder.Result()
		if err != nil {
			r.Log().Err("collecting recording: %v", err)
			r.SendKV(key, "failed")
			return
		}
		for _, w := range warnings {
			r.Log().Err("%s", w)
		}
		if len(actual) > 0 {
			r.Log().Inf("Saw on the I2C bus: %s", busevent.FormatEvents(actual))
		} else {
			r.Log().Inf("Saw nothing on the I2C bus.")
		}

		report := verify.Sequences(expected, actual)
		if report.Match {
			r.Log().Inf("PASS")
			r.SendKV(key, "complete")
			return
		}
		r.Log().Inf("%s", report)
		r.Log().Inf("We expected: %s", busevent.FormatEvents(expected))
		r.Log().Inf("FAIL")
		r.SendKV(key, "failed")
	})
	r.Log().Inf("I2C basic host test setup complete.")
	return nil
}

func (t *I2CBasicTest) Teardown() {
	t.recorder.Teardown()
}

// SPIBasicTest verifies the DUT's SPI traffic against the named
// expected transactions. The standard suites record without a chip
// select line, so the whole window is one transaction.
type SPIBasicTest struct {
	recorder  SPIRecorder
	Sequences map[string]busevent.SPITransaction
}

// NewSPIBasicTest wires the test to a recorder.
func NewSPIBasicTest(rec SPIRecorder) *SPIBasicTest {
	return &SPIBasicTest{recorder: rec, Sequences: spiBasicSequences}
}

func (t *SPIBasicTest) Name() string { return "spi_basic" }

func (t *SPIBasicTest) Setup(r *Runner) error {
	r.RegisterCallback("start_recording_spi", func(key, value string) {
		if err := t.recorder.Record("", recordWindow); err != nil {
			r.Log().Err("starting recording: %v", err)
			r.SendKV(key, "failed")
			return
		}
		r.SendKV(key, "complete")
	})
	r.RegisterCallback("verify_sequence", func(key, value string) {
		expected, ok := t.Sequences[value]
		if !ok {
			r.Log().Err("unknown sequence %q", value)
			r.SendKV(key, "failed")
			return
		}
		actual, err := t.firstTransaction(r)
		if err != nil {
			r.SendKV(key, "failed")
			return
		}
		r.Log().Inf("Saw on the SPI bus: %s", actual)

		report := verify.SequencesFunc(
			[]busevent.SPITransaction{expected},
			[]busevent.SPITransaction{actual},
			busevent.SPITransaction.Equal)
		if report.Match {
			r.Log().Inf("PASS")
			r.SendKV(key, "complete")
			return
		}
		r.Log().Inf("We expected: %s", expected)
		r.Log().Inf("FAIL")
		r.SendKV(key, "failed")
	})
	r.RegisterCallback("print_spi_data", func(key, value string) {
		txn, err := t.firstTransaction(r)
		if err != nil {
			r.SendKV(key, "failed")
			return
		}
		r.Log().Inf("Saw on the SPI bus: %s", txn)
		r.SendKV(key, "complete")
	})
	r.Log().Inf("SPI basic host test setup complete.")
	return nil
}

func (t *SPIBasicTest) firstTransaction(r *Runner) (busevent.SPITransaction, error) {
	txns, warnings, err := t.recorder.Result()
	if err != nil {
		r.Log().Err("collecting recording: %v", err)
		return busevent.SPITransaction{}, err
	}
	for _, w := range warnings {
		r.Log().Err("%s", w)
	}
	if len(txns) == 0 {
		r.Log().Err("no SPI transactions recorded")
		return busevent.SPITransaction{}, fmt.Errorf("harness: empty SPI capture")
	}
	return txns[0], nil
}

func (t *SPIBasicTest) Teardown() {
	t.recorder.Teardown()
}

// SignalAnalyzerTest measures the DUT's PWM output and reports the
// statistics back over the console for the DUT to judge.
type SignalAnalyzerTest struct {
	measurer SignalMeasurer
}

// NewSignalAnalyzerTest wires the test to a measurer.
func NewSignalAnalyzerTest(m SignalMeasurer) *SignalAnalyzerTest {
	return &SignalAnalyzerTest{measurer: m}
}

func (t *SignalAnalyzerTest) Name() string { return "signal_analyzer" }

func (t *SignalAnalyzerTest) Setup(r *Runner) error {
	r.RegisterCallback("analyze_signal", func(key, value string) {
		m, err := t.measurer.Measure(pwmPin)
		if err != nil {
			r.Log().Err("measuring signal: %v", err)
			r.SendKV("frequency", "0")
			r.SendKV("duty_cycle", "0")
			return
		}
		r.Log().Inf("Measured %s", m)
		r.SendKV("frequency", strconv.FormatFloat(m.Frequency, 'f', -1, 64))
		r.SendKV("duty_cycle", strconv.FormatFloat(m.DutyCycle, 'f', -1, 64))
	})
	r.Log().Inf("Signal analyzer host test setup complete.")
	return nil
}

func (t *SignalAnalyzerTest) Teardown() {
	t.measurer.Teardown()
}

// NewBuiltin builds the named built-in host test wired to live capture
// hardware using the given tool configuration. The slave-comms and UART
// tests additionally drive the shield's serial bridge; they open it at
// Setup, not here.
func NewBuiltin(name string, cfg sigrok.Config, shield bench.Config) (HostTest, error) {
	switch name {
	case "i2c_basic":
		return NewI2CBasicTest(sigrok.NewI2CRecorder(cfg, nil)), nil
	case "spi_basic":
		return NewSPIBasicTest(sigrok.NewSPIRecorder(cfg, nil)), nil
	case "signal_analyzer":
		return NewSignalAnalyzerTest(sigrok.NewSignalAnalyzer(cfg, nil)), nil
	case "i2c_slave_comms":
		open := func() (I2CController, error) {
			b, err := bridge.Open(shield)
			if err != nil {
				return nil, err
			}
			return b, nil
		}
		return NewI2CSlaveCommsTest(sigrok.NewI2CRecorder(cfg, nil), open), nil
	case "spi_slave_comms":
		open := func() (SPIController, error) {
			b, err := bridge.Open(shield)
			if err != nil {
				return nil, err
			}
			return b, nil
		}
		return NewSPISlaveCommsTest(sigrok.NewSPIRecorder(cfg, nil), open), nil
	case "uart":
		open := func() (UARTPort, error) {
			path, err := bridge.ResolveCDCPort(shield.BridgeSerial())
			if err != nil {
				return nil, err
			}
			p, err := bridge.OpenTestUART(path, uartDefaultBaud)
			if err != nil {
				return nil, err
			}
			return p, nil
		}
		return NewUARTTest(open), nil
	default:
		return nil, fmt.Errorf("harness: unknown host test %q (have %v)", name, BuiltinNames())
	}
}

// uartDefaultBaud is the rate the UART test's port opens at before the
// DUT picks one.
const uartDefaultBaud = 9600

// BuiltinNames lists the available built-in host tests.
func BuiltinNames() []string {
	names := []string{
		"i2c_basic", "spi_basic", "signal_analyzer",
		"i2c_slave_comms", "spi_slave_comms", "uart",
	}
	sort.Strings(names)
	return names
}

// DefaultLogger logs to standard error the way live runs expect.
func DefaultLogger() *Logger {
	return NewLogger(os.Stderr, "OTB")
}
