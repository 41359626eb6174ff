package harness

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bridge"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/busevent"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/verify"
)

// slaveRecordWindow covers one bridge-driven bus exchange.
const slaveRecordWindow = 100 * time.Millisecond

// slaveCSPin is the analyzer channel wired to the DUT's chip select.
const slaveCSPin = "D3"

// Bus settings the slave suites configure the bridge with at setup.
const (
	i2cSlaveFreqHz = 400000
	spiSlaveFreqHz = 500000
)

// uartTestString is the payload the UART suite round-trips.
const uartTestString = "The quick brown fox jumps over the lazy dog.\n"

// I2CController is the bus-master capability the I2C slave-comms test
// drives the DUT with; the live implementation is bridge.Bridge.
type I2CController interface {
	FirmwareVersion() (string, error)
	ConfigureI2C(cfg bridge.I2CConfig) error
	I2CWrite(addr uint8, data []byte, start, stop bool) error
	I2CRead(addr uint8, n int, start, stop bool) ([]byte, error)
	I2CReset() error
	Close() error
}

// SPIController is the bus-master capability of the SPI slave-comms
// test.
type SPIController interface {
	FirmwareVersion() (string, error)
	ConfigureSPI(cfg bridge.SPIConfig) error
	SPIConfig() (bridge.SPIConfig, error)
	SPITransfer(mosi []byte) ([]byte, error)
	Close() error
}

// UARTPort is the serial capability of the UART test: the bridge's CDC
// port wired to the DUT's UART pins, distinct from the console.
type UARTPort interface {
	io.ReadWriter
	SetBaud(baud int) error
	Flush() error
	Close() error
}

// I2CSlaveCommsTest exercises the DUT as an I2C slave: the bridge acts
// as bus master while the analyzer records the resulting traffic. The
// bus is opened at Setup so constructing the test touches no hardware.
type I2CSlaveCommsTest struct {
	recorder I2CRecorder
	open     func() (I2CController, error)
	bus      I2CController
}

// NewI2CSlaveCommsTest wires the test to a recorder and a bus opener.
func NewI2CSlaveCommsTest(rec I2CRecorder, open func() (I2CController, error)) *I2CSlaveCommsTest {
	return &I2CSlaveCommsTest{recorder: rec, open: open}
}

func (t *I2CSlaveCommsTest) Name() string { return "i2c_slave_comms" }

func (t *I2CSlaveCommsTest) Setup(r *Runner) error {
	bus, err := t.open()
	if err != nil {
		return fmt.Errorf("opening bridge: %w", err)
	}
	if err := bus.ConfigureI2C(bridge.I2CConfig{FrequencyHz: i2cSlaveFreqHz}); err != nil {
		bus.Close()
		return fmt.Errorf("configuring i2c master: %w", err)
	}
	t.bus = bus
	if v, err := bus.FirmwareVersion(); err == nil {
		r.Log().Inf("Bridge firmware %s", v)
	}

	r.RegisterCallback("start_recording_i2c", func(key, value string) {
		if err := t.recorder.Record(slaveRecordWindow); err != nil {
			r.Log().Err("starting recording: %v", err)
			r.SendKV(key, "failed")
			return
		}
		r.SendKV(key, "complete")
	})
	r.RegisterCallback("write_bytes_to_slave", func(key, value string) {
		addr, data, err := parseSlaveWrite(value)
		if err != nil {
			r.Log().Err("%v", err)
			r.SendKV(key, "failed")
			return
		}
		if err := t.bus.I2CWrite(addr, data, true, true); err != nil {
			r.Log().Err("writing to slave 0x%02x: %v", addr, err)
			t.bus.I2CReset()
			r.SendKV(key, "failed")
			return
		}
		r.SendKV(key, "complete")
	})
	r.RegisterCallback("read_bytes_from_slave", func(key, value string) {
		addr, n, err := parseSlaveRead(value)
		if err != nil {
			r.Log().Err("%v", err)
			r.SendKV(key, "failed")
			return
		}
		data, err := t.bus.I2CRead(addr, n, true, true)
		if err != nil {
			r.Log().Err("reading from slave 0x%02x: %v", addr, err)
			t.bus.I2CReset()
			r.SendKV(key, "failed")
			return
		}
		r.SendKV(key, hex.EncodeToString(data))
	})
	r.RegisterCallback("display_i2c_data", func(key, value string) {
		events, warnings, err := t.recorder.Result()
		if err != nil {
			r.Log().Err("collecting recording: %v", err)
			r.SendKV(key, "failed")
			return
		}
		for _, w := range warnings {
			r.Log().Err("%s", w)
		}
		if len(events) > 0 {
			r.Log().Inf("Saw on the I2C bus: %s", busevent.FormatEvents(events))
		} else {
			r.Log().Inf("Saw nothing on the I2C bus.")
		}
		r.SendKV(key, "complete")
	})
	r.Log().Inf("I2C slave comms host test setup complete.")
	return nil
}

func (t *I2CSlaveCommsTest) Teardown() {
	t.recorder.Teardown()
	if t.bus != nil {
		t.bus.Close()
	}
}

// SPISlaveCommsTest exercises the DUT as an SPI slave. The DUT may
// reconfigure the master's mode and clock between cases; transactions
// are verified both against the analyzer capture and against the bytes
// the master shifted in.
type SPISlaveCommsTest struct {
	recorder SPIRecorder
	open     func() (SPIController, error)
	bus      SPIController
}

// NewSPISlaveCommsTest wires the test to a recorder and a bus opener.
func NewSPISlaveCommsTest(rec SPIRecorder, open func() (SPIController, error)) *SPISlaveCommsTest {
	return &SPISlaveCommsTest{recorder: rec, open: open}
}

func (t *SPISlaveCommsTest) Name() string { return "spi_slave_comms" }

func (t *SPISlaveCommsTest) Setup(r *Runner) error {
	bus, err := t.open()
	if err != nil {
		return fmt.Errorf("opening bridge: %w", err)
	}
	cfg := bridge.SPIConfig{FrequencyHz: spiSlaveFreqHz, Mode: 0, WordSize: 8}
	if err := bus.ConfigureSPI(cfg); err != nil {
		bus.Close()
		return fmt.Errorf("configuring spi master: %w", err)
	}
	t.bus = bus
	if v, err := bus.FirmwareVersion(); err == nil {
		r.Log().Inf("Bridge firmware %s", v)
	}

	r.RegisterCallback("start_recording_spi", func(key, value string) {
		if err := t.recorder.Record(slaveCSPin, slaveRecordWindow); err != nil {
			r.Log().Err("starting recording: %v", err)
			r.SendKV(key, "failed")
			return
		}
		r.SendKV(key, "complete")
	})
	r.RegisterCallback("set_spi_mode", func(key, value string) {
		mode, err := strconv.ParseUint(value, 0, 8)
		if err != nil || mode > 3 {
			r.Log().Err("bad spi mode %q", value)
			return
		}
		cfg, err := t.bus.SPIConfig()
		if err != nil {
			r.Log().Err("reading spi config: %v", err)
			return
		}
		cfg.Mode = uint8(mode)
		if err := t.bus.ConfigureSPI(cfg); err != nil {
			r.Log().Err("setting spi mode %d: %v", mode, err)
			return
		}
		r.Log().Inf("Set SPI mode to %d", mode)
	})
	r.RegisterCallback("set_sclk_freq", func(key, value string) {
		freq, err := strconv.ParseUint(value, 0, 32)
		if err != nil {
			r.Log().Err("bad sclk frequency %q", value)
			return
		}
		cfg, err := t.bus.SPIConfig()
		if err != nil {
			r.Log().Err("reading spi config: %v", err)
			return
		}
		cfg.FrequencyHz = uint32(freq)
		if err := t.bus.ConfigureSPI(cfg); err != nil {
			r.Log().Err("setting sclk to %d Hz: %v", freq, err)
			return
		}
		r.Log().Inf("Set SCLK frequency to %d Hz", freq)
	})
	r.RegisterCallback("do_transaction", func(key, value string) {
		tx, expected, err := parseTransaction(value)
		if err != nil {
			r.Log().Err("%v", err)
			r.SendKV(key, "error")
			return
		}
		want, err := busevent.NewSPITransaction(tx, expected)
		if err != nil {
			r.Log().Err("%v", err)
			r.SendKV(key, "error")
			return
		}

		ok := true
		miso, err := t.bus.SPITransfer(tx)
		if err != nil {
			r.Log().Err("spi transfer: %v", err)
			ok = false
		} else {
			r.Log().Inf("Bridge sent [% x] and got back [% x]", tx, miso)
		}

		recorded, warnings, err := t.recorder.Result()
		if err != nil {
			r.Log().Err("collecting recording: %v", err)
			ok = false
		}
		for _, w := range warnings {
			r.Log().Err("%s", w)
		}
		report := verify.SequencesFunc(
			[]busevent.SPITransaction{want}, recorded,
			busevent.SPITransaction.Equal)
		if !report.Match {
			r.Log().Inf("%s", report)
			r.Log().Inf("We expected: %s", want)
			ok = false
		}
		if miso != nil && !bytes.Equal(miso, expected) {
			r.Log().Err("Incorrect response on the master: expected [% x], got [% x]", expected, miso)
			ok = false
		}
		if !ok {
			r.SendKV(key, "error")
			return
		}
		r.SendKV(key, "complete")
	})
	r.Log().Inf("SPI slave comms host test setup complete.")
	return nil
}

func (t *SPISlaveCommsTest) Teardown() {
	t.recorder.Teardown()
	if t.bus != nil {
		t.bus.Close()
	}
}

// UARTTest round-trips a known string over the bridge's CDC port at
// whatever baud rates the DUT asks for.
type UARTTest struct {
	open func() (UARTPort, error)
	port UARTPort
}

// NewUARTTest wires the test to a port opener.
func NewUARTTest(open func() (UARTPort, error)) *UARTTest {
	return &UARTTest{open: open}
}

func (t *UARTTest) Name() string { return "uart" }

func (t *UARTTest) Setup(r *Runner) error {
	port, err := t.open()
	if err != nil {
		return fmt.Errorf("opening uart: %w", err)
	}
	t.port = port

	r.RegisterCallback("setup_port_at_baud", func(key, value string) {
		baud, err := strconv.Atoi(value)
		if err != nil || baud <= 0 {
			r.Log().Err("bad baud rate %q", value)
			r.SendKV(key, "failed")
			return
		}
		if err := t.port.SetBaud(baud); err != nil {
			r.Log().Err("setting baud to %d: %v", baud, err)
			r.SendKV(key, "failed")
			return
		}
		if err := t.port.Flush(); err != nil {
			r.Log().Err("flushing port: %v", err)
			r.SendKV(key, "failed")
			return
		}
		r.SendKV(key, "complete")
	})
	r.RegisterCallback("send_test_string", func(key, value string) {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			r.Log().Err("bad repeat count %q", value)
			r.SendKV(key, "failed")
			return
		}
		if _, err := io.WriteString(t.port, strings.Repeat(uartTestString, n)); err != nil {
			r.Log().Err("writing test string: %v", err)
			r.SendKV(key, "failed")
			return
		}
		r.SendKV(key, "started")
	})
	r.RegisterCallback("verify_repeated_test_string", func(key, value string) {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			r.Log().Err("bad repeat count %q", value)
			r.SendKV(key, "failed")
			return
		}
		want := strings.Repeat(uartTestString, n)
		// Read up to twice the expected length so extra DUT output
		// shows up as a mismatch instead of being silently dropped.
		got := readAvailable(t.port, 2*len(want))
		if string(got) != want {
			r.Log().Err("UART data mismatch: expected %q, got %q", want, got)
			r.SendKV(key, "failed")
			return
		}
		r.SendKV(key, "complete")
	})
	r.Log().Inf("UART host test setup complete.")
	return nil
}

func (t *UARTTest) Teardown() {
	if t.port != nil {
		t.port.Close()
	}
}

// readAvailable drains up to max bytes, stopping when a read returns
// nothing so a quiet port does not block the test.
func readAvailable(port io.Reader, max int) []byte {
	buf := make([]byte, max)
	total := 0
	for total < max {
		n, err := port.Read(buf[total:])
		total += n
		if err != nil || n == 0 {
			break
		}
	}
	return buf[:total]
}

// parseSlaveWrite splits a write command "addr 0xa0 data 0x00 0x01 ...".
func parseSlaveWrite(value string) (addr uint8, data []byte, err error) {
	fields := strings.Fields(value)
	if len(fields) < 3 || fields[0] != "addr" || fields[2] != "data" {
		return 0, nil, fmt.Errorf("harness: malformed write command %q", value)
	}
	a, err := strconv.ParseUint(fields[1], 0, 8)
	if err != nil {
		return 0, nil, fmt.Errorf("harness: bad address in %q: %v", value, err)
	}
	data, err = parseByteList(fields[3:])
	if err != nil {
		return 0, nil, err
	}
	return uint8(a), data, nil
}

// parseSlaveRead splits a read command "addr 0xa1 count 4".
func parseSlaveRead(value string) (addr uint8, n int, err error) {
	fields := strings.Fields(value)
	if len(fields) != 4 || fields[0] != "addr" || fields[2] != "count" {
		return 0, 0, fmt.Errorf("harness: malformed read command %q", value)
	}
	a, err := strconv.ParseUint(fields[1], 0, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("harness: bad address in %q: %v", value, err)
	}
	n, err = strconv.Atoi(fields[3])
	if err != nil || n < 0 {
		return 0, 0, fmt.Errorf("harness: bad count in %q", value)
	}
	return uint8(a), n, nil
}

// parseTransaction splits "0x00 0x01 ... expected_response 0xff ...".
func parseTransaction(value string) (tx, expected []byte, err error) {
	parts := strings.SplitN(value, "expected_response", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("harness: malformed transaction %q", value)
	}
	if tx, err = parseByteList(strings.Fields(parts[0])); err != nil {
		return nil, nil, err
	}
	if expected, err = parseByteList(strings.Fields(parts[1])); err != nil {
		return nil, nil, err
	}
	return tx, expected, nil
}

func parseByteList(fields []string) ([]byte, error) {
	data := make([]byte, 0, len(fields))
	for _, f := range fields {
		b, err := strconv.ParseUint(f, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("harness: bad data byte %q: %v", f, err)
		}
		data = append(data, byte(b))
	}
	return data, nil
}
