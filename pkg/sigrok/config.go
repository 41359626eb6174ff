// Package sigrok drives the shield's logic analyzer through the
// sigrok-cli capture tool: it builds the tool's command lines, owns the
// recording session lifecycle, and decodes the tool's textual output into
// busevent values.
package sigrok

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/google/shlex"
)

const (
	// DefaultSampleRateMHz is the analyzer sampling frequency. Signals
	// being measured must stay below half of this (Nyquist); that is a
	// caller responsibility, not checked anywhere in this package.
	DefaultSampleRateMHz = 4

	// DefaultCaptureRatio is the percentage of samples kept from before
	// the trigger, so decoding starts right at the trigger point.
	DefaultCaptureRatio = 5

	// DefaultStartDelay is how long to wait after spawning sigrok-cli
	// before the capture can be assumed armed. The tool has no "ready"
	// printout, so this is a fixed settle delay.
	DefaultStartDelay = 1 * time.Second

	// DefaultWaitBound is how long Collect waits for the tool to exit.
	// If the trigger condition never occurs the tool hangs until killed,
	// so this bounds the whole recording plus startup/shutdown overhead.
	DefaultWaitBound = 5 * time.Second
)

// Config holds the per-rig capture tool settings. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// Command invokes the capture tool, e.g. ["sigrok-cli"] or
	// ["wsl", "sigrok-cli"] on Windows hosts.
	Command []string

	// Driver is the sigrok driver clause, e.g. "fx2lafw" or
	// "fx2lafw:conn=1.5" to pin one analyzer when several are attached.
	Driver string

	SampleRateMHz int
	CaptureRatio  int
	StartDelay    time.Duration
	WaitBound     time.Duration

	// ExtraArgs is an operator-supplied argument string appended to the
	// common prefix, split shell-style.
	ExtraArgs string
}

// DefaultConfig returns the settings used by the CI shield rig.
func DefaultConfig() Config {
	cmd := []string{"sigrok-cli"}
	if runtime.GOOS == "windows" {
		// sigrok-cli must run through WSL on Windows hosts.
		cmd = []string{"wsl", "sigrok-cli"}
	}
	return Config{
		Command:       cmd,
		Driver:        "fx2lafw",
		SampleRateMHz: DefaultSampleRateMHz,
		CaptureRatio:  DefaultCaptureRatio,
		StartDelay:    DefaultStartDelay,
		WaitBound:     DefaultWaitBound,
	}
}

// commonArgs builds the command prefix shared by every capture mode.
func (c Config) commonArgs() ([]string, error) {
	args := append([]string(nil), c.Command...)
	args = append(args,
		"--driver", c.Driver,
		"--config", fmt.Sprintf("samplerate=%d MHz:captureratio=%d", c.SampleRateMHz, c.CaptureRatio),
	)
	if c.ExtraArgs != "" {
		extra, err := shlex.Split(c.ExtraArgs)
		if err != nil {
			return nil, fmt.Errorf("sigrok: bad extra args: %w", err)
		}
		args = append(args, extra...)
	}
	return args, nil
}

// i2cArgs builds the decoder and trigger clauses for an I2C recording.
// The trigger is the falling edge of SCL (D0).
func i2cArgs() []string {
	return []string{
		"--protocol-decoders",
		"i2c:scl=D0:sda=D1:address_format=unshifted",
		"--protocol-decoder-annotations",
		"i2c=address-read:address-write:data-read:data-write:start:repeat-start:ack:nack:stop",
		"--triggers",
		"D0=f",
	}
}

// spiArgs builds the decoder and trigger clauses for an SPI recording.
// With a chip select pin the trigger is the falling edge of CS and the
// decoder emits whole transfers; without one the trigger is any clock
// edge and only raw per-byte annotations are available.
func spiArgs(csPin string) []string {
	decoder := "spi:clk=D0:mosi=D1:miso=D2"
	if csPin != "" {
		decoder += ":cs=" + csPin
	}
	decoder += ":cpol=0:cpha=0:wordsize=8"

	args := []string{"--protocol-decoders", decoder}
	if csPin != "" {
		args = append(args,
			"--triggers", csPin+"=f",
			"--protocol-decoder-annotations", "spi=mosi-transfer:miso-transfer",
		)
	} else {
		args = append(args,
			"--triggers", "D0=e",
			"--protocol-decoder-annotations", "spi=mosi-data:miso-data",
		)
	}
	return args
}

// signalArgs builds the clauses for a raw sample capture of one pin in
// CSV format. No decoder and no trigger: the capture starts immediately.
func signalArgs(pin int) []string {
	return []string{
		"--channels", fmt.Sprintf("D%d", pin),
		"--output-format", "csv",
	}
}

// timeArg renders the --time clause, which sigrok-cli takes in ms.
func timeArg(d time.Duration) []string {
	return []string{"--time", strconv.FormatInt(d.Milliseconds(), 10)}
}
