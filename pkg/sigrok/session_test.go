package sigrok

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.StartDelay = 0 // no settle needed against a playback runner
	cfg.WaitBound = 50 * time.Millisecond
	return cfg
}

func TestSessionCollectOutput(t *testing.T) {
	runner := &PlaybackRunner{Output: "i2c-1: Start\ni2c-1: Stop\n"}
	s := NewSession(testConfig(), runner)

	if err := s.Start(i2cArgs(), 50*time.Millisecond); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != SessionStarted {
		t.Errorf("state = %v, want Started", s.State())
	}

	lines, err := s.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(lines) != 3 || lines[0] != "i2c-1: Start" {
		t.Errorf("lines = %q", lines)
	}
}

func TestSessionArgvComposition(t *testing.T) {
	cfg := testConfig()
	cfg.Driver = "fx2lafw:conn=1.5"
	cfg.ExtraArgs = `--loglevel 2`
	runner := &PlaybackRunner{}
	s := NewSession(cfg, runner)

	if err := s.Start(i2cArgs(), 50*time.Millisecond); err != nil {
		t.Fatalf("Start: %v", err)
	}

	argv := strings.Join(runner.Argv, " ")
	for _, want := range []string{
		"sigrok-cli",
		"--driver fx2lafw:conn=1.5",
		"--config samplerate=4 MHz:captureratio=5",
		"--loglevel 2",
		"i2c:scl=D0:sda=D1:address_format=unshifted",
		"--triggers D0=f",
		"--time 50",
	} {
		if !strings.Contains(argv, want) {
			t.Errorf("argv missing %q:\n%s", want, argv)
		}
	}
}

func TestSessionTimeoutKillsProcess(t *testing.T) {
	runner := &PlaybackRunner{Hang: true}
	s := NewSession(testConfig(), runner)

	if err := s.Start(signalArgs(6), 50*time.Millisecond); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err := s.Collect()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Collect err = %v, want ErrTimeout", err)
	}
	if !runner.Killed {
		t.Error("process not killed after timeout")
	}
	if runner.Running() {
		t.Error("process still running after timeout")
	}
	if s.State() != SessionTimedOut {
		t.Errorf("state = %v, want TimedOut", s.State())
	}

	// Teardown after the failure path is a safe no-op.
	if err := s.Teardown(); err != nil {
		t.Errorf("Teardown: %v", err)
	}
	if err := s.Teardown(); err != nil {
		t.Errorf("second Teardown: %v", err)
	}
}

func TestSessionToolFailure(t *testing.T) {
	runner := &PlaybackRunner{ExitCode: 1, ErrOutput: "sr: fx2lafw: unable to open device"}
	s := NewSession(testConfig(), runner)

	if err := s.Start(i2cArgs(), 50*time.Millisecond); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err := s.Collect()
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("Collect err = %v, want *ToolError", err)
	}
	if toolErr.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", toolErr.ExitCode)
	}
	if !strings.Contains(toolErr.Stderr, "unable to open device") {
		t.Errorf("Stderr = %q, want the tool's error text", toolErr.Stderr)
	}
	if !strings.Contains(err.Error(), "unable to open device") {
		t.Errorf("error text %q missing stderr", err)
	}
}

func TestSessionTeardownKillsRunningProcess(t *testing.T) {
	runner := &PlaybackRunner{Hang: true}
	s := NewSession(testConfig(), runner)

	if err := s.Start(i2cArgs(), 50*time.Millisecond); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Teardown(); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	if !runner.Killed {
		t.Error("Teardown left the process running")
	}
	if s.State() != SessionClosed {
		t.Errorf("state = %v, want Closed", s.State())
	}
}

func TestSessionStartTwice(t *testing.T) {
	s := NewSession(testConfig(), &PlaybackRunner{})
	if err := s.Start(i2cArgs(), time.Millisecond); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(i2cArgs(), time.Millisecond); err == nil {
		t.Error("second Start succeeded, want error")
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	runner := &PlaybackRunner{Output: "i2c-1: Start\ni2c-1: Address write: a0\ni2c-1: ACK\ni2c-1: Stop\n"}
	rec := NewI2CRecorder(testConfig(), func() Runner { return runner })

	if err := rec.Record(50 * time.Millisecond); err != nil {
		t.Fatalf("Record: %v", err)
	}
	events, warnings, err := rec.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if len(events) != 4 {
		t.Errorf("got %d events, want 4", len(events))
	}
	if err := rec.Teardown(); err != nil {
		t.Errorf("Teardown: %v", err)
	}
}

func TestSPIRecorderChipSelectArgs(t *testing.T) {
	runner := &PlaybackRunner{Output: "spi-1: 01 02\nspi-1: 01 02\n"}
	rec := NewSPIRecorder(testConfig(), func() Runner { return runner })

	if err := rec.Record("D3", 50*time.Millisecond); err != nil {
		t.Fatalf("Record: %v", err)
	}
	argv := strings.Join(runner.Argv, " ")
	for _, want := range []string{
		"spi:clk=D0:mosi=D1:miso=D2:cs=D3:cpol=0:cpha=0:wordsize=8",
		"--triggers D3=f",
		"spi=mosi-transfer:miso-transfer",
	} {
		if !strings.Contains(argv, want) {
			t.Errorf("argv missing %q:\n%s", want, argv)
		}
	}

	txns, _, err := rec.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if len(txns) != 1 || txns[0].Len() != 2 {
		t.Errorf("transactions = %v", txns)
	}
}

func TestSPIRecorderNoChipSelectArgs(t *testing.T) {
	runner := &PlaybackRunner{Output: "spi-1: 01\nspi-1: 02\n"}
	rec := NewSPIRecorder(testConfig(), func() Runner { return runner })

	if err := rec.Record("", 50*time.Millisecond); err != nil {
		t.Fatalf("Record: %v", err)
	}
	argv := strings.Join(runner.Argv, " ")
	for _, want := range []string{
		"spi:clk=D0:mosi=D1:miso=D2:cpol=0:cpha=0:wordsize=8",
		"--triggers D0=e",
		"spi=mosi-data:miso-data",
	} {
		if !strings.Contains(argv, want) {
			t.Errorf("argv missing %q:\n%s", want, argv)
		}
	}

	txns, _, err := rec.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if len(txns) != 1 || txns[0].Len() != 1 {
		t.Errorf("transactions = %v", txns)
	}
}

func TestSignalAnalyzerMeasure(t *testing.T) {
	var lines []string
	lines = append(lines, "h1", "h2", "h3", "h4", "h5") // csv header
	// 2.5 periods of a 50% wave, 4 samples per period.
	for i := 0; i < 10; i++ {
		if (i/2)%2 == 1 {
			lines = append(lines, "1")
		} else {
			lines = append(lines, "0")
		}
	}
	runner := &PlaybackRunner{Output: strings.Join(lines, "\n")}
	an := NewSignalAnalyzer(testConfig(), func() Runner { return runner })

	m, err := an.Measure(6)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	argv := strings.Join(runner.Argv, " ")
	for _, want := range []string{"--channels D6", "--output-format csv", "--time 100"} {
		if !strings.Contains(argv, want) {
			t.Errorf("argv missing %q:\n%s", want, argv)
		}
	}
	if m.DutyCycle <= 0 || m.DutyCycle >= 1 {
		t.Errorf("DutyCycle = %v, want inside (0, 1)", m.DutyCycle)
	}
	if m.Frequency <= 0 {
		t.Errorf("Frequency = %v, want positive", m.Frequency)
	}
}
