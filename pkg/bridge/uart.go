package bridge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tarm/serial"
)

// serialByIDDir is where Linux exposes stable per-device tty symlinks.
const serialByIDDir = "/dev/serial/by-id"

// ResolveCDCPort locates the tty path of the bridge's CDC ACM port when
// the chip is in UART_CDC mode, matching on the USB serial string. Pass
// "" to take the first CY7C65211 CDC port found.
func ResolveCDCPort(serialNumber string) (string, error) {
	return resolveCDCPort(serialByIDDir, serialNumber)
}

func resolveCDCPort(dir, serialNumber string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("bridge: scanning %s: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.Contains(name, "CY7C65211") {
			continue
		}
		if serialNumber != "" && !strings.Contains(name, serialNumber) {
			continue
		}
		path, err := filepath.EvalSymlinks(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("bridge: resolving %s: %w", name, err)
		}
		return path, nil
	}
	if serialNumber != "" {
		return "", fmt.Errorf("bridge: no CDC port for serial %q", serialNumber)
	}
	return "", fmt.Errorf("bridge: no CY7C65211 CDC port found")
}

// OpenUART opens a serial port at the given baud rate with no read
// timeout, the way the harness runner consumes DUT console output.
func OpenUART(port string, baud int) (*serial.Port, error) {
	p, err := serial.OpenPort(&serial.Config{Name: port, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("bridge: opening %s: %w", port, err)
	}
	return p, nil
}

// uartReadTimeout bounds each read so verification drains whatever the
// DUT managed to send instead of blocking on a quiet port.
const uartReadTimeout = 500 * time.Millisecond

// UART is the bridge's CDC serial port with a baud rate that can change
// between test cases. tarm/serial only applies settings at open, so
// SetBaud reopens the port.
type UART struct {
	path string
	baud int
	port *serial.Port
}

// OpenTestUART opens the bridge CDC port for the UART host test.
func OpenTestUART(path string, baud int) (*UART, error) {
	p, err := serial.OpenPort(&serial.Config{Name: path, Baud: baud, ReadTimeout: uartReadTimeout})
	if err != nil {
		return nil, fmt.Errorf("bridge: opening %s: %w", path, err)
	}
	return &UART{path: path, baud: baud, port: p}, nil
}

func (u *UART) Read(p []byte) (int, error)  { return u.port.Read(p) }
func (u *UART) Write(p []byte) (int, error) { return u.port.Write(p) }

// Flush discards buffered input and output.
func (u *UART) Flush() error { return u.port.Flush() }

func (u *UART) Close() error { return u.port.Close() }

// SetBaud reopens the port at the given rate. No-op when the rate is
// already set.
func (u *UART) SetBaud(baud int) error {
	if baud == u.baud {
		return nil
	}
	if err := u.port.Close(); err != nil {
		return fmt.Errorf("bridge: closing %s: %w", u.path, err)
	}
	p, err := serial.OpenPort(&serial.Config{Name: u.path, Baud: baud, ReadTimeout: uartReadTimeout})
	if err != nil {
		return fmt.Errorf("bridge: reopening %s at %d baud: %w", u.path, baud, err)
	}
	u.port, u.baud = p, baud
	return nil
}
