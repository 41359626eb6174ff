package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCommand executes the root command with the given args, capturing
// stdout. Package-level flag values are reset by the callers before
// invoking this, since cobra keeps them between runs.
func runCommand(t *testing.T, args []string) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Read in background to prevent pipe buffer from blocking on Windows
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		buf.ReadFrom(r)
		close(done)
	}()

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	w.Close()
	os.Stdout = old
	<-done

	return buf.String(), err
}

func resetFlags() {
	verbose = false
	shieldSerial = ""
	captureExtra = ""
	decodeInput = ""
	decodeCS = false
	decodeMOSIFirst = false
	verifySeqPath = ""
	verifyName = ""
	verifyInput = ""
	verifyCS = false
	verifyMOSIFirst = false
}

// TestDecodeE2E tests the decode command end-to-end
func TestDecodeE2E(t *testing.T) {
	testdata := "../testdata"

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name: "i2c eeprom read",
			args: []string{"decode", "i2c", "--input", filepath.Join(testdata, "i2c_capture.txt")},
			wantContain: []string{
				"Start Wr[0xa0] Ack 0x00 Ack",
				"RepeatedStart Rd[0xa1] Ack 0x42 Nack Stop",
			},
		},
		{
			name: "spi with chip select",
			args: []string{"decode", "spi", "--input", filepath.Join(testdata, "spi_capture.txt"), "--cs"},
			wantContain: []string{
				"[mosi: 01020408, miso: 01020408]",
				"[mosi: 3344, miso: 1122]",
			},
		},
		{
			name: "spi with chip select mosi first",
			args: []string{"decode", "spi", "--input", filepath.Join(testdata, "spi_capture.txt"), "--cs", "--mosi-first"},
			wantContain: []string{
				"[mosi: 1122, miso: 3344]",
			},
		},
		{
			name: "spi without chip select",
			args: []string{"decode", "spi", "--input", filepath.Join(testdata, "spi_nocs_capture.txt")},
			wantContain: []string{
				"[mosi: 01020408, miso: 01020408]",
			},
		},
		{
			name:    "missing input file",
			args:    []string{"decode", "i2c", "--input", filepath.Join(testdata, "nonexistent.txt")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			output, err := runCommand(t, tt.args)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v\nOutput: %s", err, output)
				return
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

// TestVerifyE2E tests the verify command end-to-end
func TestVerifyE2E(t *testing.T) {
	testdata := "../testdata"
	seqDir := filepath.Join(testdata, "seqs")

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name: "i2c match from directory",
			args: []string{"verify", "i2c",
				"--seq", seqDir,
				"--name", "eeprom_read",
				"--input", filepath.Join(testdata, "i2c_capture.txt")},
			wantContain: []string{"match (11 elements)"},
		},
		{
			name: "i2c mismatch reports the differing element",
			args: []string{"verify", "i2c",
				"--seq", seqDir,
				"--name", "eeprom_read_wrong_value",
				"--input", filepath.Join(testdata, "i2c_capture.txt")},
			wantErr:     true,
			wantContain: []string{"index 8: expected 0x43, got 0x42"},
		},
		{
			name: "spi match from single file",
			args: []string{"verify", "spi",
				"--seq", filepath.Join(seqDir, "spi.seq"),
				"--name", "standard_word",
				"--input", filepath.Join(testdata, "spi_nocs_capture.txt")},
			wantContain: []string{"match (1 elements)"},
		},
		{
			name: "spi length mismatch with chip select framing",
			args: []string{"verify", "spi",
				"--seq", filepath.Join(seqDir, "spi.seq"),
				"--name", "standard_word",
				"--input", filepath.Join(testdata, "spi_capture.txt"), "--cs"},
			wantErr:     true,
			wantContain: []string{"length mismatch: expected 1 elements, got 2"},
		},
		{
			name: "unknown sequence name",
			args: []string{"verify", "i2c",
				"--seq", seqDir,
				"--name", "no_such_sequence",
				"--input", filepath.Join(testdata, "i2c_capture.txt")},
			wantErr: true,
		},
		{
			name: "protocol mismatch",
			args: []string{"verify", "spi",
				"--seq", seqDir,
				"--name", "eeprom_read",
				"--input", filepath.Join(testdata, "spi_capture.txt")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			output, err := runCommand(t, tt.args)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none\nOutput: %s", output)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v\nOutput: %s", err, output)
				return
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

// TestResultsE2E tests results import followed by report
func TestResultsE2E(t *testing.T) {
	testdata := "../testdata"
	db := filepath.Join(t.TempDir(), "results.db")

	resetFlags()
	output, err := runCommand(t, []string{"results", "import",
		"--db", db,
		"--log", filepath.Join(testdata, "run.log"),
		"--suite", "i2c",
		"--target", "DISCO_L475VG_IOT01A"})
	if err != nil {
		t.Fatalf("import: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "imported run 1: 2 case(s)") {
		t.Errorf("import output unexpected:\n%s", output)
	}

	resetFlags()
	output, err = runCommand(t, []string{"results", "report", "--db", db})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	for _, want := range []string{
		"DISCO_L475VG_IOT01A",
		"write byte",
		"read byte",
		"passed",
		"failed",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("report missing %q\nGot:\n%s", want, output)
		}
	}
}
