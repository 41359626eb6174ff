package seqfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/busevent"
)

func mustParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	return p
}

func TestParseI2CSequence(t *testing.T) {
	input := `
# write to EEPROM address, then stop
i2c sequence correct_addr_only {
    start
    write 0xa0
    ack
    stop
}
`
	file, err := mustParser(t).ParseString("test.seq", input)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if len(file.Sequences) != 1 {
		t.Fatalf("got %d sequences, want 1", len(file.Sequences))
	}
	seq := file.Sequences[0]
	if seq.Proto != "i2c" || seq.Name != "correct_addr_only" {
		t.Errorf("header = %s %s", seq.Proto, seq.Name)
	}

	events, err := seq.Events()
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	want := []busevent.Event{
		busevent.Start(), busevent.WriteToAddr(0xA0), busevent.Ack(), busevent.Stop(),
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestParseI2CAllDirectives(t *testing.T) {
	input := `
i2c sequence read_2_from_0x1 {
    start
    write 0xa0
    ack
    data 0x00
    ack
    data 0x01
    ack
    repeated_start
    read 0xa1
    ack
    data 0x02
    nack
    stop
}
`
	file, err := mustParser(t).ParseString("test.seq", input)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	events, err := file.Sequences[0].Events()
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	want := []busevent.Event{
		busevent.Start(), busevent.WriteToAddr(0xA0), busevent.Ack(),
		busevent.DataByte(0x00), busevent.Ack(),
		busevent.DataByte(0x01), busevent.Ack(),
		busevent.RepeatedStart(), busevent.ReadFromAddr(0xA1), busevent.Ack(),
		busevent.DataByte(0x02), busevent.Nack(), busevent.Stop(),
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSPISequence(t *testing.T) {
	input := `
spi sequence standard_word {
    mosi 01 02 04 08
    miso 01 02 04 08
}
`
	file, err := mustParser(t).ParseString("test.seq", input)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	txn, err := file.Sequences[0].Transaction()
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	want := busevent.SPITransaction{
		MOSI: []byte{0x01, 0x02, 0x04, 0x08},
		MISO: []byte{0x01, 0x02, 0x04, 0x08},
	}
	if !txn.Equal(want) {
		t.Errorf("transaction = %v, want %v", txn, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown i2c directive", "i2c sequence s { flush }"},
		{"missing write argument", "i2c sequence s { write }"},
		{"argument on bare directive", "i2c sequence s { ack 0x01 }"},
		{"byte out of range", "i2c sequence s { write 0x1ff }"},
		{"unknown spi directive", "spi sequence s { mosi 01 miso 01 clk 01 }"},
		{"spi missing miso", "spi sequence s { mosi 01 02 }"},
		{"spi shape mismatch", "spi sequence s { mosi 01 02 miso 01 }"},
		{"spi duplicate mosi", "spi sequence s { mosi 01 mosi 02 miso 01 }"},
		{"wrong proto keyword", "uart sequence s { }"},
	}

	p := mustParser(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := p.ParseString("test.seq", tt.input)
			if err != nil {
				return // rejected by the grammar, fine
			}
			for _, seq := range file.Sequences {
				var convErr error
				if seq.Proto == "spi" {
					_, convErr = seq.Transaction()
				} else {
					_, convErr = seq.Events()
				}
				if convErr != nil {
					return
				}
			}
			t.Errorf("input %q was accepted, want an error", tt.input)
		})
	}
}

func TestProtoMismatch(t *testing.T) {
	file, err := mustParser(t).ParseString("test.seq", "i2c sequence s { stop }")
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if _, err := file.Sequences[0].Transaction(); err == nil {
		t.Error("Transaction() on an i2c sequence succeeded, want error")
	}
}

func TestRepositoryLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeFile("eeprom.seq", `
i2c sequence correct_addr_only {
    start
    write 0xa0
    ack
    stop
}
i2c sequence incorrect_addr_only_write {
    start
    write 0x20
    nack
    stop
}
`)
	writeFile("spi.seq", `
spi sequence standard_word {
    mosi 01 02 04 08
    miso 01 02 04 08
}
`)
	writeFile("notes.txt", "not a sequence file")

	repo, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	wantNames := []string{"correct_addr_only", "incorrect_addr_only_write", "standard_word"}
	if diff := cmp.Diff(wantNames, repo.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}

	seq, ok := repo.Lookup("incorrect_addr_only_write")
	if !ok {
		t.Fatal("Lookup failed")
	}
	events, err := seq.Events()
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 4 || events[1] != busevent.WriteToAddr(0x20) {
		t.Errorf("events = %v", events)
	}

	if _, ok := repo.Lookup("missing"); ok {
		t.Error("Lookup of unknown name succeeded")
	}
}

func TestRepositoryDuplicateName(t *testing.T) {
	dir := t.TempDir()
	content := "i2c sequence dup { stop }\n"
	for _, name := range []string{"a.seq", "b.seq"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	_, err := LoadDir(dir)
	if err == nil || !strings.Contains(err.Error(), "dup") {
		t.Errorf("err = %v, want duplicate-name error", err)
	}
}
