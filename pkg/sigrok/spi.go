package sigrok

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/busevent"
)

// spiByteListRE matches one annotation line carrying a list of
// space-separated uppercase hex bytes, e.g. "spi-1: 01 02 04 08".
var spiByteListRE = regexp.MustCompile(`^spi-1: ([0-9A-F]{2}(?: [0-9A-F]{2})*)\s*$`)

// SPIDecodeOptions selects the framing mode for DecodeSPI.
type SPIDecodeOptions struct {
	// ChipSelect is true when the recording used a CS channel, in which
	// case the tool emits one transfer per pair of lines. Without it the
	// tool emits one byte per line for the whole window.
	ChipSelect bool

	// MOSIFirst flips the line order assumed within each CS-mode pair
	// (and the byte alternation in no-CS mode). The tool's observed
	// behavior is MISO first; that ordering is undocumented upstream and
	// was established against real hardware, so it is kept overridable.
	MOSIFirst bool
}

// DecodeSPI reconstructs SPI transactions from the capture tool's
// annotation lines. In CS mode each consecutive pair of byte-list lines
// becomes one transaction; a trailing unpaired line is dropped. In no-CS
// mode all bytes alternate between the two data lines and the whole
// window becomes a single transaction (empty input gives an empty one).
// Unparsable lines are returned as warnings and do not consume a pairing
// slot. The error return is the ShapeError case: a CS-mode pair whose
// two lines carry different byte counts.
func DecodeSPI(lines []string, opts SPIDecodeOptions) ([]busevent.SPITransaction, []string, error) {
	if opts.ChipSelect {
		return decodeSPIFramed(lines, opts.MOSIFirst)
	}
	return decodeSPIUnframed(lines, opts.MOSIFirst)
}

func decodeSPIFramed(lines []string, mosiFirst bool) ([]busevent.SPITransaction, []string, error) {
	txns := []busevent.SPITransaction{}
	var warnings []string

	// Byte list from the first line of the current pair, nil between pairs.
	var pending []byte

	for _, line := range lines {
		if line == "" {
			continue
		}
		values, ok := parseSPIByteList(line)
		if !ok {
			warnings = append(warnings, "unparsed capture output: '"+line+"'")
			continue
		}
		if pending == nil {
			pending = values
			continue
		}

		mosi, miso := pending, values
		if !mosiFirst {
			mosi, miso = values, pending
		}
		txn, err := busevent.NewSPITransaction(mosi, miso)
		if err != nil {
			return nil, warnings, err
		}
		txns = append(txns, txn)
		pending = nil
	}

	// An unpaired line at end of input has no partner transfer; drop it.
	return txns, warnings, nil
}

func decodeSPIUnframed(lines []string, mosiFirst bool) ([]busevent.SPITransaction, []string, error) {
	var first, second []byte
	var warnings []string

	nextIsFirst := true
	for _, line := range lines {
		if line == "" {
			continue
		}
		values, ok := parseSPIByteList(line)
		if !ok || len(values) != 1 {
			warnings = append(warnings, "unparsed capture output: '"+line+"'")
			continue
		}
		if nextIsFirst {
			first = append(first, values[0])
		} else {
			second = append(second, values[0])
		}
		nextIsFirst = !nextIsFirst
	}

	// An odd byte count leaves the leading line one ahead; trim it so the
	// two sides stay paired 1:1.
	if len(first) > len(second) {
		first = first[:len(second)]
	}

	mosi, miso := second, first
	if mosiFirst {
		mosi, miso = first, second
	}
	txn, err := busevent.NewSPITransaction(mosi, miso)
	if err != nil {
		return nil, warnings, err
	}
	return []busevent.SPITransaction{txn}, warnings, nil
}

func parseSPIByteList(line string) ([]byte, bool) {
	m := spiByteListRE.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	fields := strings.Fields(m[1])
	values := make([]byte, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, false
		}
		values[i] = byte(v)
	}
	return values, true
}
