package busevent

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrShapeMismatch reports an attempt to build an SPI transaction whose
// MOSI and MISO sides have different lengths. SPI shifts both directions
// on the same clock, so a well-formed capture always pairs them 1:1.
var ErrShapeMismatch = errors.New("busevent: mosi and miso lengths differ")

// SPITransaction is one chip-select-bounded byte exchange, or the whole
// capture window when no chip select line was recorded. MOSI and MISO
// always have equal length.
type SPITransaction struct {
	MOSI []byte
	MISO []byte
}

// NewSPITransaction builds a transaction from the two data lines,
// returning ErrShapeMismatch when the lengths differ. The slices are
// copied so later decoder reuse cannot alias into the result.
func NewSPITransaction(mosi, miso []byte) (SPITransaction, error) {
	if len(mosi) != len(miso) {
		return SPITransaction{}, fmt.Errorf("%w (mosi %d, miso %d)", ErrShapeMismatch, len(mosi), len(miso))
	}
	return SPITransaction{
		MOSI: append([]byte(nil), mosi...),
		MISO: append([]byte(nil), miso...),
	}, nil
}

// Equal reports byte-wise equality of both data lines.
func (t SPITransaction) Equal(other SPITransaction) bool {
	return bytes.Equal(t.MOSI, other.MOSI) && bytes.Equal(t.MISO, other.MISO)
}

// Len returns the number of byte pairs exchanged.
func (t SPITransaction) Len() int { return len(t.MOSI) }

// String renders the transaction as "[mosi: 01020408, miso: 01020408]".
func (t SPITransaction) String() string {
	return fmt.Sprintf("[mosi: %s, miso: %s]", hex.EncodeToString(t.MOSI), hex.EncodeToString(t.MISO))
}

// FormatSPITransactions renders a transaction list one per line.
func FormatSPITransactions(txns []SPITransaction) string {
	var b bytes.Buffer
	for i, txn := range txns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(txn.String())
	}
	return b.String()
}
