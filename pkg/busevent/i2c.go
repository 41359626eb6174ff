// Package busevent defines the typed values reconstructed from a logic
// analyzer capture: I2C bus events, SPI transactions, and raw signal
// measurements. Values are plain data with equality and display contracts;
// they hold no resources and are created fresh per decode.
package busevent

import (
	"fmt"
	"strings"
)

// EventType identifies one kind of I2C bus event.
type EventType int

const (
	EventUnknown EventType = iota
	EventStart
	EventRepeatedStart
	EventWriteToAddr
	EventReadFromAddr
	EventDataByte
	EventAck
	EventNack
	EventStop
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "START"
	case EventRepeatedStart:
		return "REPEATED_START"
	case EventWriteToAddr:
		return "WRITE_TO_ADDR"
	case EventReadFromAddr:
		return "READ_FROM_ADDR"
	case EventDataByte:
		return "DATA_BYTE"
	case EventAck:
		return "ACK"
	case EventNack:
		return "NACK"
	case EventStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// Event is one decoded I2C bus event. Value carries the 8-bit payload for
// the address and data variants and is zero otherwise, so events compare
// directly with ==.
type Event struct {
	Type EventType

	// Value is the unshifted 8-bit address for WriteToAddr/ReadFromAddr
	// and the data byte for DataByte.
	Value uint8
}

// Start returns an I2C start condition event.
func Start() Event { return Event{Type: EventStart} }

// RepeatedStart returns an I2C repeated start condition event.
func RepeatedStart() Event { return Event{Type: EventRepeatedStart} }

// WriteToAddr returns a write to the given 8-bit (unshifted) address.
func WriteToAddr(addr uint8) Event { return Event{Type: EventWriteToAddr, Value: addr} }

// ReadFromAddr returns a read from the given 8-bit (unshifted) address.
func ReadFromAddr(addr uint8) Event { return Event{Type: EventReadFromAddr, Value: addr} }

// DataByte returns a data byte seen on the bus.
func DataByte(value uint8) Event { return Event{Type: EventDataByte, Value: value} }

// Ack returns an acknowledge event.
func Ack() Event { return Event{Type: EventAck} }

// Nack returns a not-acknowledge event.
func Nack() Event { return Event{Type: EventNack} }

// Stop returns an I2C stop condition event.
func Stop() Event { return Event{Type: EventStop} }

// String renders the event in the rig's trace notation, e.g. "Start",
// "Wr[0xa0]", "Rd[0xa1]", "0x42", "Ack", "Nack", "Stop".
func (e Event) String() string {
	switch e.Type {
	case EventStart:
		return "Start"
	case EventRepeatedStart:
		return "RepeatedStart"
	case EventWriteToAddr:
		return fmt.Sprintf("Wr[0x%02x]", e.Value)
	case EventReadFromAddr:
		return fmt.Sprintf("Rd[0x%02x]", e.Value)
	case EventDataByte:
		return fmt.Sprintf("0x%02x", e.Value)
	case EventAck:
		return "Ack"
	case EventNack:
		return "Nack"
	case EventStop:
		return "Stop"
	default:
		return fmt.Sprintf("Event(%d)", int(e.Type))
	}
}

// FormatEvents renders a trace as a single space-separated line.
func FormatEvents(events []Event) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

// FormatTransactions renders a trace with one line per transaction: a line
// break is inserted before each Start or RepeatedStart after the first
// event, so multi-transaction captures stay readable in test logs.
func FormatTransactions(events []Event) string {
	var b strings.Builder
	for i, e := range events {
		if i > 0 {
			if e.Type == EventStart || e.Type == EventRepeatedStart {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(e.String())
	}
	return b.String()
}
