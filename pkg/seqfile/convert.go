package seqfile

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/busevent"
)

// Events converts an i2c sequence into bus events, in directive order.
func (s *Sequence) Events() ([]busevent.Event, error) {
	if s.Proto != "i2c" {
		return nil, fmt.Errorf("seqfile: sequence %q is %s, not i2c", s.Name, s.Proto)
	}

	var events []busevent.Event
	for _, item := range s.Items {
		ev, err := item.event()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (it *Item) event() (busevent.Event, error) {
	bare := func(ev busevent.Event) (busevent.Event, error) {
		if it.Arg != "" || len(it.Bytes) > 0 {
			return busevent.Event{}, fmt.Errorf("seqfile: %s: %s takes no argument", it.Pos, it.Keyword)
		}
		return ev, nil
	}
	withArg := func(make func(uint8) busevent.Event) (busevent.Event, error) {
		if it.Arg == "" {
			return busevent.Event{}, fmt.Errorf("seqfile: %s: %s requires a 0x-prefixed byte", it.Pos, it.Keyword)
		}
		v, err := parseHexByte(it.Arg, it.Pos)
		if err != nil {
			return busevent.Event{}, err
		}
		return make(v), nil
	}

	switch it.Keyword {
	case "start":
		return bare(busevent.Start())
	case "repeated_start":
		return bare(busevent.RepeatedStart())
	case "write":
		return withArg(busevent.WriteToAddr)
	case "read":
		return withArg(busevent.ReadFromAddr)
	case "data":
		return withArg(busevent.DataByte)
	case "ack":
		return bare(busevent.Ack())
	case "nack":
		return bare(busevent.Nack())
	case "stop":
		return bare(busevent.Stop())
	default:
		return busevent.Event{}, fmt.Errorf("seqfile: %s: unknown i2c directive %q", it.Pos, it.Keyword)
	}
}

// Transaction converts an spi sequence into a transaction. The body must
// hold exactly one mosi and one miso directive, carrying equally many
// bytes.
func (s *Sequence) Transaction() (busevent.SPITransaction, error) {
	if s.Proto != "spi" {
		return busevent.SPITransaction{}, fmt.Errorf("seqfile: sequence %q is %s, not spi", s.Name, s.Proto)
	}

	var mosi, miso []byte
	seen := map[string]bool{}
	for _, item := range s.Items {
		if item.Keyword != "mosi" && item.Keyword != "miso" {
			return busevent.SPITransaction{}, fmt.Errorf("seqfile: %s: unknown spi directive %q", item.Pos, item.Keyword)
		}
		if seen[item.Keyword] {
			return busevent.SPITransaction{}, fmt.Errorf("seqfile: %s: duplicate %s directive", item.Pos, item.Keyword)
		}
		seen[item.Keyword] = true

		data := make([]byte, len(item.Bytes))
		for i, b := range item.Bytes {
			v, err := parseHexByte(b, item.Pos)
			if err != nil {
				return busevent.SPITransaction{}, err
			}
			data[i] = v
		}
		if item.Keyword == "mosi" {
			mosi = data
		} else {
			miso = data
		}
	}
	if !seen["mosi"] || !seen["miso"] {
		return busevent.SPITransaction{}, fmt.Errorf("seqfile: %s: spi sequence %q needs both mosi and miso", s.Pos, s.Name)
	}

	txn, err := busevent.NewSPITransaction(mosi, miso)
	if err != nil {
		return busevent.SPITransaction{}, fmt.Errorf("seqfile: %s: %w", s.Pos, err)
	}
	return txn, nil
}

func parseHexByte(s string, pos lexer.Position) (uint8, error) {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("seqfile: %s: byte value %q out of range", pos, s)
	}
	return uint8(v), nil
}
