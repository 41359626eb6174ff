package sigrok

import (
	"regexp"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/busevent"
)

// i2cRule maps one annotation pattern to an event constructor. Rules are
// tried in order and the first match wins, so overlapping patterns must
// be listed most-specific first.
type i2cRule struct {
	re   *regexp.Regexp
	make func(payload uint8) busevent.Event
}

// i2cRules is the priority-ordered token table for the i2c decoder's
// annotation stream. Ordering invariant: the repeated-start rule must
// precede the start rule, because "i2c-1: Start repeat" also matches the
// start pattern.
var i2cRules = []i2cRule{
	{regexp.MustCompile(`^i2c-1: Start repeat`), func(uint8) busevent.Event { return busevent.RepeatedStart() }},
	{regexp.MustCompile(`^i2c-1: Start`), func(uint8) busevent.Event { return busevent.Start() }},
	{regexp.MustCompile(`^i2c-1: Address write: ([0-9a-fA-F]{2})`), busevent.WriteToAddr},
	{regexp.MustCompile(`^i2c-1: Address read: ([0-9a-fA-F]{2})`), busevent.ReadFromAddr},
	// Matches "Data read" and "Data write"; the direction word carries no
	// information beyond what the address events already established.
	{regexp.MustCompile(`^i2c-1: Data [^ ]+: ([0-9a-fA-F]{2})`), busevent.DataByte},
	{regexp.MustCompile(`^i2c-1: ACK`), func(uint8) busevent.Event { return busevent.Ack() }},
	{regexp.MustCompile(`^i2c-1: NACK`), func(uint8) busevent.Event { return busevent.Nack() }},
	{regexp.MustCompile(`^i2c-1: Stop`), func(uint8) busevent.Event { return busevent.Stop() }},
}

// DecodeI2C classifies each annotation line into at most one bus event.
// Event order matches line order. Bare "Read"/"Write" header lines and
// blank lines carry no event and are skipped; any other unrecognized
// line is returned as a warning and decoding continues. Malformed event
// sequences are passed through as-is; only verification flags them.
func DecodeI2C(lines []string) ([]busevent.Event, []string) {
	var events []busevent.Event
	var warnings []string

	for _, line := range lines {
		if ev, ok := decodeI2CLine(line); ok {
			events = append(events, ev)
			continue
		}
		if line == "i2c-1: Read" || line == "i2c-1: Write" || line == "" {
			continue
		}
		warnings = append(warnings, "unparsed capture output: '"+line+"'")
	}

	return events, warnings
}

func decodeI2CLine(line string) (busevent.Event, bool) {
	for _, rule := range i2cRules {
		m := rule.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		var payload uint8
		if len(m) > 1 {
			// The capture group is always exactly two hex digits, so
			// this parse cannot fail once the pattern matched.
			v, err := strconv.ParseUint(m[1], 16, 8)
			if err != nil {
				return busevent.Event{}, false
			}
			payload = uint8(v)
		}
		return rule.make(payload), true
	}
	return busevent.Event{}, false
}
