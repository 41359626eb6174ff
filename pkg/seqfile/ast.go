// Package seqfile parses expected-sequence files: a small DSL naming the
// bus traffic a test expects to observe, so expected traces live next to
// the test suites instead of being hardcoded in the harness.
//
//	i2c sequence correct_addr_only {
//	    start
//	    write 0xa0
//	    ack
//	    stop
//	}
//
//	spi sequence standard_word {
//	    mosi 01 02 04 08
//	    miso 01 02 04 08
//	}
package seqfile

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// File is the root of one parsed .seq file.
type File struct {
	Pos       lexer.Position
	Sequences []*Sequence `parser:"@@*"`
}

// Sequence is one named expected sequence, either protocol.
type Sequence struct {
	Pos   lexer.Position
	Proto string  `parser:"@('i2c' | 'spi')"`
	Name  string  `parser:"'sequence' @Ident"`
	Items []*Item `parser:"'{' @@* '}'"`
}

// Item is one directive line inside a sequence body. The i2c directives
// take an optional 0x-prefixed argument; the spi directives take a list
// of bare hex bytes.
type Item struct {
	Pos     lexer.Position
	Keyword string   `parser:"@Ident"`
	Arg     string   `parser:"( @Hex"`
	Bytes   []string `parser:"  | @Byte+ )?"`
}
