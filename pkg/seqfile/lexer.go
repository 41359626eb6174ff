package seqfile

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// seqLexer defines the lexical structure of .seq files. Bare two-digit
// hex bytes (SPI data lists) must be tried before identifiers, and the
// trailing boundary keeps directive words like "ack" from being split
// into a byte plus a remainder.
var seqLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},

	// 0x-prefixed values used by the i2c directives (write 0xa0).
	{Name: "Hex", Pattern: `0x[0-9a-fA-F]+`},

	// Bare bytes used by the spi data lists (mosi 01 02 04 08).
	{Name: "Byte", Pattern: `[0-9a-fA-F]{2}\b`},

	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
})
