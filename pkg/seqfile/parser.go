package seqfile

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
)

// Parser parses expected-sequence files.
type Parser struct {
	parser *participle.Parser[File]
}

// NewParser creates a sequence file parser instance.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[File](
		participle.Lexer(seqLexer),
		participle.Elide("Comment", "Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("seqfile: building parser: %w", err)
	}
	return &Parser{parser: parser}, nil
}

// Parse parses a sequence file from a reader.
func (p *Parser) Parse(filename string, r io.Reader) (*File, error) {
	file, err := p.parser.Parse(filename, r)
	if err != nil {
		return nil, fmt.Errorf("seqfile: %w", err)
	}
	return file, nil
}

// ParseString parses a sequence file from a string.
func (p *Parser) ParseString(filename, input string) (*File, error) {
	file, err := p.parser.ParseString(filename, input)
	if err != nil {
		return nil, fmt.Errorf("seqfile: %w", err)
	}
	return file, nil
}

// ParseFile parses a sequence file from a file path.
func (p *Parser) ParseFile(filename string) (*File, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("seqfile: %w", err)
	}
	defer f.Close()

	return p.Parse(filename, f)
}
