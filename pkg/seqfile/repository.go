package seqfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Repository holds the named sequences loaded from a directory of .seq
// files, the way test suites reference them.
type Repository struct {
	seqs map[string]*Sequence
}

// LoadDir parses every .seq file in dir and indexes the sequences by
// name. Names must be unique across the whole directory.
func LoadDir(dir string) (*Repository, error) {
	parser, err := NewParser()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("seqfile: reading %s: %w", dir, err)
	}

	repo := &Repository{seqs: make(map[string]*Sequence)}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".seq" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		file, err := parser.ParseFile(path)
		if err != nil {
			return nil, err
		}
		for _, seq := range file.Sequences {
			if prev, ok := repo.seqs[seq.Name]; ok {
				return nil, fmt.Errorf("seqfile: sequence %q defined at both %s and %s", seq.Name, prev.Pos, seq.Pos)
			}
			repo.seqs[seq.Name] = seq
		}
	}
	return repo, nil
}

// Lookup resolves a sequence by name.
func (r *Repository) Lookup(name string) (*Sequence, bool) {
	seq, ok := r.seqs[name]
	return seq, ok
}

// Names returns every sequence name in sorted order.
func (r *Repository) Names() []string {
	names := make([]string, 0, len(r.seqs))
	for name := range r.seqs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
