// Package verify compares an expected event or transaction sequence
// against a decoded one. A mismatch is a normal structured result, never
// an error: hardware behaving unexpectedly is an expected outcome of
// testing.
package verify

import (
	"fmt"
	"strings"
)

// Mismatch records one index where expected and actual differ.
type Mismatch[T any] struct {
	Index    int
	Expected T
	Actual   T
}

// Report is the structured outcome of one sequence comparison.
type Report[T any] struct {
	Match       bool
	ExpectedLen int
	ActualLen   int

	// Mismatches lists every differing index, in order. Empty when the
	// lengths differ: index comparison is skipped entirely in that case.
	Mismatches []Mismatch[T]
}

// LengthMismatch reports whether the comparison failed on length alone.
func (r Report[T]) LengthMismatch() bool {
	return r.ExpectedLen != r.ActualLen
}

// String renders the complete human-readable diff: a summary line plus
// one line per mismatched index.
func (r Report[T]) String() string {
	if r.Match {
		return fmt.Sprintf("match (%d elements)", r.ExpectedLen)
	}
	if r.LengthMismatch() {
		return fmt.Sprintf("length mismatch: expected %d elements, got %d", r.ExpectedLen, r.ActualLen)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d elements differ", len(r.Mismatches), r.ExpectedLen)
	for _, m := range r.Mismatches {
		fmt.Fprintf(&b, "\nindex %d: expected %v, got %v", m.Index, m.Expected, m.Actual)
	}
	return b.String()
}

// Sequences compares two sequences of comparable elements.
func Sequences[T comparable](expected, actual []T) Report[T] {
	return SequencesFunc(expected, actual, func(a, b T) bool { return a == b })
}

// SequencesFunc compares two sequences with a caller-supplied equality
// function, for element types that are not comparable (e.g. transactions
// holding byte slices). If the lengths differ the result is a mismatch
// and no elements are compared. Otherwise every index is checked; the
// comparison never stops at the first difference, so one report carries
// the complete diff.
func SequencesFunc[T any](expected, actual []T, eq func(a, b T) bool) Report[T] {
	r := Report[T]{
		ExpectedLen: len(expected),
		ActualLen:   len(actual),
	}
	if r.LengthMismatch() {
		return r
	}
	for i := range expected {
		if !eq(expected[i], actual[i]) {
			r.Mismatches = append(r.Mismatches, Mismatch[T]{Index: i, Expected: expected[i], Actual: actual[i]})
		}
	}
	r.Match = len(r.Mismatches) == 0
	return r
}
