// Package results archives test outcomes: it parses harness run logs
// into per-case records, stores them in a SQLite database, and renders
// an HTML report. It sits outside the decode/verify core and only
// consumes its outputs.
package results

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/harness"
)

// CaseResult is the outcome of one test case.
type CaseResult string

const (
	CasePassed  CaseResult = "passed"
	CaseFailed  CaseResult = "failed"
	CaseSkipped CaseResult = "skipped"
	CaseNotRun  CaseResult = "not_run"
)

// skipMarker appears in a case's output when the DUT skipped it.
const skipMarker = "::SKIP"

// CaseRecord is one parsed test case from a run log.
type CaseRecord struct {
	Name   string
	Index  int
	Result CaseResult
	Output string
}

// ParseRunLog extracts per-case records from a harness run log. The DUT
// announces its case list up front with __testcase_name tokens (repeated
// when the test resets, so duplicates are dropped) and brackets each
// executed case with __testcase_start / __testcase_finish. Announced
// cases that never ran (e.g. after a crash) come back as not_run.
func ParseRunLog(r io.Reader) ([]CaseRecord, error) {
	var order []string
	seen := map[string]bool{}
	finished := map[string]CaseRecord{}

	var current string
	var output strings.Builder

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		lifecycle := false
		for _, kv := range harness.ParseKVs(line) {
			switch kv.Key {
			case harness.KeyTestcaseName:
				lifecycle = true
				if !seen[kv.Value] {
					seen[kv.Value] = true
					order = append(order, kv.Value)
				}
			case harness.KeyTestcaseStart:
				lifecycle = true
				current = kv.Value
				output.Reset()
			case harness.KeyTestcaseFinish:
				lifecycle = true
				name, passes, failures, err := parseFinish(kv.Value)
				if err != nil {
					return nil, err
				}
				if name != current {
					// A finish without a matching start; record it anyway.
					current = name
				}
				finished[name] = CaseRecord{
					Name:   name,
					Result: finishResult(output.String(), passes, failures),
					Output: output.String(),
				}
				current = ""
				output.Reset()
			}
		}

		// Lifecycle lines frame a case; only the payload between them
		// belongs to its output.
		if current != "" && !lifecycle {
			output.WriteString(line)
			output.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("results: reading run log: %w", err)
	}

	// Logs from non-standard tests have no case list; take the finished
	// cases in the order they completed.
	if len(order) == 0 {
		for name := range finished {
			order = append(order, name)
		}
	}

	records := make([]CaseRecord, 0, len(order))
	for i, name := range order {
		rec, ok := finished[name]
		if !ok {
			rec = CaseRecord{Name: name, Result: CaseNotRun}
		}
		rec.Index = i
		records = append(records, rec)
	}
	return records, nil
}

// parseFinish splits a finish token value "name;passes;failures".
func parseFinish(value string) (name string, passes, failures int, err error) {
	parts := strings.Split(value, ";")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("results: malformed finish record %q", value)
	}
	passes, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("results: malformed finish record %q", value)
	}
	failures, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, fmt.Errorf("results: malformed finish record %q", value)
	}
	return parts[0], passes, failures, nil
}

func finishResult(output string, passes, failures int) CaseResult {
	if strings.Contains(output, skipMarker) {
		return CaseSkipped
	}
	if failures == 0 && passes > 0 {
		return CasePassed
	}
	return CaseFailed
}
