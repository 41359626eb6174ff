package results

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleRunLog = `{{__version;1.10.0}}
{{__timeout;30}}
{{__testcase_count;3}}
{{__testcase_name;write byte}}
{{__testcase_name;read byte}}
{{__testcase_name;optional feature}}
{{__testcase_start;write byte}}
wrote 0x02 to cell 0x1
{{__testcase_finish;write byte;1;0}}
{{__testcase_start;read byte}}
expected 0x02 but got 0x03
{{__testcase_finish;read byte;0;1}}
{{__testcase_start;optional feature}}
<greentea test suite>:42::SKIP
{{__testcase_finish;optional feature;1;0}}
{{end;failure}}
{{__exit;1}}
`

func TestParseRunLog(t *testing.T) {
	records, err := ParseRunLog(strings.NewReader(sampleRunLog))
	if err != nil {
		t.Fatalf("ParseRunLog: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3: %+v", len(records), records)
	}
	wantResults := []struct {
		name   string
		result CaseResult
	}{
		{"write byte", CasePassed},
		{"read byte", CaseFailed},
		{"optional feature", CaseSkipped},
	}
	for i, want := range wantResults {
		if records[i].Name != want.name || records[i].Result != want.result {
			t.Errorf("record %d = %q/%s, want %q/%s", i, records[i].Name, records[i].Result, want.name, want.result)
		}
		if records[i].Index != i {
			t.Errorf("record %d index = %d", i, records[i].Index)
		}
	}
	if !strings.Contains(records[1].Output, "expected 0x02 but got 0x03") {
		t.Errorf("failed case output missing:\n%s", records[1].Output)
	}
	// Output holds only the payload between the lifecycle tokens, not
	// the tokens themselves.
	for _, rec := range records {
		for _, token := range []string{"__testcase_start", "__testcase_finish"} {
			if strings.Contains(rec.Output, token) {
				t.Errorf("case %q output contains %s line:\n%s", rec.Name, token, rec.Output)
			}
		}
	}
}

// A case announced but never started (e.g. crash in a prior case) comes
// back as not_run.
func TestParseRunLogCrashedCase(t *testing.T) {
	log := `{{__testcase_name;first}}
{{__testcase_name;second}}
{{__testcase_start;first}}
{{__testcase_finish;first;1;0}}
`
	records, err := ParseRunLog(strings.NewReader(log))
	if err != nil {
		t.Fatalf("ParseRunLog: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[1].Result != CaseNotRun {
		t.Errorf("second case = %s, want not_run", records[1].Result)
	}
}

// Tests that reset print the case list multiple times; duplicates are
// dropped while preserving order.
func TestParseRunLogDuplicateCaseList(t *testing.T) {
	log := `{{__testcase_name;a}}
{{__testcase_name;b}}
{{__testcase_name;a}}
{{__testcase_name;b}}
{{__testcase_start;a}}
{{__testcase_finish;a;1;0}}
{{__testcase_start;b}}
{{__testcase_finish;b;1;0}}
`
	records, err := ParseRunLog(strings.NewReader(log))
	if err != nil {
		t.Fatalf("ParseRunLog: %v", err)
	}
	var names []string
	for _, rec := range records {
		names = append(names, rec.Name)
	}
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRunLogMalformedFinish(t *testing.T) {
	log := "{{__testcase_start;x}}\n{{__testcase_finish;x;one;0}}\n"
	if _, err := ParseRunLog(strings.NewReader(log)); err == nil {
		t.Error("malformed finish record accepted, want error")
	}
}

func TestStoreImportAndSummaries(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	records, err := ParseRunLog(strings.NewReader(sampleRunLog))
	if err != nil {
		t.Fatalf("ParseRunLog: %v", err)
	}
	runID, err := store.ImportRun("NUCLEO_H743ZI2", "i2c_basic", records)
	if err != nil {
		t.Fatalf("ImportRun: %v", err)
	}
	if runID == 0 {
		t.Error("runID = 0")
	}

	summaries, err := store.Summaries()
	if err != nil {
		t.Fatalf("Summaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	sum := summaries[0]
	if sum.Suite != "i2c_basic" || sum.Target != "NUCLEO_H743ZI2" {
		t.Errorf("summary header = %q on %q", sum.Suite, sum.Target)
	}
	if sum.Passed != 1 || sum.Failed != 1 || sum.Skipped != 1 || sum.NotRun != 0 {
		t.Errorf("counts = %d/%d/%d/%d, want 1/1/1/0", sum.Passed, sum.Failed, sum.Skipped, sum.NotRun)
	}
	if len(sum.Cases) != 3 {
		t.Errorf("got %d cases, want 3", len(sum.Cases))
	}
}

func TestReportRendering(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	records, err := ParseRunLog(strings.NewReader(sampleRunLog))
	if err != nil {
		t.Fatalf("ParseRunLog: %v", err)
	}
	if _, err := store.ImportRun("NUCLEO_H743ZI2", "i2c_basic", records); err != nil {
		t.Fatalf("ImportRun: %v", err)
	}

	var buf bytes.Buffer
	if err := store.Report(&buf); err != nil {
		t.Fatalf("Report: %v", err)
	}
	html := buf.String()
	for _, want := range []string{
		"i2c_basic on NUCLEO_H743ZI2",
		"1 passed",
		"1 failed",
		"1 skipped",
		"write byte",
		"read byte",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}
