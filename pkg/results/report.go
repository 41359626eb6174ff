package results

import (
	"fmt"
	"html/template"
	"io"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>OpenTraceBench Test Report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 0.3em 0.8em; text-align: left; }
.passed { color: #070; }
.failed { color: #a00; font-weight: bold; }
.skipped { color: #850; }
.not_run { color: #666; }
details { margin: 0.2em 0; }
pre { background: #f4f4f4; padding: 0.5em; overflow-x: auto; }
</style>
</head>
<body>
<h1>Test Report</h1>
{{range .}}
<h2>{{.Suite}} on {{.Target}}</h2>
<p>Imported {{.ImportedAt}} &mdash;
<span class="passed">{{.Passed}} passed</span>,
<span class="failed">{{.Failed}} failed</span>,
<span class="skipped">{{.Skipped}} skipped</span>,
<span class="not_run">{{.NotRun}} not run</span>
of {{.Total}} cases.</p>
<table>
<tr><th>#</th><th>Test case</th><th>Result</th></tr>
{{range .Cases}}
<tr>
<td>{{.Index}}</td>
<td>
{{if .Output}}<details><summary>{{.Name}}</summary><pre>{{.Output}}</pre></details>{{else}}{{.Name}}{{end}}
</td>
<td class="{{.Result}}">{{.Result}}</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))

// WriteReport renders the HTML report for the given runs.
func WriteReport(w io.Writer, summaries []SuiteSummary) error {
	if err := reportTemplate.Execute(w, summaries); err != nil {
		return fmt.Errorf("results: rendering report: %w", err)
	}
	return nil
}

// Report renders the HTML report for everything in the store.
func (s *Store) Report(w io.Writer) error {
	summaries, err := s.Summaries()
	if err != nil {
		return err
	}
	return WriteReport(w, summaries)
}
