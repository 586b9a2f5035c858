// internal/reporting/html_reporter.go
package reporting

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/xkilldash9x/droidpilot/internal/agent"
)

// readFile is swapped in tests.
var readFile = os.ReadFile

// HTMLReporter renders a self-contained HTML page per run, one card per step
// with the screenshot inlined.
type HTMLReporter struct {
	writer io.WriteCloser
	policy *bluemonday.Policy
}

func NewHTMLReporter(writer io.WriteCloser) *HTMLReporter {
	return &HTMLReporter{writer: writer, policy: bluemonday.StrictPolicy()}
}

// stepView is the template-friendly projection of a Step.
type stepView struct {
	Index      int
	Screen     string
	Screenshot template.URL
	Action     string
	Command    string
	State      string
	Outcome    string
	OK         bool
	Reflection template.HTML
	Reasoning  template.HTML
	Duration   string
}

type reportView struct {
	ID       string
	Mission  template.HTML
	Status   string
	Error    string
	Started  string
	Elapsed  string
	MaxSteps int
	Stats    agent.Stats
	Steps    []stepView
}

var reportHTMLTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en"><head><meta charset="UTF-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>droidpilot run {{.ID}}</title>
<style>
body{font-family:system-ui,sans-serif;max-width:960px;margin:2rem auto;padding:0 1rem;color:#222;background:#fafafa}
h1{font-size:1.4rem;border-bottom:2px solid #e0e0e0;padding-bottom:.5rem}
.summary td{padding:.2rem .8rem .2rem 0}
.step{display:flex;gap:1rem;background:#fff;border:1px solid #e0e0e0;border-radius:6px;padding:1rem;margin-bottom:1rem}
.step img{max-width:220px;border:1px solid #ccc}
.meta{font-size:.8rem;color:#666}
.ok{color:#1a7f37}.bad{color:#cf222e}
.status-MISSION_COMPLETE{color:#1a7f37}.status-MAX_STEPS_REACHED{color:#9a6700}.status-FATAL_ERROR{color:#cf222e}
</style></head><body>
<h1>Mission: {{.Mission}}</h1>
<table class="summary">
<tr><td>Status</td><td class="status-{{.Status}}"><strong>{{.Status}}</strong></td></tr>
{{- if .Error}}
<tr><td>Error</td><td>{{.Error}}</td></tr>
{{- end}}
<tr><td>Run</td><td>{{.ID}}</td></tr>
<tr><td>Started</td><td>{{.Started}}</td></tr>
<tr><td>Steps</td><td>{{.Stats.Steps}} of {{.MaxSteps}} ({{.Stats.Screens}} screens, {{.Stats.Rejected}} rejected, {{.Stats.Failed}} failed) in {{.Elapsed}}</td></tr>
</table>
{{- range .Steps}}
<div class="step">
{{- if .Screenshot}}<img src="{{.Screenshot}}" alt="step {{.Index}} screenshot">{{end}}
<div>
<h2>Step {{.Index}}: {{.Action}}</h2>
<p class="meta">screen {{.Screen}} &middot; {{.State}} &middot; {{.Duration}}{{if .Command}} &middot; <code>{{.Command}}</code>{{end}}</p>
<p class="{{if .OK}}ok{{else}}bad{{end}}">{{.Outcome}}</p>
{{- if .Reflection}}<p><strong>Reflection:</strong> {{.Reflection}}</p>{{end}}
{{- if .Reasoning}}<p><strong>Thought:</strong> {{.Reasoning}}</p>{{end}}
</div>
</div>
{{- end}}
</body></html>
`))

func (r *HTMLReporter) Write(rec *agent.RunRecord) error {
	if rec == nil {
		return fmt.Errorf("cannot write a nil run record")
	}
	stats := rec.Stats()
	view := reportView{
		ID:       rec.ID,
		Mission:  r.sanitize(rec.Mission),
		Status:   string(rec.Status),
		Error:    rec.Error,
		Started:  rec.StartedAt.Format(time.RFC3339),
		Elapsed:  stats.Elapsed.Round(time.Millisecond).String(),
		MaxSteps: rec.MaxSteps,
		Stats:    stats,
		Steps:    make([]stepView, 0, len(rec.Steps)),
	}
	for _, s := range rec.Steps {
		view.Steps = append(view.Steps, stepView{
			Index:      s.Index,
			Screen:     s.ScreenID.Short(),
			Screenshot: inlineScreenshot(s.ScreenshotPath),
			Action:     s.Action.Summary,
			Command:    s.Action.Command,
			State:      string(s.State),
			Outcome:    s.Outcome.String(),
			OK:         s.Outcome.OK(),
			Reflection: r.sanitize(s.Reflection),
			Reasoning:  r.sanitize(s.Reasoning),
			Duration:   s.Duration.Round(time.Millisecond).String(),
		})
	}

	if err := reportHTMLTmpl.Execute(r.writer, view); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}

func (r *HTMLReporter) Close() error {
	return r.writer.Close()
}

// sanitize strips all markup from model-generated text. The strict policy
// output is already escaped, so it is passed to the template as HTML.
func (r *HTMLReporter) sanitize(s string) template.HTML {
	return template.HTML(r.policy.Sanitize(s))
}

// inlineScreenshot returns a data URI for the PNG at path, or "" when the
// file is missing.
func inlineScreenshot(path string) template.URL {
	if path == "" {
		return ""
	}
	data, err := readFile(path)
	if err != nil || len(data) == 0 {
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(data))
}
