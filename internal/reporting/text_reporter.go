// internal/reporting/text_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xkilldash9x/droidpilot/internal/agent"
)

// TextReporter prints a short human-readable run summary.
type TextReporter struct {
	writer io.WriteCloser
}

func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

func (r *TextReporter) Write(rec *agent.RunRecord) error {
	if rec == nil {
		return fmt.Errorf("cannot write a nil run record")
	}
	stats := rec.Stats()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Mission: %s\n", rec.Mission)
	fmt.Fprintf(&sb, "Status:  %s\n", rec.Status)
	if rec.Error != "" {
		fmt.Fprintf(&sb, "Error:   %s\n", rec.Error)
	}
	fmt.Fprintf(&sb, "Steps:   %d/%d (%d screens, %d rejected, %d failed) in %s\n",
		stats.Steps, rec.MaxSteps, stats.Screens, stats.Rejected, stats.Failed, stats.Elapsed.Round(time.Millisecond))
	for _, s := range rec.Steps {
		fmt.Fprintf(&sb, "  %2d. [%s] %s -> %s\n", s.Index, s.ScreenID.Short(), s.Action.Summary, s.Outcome)
	}

	if _, err := io.WriteString(r.writer, sb.String()); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}

func (r *TextReporter) Close() error {
	return r.writer.Close()
}
