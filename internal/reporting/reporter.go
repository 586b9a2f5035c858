// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/droidpilot/internal/agent"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatHTML = "html"
	FormatText = "text"
)

// Reporter renders run records to an output.
type Reporter interface {
	// Write renders one finalized run record.
	Write(rec *agent.RunRecord) error
	// Close finalizes the report and closes any underlying file handle.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// NopWriteCloser lets a reporter write to w without closing it.
func NopWriteCloser(w io.Writer) io.WriteCloser {
	return &nopWriteCloser{w}
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	switch format {
	case FormatJSON, FormatHTML, FormatText:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return NewWithWriter(format, writer)
}

// NewWithWriter creates a reporter that takes ownership of writer.
func NewWithWriter(format string, writer io.WriteCloser) (Reporter, error) {
	switch format {
	case FormatJSON:
		return NewJSONReporter(writer), nil
	case FormatHTML:
		return NewHTMLReporter(writer), nil
	case FormatText:
		return NewTextReporter(writer), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	if format == FormatText {
		return "txt"
	}
	return format
}
