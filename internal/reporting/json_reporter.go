// internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sync"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/droidpilot/internal/agent"
)

var jsonAPI = json.ConfigCompatibleWithStandardLibrary

// JSONReporter writes each run record as an indented JSON document.
// It is thread safe.
type JSONReporter struct {
	writer io.WriteCloser
	mu     sync.Mutex
}

func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: writer}
}

func (r *JSONReporter) Write(rec *agent.RunRecord) error {
	if rec == nil {
		return fmt.Errorf("cannot write a nil run record")
	}
	data, err := jsonAPI.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer.Close()
}
