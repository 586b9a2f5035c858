// File: internal/memory/memory.go
package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xkilldash9x/droidpilot/internal/action"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// ActionRecord is one attempt made from a screen. Immutable once recorded.
type ActionRecord struct {
	Kind      action.Kind       `json:"kind"`
	Params    map[string]string `json:"params,omitempty"`
	Summary   string            `json:"summary"`
	Reasoning string            `json:"reasoning"`
	Outcome   action.Outcome    `json:"outcome"`
}

// String renders the record the way it appears in oracle reminders.
func (r ActionRecord) String() string {
	var sb strings.Builder
	sb.WriteString(string(r.Kind))
	if len(r.Params) > 0 {
		sb.WriteString(" ")
		sb.WriteString(formatParams(r.Params))
	}
	if r.Summary != "" {
		fmt.Fprintf(&sb, " (%s)", r.Summary)
	}
	fmt.Fprintf(&sb, " -> %s", r.Outcome)
	return sb.String()
}

func formatParams(p map[string]string) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + p[k]
	}
	return strings.Join(parts, " ")
}

// StepMemory maps screen identities to the chronological list of attempts
// made on that screen. Entries are appended, never removed. It belongs to a
// single run and is not safe for concurrent use.
type StepMemory struct {
	byScreen map[screen.Identity][]ActionRecord
	total    int
}

// New returns an empty StepMemory.
func New() *StepMemory {
	return &StepMemory{byScreen: make(map[screen.Identity][]ActionRecord)}
}

// Record appends rec to the history of id.
func (m *StepMemory) Record(id screen.Identity, rec ActionRecord) {
	rec.Params = cloneParams(rec.Params)
	m.byScreen[id] = append(m.byScreen[id], rec)
	m.total++
}

// HistoryFor returns a copy of every record for id in the order recorded.
// Unknown identities yield an empty, non-nil slice.
func (m *StepMemory) HistoryFor(id screen.Identity) []ActionRecord {
	recs := m.byScreen[id]
	out := make([]ActionRecord, len(recs))
	for i, r := range recs {
		r.Params = cloneParams(r.Params)
		out[i] = r
	}
	return out
}

// Visits is the number of records stored for id.
func (m *StepMemory) Visits(id screen.Identity) int {
	return len(m.byScreen[id])
}

// Len is the number of distinct screens seen.
func (m *StepMemory) Len() int {
	return len(m.byScreen)
}

// Total is the number of records across all screens.
func (m *StepMemory) Total() int {
	return m.total
}

func cloneParams(p map[string]string) map[string]string {
	if p == nil {
		return nil
	}
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
