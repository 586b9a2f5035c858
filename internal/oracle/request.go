// File: internal/oracle/request.go
package oracle

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/droidpilot/internal/memory"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// Request is everything the oracle sees for one decision.
type Request struct {
	Mission    string
	Screenshot []byte
	ScreenXML  string
	Size       screen.Size

	// Revisit is set when the current screen has prior attempts; Reminder
	// then lists them. Both are zero on a first visit.
	Revisit  bool
	Reminder string
	Prior    []memory.ActionRecord

	// Trail is the bounded, cross-screen list of recent step summaries.
	Trail []string

	Step     int
	MaxSteps int
}

// BuildRequest assembles the oracle input for the current observation.
// history must be the step memory for this observation's identity.
func BuildRequest(mission string, obs *screen.Observation, history []memory.ActionRecord, trail []string) Request {
	req := Request{
		Mission: mission,
		Trail:   append([]string(nil), trail...),
	}
	if obs != nil {
		req.Screenshot = obs.Screenshot
		req.ScreenXML = obs.RawXML
		req.Size = obs.Size
	}
	if len(history) > 0 {
		req.Revisit = true
		req.Prior = append([]memory.ActionRecord(nil), history...)
		req.Reminder = renderReminder(history)
	}
	return req
}

func renderReminder(history []memory.ActionRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "IMPORTANT: revisited screen, %d prior attempts. You have been on this screen before and already tried:\n", len(history))
	for i, rec := range history {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, rec)
		if r := strings.TrimSpace(rec.Reasoning); r != "" {
			fmt.Fprintf(&sb, "   reasoning: %s\n", oneLine(r))
		}
	}
	sb.WriteString("These attempts did not complete the mission. You MUST choose a different action. " +
		"If no other reasonable action remains, go back, or report the mission complete if it truly is.")
	return sb.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
