// File: internal/agent/models.go
package agent

import (
	"time"

	"github.com/xkilldash9x/droidpilot/internal/action"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusMissionComplete Status = "MISSION_COMPLETE"
	StatusMaxStepsReached Status = "MAX_STEPS_REACHED"
	StatusFatalError      Status = "FATAL_ERROR"
)

// StepAction describes what the oracle proposed and what was sent to the device.
type StepAction struct {
	Kind    action.Kind       `json:"kind"`
	Params  map[string]string `json:"params,omitempty"`
	Summary string            `json:"summary,omitempty"`
	// Command is the device command, empty unless the action was validated.
	Command string `json:"command,omitempty"`
}

// Step is one perceive-decide-act iteration.
type Step struct {
	Index          int             `json:"index"`
	ScreenID       screen.Identity `json:"screen_id"`
	ScreenshotPath string          `json:"screenshot_path,omitempty"`
	Action         StepAction      `json:"action"`
	Reflection     string          `json:"reflection,omitempty"`
	Reasoning      string          `json:"reasoning,omitempty"`
	State          action.State    `json:"state,omitempty"`
	Outcome        action.Outcome  `json:"outcome"`
	StartedAt      time.Time       `json:"started_at"`
	Duration       time.Duration   `json:"duration_ns"`
}

// RunRecord is the audit trail of a run. It is finalized once and not
// modified afterwards.
type RunRecord struct {
	ID         string    `json:"id"`
	Mission    string    `json:"mission"`
	MaxSteps   int       `json:"max_steps"`
	Steps      []Step    `json:"steps"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Stats summarizes a run for logs and reports.
type Stats struct {
	Steps    int
	Executed int
	Rejected int
	Failed   int
	Screens  int
	Elapsed  time.Duration
}

// Stats computes per-outcome counts over the recorded steps.
func (r *RunRecord) Stats() Stats {
	s := Stats{Steps: len(r.Steps)}
	seen := make(map[screen.Identity]struct{}, len(r.Steps))
	for _, st := range r.Steps {
		seen[st.ScreenID] = struct{}{}
		switch st.Outcome.Status {
		case action.OutcomeSuccess:
			s.Executed++
		case action.OutcomeRejected:
			s.Rejected++
		case action.OutcomeFailed:
			s.Failed++
		}
	}
	s.Screens = len(seen)
	if !r.FinishedAt.IsZero() {
		s.Elapsed = r.FinishedAt.Sub(r.StartedAt)
	}
	return s
}

// Terminal reports whether the record has been finalized.
func (r *RunRecord) Terminal() bool {
	return r.Status != ""
}
