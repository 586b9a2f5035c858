// File: internal/agent/errors.go
package agent

import (
	"errors"
	"fmt"
)

// ErrMaxStepsReached is returned by Run when the step budget is exhausted
// before the oracle reports completion.
var ErrMaxStepsReached = errors.New("maximum steps reached before mission completion")

// ErrEmptyMission rejects a run before it starts.
var ErrEmptyMission = errors.New("mission must not be empty")

// ErrorCode identifies which collaborator ended a run.
type ErrorCode string

const (
	// -- Collaborator Failures --
	ErrCodeSensor ErrorCode = "SENSOR"
	ErrCodeOracle ErrorCode = "ORACLE"

	// -- Run Lifecycle --
	ErrCodeInterrupted ErrorCode = "INTERRUPTED"
)

// FatalError ends a run with FATAL_ERROR.
type FatalError struct {
	Cause ErrorCode
	Step  int
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal %s failure at step %d: %v", e.Cause, e.Step, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
