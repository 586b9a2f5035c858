// File: internal/agent/interfaces.go
package agent

import (
	"context"

	"github.com/xkilldash9x/droidpilot/internal/action"
	"github.com/xkilldash9x/droidpilot/internal/oracle"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// Sensor captures the current state of the device.
type Sensor interface {
	Capture(ctx context.Context) (*screen.Observation, error)
}

// Oracle decides the next action for a screen.
type Oracle interface {
	Decide(ctx context.Context, req oracle.Request) (*oracle.Decision, error)
}

// Actuator sends a validated command to the device.
type Actuator interface {
	Execute(ctx context.Context, cmd action.Command) error
}

// Sink receives the finalized run record. It is called exactly once per run.
type Sink interface {
	Emit(ctx context.Context, rec *RunRecord) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, rec *RunRecord) error

func (f SinkFunc) Emit(ctx context.Context, rec *RunRecord) error { return f(ctx, rec) }
