package agent

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/droidpilot/internal/action"
	"github.com/xkilldash9x/droidpilot/internal/oracle"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// -- Sensor Mock --

type MockSensor struct {
	mock.Mock
}

func (m *MockSensor) Capture(ctx context.Context) (*screen.Observation, error) {
	args := m.Called(ctx)
	var obs *screen.Observation
	if o := args.Get(0); o != nil {
		obs = o.(*screen.Observation)
	}
	return obs, args.Error(1)
}

// -- Oracle Mock --

// MockOracle records every request it receives so tests can inspect the
// context the loop assembled.
type MockOracle struct {
	mock.Mock
	Requests []oracle.Request
}

func (m *MockOracle) Decide(ctx context.Context, req oracle.Request) (*oracle.Decision, error) {
	m.Requests = append(m.Requests, req)
	args := m.Called(ctx, req)
	var d *oracle.Decision
	if v := args.Get(0); v != nil {
		d = v.(*oracle.Decision)
	}
	return d, args.Error(1)
}

// -- Actuator Mock --

type MockActuator struct {
	mock.Mock
}

func (m *MockActuator) Execute(ctx context.Context, cmd action.Command) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

// -- Sink Mock --

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Emit(ctx context.Context, rec *RunRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
