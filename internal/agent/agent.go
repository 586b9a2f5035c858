// File: internal/agent/agent.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/action"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/memory"
	"github.com/xkilldash9x/droidpilot/internal/oracle"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

var uuidNewString = uuid.NewString

// Deps are the collaborators the loop drives. Sensor, Oracle, Actuator and
// Sink are required.
type Deps struct {
	Sensor        Sensor
	Oracle        Oracle
	Actuator      Actuator
	Sink          Sink
	Fingerprinter *screen.Fingerprinter
	Validator     action.Validator
}

// Agent runs missions against a single device, one step at a time.
type Agent struct {
	sensor        Sensor
	oracle        Oracle
	actuator      Actuator
	sink          Sink
	fingerprinter *screen.Fingerprinter
	validator     action.Validator

	maxSteps    int
	settleDelay time.Duration
	lookback    int
	retry       RetryPolicy

	logger *zap.Logger
	now    func() time.Time
}

// runState is everything that lives for exactly one Run.
type runState struct {
	mission string
	memory  *memory.StepMemory
	record  *RunRecord
	trail   []string
}

// New validates deps and cfg and builds an Agent.
func New(deps Deps, cfg config.AgentConfig, logger *zap.Logger) (*Agent, error) {
	switch {
	case deps.Sensor == nil:
		return nil, fmt.Errorf("agent requires a sensor")
	case deps.Oracle == nil:
		return nil, fmt.Errorf("agent requires an oracle")
	case deps.Actuator == nil:
		return nil, fmt.Errorf("agent requires an actuator")
	case deps.Sink == nil:
		return nil, fmt.Errorf("agent requires a sink")
	}
	if cfg.MaxSteps <= 0 {
		return nil, fmt.Errorf("max_steps must be a positive integer, got %d", cfg.MaxSteps)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fp := deps.Fingerprinter
	if fp == nil {
		fp = screen.NewFingerprinter(cfg.VolatilePackages)
	}
	retry := DefaultOracleRetry
	if cfg.Oracle.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Oracle.MaxAttempts
	}

	return &Agent{
		sensor:        deps.Sensor,
		oracle:        deps.Oracle,
		actuator:      deps.Actuator,
		sink:          deps.Sink,
		fingerprinter: fp,
		validator:     deps.Validator,
		maxSteps:      cfg.MaxSteps,
		settleDelay:   cfg.SettleDelay,
		lookback:      cfg.HistoryLookback,
		retry:         retry,
		logger:        logger.Named("agent"),
		now:           time.Now,
	}, nil
}

// Run drives the loop until the oracle reports completion, the step budget
// runs out, or a sensor/oracle failure occurs. The returned record is always
// finalized and has been handed to the sink once. The error is nil on
// MISSION_COMPLETE, wraps ErrMaxStepsReached or a *FatalError otherwise, and
// also carries any sink failure.
func (a *Agent) Run(ctx context.Context, mission string) (*RunRecord, error) {
	mission = strings.TrimSpace(mission)
	if mission == "" {
		return nil, ErrEmptyMission
	}

	st := &runState{
		mission: mission,
		memory:  memory.New(),
		record: &RunRecord{
			ID:        uuidNewString(),
			Mission:   mission,
			MaxSteps:  a.maxSteps,
			Steps:     []Step{},
			StartedAt: a.now(),
		},
	}
	logger := a.logger.With(zap.String("run_id", st.record.ID))
	logger.Info("Starting mission", zap.String("mission", mission), zap.Int("max_steps", a.maxSteps))

	runErr := a.loop(ctx, st, logger)
	return st.record, a.finish(ctx, st, runErr, logger)
}

func (a *Agent) loop(ctx context.Context, st *runState, logger *zap.Logger) error {
	for i := 1; i <= a.maxSteps; i++ {
		done, err := a.step(ctx, st, i, logger.With(zap.Int("step", i)))
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return ErrMaxStepsReached
}

// step runs one iteration. It reports done when the oracle declares the
// mission complete.
func (a *Agent) step(ctx context.Context, st *runState, index int, logger *zap.Logger) (bool, error) {
	started := a.now()

	obs, err := a.sensor.Capture(ctx)
	if err == nil && obs == nil {
		err = errors.New("sensor returned no observation")
	}
	if err != nil {
		return false, &FatalError{Cause: causeFor(ctx, ErrCodeSensor), Step: index, Err: err}
	}
	if obs.ParseErr != nil {
		logger.Warn("UI hierarchy could not be parsed, fingerprinting as empty", zap.Error(obs.ParseErr))
	}

	id := a.fingerprinter.Observation(obs)
	history := st.memory.HistoryFor(id)
	logger.Debug("Screen observed",
		zap.String("screen", id.Short()),
		zap.Int("prior_attempts", len(history)),
		zap.Int("nodes", obs.Hierarchy.Len()))

	req := oracle.BuildRequest(st.mission, obs, history, st.trail)
	req.Step, req.MaxSteps = index, a.maxSteps

	decision, err := a.decide(ctx, req, logger)
	if err != nil {
		return false, &FatalError{Cause: causeFor(ctx, ErrCodeOracle), Step: index, Err: err}
	}

	step := Step{
		Index:          index,
		ScreenID:       id,
		ScreenshotPath: obs.ScreenshotPath,
		Reflection:     decision.Reflection,
		Reasoning:      decision.Reasoning,
		StartedAt:      started,
	}

	if decision.MissionComplete {
		step.Action = StepAction{Kind: action.KindNone, Summary: "mission complete"}
		step.Outcome = action.NoAction("oracle reported the mission complete")
		step.Duration = a.now().Sub(started)
		st.record.Steps = append(st.record.Steps, step)
		logger.Info("Oracle reported mission complete", zap.String("reflection", decision.Reflection))
		return true, nil
	}

	a.act(ctx, &step, decision.Proposal, obs, logger)

	st.memory.Record(id, memory.ActionRecord{
		Kind:      step.Action.Kind,
		Params:    step.Action.Params,
		Summary:   step.Action.Summary,
		Reasoning: decision.Reasoning,
		Outcome:   step.Outcome,
	})
	st.pushTrail(fmt.Sprintf("%s -> %s", step.Action.Summary, step.Outcome), a.lookback)

	step.Duration = a.now().Sub(started)
	st.record.Steps = append(st.record.Steps, step)
	logger.Info("Step finished",
		zap.String("screen", id.Short()),
		zap.Int("visits", st.memory.Visits(id)),
		zap.String("action", step.Action.Summary),
		zap.String("outcome", step.Outcome.String()))

	if step.Outcome.OK() && index < a.maxSteps {
		if err := sleepCtx(ctx, a.settleDelay); err != nil {
			return false, &FatalError{Cause: ErrCodeInterrupted, Step: index, Err: err}
		}
	}
	return false, nil
}

// act validates the proposal and, if it passes, sends it to the device. The
// result is written into step; neither a rejection nor a device error ends
// the run.
func (a *Agent) act(ctx context.Context, step *Step, p action.Proposal, obs *screen.Observation, logger *zap.Logger) {
	validated, err := a.validator.Validate(p, obs.Hierarchy, obs.Size)
	if err != nil {
		var rej *action.Rejection
		if !errors.As(err, &rej) {
			rej = &action.Rejection{Code: action.ErrCodeInvalidParameters, Reason: err.Error()}
		}
		kind := action.Kind(strings.ToUpper(strings.TrimSpace(p.Type)))
		step.Action = StepAction{Kind: kind, Params: p.Params(), Summary: "rejected " + string(kind)}
		step.State = action.StateRejected
		step.Outcome = action.RejectedBy(rej)
		logger.Warn("Action rejected", zap.String("code", string(rej.Code)), zap.String("reason", rej.Reason))
		return
	}

	step.Action = StepAction{
		Kind:    validated.Action.Kind(),
		Params:  validated.Action.Params(),
		Summary: validated.Summary,
		Command: validated.Command.String(),
	}
	err = a.actuator.Execute(ctx, validated.Command)
	step.State = action.StateExecuted
	if err != nil {
		step.Outcome = action.Failed(err.Error())
		logger.Warn("Device command failed", zap.String("command", validated.Command.String()), zap.Error(err))
		return
	}
	step.Outcome = action.Succeeded("")
}

func (a *Agent) decide(ctx context.Context, req oracle.Request, logger *zap.Logger) (*oracle.Decision, error) {
	var decision *oracle.Decision
	err := a.retry.Do(ctx, logger, func(attempt int) error {
		d, err := a.oracle.Decide(ctx, req)
		if err != nil {
			return err
		}
		if d == nil {
			return errors.New("oracle returned no decision")
		}
		decision = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decision, nil
}

// finish finalizes the record and emits it. Emission uses a context that
// survives cancellation of ctx so interrupted runs are still reported.
func (a *Agent) finish(ctx context.Context, st *runState, runErr error, logger *zap.Logger) error {
	rec := st.record
	rec.Status = statusFor(runErr)
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	rec.FinishedAt = a.now()

	stats := rec.Stats()
	fields := []zap.Field{
		zap.String("status", string(rec.Status)),
		zap.Int("steps", stats.Steps),
		zap.Int("screens", stats.Screens),
		zap.Int("rejected", stats.Rejected),
		zap.Duration("elapsed", stats.Elapsed),
	}
	if rec.Status == StatusFatalError {
		logger.Error("Mission ended with a fatal error", append(fields, zap.Error(runErr))...)
	} else {
		logger.Info("Mission finished", fields...)
	}

	if err := a.sink.Emit(context.WithoutCancel(ctx), rec); err != nil {
		logger.Error("Failed to emit run record", zap.Error(err))
		runErr = multierr.Append(runErr, fmt.Errorf("emit run record: %w", err))
	}
	return runErr
}

// causeFor reports a failure that happened because ctx was cancelled as an
// interruption rather than a collaborator fault.
func causeFor(ctx context.Context, cause ErrorCode) ErrorCode {
	if ctx.Err() != nil {
		return ErrCodeInterrupted
	}
	return cause
}

func statusFor(err error) Status {
	switch {
	case err == nil:
		return StatusMissionComplete
	case errors.Is(err, ErrMaxStepsReached):
		return StatusMaxStepsReached
	default:
		return StatusFatalError
	}
}

func (st *runState) pushTrail(entry string, limit int) {
	if limit <= 0 {
		return
	}
	st.trail = append(st.trail, entry)
	if len(st.trail) > limit {
		st.trail = append([]string(nil), st.trail[len(st.trail)-limit:]...)
	}
}
