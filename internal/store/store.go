package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/action"
	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store archives finalized run records in PostgreSQL. It is an agent.Sink.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Connect opens a pool for url, ensures the schema and returns the store with
// a cleanup function that closes the pool.
func Connect(ctx context.Context, url string, logger *zap.Logger) (*Store, func(), error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return s, cleanup, nil
}

// EnsureSchema creates the run tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Emit implements agent.Sink.
func (s *Store) Emit(ctx context.Context, rec *agent.RunRecord) error {
	return s.SaveRun(ctx, rec)
}

// SaveRun writes the run and all of its steps in one transaction. Saving the
// same run twice replaces its steps.
func (s *Store) SaveRun(ctx context.Context, rec *agent.RunRecord) error {
	if rec == nil {
		return fmt.Errorf("cannot save a nil run record")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlUpsertRun,
		rec.ID, rec.Mission, string(rec.Status), rec.Error, rec.MaxSteps, len(rec.Steps),
		rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to upsert run %s: %w", rec.ID, err)
	}
	if _, err := tx.Exec(ctx, sqlDeleteSteps, rec.ID); err != nil {
		return fmt.Errorf("failed to clear steps for run %s: %w", rec.ID, err)
	}

	if len(rec.Steps) > 0 {
		if err := s.persistSteps(ctx, tx, rec.ID, rec.Steps); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Run archived", zap.String("run_id", rec.ID), zap.Int("steps", len(rec.Steps)))
	return nil
}

func (s *Store) persistSteps(ctx context.Context, tx pgx.Tx, runID string, steps []agent.Step) error {
	rows := make([][]interface{}, len(steps))
	for i, st := range steps {
		params, err := encodeParams(st.Action.Params)
		if err != nil {
			return fmt.Errorf("failed to encode params for step %d: %w", st.Index, err)
		}
		rows[i] = []interface{}{
			runID, st.Index, string(st.ScreenID), st.ScreenshotPath,
			string(st.Action.Kind), params, st.Action.Summary, st.Action.Command,
			st.Reflection, st.Reasoning, string(st.State),
			string(st.Outcome.Status), st.Outcome.Detail,
			st.StartedAt.UTC(), st.Duration.Milliseconds(),
		}
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"run_steps"}, stepColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy steps: %w", err)
	}
	if int(copyCount) != len(steps) {
		return fmt.Errorf("mismatch in copied steps count: expected %d, got %d", len(steps), copyCount)
	}
	return nil
}

// GetRun loads a run and its steps.
func (s *Store) GetRun(ctx context.Context, runID string) (*agent.RunRecord, error) {
	rows, err := s.pool.Query(ctx, sqlSelectRun, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	rec, err := scanRun(rows)
	if err != nil {
		return nil, err
	}

	stepRows, err := s.pool.Query(ctx, sqlSelectSteps, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer stepRows.Close()

	rec.Steps = []agent.Step{}
	for stepRows.Next() {
		var (
			st                             agent.Step
			screenID, kind, state, outcome string
			params                         []byte
			durationMS                     int64
		)
		if err := stepRows.Scan(
			&st.Index, &screenID, &st.ScreenshotPath,
			&kind, &params, &st.Action.Summary, &st.Action.Command,
			&st.Reflection, &st.Reasoning, &state,
			&outcome, &st.Outcome.Detail,
			&st.StartedAt, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan step row: %w", err)
		}
		st.ScreenID = screen.Identity(screenID)
		st.Action.Kind = action.Kind(kind)
		st.State = action.State(state)
		st.Outcome.Status = action.OutcomeStatus(outcome)
		st.Duration = time.Duration(durationMS) * time.Millisecond
		if st.Action.Params, err = decodeParams(params); err != nil {
			return nil, fmt.Errorf("failed to decode params for step %d: %w", st.Index, err)
		}
		rec.Steps = append(rec.Steps, st)
	}
	if err := stepRows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return rec, nil
}

func scanRun(rows pgx.Rows) (*agent.RunRecord, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error during row iteration: %w", err)
		}
		return nil, ErrRunNotFound
	}
	var (
		rec    agent.RunRecord
		status string
	)
	if err := rows.Scan(&rec.ID, &rec.Mission, &status, &rec.Error, &rec.MaxSteps, &rec.StartedAt, &rec.FinishedAt); err != nil {
		return nil, fmt.Errorf("failed to scan run row: %w", err)
	}
	rec.Status = agent.Status(status)
	return &rec, nil
}

// RunSummary is one row of ListRuns.
type RunSummary struct {
	ID         string
	Mission    string
	Status     agent.Status
	Steps      int
	FinishedAt time.Time
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, sqlListRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r      RunSummary
			status string
		)
		if err := rows.Scan(&r.ID, &r.Mission, &status, &r.Steps, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.Status = agent.Status(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}

func encodeParams(p map[string]string) ([]byte, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func decodeParams(raw []byte) (map[string]string, error) {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return nil, nil
	}
	var p map[string]string
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}
