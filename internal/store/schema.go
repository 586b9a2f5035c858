package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    mission     TEXT NOT NULL,
    status      TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    max_steps   INTEGER NOT NULL,
    step_count  INTEGER NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS run_steps (
    run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    step_index      INTEGER NOT NULL,
    screen_id       TEXT NOT NULL,
    screenshot_path TEXT NOT NULL DEFAULT '',
    action_kind     TEXT NOT NULL,
    action_params   JSONB NOT NULL DEFAULT '{}',
    summary         TEXT NOT NULL DEFAULT '',
    command         TEXT NOT NULL DEFAULT '',
    reflection      TEXT NOT NULL DEFAULT '',
    reasoning       TEXT NOT NULL DEFAULT '',
    state           TEXT NOT NULL DEFAULT '',
    outcome_status  TEXT NOT NULL,
    outcome_detail  TEXT NOT NULL DEFAULT '',
    started_at      TIMESTAMPTZ NOT NULL,
    duration_ms     BIGINT NOT NULL,
    PRIMARY KEY (run_id, step_index)
);
CREATE INDEX IF NOT EXISTS run_steps_screen_idx ON run_steps (screen_id);
`

const (
	sqlUpsertRun = `
        INSERT INTO runs (id, mission, status, error, max_steps, step_count, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            status = EXCLUDED.status,
            error = EXCLUDED.error,
            step_count = EXCLUDED.step_count,
            finished_at = EXCLUDED.finished_at;
    `
	sqlDeleteSteps = `DELETE FROM run_steps WHERE run_id = $1;`

	sqlSelectRun = `
        SELECT id, mission, status, error, max_steps, started_at, finished_at
        FROM runs
        WHERE id = $1;
    `
	sqlSelectSteps = `
        SELECT step_index, screen_id, screenshot_path, action_kind, action_params, summary, command,
               reflection, reasoning, state, outcome_status, outcome_detail, started_at, duration_ms
        FROM run_steps
        WHERE run_id = $1
        ORDER BY step_index ASC;
    `
	sqlListRuns = `
        SELECT id, mission, status, step_count, finished_at
        FROM runs
        ORDER BY finished_at DESC
        LIMIT $1;
    `
)

var stepColumns = []string{
	"run_id", "step_index", "screen_id", "screenshot_path",
	"action_kind", "action_params", "summary", "command",
	"reflection", "reasoning", "state",
	"outcome_status", "outcome_detail",
	"started_at", "duration_ms",
}
