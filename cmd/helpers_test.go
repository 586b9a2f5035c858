// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/store"
)

// testConfigYAML keeps the logger quiet and off the filesystem.
const testConfigYAML = `
logger:
  level: fatal
  format: console
  log_file: ""
report:
  formats: [json]
  output_dir: %s
`

// createTempConfig writes content to a config file in a temp dir.
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func defaultTestConfig(t *testing.T) string {
	t.Helper()
	reports := t.TempDir()
	return createTempConfig(t, fmt.Sprintf(testConfigYAML, reports))
}

// fakeRunner stands in for the agent.
type fakeRunner struct {
	rec     *agent.RunRecord
	err     error
	mission string
}

func (f *fakeRunner) Run(_ context.Context, mission string) (*agent.RunRecord, error) {
	f.mission = mission
	if f.rec != nil {
		f.rec.Mission = mission
	}
	return f.rec, f.err
}

// fakeBuilder records the config it was called with.
type fakeBuilder struct {
	runner  *fakeRunner
	err     error
	cfg     config.Interface
	cleaned bool
}

func (b *fakeBuilder) build(_ context.Context, cfg config.Interface, _ *zap.Logger) (missionRunner, func(), error) {
	b.cfg = cfg
	cleanup := func() { b.cleaned = true }
	if b.err != nil {
		return nil, cleanup, b.err
	}
	return b.runner, cleanup, nil
}

func record(status agent.Status, errMsg string) *agent.RunRecord {
	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &agent.RunRecord{
		ID:         "run-1",
		MaxSteps:   15,
		Status:     status,
		Error:      errMsg,
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
	}
}

// stubRunner answers `adb devices -l` with canned output.
type stubRunner struct {
	out  string
	err  error
	args []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.args = append([]string{name}, args...)
	return []byte(s.out), s.err
}

var _ device.CommandRunner = (*stubRunner)(nil)

// mockArchive implements runArchive.
type mockArchive struct {
	runs  map[string]*agent.RunRecord
	list  []store.RunSummary
	err   error
	limit int
}

func (m *mockArchive) GetRun(_ context.Context, id string) (*agent.RunRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	rec, ok := m.runs[id]
	if !ok {
		return nil, store.ErrRunNotFound
	}
	return rec, nil
}

func (m *mockArchive) ListRuns(_ context.Context, limit int) ([]store.RunSummary, error) {
	m.limit = limit
	return m.list, m.err
}

type mockProvider struct {
	archive *mockArchive
	err     error
	cleaned bool
}

func (p *mockProvider) Create(context.Context, config.Interface) (runArchive, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.archive, func() { p.cleaned = true }, nil
}

type testDeps struct {
	builder  *fakeBuilder
	runner   device.CommandRunner
	provider storeProvider
}

// executeCommand runs a fresh command tree with the given dependencies.
func executeCommand(t *testing.T, deps testDeps, args ...string) (string, error) {
	t.Helper()
	if deps.builder == nil {
		deps.builder = &fakeBuilder{runner: &fakeRunner{rec: record(agent.StatusMissionComplete, "")}}
	}
	if deps.runner == nil {
		deps.runner = &stubRunner{}
	}
	if deps.provider == nil {
		deps.provider = &mockProvider{archive: &mockArchive{}}
	}
	root := newRootCmd(deps.builder.build, deps.runner, deps.provider)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}
