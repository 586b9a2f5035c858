// internal/reporting/sink.go
package reporting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/agent"
)

// DirSink writes one report file per configured format into a directory.
type DirSink struct {
	dir     string
	formats []string
	logger  *zap.Logger
}

// NewDirSink validates formats up front so a bad flag fails before the run starts.
func NewDirSink(dir string, formats []string, logger *zap.Logger) (*DirSink, error) {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand report directory %s: %w", dir, err)
	}
	for _, f := range formats {
		switch f {
		case FormatJSON, FormatHTML, FormatText:
		default:
			return nil, fmt.Errorf("unsupported output format: %s", f)
		}
	}
	return &DirSink{
		dir:     expanded,
		formats: append([]string(nil), formats...),
		logger:  logger.Named("report"),
	}, nil
}

// Path is where format's report for rec is written.
func (s *DirSink) Path(rec *agent.RunRecord, format string) string {
	return filepath.Join(s.dir, fmt.Sprintf("run-%s.%s", rec.ID, Extension(format)))
}

// Emit writes every format. A failing format does not stop the others.
func (s *DirSink) Emit(_ context.Context, rec *agent.RunRecord) error {
	if len(s.formats) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory %s: %w", s.dir, err)
	}

	var errs error
	for _, format := range s.formats {
		path := s.Path(rec, format)
		if err := writeReport(format, path, rec); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		s.logger.Info("Report written", zap.String("format", format), zap.String("path", path))
	}
	return errs
}

func writeReport(format, path string, rec *agent.RunRecord) (err error) {
	r, err := New(format, path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, r.Close()) }()
	return r.Write(rec)
}

// MultiSink fans a record out to several sinks. Every sink is called even if
// an earlier one fails.
type MultiSink []agent.Sink

func (m MultiSink) Emit(ctx context.Context, rec *agent.RunRecord) error {
	var errs error
	for _, s := range m {
		errs = multierr.Append(errs, s.Emit(ctx, rec))
	}
	return errs
}
