// File: cmd/report.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/observability"
	"github.com/xkilldash9x/droidpilot/internal/reporting"
	"github.com/xkilldash9x/droidpilot/internal/store"
)

// runArchive is the read side of the run store.
type runArchive interface {
	GetRun(ctx context.Context, runID string) (*agent.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
}

// storeProvider creates the run archive. Tests inject a mock instead of a
// live database connection.
type storeProvider interface {
	Create(ctx context.Context, cfg config.Interface) (runArchive, func(), error)
}

type defaultStoreProvider struct{}

// NewStoreProvider returns the PostgreSQL-backed provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (runArchive, func(), error) {
	url := cfg.Report().Database.URL
	if url == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (DROIDPILOT_DATABASE_URL)")
	}
	s, cleanup, err := store.Connect(ctx, url, observability.GetLogger())
	if err != nil {
		return nil, nil, err
	}
	return s, cleanup, nil
}

func newReportCmd(provider storeProvider) *cobra.Command {
	var (
		runID      string
		outputPath string
		format     string
		list       bool
		limit      int
	)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Render an archived run or list recent runs",
		Long: `Loads a run record from the PostgreSQL archive and renders it as html, json
or text. With --list, prints the most recent runs instead.`,
		Example: `  droidpilot report --list
  droidpilot report --run-id 3f0c... --format html -o run.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if !list && runID == "" {
				return fmt.Errorf("either --run-id or --list is required")
			}
			opts := reportOptions{runID: runID, outputPath: outputPath, format: format, list: list, limit: limit}
			return runReport(ctx, logger, cfg, opts, provider, cmd.OutOrStdout())
		},
	}

	reportCmd.Flags().StringVar(&runID, "run-id", "", "The ID of the run to render")
	reportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path. If unset, the report is printed to stdout.")
	reportCmd.Flags().StringVarP(&format, "format", "f", reporting.FormatHTML, "Report format: html, json or text.")
	reportCmd.Flags().BoolVar(&list, "list", false, "List recent runs instead of rendering one")
	reportCmd.Flags().IntVar(&limit, "limit", 20, "Number of runs shown by --list")

	return reportCmd
}

type reportOptions struct {
	runID      string
	outputPath string
	format     string
	list       bool
	limit      int
}

// runReport contains the core, testable logic of the report command.
func runReport(ctx context.Context, logger *zap.Logger, cfg config.Interface, opts reportOptions, provider storeProvider, out io.Writer) error {
	archive, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if opts.list {
		runs, err := archive.ListRuns(ctx, opts.limit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		return printRunList(out, runs)
	}

	logger.Info("Rendering archived run", zap.String("run_id", opts.runID), zap.String("format", opts.format))
	rec, err := archive.GetRun(ctx, opts.runID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", opts.runID, err)
	}

	var reporter reporting.Reporter
	if opts.outputPath == "" {
		reporter, err = reporting.NewWithWriter(opts.format, reporting.NopWriteCloser(out))
	} else {
		reporter, err = reporting.New(opts.format, opts.outputPath)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Warn("Failed to close reporter cleanly.", zap.Error(err))
		}
	}()

	if err := reporter.Write(rec); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if opts.outputPath != "" {
		logger.Info("Report successfully written to file", zap.String("path", opts.outputPath))
	}
	return nil
}

func printRunList(out io.Writer, runs []store.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No archived runs.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTATUS\tSTEPS\tFINISHED\tMISSION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.ID, r.Status, r.Steps, r.FinishedAt.Format(time.RFC3339), r.Mission)
	}
	return tw.Flush()
}
