// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/action"
	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/llmclient"
	"github.com/xkilldash9x/droidpilot/internal/observability"
	"github.com/xkilldash9x/droidpilot/internal/oracle"
	"github.com/xkilldash9x/droidpilot/internal/reporting"
	"github.com/xkilldash9x/droidpilot/internal/screen"
	"github.com/xkilldash9x/droidpilot/internal/store"
)

// missionRunner is the part of *agent.Agent the run command needs.
type missionRunner interface {
	Run(ctx context.Context, mission string) (*agent.RunRecord, error)
}

// agentBuilder wires the agent and its collaborators. The cleanup function
// is always safe to call.
type agentBuilder func(ctx context.Context, cfg config.Interface, logger *zap.Logger) (missionRunner, func(), error)

func newRunCmd(build agentBuilder) *cobra.Command {
	var (
		maxSteps  int
		serial    string
		formats   []string
		reportDir string
	)

	runCmd := &cobra.Command{
		Use:   "run <mission>",
		Short: "Run a mission on the connected device",
		Long: `Runs the perceive-decide-act loop until the oracle reports the mission
complete (exit 0), the step budget is exhausted (exit 2), or a fatal error
occurs (exit 1). An interrupt exits with 130 after the run record is written.`,
		Example: `  droidpilot run "open settings"
  droidpilot run "turn on wi-fi" --max-steps 20 --serial emulator-5554 --report-format json,html`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			// Flags override the config file only when given explicitly.
			flags := cmd.Flags()
			if flags.Changed("max-steps") {
				if maxSteps <= 0 {
					return fmt.Errorf("--max-steps must be a positive integer, got %d", maxSteps)
				}
				cfg.SetAgentMaxSteps(maxSteps)
			}
			if flags.Changed("serial") {
				cfg.SetDeviceSerial(serial)
			}
			if flags.Changed("report-format") {
				cfg.SetReportFormats(formats)
			}
			if flags.Changed("report-dir") {
				cfg.SetReportOutputDir(reportDir)
			}
			rc := cfg.Report()
			if err := rc.Validate(); err != nil {
				return fmt.Errorf("report configuration invalid: %w", err)
			}
			cfg.SetRunConfig(config.RunConfig{Mission: strings.Join(args, " ")})

			return runMission(ctx, logger, cfg, build, cmd.OutOrStdout())
		},
	}

	runCmd.Flags().IntVarP(&maxSteps, "max-steps", "n", 15, "Step budget for the mission. (Overrides config/env)")
	runCmd.Flags().StringVarP(&serial, "serial", "s", "", "Device serial; defaults to the first connected device. (Overrides config/env)")
	runCmd.Flags().StringSliceVarP(&formats, "report-format", "f", nil, "Report formats: json, html, postgres. (Overrides config/env)")
	runCmd.Flags().StringVarP(&reportDir, "report-dir", "o", "", "Directory for report files. (Overrides config/env)")

	return runCmd
}

// runMission contains the core, testable logic of the run command.
func runMission(ctx context.Context, logger *zap.Logger, cfg config.Interface, build agentBuilder, out io.Writer) error {
	mission := cfg.Run().Mission
	runner, cleanup, err := build(ctx, cfg, logger)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize agent: %w", err)
	}

	rec, runErr := runner.Run(ctx, mission)
	if rec == nil {
		return runErr
	}

	summary := reporting.NewTextReporter(reporting.NopWriteCloser(out))
	if err := summary.Write(rec); err != nil {
		logger.Warn("Failed to print run summary", zap.Error(err))
	}

	if runErr != nil && rec.Status == agent.StatusMissionComplete {
		// The mission succeeded; only a report sink failed.
		logger.Error("Run record could not be fully reported", zap.Error(runErr))
		return nil
	}
	if runErr == nil {
		return nil
	}
	code := exitForStatus(rec.Status)
	if errors.Is(runErr, context.Canceled) {
		code = ExitInterrupted
	}
	return &ExitError{Code: code, Err: runErr}
}

// defaultAgentBuilder connects to the device and the LLM and assembles the
// configured report sinks.
func defaultAgentBuilder(ctx context.Context, cfg config.Interface, logger *zap.Logger) (missionRunner, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	devCfg := cfg.Device()
	runner := device.ExecRunner{}
	devices, err := device.ListDevices(ctx, runner, devCfg.ADBPath)
	if err != nil {
		return nil, cleanup, err
	}
	info, err := device.SelectDevice(devices, devCfg.Serial)
	if err != nil {
		return nil, cleanup, err
	}
	logger.Info("Using device", zap.String("serial", info.Serial), zap.Any("attributes", info.Attributes))

	adb := device.NewADB(devCfg, info.Serial, runner, logger)
	sensor, err := device.NewSensor(adb, devCfg, logger)
	if err != nil {
		return nil, cleanup, err
	}

	agentCfg := cfg.Agent()
	llm, err := llmclient.NewClient(ctx, agentCfg, logger)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	orc := oracle.NewLLMOracle(llm, agentCfg.Oracle, logger)
	cleanups = append(cleanups, func() {
		if err := orc.Close(); err != nil {
			logger.Warn("Failed to close LLM client cleanly", zap.Error(err))
		}
	})

	sink, closeSinks, err := buildSinks(ctx, cfg.Report(), logger)
	if closeSinks != nil {
		cleanups = append(cleanups, closeSinks)
	}
	if err != nil {
		return nil, cleanup, err
	}

	a, err := agent.New(agent.Deps{
		Sensor:        sensor,
		Oracle:        orc,
		Actuator:      device.NewActuator(adb, logger),
		Sink:          sink,
		Fingerprinter: screen.NewFingerprinter(agentCfg.VolatilePackages),
		Validator:     action.Validator{SwipeDuration: devCfg.SwipeDuration},
	}, agentCfg, logger)
	if err != nil {
		return nil, cleanup, err
	}
	return a, cleanup, nil
}

// connectStore is swapped in tests.
var connectStore = func(ctx context.Context, url string, logger *zap.Logger) (agent.Sink, func(), error) {
	return store.Connect(ctx, url, logger)
}

// buildSinks turns the report config into one sink. File formats share a
// DirSink; "postgres" adds the run archive.
func buildSinks(ctx context.Context, rc config.ReportConfig, logger *zap.Logger) (agent.Sink, func(), error) {
	var (
		fileFormats []string
		sinks       reporting.MultiSink
		cleanup     func()
	)
	for _, f := range rc.Formats {
		if f == config.ReportFormatPostgres {
			s, closeFn, err := connectStore(ctx, rc.Database.URL, logger)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to initialize run archive: %w", err)
			}
			sinks = append(sinks, s)
			cleanup = closeFn
			continue
		}
		fileFormats = append(fileFormats, f)
	}

	dirSink, err := reporting.NewDirSink(rc.OutputDir, fileFormats, logger)
	if err != nil {
		return nil, cleanup, err
	}
	sinks = append(reporting.MultiSink{dirSink}, sinks...)
	return sinks, cleanup, nil
}
