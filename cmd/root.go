// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/observability"
)

// Exit codes reported by the binary.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitMaxSteps    = 2
	ExitInterrupted = 130
)

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	return ExitFailure
}

type configKey struct{}

// getConfigFromContext returns the configuration loaded by the root command.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	if ctx == nil {
		return nil, fmt.Errorf("command context is nil")
	}
	cfg, ok := ctx.Value(configKey{}).(config.Interface)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not found in context")
	}
	return cfg, nil
}

// NewRootCommand builds a fresh command tree. Each call owns its own viper
// instance so repeated executions do not share flag or config state.
func NewRootCommand() *cobra.Command {
	return newRootCmd(defaultAgentBuilder, device.ExecRunner{}, NewStoreProvider())
}

func newRootCmd(build agentBuilder, runner device.CommandRunner, provider storeProvider) *cobra.Command {
	var cfgFile string
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "droidpilot",
		Short: "droidpilot drives an Android device toward a natural-language mission.",
		Long: `droidpilot observes a connected Android device over ADB, asks a multimodal
LLM for the next action, and taps, scrolls or goes back until the mission is
complete or the step budget runs out.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(v, cfgFile); err != nil {
				return err
			}
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				// Initialize a fallback logger so the failure is visible.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "droidpilot"})
				return err
			}
			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting droidpilot", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, config.Interface(cfg)))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "droidpilot version %s\n" .Version}}`)

	rootCmd.AddCommand(
		newRunCmd(build),
		newDevicesCmd(runner),
		newConfigCmd(),
		newReportCmd(provider),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree with ctx and logs any failure.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		var exitErr *ExitError
		switch {
		case errors.As(err, &exitErr) && exitErr.Code == ExitMaxSteps:
			// Already reported by the run summary.
		case errors.Is(err, context.Canceled):
			observability.GetLogger().Warn("Interrupted")
		default:
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	observability.Sync()
	return err
}

// initializeConfig reads in the config file and DROIDPILOT_* environment variables.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DROIDPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}
	return nil
}

// exitForStatus maps a terminal run status to its exit code.
func exitForStatus(s agent.Status) int {
	switch s {
	case agent.StatusMissionComplete:
		return ExitOK
	case agent.StatusMaxStepsReached:
		return ExitMaxSteps
	default:
		return ExitFailure
	}
}
