// File: internal/device/actuator.go
package device

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/action"
)

// Actuator sends validated commands to the device with `adb shell input`.
type Actuator struct {
	adb    *ADB
	logger *zap.Logger
}

func NewActuator(adb *ADB, logger *zap.Logger) *Actuator {
	return &Actuator{adb: adb, logger: logger.Named("actuator")}
}

// Execute runs cmd. `input` exits zero on some failures, so its output is
// checked for an error report as well.
func (a *Actuator) Execute(ctx context.Context, cmd action.Command) error {
	out, err := a.adb.Shell(ctx, cmd.ShellArgs()...)
	if err != nil {
		return fmt.Errorf("%s failed: %w", cmd, err)
	}
	if msg := strings.TrimSpace(string(out)); msg != "" {
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "error") || strings.Contains(lower, "exception") {
			return fmt.Errorf("%s failed: %s", cmd, msg)
		}
	}
	a.logger.Debug("Executed command", zap.Stringer("command", cmd))
	return nil
}
