// File: internal/device/adb.go
package device

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// ErrNoDevices is returned when adb reports no device in the "device" state.
var ErrNoDevices = errors.New("no Android devices connected; connect a device and enable USB debugging")

// ADB issues commands to one device through the adb binary.
type ADB struct {
	path    string
	serial  string
	timeout time.Duration
	runner  CommandRunner
	logger  *zap.Logger
}

// NewADB binds to the device with the given serial.
func NewADB(cfg config.DeviceConfig, serial string, runner CommandRunner, logger *zap.Logger) *ADB {
	return &ADB{
		path:    cfg.ADBPath,
		serial:  serial,
		timeout: cfg.CommandTimeout,
		runner:  runner,
		logger:  logger.Named("adb").With(zap.String("serial", serial)),
	}
}

// Serial is the bound device serial.
func (a *ADB) Serial() string { return a.serial }

func (a *ADB) run(ctx context.Context, args ...string) ([]byte, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	full := append([]string{"-s", a.serial}, args...)
	start := time.Now()
	out, err := a.runner.Run(ctx, a.path, full...)
	a.logger.Debug("adb command",
		zap.Strings("args", args),
		zap.Duration("duration", time.Since(start)),
		zap.Int("output_bytes", len(out)),
		zap.Error(err))
	return out, err
}

// Shell runs `adb shell <args>`.
func (a *ADB) Shell(ctx context.Context, args ...string) ([]byte, error) {
	return a.run(ctx, append([]string{"shell"}, args...)...)
}

// ExecOut runs `adb exec-out <args>`, which returns binary-safe stdout.
func (a *ADB) ExecOut(ctx context.Context, args ...string) ([]byte, error) {
	return a.run(ctx, append([]string{"exec-out"}, args...)...)
}

// ScreenSize queries `wm size`.
func (a *ADB) ScreenSize(ctx context.Context) (screen.Size, error) {
	out, err := a.Shell(ctx, "wm", "size")
	if err != nil {
		return screen.Size{}, fmt.Errorf("failed to query screen size: %w", err)
	}
	return ParseScreenSize(string(out))
}

var sizePattern = regexp.MustCompile(`(Physical|Override) size:\s*(\d+)x(\d+)`)

// ParseScreenSize reads `wm size` output. An override size wins over the
// physical one because input coordinates follow it.
func ParseScreenSize(out string) (screen.Size, error) {
	var physical, override *screen.Size
	for _, m := range sizePattern.FindAllStringSubmatch(out, -1) {
		w, _ := strconv.Atoi(m[2])
		h, _ := strconv.Atoi(m[3])
		s := screen.Size{Width: w, Height: h}
		if m[1] == "Override" {
			override = &s
		} else {
			physical = &s
		}
	}
	switch {
	case override != nil:
		return *override, nil
	case physical != nil:
		return *physical, nil
	default:
		return screen.Size{}, fmt.Errorf("unrecognized wm size output: %q", strings.TrimSpace(out))
	}
}

// Info describes one entry of `adb devices -l`.
type Info struct {
	Serial     string            `json:"serial" yaml:"serial"`
	State      string            `json:"state" yaml:"state"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Ready reports whether the device accepts commands.
func (i Info) Ready() bool { return i.State == "device" }

// ListDevices runs `adb devices -l`.
func ListDevices(ctx context.Context, runner CommandRunner, adbPath string) ([]Info, error) {
	out, err := runner.Run(ctx, adbPath, "devices", "-l")
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return ParseDevices(string(out)), nil
}

// ParseDevices reads `adb devices [-l]` output, skipping the banner and daemon noise.
func ParseDevices(out string) []Info {
	var devices []Info
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		info := Info{Serial: fields[0], State: fields[1]}
		for _, f := range fields[2:] {
			if k, v, ok := strings.Cut(f, ":"); ok {
				if info.Attributes == nil {
					info.Attributes = make(map[string]string)
				}
				info.Attributes[k] = v
			}
		}
		devices = append(devices, info)
	}
	return devices
}

// SelectDevice picks serial if given, otherwise the first ready device.
func SelectDevice(devices []Info, serial string) (Info, error) {
	if serial != "" {
		for _, d := range devices {
			if d.Serial == serial {
				if !d.Ready() {
					return Info{}, fmt.Errorf("device %s is %s, not ready", serial, d.State)
				}
				return d, nil
			}
		}
		return Info{}, fmt.Errorf("device %s not found", serial)
	}
	for _, d := range devices {
		if d.Ready() {
			return d, nil
		}
	}
	return Info{}, ErrNoDevices
}
