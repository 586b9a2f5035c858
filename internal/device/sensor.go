// File: internal/device/sensor.go
package device

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// uuidNewString is a package-level variable for mocking in tests.
var uuidNewString = uuid.NewString

// Sensor captures the screenshot and UI hierarchy of the device.
type Sensor struct {
	adb            *ADB
	dumpPath       string
	screenshotsDir string
	logger         *zap.Logger
	now            func() time.Time

	sizeOnce sync.Once
	size     screen.Size
	sizeErr  error
	seq      int
}

// NewSensor prepares the screenshots directory and returns a Sensor.
func NewSensor(adb *ADB, cfg config.DeviceConfig, logger *zap.Logger) (*Sensor, error) {
	s := &Sensor{
		adb:      adb,
		dumpPath: cfg.DumpPath,
		logger:   logger.Named("sensor"),
		now:      time.Now,
	}
	if cfg.ScreenshotsDir != "" {
		dir, err := homedir.Expand(cfg.ScreenshotsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to expand screenshots dir: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create screenshots dir: %w", err)
		}
		s.screenshotsDir = dir
	}
	return s, nil
}

// Capture grabs the screenshot and the hierarchy concurrently. Any adb
// failure is returned; an unparsable hierarchy is not an error.
func (s *Sensor) Capture(ctx context.Context) (*screen.Observation, error) {
	var (
		png  []byte
		xml  string
		size screen.Size
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		png, err = s.screenshot(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		xml, err = s.dumpHierarchy(gctx)
		return err
	})
	g.Go(func() error {
		size = s.screenSize(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	obs := screen.NewObservation(png, xml, size, s.now())
	if obs.ParseErr != nil {
		s.logger.Warn("UI hierarchy could not be parsed; using empty tree", zap.Error(obs.ParseErr))
	}
	if path, err := s.save(png); err != nil {
		s.logger.Warn("Failed to save screenshot", zap.Error(err))
	} else {
		obs.ScreenshotPath = path
	}
	return obs, nil
}

func (s *Sensor) screenshot(ctx context.Context) ([]byte, error) {
	out, err := s.adb.ExecOut(ctx, "screencap", "-p")
	if err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	if !bytes.HasPrefix(out, pngSignature) {
		return nil, fmt.Errorf("screenshot capture failed: output is not a PNG (%d bytes)", len(out))
	}
	return out, nil
}

func (s *Sensor) dumpHierarchy(ctx context.Context) (string, error) {
	out, err := s.adb.Shell(ctx, "uiautomator", "dump", s.dumpPath)
	if err != nil {
		return "", fmt.Errorf("ui hierarchy dump failed: %w", err)
	}
	if msg := strings.TrimSpace(string(out)); strings.HasPrefix(msg, "ERROR") {
		return "", fmt.Errorf("ui hierarchy dump failed: %s", msg)
	}
	raw, err := s.adb.ExecOut(ctx, "cat", s.dumpPath)
	if err != nil {
		return "", fmt.Errorf("reading ui hierarchy failed: %w", err)
	}
	return string(raw), nil
}

// screenSize is looked up once per run. Failure leaves the size unknown and
// validation falls back to the hierarchy's root bounds.
func (s *Sensor) screenSize(ctx context.Context) screen.Size {
	s.sizeOnce.Do(func() {
		s.size, s.sizeErr = s.adb.ScreenSize(ctx)
		if s.sizeErr != nil {
			s.logger.Warn("Screen size unavailable", zap.Error(s.sizeErr))
		} else {
			s.logger.Info("Screen size discovered", zap.Stringer("size", s.size))
		}
	})
	return s.size
}

func (s *Sensor) save(png []byte) (string, error) {
	if s.screenshotsDir == "" {
		return "", nil
	}
	s.seq++
	name := fmt.Sprintf("step_%03d_%s.png", s.seq, uuidNewString()[:8])
	path := filepath.Join(s.screenshotsDir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
