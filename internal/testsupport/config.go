package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"piripper/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Indicator paths point at fake LED class directories and the device
// directory is an empty temp dir, so nothing touches real hardware.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LockFile = filepath.Join(base, "state", "lock")
	cfgVal.Paths.OutputDir = filepath.Join(base, "state", "ripit-output")
	cfgVal.Paths.MountDir = filepath.Join(base, "state", "usb-mount")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Drive.Device = filepath.Join(base, "dev", "sr0")
	cfgVal.Drive.UdevWake = false
	cfgVal.Storage.DeviceDir = filepath.Join(base, "dev")
	cfgVal.Indicators.ActivityPath = FakeLED(t, filepath.Join(base, "leds", "led0"))
	cfgVal.Indicators.ErrorPath = FakeLED(t, filepath.Join(base, "leds", "led1"))
	cfgVal.Notifications.NtfyTopic = ""

	if err := os.MkdirAll(cfgVal.Storage.DeviceDir, 0o755); err != nil {
		t.Fatalf("mkdir device dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOpticalDrive overrides the optical drive path on the test config.
func WithOpticalDrive(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Drive.Device = path
	}
}

// WithNtfyTopic points notifications at the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithStorageDevices creates empty device nodes (regular files) named names
// inside the configured device directory.
func WithStorageDevices(names ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, name := range names {
			path := filepath.Join(b.cfg.Storage.DeviceDir, name)
			if err := os.WriteFile(path, nil, 0o600); err != nil {
				b.t.Fatalf("create device %s: %v", name, err)
			}
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default piripper external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ripit", "eject", "mount", "umount"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// FakeLED creates an LED class directory with trigger and brightness
// attributes and returns its path.
func FakeLED(t testing.TB, dir string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir led: %v", err)
	}
	for name, value := range map[string]string{"trigger": "none", "brightness": "0"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(value), 0o644); err != nil {
			t.Fatalf("write led %s: %v", name, err)
		}
	}
	return dir
}

// ReadLED returns the brightness value of a fake LED directory.
func ReadLED(t testing.TB, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "brightness"))
	if err != nil {
		t.Fatalf("read led brightness: %v", err)
	}
	return string(data)
}
