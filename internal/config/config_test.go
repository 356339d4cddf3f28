package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"piripper/internal/config"
)

func TestLoadDefaultConfigDerivesPathsFromStateDir(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("PIRIPPER_NTFY_TOPIC", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	stateDir := filepath.Join(tempHome, ".piripper")
	if cfg.Paths.StateDir != stateDir {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, stateDir)
	}
	if cfg.Paths.LockFile != filepath.Join(stateDir, "lock") {
		t.Fatalf("unexpected lock file: %q", cfg.Paths.LockFile)
	}
	if cfg.Paths.OutputDir != filepath.Join(stateDir, "ripit-output") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.MountDir != filepath.Join(stateDir, "usb-mount") {
		t.Fatalf("unexpected mount dir: %q", cfg.Paths.MountDir)
	}
	if cfg.Drive.Device != "/dev/sr0" {
		t.Fatalf("unexpected drive: %q", cfg.Drive.Device)
	}
	if cfg.Ripit.BitrateKbps != 320 || cfg.Ripit.Threads != 4 {
		t.Fatalf("unexpected ripit defaults: %+v", cfg.Ripit)
	}
	if cfg.Ripit.DirPrefix != "piripper" {
		t.Fatalf("unexpected dir prefix: %q", cfg.Ripit.DirPrefix)
	}
	if got := strings.Join(cfg.Storage.DevicePrefixes, ","); got != "sda,sdb" {
		t.Fatalf("unexpected device prefixes: %q", got)
	}
	if cfg.Indicators.ModeToken != "gpio" {
		t.Fatalf("unexpected mode token: %q", cfg.Indicators.ModeToken)
	}
	if cfg.PollInterval().Seconds() != 1 {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.RipTimeout() != 0 {
		t.Fatalf("expected unbounded rip timeout, got %s", cfg.RipTimeout())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.OutputDir, cfg.Paths.MountDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "piripper.toml")

	type payload struct {
		Paths struct {
			StateDir  string `toml:"state_dir"`
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Ripit struct {
			BitrateKbps int    `toml:"bitrate_kbps"`
			DirPrefix   string `toml:"dir_prefix"`
		} `toml:"ripit"`
		Storage struct {
			DevicePrefixes []string `toml:"device_prefixes"`
		} `toml:"storage"`
	}
	custom := payload{}
	custom.Paths.StateDir = filepath.Join(tempDir, "state")
	custom.Paths.OutputDir = filepath.Join(tempDir, "elsewhere")
	custom.Ripit.BitrateKbps = 192
	custom.Ripit.DirPrefix = "kitchen"
	custom.Storage.DevicePrefixes = []string{" SDA ", "sdc", "sda"}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "elsewhere") {
		t.Fatalf("explicit output dir not honoured: %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.MountDir != filepath.Join(tempDir, "state", "usb-mount") {
		t.Fatalf("mount dir not derived from state dir: %q", cfg.Paths.MountDir)
	}
	if cfg.Ripit.BitrateKbps != 192 {
		t.Fatalf("unexpected bitrate: %d", cfg.Ripit.BitrateKbps)
	}
	if cfg.Ripit.Threads != 4 {
		t.Fatalf("expected default threads to survive partial config, got %d", cfg.Ripit.Threads)
	}
	if got := strings.Join(cfg.Storage.DevicePrefixes, ","); got != "sda,sdc" {
		t.Fatalf("prefixes not normalized: %q", got)
	}
}

func TestLoadNotifyTopicFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PIRIPPER_NTFY_TOPIC", " https://ntfy.example/rips ")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/rips" {
		t.Fatalf("unexpected ntfy topic: %q", cfg.Notifications.NtfyTopic)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty device", func(c *config.Config) { c.Drive.Device = "" }, "drive.device"},
		{"zero poll", func(c *config.Config) { c.Drive.PollIntervalSeconds = 0 }, "poll_interval_seconds"},
		{"negative max polls", func(c *config.Config) { c.Drive.MaxPolls = -1 }, "max_polls"},
		{"zero bitrate", func(c *config.Config) { c.Ripit.BitrateKbps = 0 }, "bitrate_kbps"},
		{"zero threads", func(c *config.Config) { c.Ripit.Threads = 0 }, "threads"},
		{"empty binary", func(c *config.Config) { c.Ripit.Binary = "" }, "ripit.binary"},
		{"prefix with slash", func(c *config.Config) { c.Ripit.DirPrefix = "a/b" }, "dir_prefix"},
		{"same leds", func(c *config.Config) { c.Indicators.ErrorPath = c.Indicators.ActivityPath }, "must differ"},
		{"no prefixes", func(c *config.Config) { c.Storage.DevicePrefixes = nil }, "device_prefixes"},
		{"digit prefix", func(c *config.Config) { c.Storage.DevicePrefixes = []string{"sd1"} }, "lowercase letters"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCreateSampleRoundTripsThroughLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Drive.Device != config.Default().Drive.Device {
		t.Fatalf("sample drifted from defaults: %q", cfg.Drive.Device)
	}

	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(encoded, "bitrate_kbps = 320") {
		t.Fatalf("encoded config missing bitrate:\n%s", encoded)
	}
}
