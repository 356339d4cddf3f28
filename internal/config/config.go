package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the on-disk layout owned by the daemon.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LockFile  string `toml:"lock_file"`
	OutputDir string `toml:"output_dir"`
	MountDir  string `toml:"mount_dir"`
	LogDir    string `toml:"log_dir"`
}

// Drive contains optical drive polling configuration.
type Drive struct {
	Device              string `toml:"device"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	// MaxPolls bounds WaitForDiscLoaded; 0 waits forever.
	MaxPolls int  `toml:"max_polls"`
	UdevWake bool `toml:"udev_wake"`
}

// Ripit contains the external ripper invocation settings.
type Ripit struct {
	Binary         string `toml:"binary"`
	BitrateKbps    int    `toml:"bitrate_kbps"`
	Threads        int    `toml:"threads"`
	DirPrefix      string `toml:"dir_prefix"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Tools names the OS utilities the daemon shells out to.
type Tools struct {
	Eject  string `toml:"eject"`
	Mount  string `toml:"mount"`
	Umount string `toml:"umount"`
}

// Indicators contains the sysfs LED class directories for both status lights.
type Indicators struct {
	ActivityPath        string `toml:"activity_path"`
	ErrorPath           string `toml:"error_path"`
	ModeToken           string `toml:"mode_token"`
	ClearErrorOnSuccess bool   `toml:"clear_error_on_success"`
}

// Storage contains removable storage detection and offload settings.
type Storage struct {
	DeviceDir      string   `toml:"device_dir"`
	DevicePrefixes []string `toml:"device_prefixes"`
	VerifyCopies   bool     `toml:"verify_copies"`
	MinFreeBytes   uint64   `toml:"min_free_bytes"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Rip            bool   `toml:"rip"`
	Offload        bool   `toml:"offload"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for piripper.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Drive         Drive         `toml:"drive"`
	Ripit         Ripit         `toml:"ripit"`
	Tools         Tools         `toml:"tools"`
	Indicators    Indicators    `toml:"indicators"`
	Storage       Storage       `toml:"storage"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("piripper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory, the rip output root, the
// storage mount point, and the log directory when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.OutputDir, c.Paths.MountDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.LockFile); strings.TrimSpace(c.Paths.LockFile) != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create lock directory %q: %w", dir, err)
		}
	}
	return nil
}

// PollInterval returns the drive poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Drive.PollIntervalSeconds) * time.Second
}

// RipTimeout returns the ripit timeout, or zero when ripping is unbounded.
func (c *Config) RipTimeout() time.Duration {
	if c.Ripit.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Ripit.TimeoutSeconds) * time.Second
}

// HistoryPath returns the location of the rip journal database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var buf strings.Builder
	encoder := toml.NewEncoder(&buf)
	encoder.SetIndentTables(true)
	if err := encoder.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return buf.String(), nil
}
