package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDrive()
	c.normalizeRipit()
	c.normalizeTools()
	c.normalizeIndicators()
	c.normalizeStorage()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}

	derived := []struct {
		key   string
		value *string
		name  string
	}{
		{"paths.lock_file", &c.Paths.LockFile, lockFileName},
		{"paths.output_dir", &c.Paths.OutputDir, outputDirName},
		{"paths.mount_dir", &c.Paths.MountDir, mountDirName},
		{"paths.log_dir", &c.Paths.LogDir, logDirName},
	}
	for _, entry := range derived {
		trimmed := strings.TrimSpace(*entry.value)
		if trimmed == "" {
			*entry.value = filepath.Join(c.Paths.StateDir, entry.name)
			continue
		}
		if *entry.value, err = expandPath(trimmed); err != nil {
			return fmt.Errorf("%s: %w", entry.key, err)
		}
	}
	return nil
}

func (c *Config) normalizeDrive() {
	c.Drive.Device = strings.TrimSpace(c.Drive.Device)
}

func (c *Config) normalizeRipit() {
	c.Ripit.Binary = strings.TrimSpace(c.Ripit.Binary)
	c.Ripit.DirPrefix = strings.TrimSpace(c.Ripit.DirPrefix)
	if c.Ripit.TimeoutSeconds < 0 {
		c.Ripit.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeTools() {
	c.Tools.Eject = strings.TrimSpace(c.Tools.Eject)
	if c.Tools.Eject == "" {
		c.Tools.Eject = defaultEjectBinary
	}
	c.Tools.Mount = strings.TrimSpace(c.Tools.Mount)
	if c.Tools.Mount == "" {
		c.Tools.Mount = defaultMountBinary
	}
	c.Tools.Umount = strings.TrimSpace(c.Tools.Umount)
	if c.Tools.Umount == "" {
		c.Tools.Umount = defaultUmountBinary
	}
}

func (c *Config) normalizeIndicators() {
	c.Indicators.ActivityPath = strings.TrimRight(strings.TrimSpace(c.Indicators.ActivityPath), "/")
	c.Indicators.ErrorPath = strings.TrimRight(strings.TrimSpace(c.Indicators.ErrorPath), "/")
	c.Indicators.ModeToken = strings.TrimSpace(c.Indicators.ModeToken)
	if c.Indicators.ModeToken == "" {
		c.Indicators.ModeToken = defaultLEDModeToken
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.DeviceDir = strings.TrimSpace(c.Storage.DeviceDir)
	if c.Storage.DeviceDir == "" {
		c.Storage.DeviceDir = defaultDeviceDir
	}
	prefixes := make([]string, 0, len(c.Storage.DevicePrefixes))
	seen := make(map[string]struct{}, len(c.Storage.DevicePrefixes))
	for _, prefix := range c.Storage.DevicePrefixes {
		normalized := strings.ToLower(strings.TrimSpace(prefix))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		prefixes = append(prefixes, normalized)
	}
	c.Storage.DevicePrefixes = prefixes
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("PIRIPPER_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
