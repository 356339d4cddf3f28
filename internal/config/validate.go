package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDrive(); err != nil {
		return err
	}
	if err := c.validateRipit(); err != nil {
		return err
	}
	if err := c.validateIndicators(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDrive() error {
	if strings.TrimSpace(c.Drive.Device) == "" {
		return errors.New("drive.device must be set")
	}
	if c.Drive.PollIntervalSeconds <= 0 {
		return errors.New("drive.poll_interval_seconds must be positive")
	}
	if c.Drive.MaxPolls < 0 {
		return errors.New("drive.max_polls must be zero (unbounded) or positive")
	}
	return nil
}

func (c *Config) validateRipit() error {
	if strings.TrimSpace(c.Ripit.Binary) == "" {
		return errors.New("ripit.binary must be set")
	}
	if c.Ripit.BitrateKbps <= 0 {
		return errors.New("ripit.bitrate_kbps must be positive")
	}
	if c.Ripit.Threads <= 0 {
		return errors.New("ripit.threads must be positive")
	}
	if strings.TrimSpace(c.Ripit.DirPrefix) == "" {
		return errors.New("ripit.dir_prefix must be set")
	}
	if strings.ContainsAny(c.Ripit.DirPrefix, `/\`) {
		return fmt.Errorf("ripit.dir_prefix %q must not contain path separators", c.Ripit.DirPrefix)
	}
	return nil
}

func (c *Config) validateIndicators() error {
	if c.Indicators.ActivityPath == "" {
		return errors.New("indicators.activity_path must be set")
	}
	if c.Indicators.ErrorPath == "" {
		return errors.New("indicators.error_path must be set")
	}
	if c.Indicators.ActivityPath == c.Indicators.ErrorPath {
		return errors.New("indicators.activity_path and indicators.error_path must differ")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if len(c.Storage.DevicePrefixes) == 0 {
		return errors.New("storage.device_prefixes must list at least one prefix")
	}
	for _, prefix := range c.Storage.DevicePrefixes {
		if !isLetterPrefix(prefix) {
			return fmt.Errorf("storage.device_prefixes entry %q must contain only lowercase letters (e.g. sda)", prefix)
		}
	}
	return nil
}

// Device prefixes name whole disks such as "sda". Partitions are matched by
// appending digits, so a prefix must not end in one.
func isLetterPrefix(prefix string) bool {
	if prefix == "" {
		return false
	}
	for _, r := range prefix {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}
