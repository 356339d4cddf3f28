package config

const (
	defaultConfigPath          = "~/.config/piripper/config.toml"
	defaultStateDir            = "~/.piripper"
	defaultOpticalDrive        = "/dev/sr0"
	defaultPollIntervalSeconds = 1
	defaultRipitBinary         = "ripit"
	defaultBitrateKbps         = 320
	defaultRipitThreads        = 4
	defaultDirPrefix           = "piripper"
	defaultEjectBinary         = "eject"
	defaultMountBinary         = "mount"
	defaultUmountBinary        = "umount"
	defaultActivityLED         = "/sys/class/leds/led0"
	defaultErrorLED            = "/sys/class/leds/led1"
	defaultLEDModeToken        = "gpio"
	defaultDeviceDir           = "/dev"
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30

	lockFileName  = "lock"
	outputDirName = "ripit-output"
	mountDirName  = "usb-mount"
	logDirName    = "logs"
)

var defaultDevicePrefixes = []string{"sda", "sdb"}

// Default returns a Config populated with repository defaults. Paths derived
// from the state directory are filled in during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Drive: Drive{
			Device:              defaultOpticalDrive,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			UdevWake:            true,
		},
		Ripit: Ripit{
			Binary:      defaultRipitBinary,
			BitrateKbps: defaultBitrateKbps,
			Threads:     defaultRipitThreads,
			DirPrefix:   defaultDirPrefix,
		},
		Tools: Tools{
			Eject:  defaultEjectBinary,
			Mount:  defaultMountBinary,
			Umount: defaultUmountBinary,
		},
		Indicators: Indicators{
			ActivityPath:        defaultActivityLED,
			ErrorPath:           defaultErrorLED,
			ModeToken:           defaultLEDModeToken,
			ClearErrorOnSuccess: true,
		},
		Storage: Storage{
			DeviceDir:      defaultDeviceDir,
			DevicePrefixes: append([]string(nil), defaultDevicePrefixes...),
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Rip:            true,
			Offload:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
