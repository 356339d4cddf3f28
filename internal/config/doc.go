// Package config loads, normalizes, and validates piripper configuration data.
//
// It supplies compiled-in defaults for a stock Raspberry Pi deployment (drive
// /dev/sr0, ripit at 320 kbps, LEDs under /sys/class/leds), expands user paths including tilde shortcuts, reads TOML
// files, and honours environment fallbacks such as PIRIPPER_NTFY_TOPIC.
//
// A Config is built once at startup and handed to each component by pointer;
// nothing in the daemon reads process-wide path constants. Always obtain
// settings through this package so downstream code receives absolute paths
// and clear validation errors.
package config
