package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"piripper/internal/config"
	"piripper/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDevice verifies that a device node exists and is readable.
func CheckDevice(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	kind := "file"
	if info.Mode()&os.ModeDevice != 0 {
		kind = "device"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s, readable)", path, kind)}
}

// CheckIndicator verifies that an LED class directory exposes writable
// trigger and brightness attributes.
func CheckIndicator(name, dir string) Result {
	for _, attr := range []string{"trigger", "brightness"} {
		path := filepath.Join(dir, attr)
		if _, err := os.Stat(path); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s missing)", dir, attr)}
		}
		if err := unix.Access(path, unix.W_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s not writable: %v)", dir, attr, err)}
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (writable)", dir)}
}

// CheckSystemDeps evaluates the external programs for the given config.
// Both the daemon and the CLI status command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "ripit",
			Command:     cfg.Ripit.Binary,
			Description: "Required for ripping and encoding audio tracks",
		},
		{
			Name:        "eject",
			Command:     cfg.Tools.Eject,
			Description: "Required to open the drive tray",
		},
		{
			Name:        "mount",
			Command:     cfg.Tools.Mount,
			Description: "Required to offload to removable storage",
			Optional:    true,
		},
		{
			Name:        "umount",
			Command:     cfg.Tools.Umount,
			Description: "Required to offload to removable storage",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}
