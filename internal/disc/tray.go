package disc

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"piripper/internal/faults"
)

// ioctlCDROMDriveStatus is the Linux ioctl number for CDROM_DRIVE_STATUS.
const ioctlCDROMDriveStatus = 0x5326

// DriveStatus represents the result of a CDROM_DRIVE_STATUS ioctl call.
type DriveStatus int

const (
	DriveStatusNoInfo   DriveStatus = 0
	DriveStatusNoDisc   DriveStatus = 1
	DriveStatusTrayOpen DriveStatus = 2
	DriveStatusNotReady DriveStatus = 3
	DriveStatusDiscOK   DriveStatus = 4
)

// String returns a human-readable label for the drive status.
func (s DriveStatus) String() string {
	switch s {
	case DriveStatusNoInfo:
		return "no_info"
	case DriveStatusNoDisc:
		return "no_disc"
	case DriveStatusTrayOpen:
		return "tray_open"
	case DriveStatusNotReady:
		return "not_ready"
	case DriveStatusDiscOK:
		return "disc_ok"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Drive is an open handle on an optical drive.
type Drive interface {
	Status() (DriveStatus, error)
	Close() error
}

// Opener opens a drive by device path. OpenDrive is the production opener;
// tests substitute scripted drives.
type Opener func(devicePath string) (Drive, error)

type deviceDrive struct {
	path string
	fd   int
}

// OpenDrive opens devicePath read-only and non-blocking so the open succeeds
// with an empty or open tray.
func OpenDrive(devicePath string) (Drive, error) {
	devicePath = strings.TrimSpace(devicePath)
	if devicePath == "" {
		return nil, faults.Wrap(faults.ErrDevice, "disc", "open drive", "empty device path", nil)
	}
	fd, err := unix.Open(devicePath, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, faults.Wrap(faults.ErrDevice, "disc", "open drive", devicePath, err)
	}
	return &deviceDrive{path: devicePath, fd: fd}, nil
}

func (d *deviceDrive) Status() (DriveStatus, error) {
	r, err := unix.IoctlRetInt(d.fd, ioctlCDROMDriveStatus)
	if err != nil {
		return DriveStatusNoInfo, faults.Wrap(faults.ErrDevice, "disc", "ioctl CDROM_DRIVE_STATUS", d.path, err)
	}
	return DriveStatus(r), nil
}

func (d *deviceDrive) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

// CheckDriveStatus opens the drive, queries it once, and closes it.
func CheckDriveStatus(devicePath string) (DriveStatus, error) {
	return checkWith(OpenDrive, devicePath)
}

func checkWith(open Opener, devicePath string) (DriveStatus, error) {
	drive, err := open(devicePath)
	if err != nil {
		return DriveStatusNoInfo, err
	}
	defer drive.Close() //nolint:errcheck
	return drive.Status()
}
