// Package disc talks to the optical drive.
//
// It queries tray and media state through the CDROM_DRIVE_STATUS ioctl,
// blocks until a readable disc is present, ejects the tray through the
// eject utility, and optionally listens for udev media events so a poll
// sleep can be cut short when the kernel reports new media.
package disc
