package offload

import (
	"github.com/shirou/gopsutil/disk"
)

// FreeSpaceFunc reports the bytes available on the filesystem holding path.
type FreeSpaceFunc func(path string) (uint64, error)

// diskFree probes the mounted storage with gopsutil.
func diskFree(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}
