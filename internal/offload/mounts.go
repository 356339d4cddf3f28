package offload

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const procMounts = "/proc/mounts"

// mountedAt reports whether something is mounted on dir according to the
// mounts table at mountsPath.
func mountedAt(mountsPath, dir string) (bool, error) {
	f, err := os.Open(mountsPath)
	if err != nil {
		return false, fmt.Errorf("open mounts: %w", err)
	}
	defer f.Close()

	want := canonical(dir)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if canonical(decodeMountField(fields[1])) == want {
			return true, nil
		}
	}
	return false, scanner.Err()
}

func canonical(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil && resolved != "" {
		return resolved
	}
	return filepath.Clean(path)
}

// decodeMountField undoes the octal escapes (\040 for space and friends)
// the kernel applies to /proc/mounts fields.
func decodeMountField(field string) string {
	if !strings.Contains(field, `\`) {
		return field
	}
	var b strings.Builder
	for i := 0; i < len(field); i++ {
		if field[i] == '\\' && i+4 <= len(field) {
			if v, err := strconv.ParseUint(field[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(field[i])
	}
	return b.String()
}
