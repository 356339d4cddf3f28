package offload

import (
	"os"
	"path/filepath"
	"strings"
)

// MatchStorageName reports whether name is one of prefixes followed by one
// or more ASCII digits, e.g. sda1 or sdb12 but not sda or sdc1.
func MatchStorageName(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix == "" || !strings.HasPrefix(name, prefix) {
			continue
		}
		if isDigits(name[len(prefix):]) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FindConnectedStorage returns the path of the first entry in dir matching
// MatchStorageName, or "" when none is present.
func FindConnectedStorage(dir string, prefixes []string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if MatchStorageName(entry.Name(), prefixes) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", nil
}
