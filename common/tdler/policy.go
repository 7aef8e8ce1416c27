package tdler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolveDestPath applies the overwrite policy when the destination already
// exists. The bool result asks the caller to skip the download entirely.
func resolveDestPath(dest, policy string) (string, bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(policy))
	if normalized == "" {
		normalized = "rename"
	}
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest, false, nil
	}
	switch normalized {
	case "overwrite":
		return dest, false, nil
	case "skip":
		return dest, true, nil
	case "rename":
		for i := 1; i <= 10000; i++ {
			candidate := appendSuffix(dest, i)
			if _, err := os.Stat(candidate); os.IsNotExist(err) {
				return candidate, false, nil
			}
		}
		return "", false, fmt.Errorf("unable to find available name for %s", dest)
	default:
		return "", false, fmt.Errorf("unsupported overwrite policy: %s", policy)
	}
}

func appendSuffix(dest string, index int) string {
	dir := filepath.Dir(dest)
	base := filepath.Base(dest)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf("%s (%d)%s", name, index, ext))
}
