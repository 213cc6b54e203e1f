package composer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CleanupTempDir removes upload temp files in dir last modified before
// now-ttl. Files still pending in a live composer are younger than the
// composer idle TTL, so ttl must exceed it.
func CleanupTempDir(dir string, ttl time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read temp dir: %w", err)
	}

	cutoff := now.Add(-ttl)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "upload-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
