package daemon

import (
	"fmt"
	"os"
	"path/filepath"
)

// MaxLogSize is the size at which the background log is rotated.
const MaxLogSize = 5 << 20

// openLogFile opens path for appending, first moving it to path+".old" when
// it has grown past maxSize. Only one old generation is kept.
func openLogFile(path string, maxSize int64) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if info, err := os.Stat(path); err == nil && maxSize > 0 && info.Size() >= maxSize {
		backup := path + ".old"
		_ = os.Remove(backup)
		if err := os.Rename(path, backup); err != nil {
			return nil, fmt.Errorf("failed to rotate log: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}
