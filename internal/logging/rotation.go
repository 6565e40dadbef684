package logging

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// rotate removes the oldest log files in dir when the number of files exceeds maxFiles.
// It only removes files named filePrefix*.log.
func rotate(dir string, maxFiles int) error {
	if maxFiles <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var logFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, ".log") {
			logFiles = append(logFiles, filepath.Join(dir, name))
		}
	}
	if len(logFiles) <= maxFiles {
		return nil
	}
	modTimes := make(map[string]int64, len(logFiles))
	for _, f := range logFiles {
		if info, err := os.Stat(f); err == nil {
			modTimes[f] = info.ModTime().UnixNano()
		}
	}
	// Oldest first; name breaks ties.
	sort.Slice(logFiles, func(i, j int) bool {
		a, b := modTimes[logFiles[i]], modTimes[logFiles[j]]
		if a != b {
			return a < b
		}
		return logFiles[i] < logFiles[j]
	})
	var errs []error
	for _, f := range logFiles[:len(logFiles)-maxFiles] {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
