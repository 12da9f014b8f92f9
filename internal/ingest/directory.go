// Package ingest discovers contract documents on disk.
package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/leases-tracker/constants"
)

type DirStats struct {
	Scanned uint32 `json:"scanned"`
	Matched uint32 `json:"matched"`
	Failed  uint32 `json:"failed"`
}

// FileError is a path the walk could not read.
type FileError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// ScanDirectory walks root and returns, sorted, every file whose extension
// is in includeExts (constants.AllowedExtensions when empty). Unreadable
// entries are reported and skipped; the walk goes on.
func ScanDirectory(root string, includeExts []string, skipHidden bool) ([]string, []FileError, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}

	exts := constants.AllowedExtensions
	if len(includeExts) > 0 {
		exts = map[string]struct{}{}
		for _, e := range includeExts {
			if e = constants.NormalizeExt(strings.TrimSpace(e)); e != "" {
				exts[e] = struct{}{}
			}
		}
	}

	var (
		paths  []string
		failed []FileError
		stats  DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			failed = append(failed, FileError{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if _, ok := exts[constants.NormalizeExt(filepath.Ext(path))]; !ok {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, failed, stats, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, failed, stats, nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
