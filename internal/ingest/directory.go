package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/production-tracker/constants"
)

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// ScanDirectory walks root and returns the workbook files under it in lexical
// order. Hidden files and directories are skipped when skipHidden is set.
// Unreadable entries are counted as failures and do not stop the walk.
func ScanDirectory(root string, skipHidden bool) ([]string, DirStats, []FileResult, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, nil, errors.New("root_path is required")
	}

	var (
		paths  []string
		stats  DirStats
		failed []FileResult
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			failed = append(failed, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil // continue walking
		}
		// skip hidden dirs/files if requested
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !constants.AllowedExt(filepath.Ext(path)) || isLockFile(path) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, stats, failed, fmt.Errorf("walk: %w", err)
	}
	sort.Strings(paths)
	return paths, stats, failed, nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// isLockFile matches the "~$name.xlsx" owner files Excel leaves next to open workbooks.
func isLockFile(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "~$")
}
