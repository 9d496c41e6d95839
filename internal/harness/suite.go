package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// FindScenarios returns the .yaml and .yml files under dir, sorted. A
// non-empty filter is a glob matched against the file name without its
// extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// SnapshotBytes renders the canonical golden form of result.
func SnapshotBytes(name string, result *Result) ([]byte, error) {
	data, err := model.MarshalCanonical(NewSnapshot(name, result))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// GoldenStatus is the outcome of comparing a result with its golden file.
type GoldenStatus int

const (
	GoldenMatch GoldenStatus = iota
	GoldenMismatch
	GoldenMissing
)

// CompareGolden compares result with the golden file at path.
func CompareGolden(path, name string, result *Result) (GoldenStatus, error) {
	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return GoldenMissing, nil
	}
	if err != nil {
		return GoldenMismatch, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := SnapshotBytes(name, result)
	if err != nil {
		return GoldenMismatch, err
	}
	if string(got) != string(want) {
		return GoldenMismatch, nil
	}
	return GoldenMatch, nil
}

// WriteGolden writes result's snapshot to path, creating its directory.
func WriteGolden(path, name string, result *Result) error {
	data, err := SnapshotBytes(name, result)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}
