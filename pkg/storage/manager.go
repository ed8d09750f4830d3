package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"emotedl/pkg/errors"
)

// Manager owns one destination directory. The filesystem is the only record
// of what was downloaded, so existence is always checked on disk.
type Manager struct {
	outputDir string
	locks     sync.Map
	saved     atomic.Int64
}

// NewManager creates the output directory, including parents, and a manager for it
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Write(outputDir, fmt.Errorf("failed to create output directory: %w", err))
	}

	return &Manager{outputDir: outputDir}, nil
}

// SanitizeName makes a display or emote name safe to use as a single path
// element. Whitespace is kept so names that differ only by it stay distinct.
func SanitizeName(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_", "\x00", "").Replace(name)
	switch name {
	case "", ".", "..":
		return "_" + name
	}
	return name
}

// Path returns the on-disk path of a file name
func (m *Manager) Path(fileName string) string {
	return filepath.Join(m.outputDir, SanitizeName(fileName))
}

// Exists reports whether a file of that name is already present
func (m *Manager) Exists(fileName string) bool {
	_, err := os.Stat(m.Path(fileName))
	return err == nil
}

// Lock serializes work on one file name and returns the unlock function.
// Holding it across Exists and Save makes check-then-create atomic.
func (m *Manager) Lock(fileName string) func() {
	v, _ := m.locks.LoadOrStore(m.Path(fileName), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Save writes r to fileName through a temporary file and an atomic rename.
// No partial file is left behind on failure.
func (m *Manager) Save(r io.Reader, fileName string) (int64, error) {
	target := m.Path(fileName)

	out, err := os.CreateTemp(m.outputDir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return 0, errors.Write(target, fmt.Errorf("failed to create temporary file: %w", err))
	}
	tempFile := out.Name()

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return n, errors.Write(target, fmt.Errorf("failed to save data: %w", err))
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return n, errors.Write(target, fmt.Errorf("failed to close file: %w", closeErr))
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return n, errors.Write(target, err)
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return n, errors.Write(target, fmt.Errorf("failed to rename temporary file: %w", err))
	}

	m.saved.Add(1)
	return n, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// SavedCount returns the number of files written by this manager
func (m *Manager) SavedCount() int {
	return int(m.saved.Load())
}
