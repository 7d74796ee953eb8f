// Package project provides ways of answering "which project is open".
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Iron-Ham/svcdeck/internal/errors"
)

// Static always answers with the same project path. The path can be
// replaced with Set, e.g. when a front end opens a different project.
type Static struct {
	mu   sync.RWMutex
	path string
}

// NewStatic creates a Static locator for path.
func NewStatic(path string) *Static {
	return &Static{path: path}
}

// Set replaces the project path.
func (s *Static) Set(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
}

// Path returns the configured path, which may be empty.
func (s *Static) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// CurrentProjectPath returns the configured path, or an error when none is set.
func (s *Static) CurrentProjectPath(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.path == "" {
		return "", errors.NewNotFoundError("project", "current")
	}
	return s.path, nil
}

// WorkingDir answers with the process working directory.
type WorkingDir struct{}

// CurrentProjectPath returns the absolute working directory.
func (WorkingDir) CurrentProjectPath(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

// Resolve returns an absolute form of path, falling back to the working
// directory when path is empty. Host network paths are returned unchanged.
func Resolve(path string) (string, error) {
	if path == "" {
		return WorkingDir{}.CurrentProjectPath(context.Background())
	}
	if len(path) >= 2 && (path[:2] == `\\` || path[:2] == "//") {
		return path, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project path %q: %w", path, err)
	}
	return abs, nil
}
