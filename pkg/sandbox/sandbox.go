// Package sandbox provides boundary-enforced filesystem access scoped to a
// single working directory. Every path handed to a sandbox is interpreted
// relative to its work dir and rejected before any syscall if it would
// escape that directory. A sandbox carries no state between calls; callers
// construct a fresh one per operation.
package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// Config describes the execution context for a sandbox.
type Config struct {
	// WorkDir is the absolute directory all relative paths resolve against.
	WorkDir string
	// EnforceBoundary rejects paths that resolve outside WorkDir. The
	// lifecycle manager always sets this; turning it off is only for
	// callers that have already validated their paths.
	EnforceBoundary bool
	// AllowedPaths lists additional absolute directories reachable even
	// with boundary enforcement on.
	AllowedPaths []string
}

// Sandbox executes filesystem operations scoped to one working directory.
type Sandbox struct {
	config Config
}

// BoundaryViolationError reports a path that resolves outside the sandbox
// work dir. The check happens before any filesystem access.
type BoundaryViolationError struct {
	Path    string
	WorkDir string
}

func (e *BoundaryViolationError) Error() string {
	return fmt.Sprintf("path %q is outside the permitted root %q", e.Path, e.WorkDir)
}

// New creates a sandbox for the given config. WorkDir must be absolute.
func New(config Config) (*Sandbox, error) {
	if config.WorkDir == "" {
		return nil, errors.New("sandbox work dir is required")
	}
	if !filepath.IsAbs(config.WorkDir) {
		return nil, errors.Errorf("sandbox work dir must be absolute, got %q", config.WorkDir)
	}
	return &Sandbox{config: config}, nil
}

// resolve turns a relative path into an absolute path under the work dir,
// rejecting absolute inputs and parent-directory escapes when boundary
// enforcement is on.
func (s *Sandbox) resolve(relPath string) (string, error) {
	if !s.config.EnforceBoundary {
		if filepath.IsAbs(relPath) {
			return filepath.Clean(relPath), nil
		}
		return filepath.Join(s.config.WorkDir, relPath), nil
	}

	if filepath.IsAbs(relPath) {
		if s.isAllowed(filepath.Clean(relPath)) {
			return filepath.Clean(relPath), nil
		}
		return "", &BoundaryViolationError{Path: relPath, WorkDir: s.config.WorkDir}
	}

	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", &BoundaryViolationError{Path: relPath, WorkDir: s.config.WorkDir}
	}

	return filepath.Join(s.config.WorkDir, cleaned), nil
}

func (s *Sandbox) isAllowed(absPath string) bool {
	for _, allowed := range s.config.AllowedPaths {
		if absPath == allowed || strings.HasPrefix(absPath, allowed+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// ReadFile returns the contents of the file at relPath.
func (s *Sandbox) ReadFile(relPath string) ([]byte, error) {
	path, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", relPath)
	}
	return content, nil
}

// WriteFile writes content to relPath, creating intermediate directories as
// needed.
func (s *Sandbox) WriteFile(relPath string, content []byte) error {
	path, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create parent directory for %s", relPath)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", relPath)
	}
	return nil
}

// CreateDir creates the directory at relPath along with any parents.
func (s *Sandbox) CreateDir(relPath string) error {
	path, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", relPath)
	}
	return nil
}

// DeleteFile removes the file or directory at relPath using the platform's
// delete command. The underlying execution context exposes no direct delete
// primitive, so deletion shells out like any other command.
func (s *Sandbox) DeleteFile(ctx context.Context, relPath string) error {
	path, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	name, args := deleteCommand(path)
	if _, err := s.Exec(ctx, name, args...); err != nil {
		return errors.Wrapf(err, "failed to delete %s", relPath)
	}
	return nil
}

// Glob returns the forward-slash relative paths of files under the work dir
// matching the doublestar pattern.
func (s *Sandbox) Glob(pattern string) ([]string, error) {
	var matches []string
	err := filepath.Walk(s.config.WorkDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() && strings.HasPrefix(info.Name(), ".") && path != s.config.WorkDir {
			return filepath.SkipDir
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.config.WorkDir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "glob %q failed", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

// Exec runs a command with the sandbox work dir as its working directory and
// returns the combined output.
func (s *Sandbox) Exec(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = s.config.WorkDir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), errors.Wrapf(err, "command %s failed: %s", name, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}
