// Package lifecycle implements the skill lifecycle manager: create, rename,
// edit, archive, restore and list operations over a directory-backed skill
// collection. All mutations funnel through a single serializing task queue,
// which is the only mutual-exclusion mechanism in the subsystem. The manager
// exclusively owns write access to the skills root and the archive root.
//
// Read-only operations hit current disk state directly and are not
// serialized; a reader may observe a skill mid-move (briefly absent from
// both the online and archived listings). This window is accepted and not
// closed by locking.
package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/skillet-dev/skillet/pkg/logger"
	"github.com/skillet-dev/skillet/pkg/sandbox"
	"github.com/skillet-dev/skillet/pkg/skill"
	"github.com/skillet-dev/skillet/pkg/taskqueue"
)

const (
	// DefaultWaitTimeout bounds how long a caller blocks on a mutation
	// before a timeout surfaces. The underlying task keeps running.
	DefaultWaitTimeout = 30 * time.Second

	// DefaultArchiveDirName is the archive root's directory name when no
	// explicit archive dir is configured, resolved under the skills root.
	DefaultArchiveDirName = ".archived"

	maxSkillNameLength = 50
)

var skillNameRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Config configures a Manager.
type Config struct {
	// SkillsDir is the root directory online skills live under. Required.
	SkillsDir string
	// ArchiveDir is where archived skills are moved. Defaults to
	// <SkillsDir>/.archived.
	ArchiveDir string
	// WaitTimeout bounds each mutating call. Defaults to DefaultWaitTimeout.
	WaitTimeout time.Duration
	// UnsafeDirectWrite makes EditSkillFile write straight to disk instead
	// of going through the boundary-enforced sandbox. The manager's own
	// path check still applies, but this is less safe; leave it off unless
	// the sandbox cannot be used.
	UnsafeDirectWrite bool
	// Logger receives the manager's and queue's log output. Defaults to
	// the global logger.
	Logger *logrus.Entry
}

// Manager performs lifecycle operations on a skill collection.
type Manager struct {
	skillsDir  string
	archiveDir string

	waitTimeout       time.Duration
	unsafeDirectWrite bool

	reader *skill.Reader
	queue  *taskqueue.Queue
	log    *logrus.Entry
}

// NewManager creates a manager for the given config.
func NewManager(config Config) (*Manager, error) {
	if config.SkillsDir == "" {
		return nil, errors.New("skills dir is required")
	}

	skillsDir, err := filepath.Abs(config.SkillsDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve skills dir")
	}

	archiveDir := config.ArchiveDir
	if archiveDir == "" {
		archiveDir = filepath.Join(skillsDir, DefaultArchiveDirName)
	} else if archiveDir, err = filepath.Abs(archiveDir); err != nil {
		return nil, errors.Wrap(err, "failed to resolve archive dir")
	}

	waitTimeout := config.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}

	log := config.Logger
	if log == nil {
		log = logger.L
	}

	return &Manager{
		skillsDir:         skillsDir,
		archiveDir:        archiveDir,
		waitTimeout:       waitTimeout,
		unsafeDirectWrite: config.UnsafeDirectWrite,
		reader:            skill.NewReader(skillsDir),
		queue:             taskqueue.New(log),
		log:               log,
	}, nil
}

// SkillsDir returns the online skills root.
func (m *Manager) SkillsDir() string {
	return m.skillsDir
}

// ArchiveDir returns the archive root.
func (m *Manager) ArchiveDir() string {
	return m.archiveDir
}

// QueueStatus returns a snapshot of the operation queue.
func (m *Manager) QueueStatus() taskqueue.StatusSnapshot {
	return m.queue.Status()
}

// submit wraps fn in a task, enqueues it, and blocks until it settles or the
// wait budget elapses. A timeout does not cancel the task.
func (m *Manager) submit(ctx context.Context, opType taskqueue.OpType, target string, fn func(ctx context.Context) error) error {
	task := taskqueue.NewTask(opType, target, fn)
	m.queue.Enqueue(task)
	return task.Wait(ctx, m.waitTimeout)
}

// ListSkills returns all online skills. Skills whose directory lies under
// the archive root are excluded.
func (m *Manager) ListSkills() ([]*skill.Skill, error) {
	scanned, err := m.reader.Scan()
	if err != nil {
		return nil, err
	}

	result := make([]*skill.Skill, 0, len(scanned))
	for _, s := range scanned {
		if isWithin(m.archiveDir, s.BaseDir) {
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

// GetSkillInfo returns full detail for an online skill.
func (m *Manager) GetSkillInfo(name string) (*skill.Details, error) {
	details, err := m.reader.Load(name)
	if err != nil {
		return nil, err
	}
	if details == nil {
		if m.isArchived(name) {
			return nil, &ArchivedSkillError{Name: name, Operation: "inspect"}
		}
		return nil, &NotFoundError{Resource: "skill " + name}
	}
	if isWithin(m.archiveDir, details.BaseDir) {
		return nil, &ArchivedSkillError{Name: name, Operation: "inspect"}
	}
	return details, nil
}

// GetSkillFileTree returns the file tree of an online skill.
func (m *Manager) GetSkillFileTree(name string) ([]*sandbox.FileTreeNode, error) {
	dir := filepath.Join(m.skillsDir, name)
	if _, err := os.Stat(dir); err != nil {
		if m.isArchived(name) {
			return nil, &ArchivedSkillError{Name: name, Operation: "list files of"}
		}
		return nil, &NotFoundError{Resource: "skill " + name}
	}
	if isWithin(m.archiveDir, dir) {
		return nil, &ArchivedSkillError{Name: name, Operation: "list files of"}
	}

	sb, err := sandbox.New(sandbox.Config{WorkDir: dir, EnforceBoundary: true})
	if err != nil {
		return nil, err
	}
	return sb.ListFiles(".")
}

// ListArchivedSkills scans the archive root's immediate subdirectories and
// returns the entries sorted newest first. The archive time is the
// directory's modification time when available, falling back to the
// timestamp decoded from the name. A missing archive root yields an empty
// list.
func (m *Manager) ListArchivedSkills() ([]*ArchivedSkill, error) {
	result := []*ArchivedSkill{}

	entries, err := os.ReadDir(m.archiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, errors.Wrap(err, "failed to read archive dir")
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(m.archiveDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, skill.ManifestFileName)); err != nil {
			continue
		}

		originalName, decodedAt, ok := parseArchivedName(entry.Name())
		if !ok {
			continue
		}

		archivedAt := decodedAt
		if info, err := entry.Info(); err == nil {
			archivedAt = info.ModTime()
		}

		result = append(result, &ArchivedSkill{
			OriginalName: originalName,
			ArchivedName: entry.Name(),
			ArchivedPath: dir,
			ArchivedAt:   archivedAt,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ArchivedAt.After(result[j].ArchivedAt)
	})
	return result, nil
}

// findArchived returns the archived entries whose original name matches.
func (m *Manager) findArchived(name string) []*ArchivedSkill {
	archived, err := m.ListArchivedSkills()
	if err != nil {
		return nil
	}
	var matches []*ArchivedSkill
	for _, entry := range archived {
		if entry.OriginalName == name {
			matches = append(matches, entry)
		}
	}
	return matches
}

func (m *Manager) isArchived(name string) bool {
	return len(m.findArchived(name)) > 0
}

// validateSkillName checks the name against the allowed character set and
// length bounds.
func validateSkillName(name string) error {
	if name == "" {
		return &ValidationError{Reason: "skill name must not be empty"}
	}
	if len(name) > maxSkillNameLength {
		return &ValidationError{Reason: "skill name must be at most 50 characters"}
	}
	if !skillNameRegexp.MatchString(name) {
		return &ValidationError{Reason: "skill name may only contain letters, digits, hyphens and underscores"}
	}
	return nil
}

// validateRelativePath rejects absolute paths and parent-directory escapes.
// The sandbox performs the same check again before touching the filesystem.
func validateRelativePath(relPath string) error {
	if relPath == "" {
		return &ValidationError{Reason: "file path must not be empty"}
	}
	if filepath.IsAbs(relPath) || strings.HasPrefix(relPath, "/") || strings.HasPrefix(relPath, "\\") {
		return &ValidationError{Reason: "file path " + relPath + " is outside the skill directory"}
	}
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return &ValidationError{Reason: "file path " + relPath + " is outside the skill directory"}
	}
	return nil
}

// isWithin reports whether path lies under root, by canonical prefix
// comparison rather than substring matching.
func isWithin(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if root == path {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
