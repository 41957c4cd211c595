package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/skillet-dev/skillet/pkg/sandbox"
	"github.com/skillet-dev/skillet/pkg/skill"
	"github.com/skillet-dev/skillet/pkg/taskqueue"
)

// manifestNameLineRegexp matches a manifest's name field line. Only the
// first match is rewritten on rename; the rest of the file is preserved
// byte-for-byte.
var manifestNameLineRegexp = regexp.MustCompile(`(?m)^name:\s*.+$`)

// CreateSkill creates a new skill directory skeleton with a generated
// manifest. A name colliding with an archived entry is rejected before the
// online namespace is checked, with a distinct error message.
func (m *Manager) CreateSkill(ctx context.Context, name, description string) error {
	if err := validateSkillName(name); err != nil {
		return err
	}

	return m.submit(ctx, taskqueue.OpCreate, name, func(ctx context.Context) error {
		if m.isArchived(name) {
			return &ConflictError{Reason: "skill \"" + name + "\" is archived; restore or permanently delete it first"}
		}

		dir := filepath.Join(m.skillsDir, name)
		if _, err := os.Stat(dir); err == nil {
			return &ConflictError{Reason: "skill \"" + name + "\" already exists"}
		}

		for _, sub := range []string{"", skill.ReferencesDir, skill.ScriptsDir, skill.AssetsDir} {
			if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
				return errors.Wrapf(err, "failed to create skill directory %s", name)
			}
		}

		manifest, err := generateManifest(name, description)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, skill.ManifestFileName), manifest, 0o644); err != nil {
			return errors.Wrap(err, "failed to write skill manifest")
		}

		m.log.WithField("skill", name).Info("skill created")
		return nil
	})
}

// RenameSkill renames an online skill and patches the name field in its
// manifest. Only the online namespace is checked for a collision with the
// new name; an archived entry named newName does not block the rename.
func (m *Manager) RenameSkill(ctx context.Context, oldName, newName string) error {
	if err := validateSkillName(newName); err != nil {
		return err
	}

	return m.submit(ctx, taskqueue.OpRename, oldName+" -> "+newName, func(ctx context.Context) error {
		oldDir := filepath.Join(m.skillsDir, oldName)
		if _, err := os.Stat(oldDir); err != nil {
			return &NotFoundError{Resource: "skill " + oldName}
		}

		newDir := filepath.Join(m.skillsDir, newName)
		if _, err := os.Stat(newDir); err == nil {
			return &ConflictError{Reason: "skill \"" + newName + "\" already exists"}
		}

		if err := os.Rename(oldDir, newDir); err != nil {
			return errors.Wrapf(err, "failed to rename skill %s", oldName)
		}

		if err := patchManifestName(filepath.Join(newDir, skill.ManifestFileName), newName); err != nil {
			return err
		}

		m.log.WithFields(logrus.Fields{"from": oldName, "to": newName}).Info("skill renamed")
		return nil
	})
}

// EditSkillFile writes content to a file inside an online skill directory.
// The path is validated here and again by the sandbox; archived skills are
// not editable. With UnsafeDirectWrite set the sandbox is bypassed and the
// write goes straight to disk, relying on this function's check alone.
func (m *Manager) EditSkillFile(ctx context.Context, name, relPath string, content []byte) error {
	if err := validateRelativePath(relPath); err != nil {
		return err
	}

	return m.submit(ctx, taskqueue.OpEdit, name, func(ctx context.Context) error {
		dir := filepath.Join(m.skillsDir, name)
		if _, err := os.Stat(dir); err != nil {
			if m.isArchived(name) {
				return &ArchivedSkillError{Name: name, Operation: "edit"}
			}
			return &NotFoundError{Resource: "skill " + name}
		}
		if isWithin(m.archiveDir, dir) {
			return &ArchivedSkillError{Name: name, Operation: "edit"}
		}

		if m.unsafeDirectWrite {
			path := filepath.Join(dir, filepath.FromSlash(relPath))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return errors.Wrapf(err, "failed to create parent directory for %s", relPath)
			}
			if err := os.WriteFile(path, content, 0o644); err != nil {
				return errors.Wrapf(err, "failed to write %s", relPath)
			}
		} else {
			sb, err := sandbox.New(sandbox.Config{WorkDir: dir, EnforceBoundary: true})
			if err != nil {
				return err
			}
			if err := sb.WriteFile(relPath, content); err != nil {
				return err
			}
		}

		m.log.WithFields(logrus.Fields{"skill": name, "path": relPath}).Info("skill file written")
		return nil
	})
}

// DeleteSkill archives a skill: its directory is moved, not copied, under
// the archive root with a timestamp-suffixed name.
func (m *Manager) DeleteSkill(ctx context.Context, name string) error {
	return m.submit(ctx, taskqueue.OpDelete, name, func(ctx context.Context) error {
		dir := filepath.Join(m.skillsDir, name)
		if _, err := os.Stat(dir); err != nil {
			return &NotFoundError{Resource: "skill " + name}
		}

		if err := os.MkdirAll(m.archiveDir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create archive dir")
		}

		archivedName := archiveDirName(name, time.Now())
		if err := os.Rename(dir, filepath.Join(m.archiveDir, archivedName)); err != nil {
			return errors.Wrapf(err, "failed to archive skill %s", name)
		}

		m.log.WithFields(logrus.Fields{"skill": name, "archived_as": archivedName}).Info("skill archived")
		return nil
	})
}

// RestoreSkill moves an archived skill back under the skills root using its
// original name, recovered by stripping the timestamp suffix.
func (m *Manager) RestoreSkill(ctx context.Context, archivedName string) error {
	originalName, _, ok := parseArchivedName(archivedName)
	if !ok {
		return &ValidationError{Reason: "\"" + archivedName + "\" is not a valid archived skill name"}
	}
	// the name group of the archive encoding is permissive; a recovered name
	// with separators or dots would resolve outside the roots
	if err := validateSkillName(originalName); err != nil {
		return err
	}

	return m.submit(ctx, taskqueue.OpRestore, archivedName, func(ctx context.Context) error {
		archivedDir := filepath.Join(m.archiveDir, archivedName)
		if _, err := os.Stat(archivedDir); err != nil {
			return &NotFoundError{Resource: "archived skill " + archivedName}
		}

		targetDir := filepath.Join(m.skillsDir, originalName)
		if _, err := os.Stat(targetDir); err == nil {
			return &ConflictError{Reason: "skill \"" + originalName + "\" already exists"}
		}

		if err := os.Rename(archivedDir, targetDir); err != nil {
			return errors.Wrapf(err, "failed to restore skill %s", archivedName)
		}

		m.log.WithFields(logrus.Fields{"archived": archivedName, "skill": originalName}).Info("skill restored")
		return nil
	})
}

// generateManifest renders a new skill's SKILL.md: YAML frontmatter followed
// by a starter body.
func generateManifest(name, description string) ([]byte, error) {
	frontmatter, err := yaml.Marshal(skill.Metadata{Name: name, Description: description})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal manifest frontmatter")
	}

	manifest := "---\n" + string(frontmatter) + "---\n\n# " + name + "\n\n" + description + "\n"
	return []byte(manifest), nil
}

// patchManifestName rewrites the first name field line of a manifest,
// leaving every other byte untouched.
func patchManifestName(path, newName string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read skill manifest")
	}

	loc := manifestNameLineRegexp.FindIndex(content)
	if loc == nil {
		return nil
	}

	patched := make([]byte, 0, len(content))
	patched = append(patched, content[:loc[0]]...)
	patched = append(patched, []byte("name: "+newName)...)
	patched = append(patched, content[loc[1]:]...)

	if err := os.WriteFile(path, patched, 0o644); err != nil {
		return errors.Wrap(err, "failed to write skill manifest")
	}
	return nil
}
