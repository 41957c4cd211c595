package lifecycle

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillet-dev/skillet/pkg/skill"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	m, err := NewManager(Config{
		SkillsDir: t.TempDir(),
		Logger:    logrus.NewEntry(log),
	})
	require.NoError(t, err)
	return m
}

func TestNewManager(t *testing.T) {
	t.Run("requires skills dir", func(t *testing.T) {
		_, err := NewManager(Config{})
		assert.ErrorContains(t, err, "skills dir is required")
	})

	t.Run("defaults", func(t *testing.T) {
		m := newTestManager(t)
		assert.Equal(t, filepath.Join(m.SkillsDir(), DefaultArchiveDirName), m.ArchiveDir())
		assert.Equal(t, DefaultWaitTimeout, m.waitTimeout)
	})
}

func TestCreateSkill(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSkill(ctx, "demo", "A demo skill"))

	dir := filepath.Join(m.SkillsDir(), "demo")
	for _, sub := range []string{skill.ReferencesDir, skill.ScriptsDir, skill.AssetsDir} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	content, err := os.ReadFile(filepath.Join(dir, skill.ManifestFileName))
	require.NoError(t, err)
	assert.Contains(t, string(content), "name: demo")
	assert.Contains(t, string(content), "description: A demo skill")
	assert.True(t, strings.HasPrefix(string(content), "---\n"))

	md, err := skill.ParseManifest(filepath.Join(dir, skill.ManifestFileName))
	require.NoError(t, err)
	assert.Equal(t, "demo", md.Name)
	assert.Equal(t, "A demo skill", md.Description)

	skills, err := m.ListSkills()
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Equal(t, "demo", skills[0].Name)
	assert.False(t, skills[0].UpdatedAt.IsZero())
}

func TestCreateSkillValidation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	cases := []struct {
		name      string
		skillName string
	}{
		{"empty", ""},
		{"spaces", "my skill"},
		{"path separator", "a/b"},
		{"dots", "../escape"},
		{"too long", strings.Repeat("a", 51)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := m.CreateSkill(ctx, tc.skillName, "desc")
			require.Error(t, err)

			var validation *ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}

	t.Run("50 chars allowed", func(t *testing.T) {
		assert.NoError(t, m.CreateSkill(ctx, strings.Repeat("a", 50), "desc"))
	})
}

func TestCreateSkillConflicts(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSkill(ctx, "demo", "first"))

	t.Run("online collision", func(t *testing.T) {
		err := m.CreateSkill(ctx, "demo", "second")
		require.Error(t, err)

		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Contains(t, err.Error(), "already exists")
		assert.NotContains(t, err.Error(), "archived")
	})

	t.Run("archived collision checked first", func(t *testing.T) {
		require.NoError(t, m.DeleteSkill(ctx, "demo"))

		err := m.CreateSkill(ctx, "demo", "third")
		require.Error(t, err)

		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Contains(t, err.Error(), "archived")
		assert.Contains(t, err.Error(), "restore or permanently delete it first")
	})
}

func TestRenameSkill(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSkill(ctx, "old-name", "A skill"))

	// extra manifest content must survive the rename untouched
	manifestPath := filepath.Join(m.SkillsDir(), "old-name", skill.ManifestFileName)
	original, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	extended := append(original, []byte("\n## Notes\n\nname: not-the-frontmatter-name\n")...)
	require.NoError(t, os.WriteFile(manifestPath, extended, 0o644))

	require.NoError(t, m.RenameSkill(ctx, "old-name", "new-name"))

	_, err = os.Stat(filepath.Join(m.SkillsDir(), "old-name"))
	assert.True(t, os.IsNotExist(err))

	patched, err := os.ReadFile(filepath.Join(m.SkillsDir(), "new-name", skill.ManifestFileName))
	require.NoError(t, err)
	assert.Contains(t, string(patched), "name: new-name")
	// only the first name: line changes
	assert.Contains(t, string(patched), "name: not-the-frontmatter-name")
	assert.Equal(t,
		strings.Replace(string(extended), "name: old-name", "name: new-name", 1),
		string(patched))
}

func TestRenameSkillErrors(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	t.Run("source missing", func(t *testing.T) {
		err := m.RenameSkill(ctx, "ghost", "anything")
		require.Error(t, err)

		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("target exists online", func(t *testing.T) {
		require.NoError(t, m.CreateSkill(ctx, "alpha", "a"))
		require.NoError(t, m.CreateSkill(ctx, "beta", "b"))

		err := m.RenameSkill(ctx, "alpha", "beta")
		require.Error(t, err)

		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("archived target name does not block", func(t *testing.T) {
		require.NoError(t, m.CreateSkill(ctx, "gamma", "g"))
		require.NoError(t, m.DeleteSkill(ctx, "gamma"))
		require.NoError(t, m.CreateSkill(ctx, "delta", "d"))

		// only the online namespace is checked for the new name
		assert.NoError(t, m.RenameSkill(ctx, "delta", "gamma"))
	})

	t.Run("invalid new name", func(t *testing.T) {
		err := m.RenameSkill(ctx, "alpha", "bad name!")
		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
	})
}

func TestEditSkillFile(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSkill(ctx, "demo", "A skill"))

	t.Run("writes through the sandbox", func(t *testing.T) {
		require.NoError(t, m.EditSkillFile(ctx, "demo", "scripts/run.sh", []byte("#!/bin/sh\n")))

		content, err := os.ReadFile(filepath.Join(m.SkillsDir(), "demo", "scripts", "run.sh"))
		require.NoError(t, err)
		assert.Equal(t, "#!/bin/sh\n", string(content))
	})

	t.Run("creates intermediate directories", func(t *testing.T) {
		require.NoError(t, m.EditSkillFile(ctx, "demo", "references/deep/nested.md", []byte("ref")))
		_, err := os.Stat(filepath.Join(m.SkillsDir(), "demo", "references", "deep", "nested.md"))
		assert.NoError(t, err)
	})

	t.Run("rejects traversal", func(t *testing.T) {
		err := m.EditSkillFile(ctx, "demo", "../escape.txt", []byte("nope"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside")

		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
		_, statErr := os.Stat(filepath.Join(m.SkillsDir(), "escape.txt"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("rejects absolute path", func(t *testing.T) {
		err := m.EditSkillFile(ctx, "demo", "/etc/passwd", []byte("nope"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside")
	})

	t.Run("rejects archived skill", func(t *testing.T) {
		require.NoError(t, m.CreateSkill(ctx, "gone", "soon archived"))
		require.NoError(t, m.DeleteSkill(ctx, "gone"))

		err := m.EditSkillFile(ctx, "gone", "SKILL.md", []byte("nope"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot edit archived")

		var archived *ArchivedSkillError
		assert.ErrorAs(t, err, &archived)
	})

	t.Run("unknown skill", func(t *testing.T) {
		err := m.EditSkillFile(ctx, "ghost", "file.txt", []byte("x"))
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestEditSkillFileUnsafeDirectWrite(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	m, err := NewManager(Config{
		SkillsDir:         t.TempDir(),
		UnsafeDirectWrite: true,
		Logger:            logrus.NewEntry(log),
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.CreateSkill(ctx, "demo", "A skill"))
	require.NoError(t, m.EditSkillFile(ctx, "demo", "notes.md", []byte("direct")))

	content, err := os.ReadFile(filepath.Join(m.SkillsDir(), "demo", "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "direct", string(content))

	// the manager's own path check still applies
	err = m.EditSkillFile(ctx, "demo", "../escape.txt", []byte("nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside")
}

func TestDeleteSkill(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSkill(ctx, "demo", "A skill"))
	require.NoError(t, m.DeleteSkill(ctx, "demo"))

	skills, err := m.ListSkills()
	require.NoError(t, err)
	assert.Empty(t, skills)

	entries, err := os.ReadDir(m.ArchiveDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, regexp.MustCompile(`^demo_\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}(-\d{3})?Z$`), entries[0].Name())

	// full move: the manifest travelled with the directory
	_, err = os.Stat(filepath.Join(m.ArchiveDir(), entries[0].Name(), skill.ManifestFileName))
	assert.NoError(t, err)

	t.Run("missing skill", func(t *testing.T) {
		err := m.DeleteSkill(ctx, "ghost")
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestListArchivedSkills(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	t.Run("empty when archive root missing", func(t *testing.T) {
		archived, err := m.ListArchivedSkills()
		require.NoError(t, err)
		require.NotNil(t, archived)
		assert.Empty(t, archived)
	})

	require.NoError(t, m.CreateSkill(ctx, "first", "archived earlier"))
	require.NoError(t, m.CreateSkill(ctx, "second", "archived later"))
	require.NoError(t, m.DeleteSkill(ctx, "first"))
	require.NoError(t, m.DeleteSkill(ctx, "second"))

	// force distinct, ordered mtimes on the archived directories
	entries, err := os.ReadDir(m.ArchiveDir())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	base := time.Now().Add(-time.Hour)
	for _, entry := range entries {
		ts := base
		if strings.HasPrefix(entry.Name(), "second_") {
			ts = base.Add(10 * time.Millisecond)
		}
		require.NoError(t, os.Chtimes(filepath.Join(m.ArchiveDir(), entry.Name()), ts, ts))
	}

	archived, err := m.ListArchivedSkills()
	require.NoError(t, err)
	require.Len(t, archived, 2)
	assert.Equal(t, "second", archived[0].OriginalName)
	assert.Equal(t, "first", archived[1].OriginalName)
	assert.True(t, archived[0].ArchivedAt.After(archived[1].ArchivedAt))

	t.Run("entries without a manifest are skipped", func(t *testing.T) {
		bogus := filepath.Join(m.ArchiveDir(), "bogus_2024-01-01T00-00-00Z")
		require.NoError(t, os.MkdirAll(bogus, 0o755))

		archived, err := m.ListArchivedSkills()
		require.NoError(t, err)
		assert.Len(t, archived, 2)
	})

	t.Run("entries with unparseable names are skipped", func(t *testing.T) {
		odd := filepath.Join(m.ArchiveDir(), "not-an-archive-name")
		require.NoError(t, os.MkdirAll(odd, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(odd, skill.ManifestFileName), []byte("---\nname: x\ndescription: y\n---\n"), 0o644))

		archived, err := m.ListArchivedSkills()
		require.NoError(t, err)
		assert.Len(t, archived, 2)
	})
}

func TestRestoreSkill(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSkill(ctx, "demo", "A skill"))
	require.NoError(t, m.DeleteSkill(ctx, "demo"))

	archived, err := m.ListArchivedSkills()
	require.NoError(t, err)
	require.Len(t, archived, 1)

	t.Run("conflict with recreated online skill", func(t *testing.T) {
		require.NoError(t, m.CreateSkill(ctx, "demo", "recreated"))

		err := m.RestoreSkill(ctx, archived[0].ArchivedName)
		require.Error(t, err)

		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Contains(t, err.Error(), "already exists")

		// keep the second archive's timestamp distinct from the first
		time.Sleep(2 * time.Millisecond)
		require.NoError(t, m.DeleteSkill(ctx, "demo"))
	})

	t.Run("restores under the original name", func(t *testing.T) {
		require.NoError(t, m.RestoreSkill(ctx, archived[0].ArchivedName))

		details, err := m.GetSkillInfo("demo")
		require.NoError(t, err)
		assert.Equal(t, "demo", details.Name)
		assert.Equal(t, "A skill", details.Description)

		_, err = os.Stat(archived[0].ArchivedPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing archived entry", func(t *testing.T) {
		err := m.RestoreSkill(ctx, "ghost_2024-01-01T00-00-00Z")
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("invalid archived name", func(t *testing.T) {
		err := m.RestoreSkill(ctx, "not-an-archive-name")
		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("traversal in archived name", func(t *testing.T) {
		err := m.RestoreSkill(ctx, "../evil_2024-01-01T00-00-00Z")
		require.Error(t, err)

		var validation *ValidationError
		require.ErrorAs(t, err, &validation)

		// nothing may appear outside the skills root
		_, statErr := os.Stat(filepath.Join(filepath.Dir(m.SkillsDir()), "evil"))
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestGetSkillInfo(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSkill(ctx, "demo", "A skill"))
	require.NoError(t, m.EditSkillFile(ctx, "demo", "scripts/run.sh", []byte("#!/bin/sh\n")))

	details, err := m.GetSkillInfo("demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", details.Name)
	assert.Equal(t, "A skill", details.Description)
	assert.Equal(t, []string{"scripts/run.sh"}, details.Scripts)
	assert.Contains(t, details.Content, "# demo")

	t.Run("not found", func(t *testing.T) {
		_, err := m.GetSkillInfo("ghost")
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("archived", func(t *testing.T) {
		require.NoError(t, m.DeleteSkill(ctx, "demo"))

		_, err := m.GetSkillInfo("demo")
		var archived *ArchivedSkillError
		require.ErrorAs(t, err, &archived)
	})
}

func TestGetSkillFileTree(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSkill(ctx, "demo", "A skill"))
	require.NoError(t, m.EditSkillFile(ctx, "demo", "scripts/run.sh", []byte("#!/bin/sh\n")))

	nodes, err := m.GetSkillFileTree("demo")
	require.NoError(t, err)
	require.NotEmpty(t, nodes)

	// directories sort before files
	assert.Equal(t, "assets", nodes[0].Name)
	var manifest bool
	for _, node := range nodes {
		if node.Name == skill.ManifestFileName {
			manifest = true
			assert.NotZero(t, node.Size)
		}
	}
	assert.True(t, manifest)

	t.Run("archived", func(t *testing.T) {
		require.NoError(t, m.DeleteSkill(ctx, "demo"))

		_, err := m.GetSkillFileTree("demo")
		var archived *ArchivedSkillError
		require.ErrorAs(t, err, &archived)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := m.GetSkillFileTree("ghost")
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestListSkillsExcludesArchiveRoot(t *testing.T) {
	// archive dir configured inside the skills root without a dot prefix:
	// its contents must still be excluded from the online listing
	log := logrus.New()
	log.SetOutput(io.Discard)
	skillsDir := t.TempDir()
	m, err := NewManager(Config{
		SkillsDir:  skillsDir,
		ArchiveDir: filepath.Join(skillsDir, "archive"),
		Logger:     logrus.NewEntry(log),
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.CreateSkill(ctx, "keep", "stays online"))
	require.NoError(t, m.CreateSkill(ctx, "drop", "gets archived"))
	require.NoError(t, m.DeleteSkill(ctx, "drop"))

	skills, err := m.ListSkills()
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Equal(t, "keep", skills[0].Name)
}

func TestConcurrentMutations(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = m.CreateSkill(ctx, fmt.Sprintf("skill-%d", i), "concurrent")
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "create %d", i)
	}

	skills, err := m.ListSkills()
	require.NoError(t, err)
	assert.Len(t, skills, n)
}

func TestQueueStatus(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSkill(ctx, "demo", "A skill"))

	status := m.QueueStatus()
	assert.Equal(t, 0, status.Length)
	assert.NotNil(t, status.Tasks)
}
