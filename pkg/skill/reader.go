package skill

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

// Reader scans and loads skills from a root directory. It keeps no state
// between calls; every Scan or Load re-reads the filesystem.
type Reader struct {
	root string
}

// NewReader creates a reader bound to the given skills root directory.
func NewReader(root string) *Reader {
	return &Reader{root: root}
}

// Root returns the skills root directory the reader is bound to.
func (r *Reader) Root() string {
	return r.root
}

// Scan enumerates all skills directly under the root. Directories without a
// SKILL.md, or whose SKILL.md lacks valid frontmatter, are skipped silently.
func (r *Reader) Scan() ([]*Skill, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read skills root")
	}

	var result []*Skill
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		s, err := r.readSkill(filepath.Join(r.root, entry.Name()))
		if err != nil {
			continue
		}
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Load returns the full details of the named skill, or nil if no directory
// with that name exists under the root.
func (r *Reader) Load(name string) (*Details, error) {
	dir := filepath.Join(r.root, name)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to stat skill directory %s", dir)
	}

	s, err := r.readSkill(dir)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill manifest")
	}

	details := &Details{
		Skill:   *s,
		Content: ExtractBody(string(content)),
	}
	details.References = listRelativeFiles(dir, ReferencesDir)
	details.Scripts = listRelativeFiles(dir, ScriptsDir)
	details.Assets = listRelativeFiles(dir, AssetsDir)

	return details, nil
}

// readSkill parses the manifest in dir and derives timestamps from the
// directory's filesystem metadata.
func (r *Reader) readSkill(dir string) (*Skill, error) {
	md, err := ParseManifest(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return nil, err
	}

	s := &Skill{
		Name:        md.Name,
		Description: md.Description,
		BaseDir:     dir,
	}

	if info, err := os.Stat(dir); err == nil {
		s.CreatedAt = info.ModTime()
		s.UpdatedAt = info.ModTime()
	}
	if info, err := os.Stat(filepath.Join(dir, ManifestFileName)); err == nil {
		s.UpdatedAt = info.ModTime()
	}

	return s, nil
}

// ParseManifest reads a SKILL.md file and extracts its frontmatter. Both the
// name and description fields are required.
func ParseManifest(path string) (*Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill manifest")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, errors.New("missing frontmatter")
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)

	if name == "" {
		return nil, errors.New("skill name is required in frontmatter")
	}
	if description == "" {
		return nil, errors.New("skill description is required in frontmatter")
	}

	return &Metadata{Name: name, Description: description}, nil
}

// ExtractBody strips the YAML frontmatter block and returns the manifest body.
func ExtractBody(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}

// listRelativeFiles returns the sorted forward-slash paths, relative to dir,
// of regular files under its sub subdirectory. Missing subdirectories yield nil.
func listRelativeFiles(dir, sub string) []string {
	var files []string
	base := filepath.Join(dir, sub)
	_ = filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files
}
