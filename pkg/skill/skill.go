// Package skill defines the skill data model and the read-only metadata
// reader. A skill is a directory containing a SKILL.md file with YAML
// frontmatter (name, description) plus optional references/, scripts/ and
// assets/ subdirectories. The reader always reflects current disk state;
// nothing is cached between calls.
package skill

import "time"

// ManifestFileName is the manifest file every skill directory must contain.
const ManifestFileName = "SKILL.md"

// Subdirectories created for every new skill.
const (
	ReferencesDir = "references"
	ScriptsDir    = "scripts"
	AssetsDir     = "assets"
)

// Skill represents a skill's metadata as read from disk.
type Skill struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	BaseDir     string    `json:"baseDir"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Metadata is the YAML frontmatter block of a SKILL.md file.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Details is the full view of a skill: metadata, manifest body, and the
// relative paths of supporting files grouped by subdirectory.
type Details struct {
	Skill
	Content    string   `json:"content"`
	References []string `json:"references"`
	Scripts    []string `json:"scripts"`
	Assets     []string `json:"assets"`
}
