package sandbox

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// NodeType distinguishes files from directories in a file tree.
type NodeType string

const (
	// NodeTypeFile marks a regular file node.
	NodeTypeFile NodeType = "file"
	// NodeTypeDir marks a directory node.
	NodeTypeDir NodeType = "dir"
)

// FileTreeNode is one entry in a recursive file tree. Paths are relative to
// the sandbox work dir and forward-slash normalized. Size and ModifiedTime
// come from a live stat, never from a cache.
type FileTreeNode struct {
	Name         string          `json:"name"`
	Type         NodeType        `json:"type"`
	Path         string          `json:"path"`
	Size         int64           `json:"size"`
	ModifiedTime time.Time       `json:"modifiedTime"`
	Children     []*FileTreeNode `json:"children,omitempty"`
}

// ListFiles builds the file tree rooted at relPath. Dot-prefixed entries are
// excluded. Within each directory, subdirectories sort before files, then
// alphabetically by name.
func (s *Sandbox) ListFiles(relPath string) ([]*FileTreeNode, error) {
	root, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	base := relPath
	if base == "." {
		base = ""
	}
	return s.listDir(root, filepath.ToSlash(base))
}

func (s *Sandbox) listDir(dir, relBase string) ([]*FileTreeNode, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", dir)
	}

	var nodes []*FileTreeNode
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		relPath := entry.Name()
		if relBase != "" {
			relPath = relBase + "/" + entry.Name()
		}

		node := &FileTreeNode{
			Name:         entry.Name(),
			Path:         relPath,
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		}

		if entry.IsDir() {
			node.Type = NodeTypeDir
			children, err := s.listDir(filepath.Join(dir, entry.Name()), relPath)
			if err != nil {
				return nil, err
			}
			if children == nil {
				children = []*FileTreeNode{}
			}
			node.Children = children
		} else {
			node.Type = NodeTypeFile
		}

		nodes = append(nodes, node)
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Type != nodes[j].Type {
			return nodes[i].Type == NodeTypeDir
		}
		return nodes[i].Name < nodes[j].Name
	})

	return nodes, nil
}
