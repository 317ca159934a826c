package classifier

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingArtifact is returned when the tree artifact cannot be found.
	ErrMissingArtifact = errors.New("classifier: missing artifact")
	// ErrMalformedArtifact is returned when the artifact cannot be decoded.
	ErrMalformedArtifact = errors.New("classifier: malformed artifact")
	// ErrPathNotFound is returned when a label path does not resolve.
	ErrPathNotFound = errors.New("classifier: path not found")
)

// Tree is a named, read-only classification hierarchy.
type Tree struct {
	name     string
	root     *Node
	maxDepth int
	stats    Stats
}

// Stats summarises the shape of a tree.
type Stats struct {
	Classes   int `json:"classes"`
	Branches  int `json:"branches"`
	LeafNodes int `json:"leaf_nodes"`
	Records   int `json:"records"`
	MaxDepth  int `json:"max_depth"`
}

// NewTree wraps root as a tree. Root must be a branch.
func NewTree(name string, root *Node) (*Tree, error) {
	if root == nil {
		return nil, fmt.Errorf("classifier: nil root for %q", name)
	}
	if root.IsLeaf() {
		return nil, fmt.Errorf("classifier: root of %q must be a branch", name)
	}
	t := &Tree{name: name, root: root}
	t.stats.Classes = len(root.children)
	t.walk(nil, root, func(path []*Node, n *Node) {
		depth := len(path)
		if depth > t.maxDepth {
			t.maxDepth = depth
		}
		if n == root {
			return
		}
		if n.leaf {
			t.stats.LeafNodes++
			t.stats.Records += len(n.records)
		} else {
			t.stats.Branches++
		}
	})
	t.stats.MaxDepth = t.maxDepth
	return t, nil
}

// Name returns the classifier name (e.g. "achi").
func (t *Tree) Name() string { return t.name }

// Root returns the unlabeled root branch.
func (t *Tree) Root() *Node { return t.root }

// MaxDepth returns the length of the longest label path from the root.
func (t *Tree) MaxDepth() int { return t.maxDepth }

// Stats returns counters computed at construction.
func (t *Tree) Stats() Stats { return t.stats }

// Resolve follows labels from the root and returns the node reached.
// On failure the returned depth is the index of the first unresolved label.
func (t *Tree) Resolve(labels []string) (*Node, int, error) {
	n := t.root
	for i, label := range labels {
		next, ok := n.Child(label)
		if !ok {
			return n, i, fmt.Errorf("%w: %q at depth %d", ErrPathNotFound, label, i)
		}
		n = next
	}
	return n, len(labels), nil
}

// Walk visits every node depth-first in insertion order. path holds the
// ancestors of n below the root.
func (t *Tree) Walk(fn func(path []*Node, n *Node)) {
	t.walk(nil, t.root, func(path []*Node, n *Node) {
		if n == t.root {
			return
		}
		fn(path[1:], n)
	})
}

func (t *Tree) walk(path []*Node, n *Node, fn func(path []*Node, n *Node)) {
	fn(path, n)
	if n.leaf {
		return
	}
	path = append(path, n)
	for _, c := range n.children {
		t.walk(path, c, fn)
	}
}

// Hit is a leaf record located in the tree.
type Hit struct {
	Record Record
	Path   []string
}

// Search returns up to limit records whose code or names contain query,
// compared case-insensitively. A non-positive limit means no limit.
func (t *Tree) Search(query string, limit int) []Hit {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var hits []Hit
	t.eachRecord(func(path []string, r Record) bool {
		if strings.Contains(strings.ToLower(r.Code), q) ||
			strings.Contains(strings.ToLower(r.NameUA), q) ||
			strings.Contains(strings.ToLower(r.NameEN), q) {
			hits = append(hits, Hit{Record: r, Path: path})
			if limit > 0 && len(hits) >= limit {
				return false
			}
		}
		return true
	})
	return hits
}

// FindCode locates a record by exact code, ignoring case.
func (t *Tree) FindCode(code string) (Hit, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Hit{}, false
	}
	var (
		hit   Hit
		found bool
	)
	t.eachRecord(func(path []string, r Record) bool {
		if strings.EqualFold(r.Code, code) {
			hit = Hit{Record: r, Path: path}
			found = true
			return false
		}
		return true
	})
	return hit, found
}

func (t *Tree) eachRecord(fn func(path []string, r Record) bool) {
	var visit func(labels []string, n *Node) bool
	visit = func(labels []string, n *Node) bool {
		if n.leaf {
			for _, r := range n.records {
				if !fn(append([]string(nil), labels...), r) {
					return false
				}
			}
			return true
		}
		for _, c := range n.children {
			if !visit(append(labels, c.info.Label), c) {
				return false
			}
		}
		return true
	}
	visit(nil, t.root)
}
