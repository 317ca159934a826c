// Package classifier holds the immutable classification tree loaded from the
// JSON artifacts produced by the tree builder.
package classifier

import "fmt"

// BlockRange spans the ACHI block numbers found below a node.
type BlockRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Record is a terminal classification entry.
type Record struct {
	Code    string `json:"code"`
	NameUA  string `json:"name_ua"`
	NameEN  string `json:"name_en"`
	AskCode int    `json:"ask_code,omitempty"`
}

// Info carries the descriptive fields shared by every node. Label is the
// unique key among siblings; NameUA is the display name when it differs.
type Info struct {
	Label      string
	Code       string
	NameUA     string
	NameEN     string
	BlockRange *BlockRange
}

// Node is either a branch with ordered child nodes or a leaf holding records.
// Nodes are never modified after construction.
type Node struct {
	info     Info
	leaf     bool
	children []*Node
	index    map[string]*Node
	records  []Record
}

// NewBranch builds a branch node. Child labels must be unique.
func NewBranch(info Info, children []*Node) (*Node, error) {
	n := &Node{
		info:     info,
		children: make([]*Node, 0, len(children)),
		index:    make(map[string]*Node, len(children)),
	}
	for _, c := range children {
		if c == nil {
			continue
		}
		if _, dup := n.index[c.info.Label]; dup {
			return nil, fmt.Errorf("classifier: duplicate child %q under %q", c.info.Label, info.Label)
		}
		n.children = append(n.children, c)
		n.index[c.info.Label] = c
	}
	return n, nil
}

// NewLeaf builds a leaf node holding the given records.
func NewLeaf(info Info, records []Record) *Node {
	return &Node{
		info:    info,
		leaf:    true,
		records: append([]Record(nil), records...),
	}
}

// Label returns the human-readable name used as the node key.
func (n *Node) Label() string { return n.info.Label }

// Code returns the short classification code, if any.
func (n *Node) Code() string { return n.info.Code }

// NameUA returns the Ukrainian name, which is the label unless a distinct
// name was recorded.
func (n *Node) NameUA() string {
	if n.info.NameUA != "" {
		return n.info.NameUA
	}
	return n.info.Label
}

// NameEN returns the English name, if any.
func (n *Node) NameEN() string { return n.info.NameEN }

// BlockRange returns the block span below the node or nil.
func (n *Node) BlockRange() *BlockRange {
	if n.info.BlockRange == nil {
		return nil
	}
	br := *n.info.BlockRange
	return &br
}

// IsLeaf reports whether the node terminates navigation.
func (n *Node) IsLeaf() bool { return n.leaf }

// Len returns the number of children for branches or records for leaves.
func (n *Node) Len() int {
	if n.leaf {
		return len(n.records)
	}
	return len(n.children)
}

// Children returns the child nodes in insertion order.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// Child looks up a direct child by label.
func (n *Node) Child(label string) (*Node, bool) {
	if n.leaf {
		return nil, false
	}
	c, ok := n.index[label]
	return c, ok
}

// Records returns the leaf records in source order.
func (n *Node) Records() []Record {
	return append([]Record(nil), n.records...)
}
