package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// document mirrors the artifact layout: a root object holding "children".
type document struct {
	Children json.RawMessage `json:"children"`
}

// rawNode also accepts the legacy "clazz" and "blockRange" spellings.
type rawNode struct {
	Clazz       string          `json:"clazz,omitempty"`
	Code        string          `json:"code,omitempty"`
	NameUA      string          `json:"name_ua"`
	NameEN      string          `json:"name_en,omitempty"`
	BlockRange  *BlockRange     `json:"block_range,omitempty"`
	LegacyRange *BlockRange     `json:"blockRange,omitempty"`
	Children    json.RawMessage `json:"children"`
}

type outNode struct {
	Code       string      `json:"code,omitempty"`
	NameUA     string      `json:"name_ua"`
	NameEN     string      `json:"name_en,omitempty"`
	BlockRange *BlockRange `json:"block_range,omitempty"`
	Children   any         `json:"children"`
}

// Load reads and decodes the artifact at path.
func Load(name, path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, path)
		}
		return nil, fmt.Errorf("classifier: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(name, f)
}

// Decode builds a tree from an artifact stream. Object-of-nodes and
// array-of-records are both accepted at any position.
func Decode(name string, r io.Reader) (*Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("classifier: read %s: %w", name, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, name, err)
	}
	root, err := decodeNode(Info{}, doc.Children)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, name, err)
	}
	if root.IsLeaf() {
		return nil, fmt.Errorf("%w: %s: root children must be an object", ErrMalformedArtifact, name)
	}
	return NewTree(name, root)
}

func decodeNode(info Info, children json.RawMessage) (*Node, error) {
	trimmed := bytes.TrimSpace(children)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return NewLeaf(info, nil), nil
	}
	switch trimmed[0] {
	case '[':
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("records of %q: %w", info.Label, err)
		}
		return NewLeaf(info, records), nil
	case '{':
		om := orderedmap.New[string, rawNode]()
		if err := om.UnmarshalJSON(trimmed); err != nil {
			return nil, fmt.Errorf("children of %q: %w", info.Label, err)
		}
		if om.Len() == 0 {
			return NewLeaf(info, nil), nil
		}
		nodes := make([]*Node, 0, om.Len())
		for pair := om.Oldest(); pair != nil; pair = pair.Next() {
			raw := pair.Value
			code := raw.Code
			if code == "" {
				code = raw.Clazz
			}
			br := raw.BlockRange
			if br == nil {
				br = raw.LegacyRange
			}
			child, err := decodeNode(Info{
				Label:      pair.Key,
				Code:       code,
				NameUA:     raw.NameUA,
				NameEN:     raw.NameEN,
				BlockRange: br,
			}, raw.Children)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, child)
		}
		return NewBranch(info, nodes)
	default:
		return nil, fmt.Errorf("children of %q: unexpected %q", info.Label, trimmed[0])
	}
}

// Encode writes the tree as an indented artifact. Output is deterministic
// for a given tree.
func Encode(w io.Writer, t *Tree) error {
	doc := struct {
		Children any `json:"children"`
	}{Children: encodeChildren(t.root)}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("classifier: encode %s: %w", t.name, err)
	}
	return nil
}

func encodeChildren(n *Node) any {
	if n.leaf {
		if n.records == nil {
			return []Record{}
		}
		return n.records
	}
	om := orderedmap.New[string, outNode](len(n.children))
	for _, c := range n.children {
		om.Set(c.info.Label, outNode{
			Code:       c.info.Code,
			NameUA:     c.NameUA(),
			NameEN:     c.info.NameEN,
			BlockRange: c.info.BlockRange,
			Children:   encodeChildren(c),
		})
	}
	return om
}
