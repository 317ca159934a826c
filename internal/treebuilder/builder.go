// Package treebuilder turns flat classification tables into classifier trees.
//
// Rows are merged by ancestor path: a node is identified by its parent's key
// plus its own label, so equal labels under different parents stay apart.
package treebuilder

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/m3rciful/achibot/internal/classifier"
)

// ErrMalformedSourceRow aborts a build. A partial tree is never returned.
var ErrMalformedSourceRow = errors.New("treebuilder: malformed source row")

// RowError points at the offending source line.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%v: line %d: %s", ErrMalformedSourceRow, e.Line, e.Reason)
}

func (e *RowError) Unwrap() error { return ErrMalformedSourceRow }

// Segment is one ancestor level of a row.
type Segment struct {
	Label  string
	Code   string
	NameEN string
}

// Row is a normalised source row: the ancestor path and, optionally, the leaf
// record stored at its end. A nil Leaf only ensures the path exists.
type Row struct {
	Line int
	Path []Segment
	Leaf *classifier.Record
}

// Result is the outcome of a build.
type Result struct {
	Tree    *classifier.Tree
	Rows    int
	Skipped int
}

const keySep = "\x1f"

type bnode struct {
	key     string
	info    classifier.Info
	kids    []*bnode
	records []classifier.Record
	codes   map[string]struct{}
}

type builder struct {
	root   *bnode
	index  map[string]*bnode
	ranges bool
}

func newBuilder(ranges bool) *builder {
	return &builder{
		root:   &bnode{},
		index:  make(map[string]*bnode),
		ranges: ranges,
	}
}

func (b *builder) add(r Row) error {
	if len(r.Path) == 0 {
		return &RowError{Line: r.Line, Reason: "empty hierarchy path"}
	}
	n := b.root
	for depth, seg := range r.Path {
		if seg.Label == "" {
			return &RowError{Line: r.Line, Reason: fmt.Sprintf("empty label at level %d", depth)}
		}
		key := n.key + keySep + seg.Label
		child, ok := b.index[key]
		if !ok {
			child = &bnode{
				key:  key,
				info: classifier.Info{Label: seg.Label, Code: seg.Code, NameEN: seg.NameEN},
			}
			b.index[key] = child
			n.kids = append(n.kids, child)
		}
		n = child
	}
	if r.Leaf == nil {
		return nil
	}
	if r.Leaf.Code == "" {
		return &RowError{Line: r.Line, Reason: "empty leaf code"}
	}
	if n.codes == nil {
		n.codes = make(map[string]struct{})
	}
	if _, dup := n.codes[r.Leaf.Code]; dup {
		return nil
	}
	n.codes[r.Leaf.Code] = struct{}{}
	n.records = append(n.records, *r.Leaf)
	return nil
}

func (b *builder) tree(name string) (*classifier.Tree, error) {
	root, _, err := b.finalize(b.root)
	if err != nil {
		return nil, err
	}
	return classifier.NewTree(name, root)
}

// finalize converts the mutable node into an immutable one. A node holding
// both children and records gets each record wrapped as a single-record child
// so that one level down the children are either all nodes or all records.
func (b *builder) finalize(n *bnode) (*classifier.Node, *classifier.BlockRange, error) {
	if len(n.kids) == 0 {
		br := b.recordRange(n.records)
		info := n.info
		info.BlockRange = br
		return classifier.NewLeaf(info, n.records), br, nil
	}

	children := make([]*classifier.Node, 0, len(n.kids)+len(n.records))
	taken := make(map[string]struct{}, len(n.kids)+len(n.records))
	var ranges []*classifier.BlockRange
	for _, k := range n.kids {
		c, br, err := b.finalize(k)
		if err != nil {
			return nil, nil, err
		}
		children = append(children, c)
		taken[c.Label()] = struct{}{}
		ranges = append(ranges, br)
	}
	for _, rec := range n.records {
		name := rec.NameUA
		if name == "" {
			name = rec.Code
		}
		label := name
		if _, clash := taken[label]; clash {
			label = fmt.Sprintf("%s (%s)", name, rec.Code)
		}
		taken[label] = struct{}{}
		br := b.recordRange([]classifier.Record{rec})
		children = append(children, classifier.NewLeaf(classifier.Info{
			Label:      label,
			Code:       rec.Code,
			NameUA:     name,
			NameEN:     rec.NameEN,
			BlockRange: br,
		}, []classifier.Record{rec}))
		ranges = append(ranges, br)
	}

	info := n.info
	info.BlockRange = mergeRanges(ranges)
	node, err := classifier.NewBranch(info, children)
	if err != nil {
		return nil, nil, err
	}
	return node, info.BlockRange, nil
}

func (b *builder) recordRange(recs []classifier.Record) *classifier.BlockRange {
	if !b.ranges {
		return nil
	}
	var br *classifier.BlockRange
	for _, r := range recs {
		if r.AskCode <= 0 {
			continue
		}
		if br == nil {
			br = &classifier.BlockRange{Min: r.AskCode, Max: r.AskCode}
			continue
		}
		br.Min = min(br.Min, r.AskCode)
		br.Max = max(br.Max, r.AskCode)
	}
	return br
}

func mergeRanges(ranges []*classifier.BlockRange) *classifier.BlockRange {
	var out *classifier.BlockRange
	for _, r := range ranges {
		if r == nil {
			continue
		}
		if out == nil {
			cp := *r
			out = &cp
			continue
		}
		out.Min = min(out.Min, r.Min)
		out.Max = max(out.Max, r.Max)
	}
	return out
}

// sourceRow is a trimmed CSV record with its line number.
type sourceRow struct {
	line int
	cols []string
}

func readRows(r io.Reader, columns int) ([]sourceRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &RowError{Line: 1, Reason: "missing header"}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSourceRow, err)
	}
	if len(header) < columns {
		return nil, &RowError{Line: 1, Reason: fmt.Sprintf("header has %d columns, want %d", len(header), columns)}
	}

	var rows []sourceRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSourceRow, err)
		}
		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}
		if len(rec) < columns {
			return nil, &RowError{Line: line, Reason: fmt.Sprintf("row has %d columns, want %d", len(rec), columns)}
		}
		cols := make([]string, columns)
		for i := range cols {
			cols[i] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, sourceRow{line: line, cols: cols})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Build reads a semicolon-separated table in the given format and returns
// the merged tree named after the format.
func Build(r io.Reader, f Format) (*Result, error) {
	src, err := readRows(r, f.Columns)
	if err != nil {
		return nil, err
	}
	rows, skipped, err := f.mapRows(src, newNormalizer())
	if err != nil {
		return nil, err
	}
	return BuildRows(f.Name, rows, f.BlockRanges, skipped)
}

// BuildRows merges already mapped rows. ranges enables block range
// aggregation from record ask codes.
func BuildRows(name string, rows []Row, ranges bool, skipped int) (*Result, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("treebuilder: %s: no data rows", name)
	}
	b := newBuilder(ranges)
	for _, r := range rows {
		if err := b.add(r); err != nil {
			return nil, err
		}
	}
	tree, err := b.tree(name)
	if err != nil {
		return nil, fmt.Errorf("treebuilder: %s: %w", name, err)
	}
	return &Result{Tree: tree, Rows: len(rows), Skipped: skipped}, nil
}
