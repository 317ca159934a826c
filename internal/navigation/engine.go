// Package navigation walks a classifier tree one menu at a time.
//
// The engine is a pure function of (tree, state, input). It owns no per-chat
// data and is safe for concurrent use; callers keep the returned State.
package navigation

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/m3rciful/achibot/internal/classifier"
)

// DefaultBackLabel is the label of the synthetic back option.
const DefaultBackLabel = "⬅️ Назад"

// Order selects how child labels are listed in a menu.
type Order int

const (
	// OrderInsertion keeps the artifact order.
	OrderInsertion Order = iota
	// OrderSorted sorts labels with Ukrainian collation.
	OrderSorted
)

// ParseOrder maps a config value to an Order. Empty means insertion order.
func ParseOrder(s string) (Order, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "insertion", "source":
		return OrderInsertion, true
	case "sorted", "alpha", "alphabetical":
		return OrderSorted, true
	default:
		return OrderInsertion, false
	}
}

func (o Order) String() string {
	if o == OrderSorted {
		return "sorted"
	}
	return "insertion"
}

// Options tune menu rendering.
type Options struct {
	Order     Order
	AutoSkip  bool
	BackLabel string
}

// Crumb is one chosen level in the breadcrumb trail.
type Crumb struct {
	Label string
	Code  string
}

// Option is a selectable menu entry.
type Option struct {
	Label string
	Code  string
	Back  bool
}

// View is what the caller renders after a step.
type View struct {
	Depth       int
	Breadcrumbs []Crumb
	// Options lists child labels followed by the back option when Depth > 0.
	// Done views carry only the back option.
	Options []Option
	Records []classifier.Record
	Done    bool
}

// Choices returns the child options without the synthetic back entry.
func (v View) Choices() []Option {
	out := make([]Option, 0, len(v.Options))
	for _, o := range v.Options {
		if !o.Back {
			out = append(out, o)
		}
	}
	return out
}

// Engine renders menus over a single tree.
type Engine struct {
	tree   *classifier.Tree
	opts   Options
	sorted map[*classifier.Node][]*classifier.Node
}

// New prepares an engine. Sorted menus are computed once here so that
// rendering never touches the collator.
func New(tree *classifier.Tree, opts Options) *Engine {
	if opts.BackLabel == "" {
		opts.BackLabel = DefaultBackLabel
	}
	e := &Engine{tree: tree, opts: opts}
	if opts.Order == OrderSorted {
		e.sorted = make(map[*classifier.Node][]*classifier.Node)
		col := collate.New(language.Ukrainian)
		sortBranch := func(n *classifier.Node) {
			kids := n.Children()
			labels := make([]string, len(kids))
			for i, k := range kids {
				labels[i] = k.Label()
			}
			byLabel := make(map[string]*classifier.Node, len(kids))
			for _, k := range kids {
				byLabel[k.Label()] = k
			}
			col.SortStrings(labels)
			ordered := make([]*classifier.Node, len(labels))
			for i, l := range labels {
				ordered[i] = byLabel[l]
			}
			e.sorted[n] = ordered
		}
		sortBranch(tree.Root())
		tree.Walk(func(_ []*classifier.Node, n *classifier.Node) {
			if !n.IsLeaf() {
				sortBranch(n)
			}
		})
	}
	return e
}

// Tree returns the tree the engine navigates.
func (e *Engine) Tree() *classifier.Tree { return e.tree }

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Start returns the root state and menu.
func (e *Engine) Start() (State, View) {
	return State{}, e.view(nil, e.tree.Root())
}

// Render redraws the menu for state.
func (e *Engine) Render(st State) (View, error) {
	n, err := e.resolve(st)
	if err != nil {
		return View{}, err
	}
	return e.view(st.Path, n), nil
}

// Step applies one input. On error the returned state is st unchanged and the
// view is its current menu.
func (e *Engine) Step(st State, in Input) (State, View, error) {
	cur, err := e.resolve(st)
	if err != nil {
		return st, View{}, err
	}
	if in.back {
		return e.back(st, cur)
	}

	next, ok := cur.Child(in.label)
	if !ok {
		return st, e.view(st.Path, cur), &Error{Kind: KindUnknownChild, Label: in.label, Depth: st.Depth()}
	}
	path := append(st.Clone().Path, in.label)
	if e.opts.AutoSkip {
		for !next.IsLeaf() && next.Len() == 1 {
			only := next.Children()[0]
			path = append(path, only.Label())
			next = only
		}
	}
	return State{Path: path}, e.view(path, next), nil
}

func (e *Engine) back(st State, cur *classifier.Node) (State, View, error) {
	if st.Depth() == 0 {
		return st, e.view(nil, cur), &Error{Kind: KindBackAtRoot, Label: e.opts.BackLabel}
	}
	path := st.Clone().Path[:st.Depth()-1]
	n, _, err := e.tree.Resolve(path)
	if err != nil {
		return st, View{}, &Error{Kind: KindInvalidPath, Depth: len(path)}
	}
	if e.opts.AutoSkip {
		for len(path) > 0 && !n.IsLeaf() && n.Len() == 1 {
			path = path[:len(path)-1]
			if n, _, err = e.tree.Resolve(path); err != nil {
				return st, View{}, &Error{Kind: KindInvalidPath, Depth: len(path)}
			}
		}
	}
	return State{Path: path}, e.view(path, n), nil
}

// Parse maps typed text to an input. The back label and the words
// "назад"/"back" go back; anything else is a selection.
func (e *Engine) Parse(text string) Input {
	t := strings.TrimSpace(text)
	if t == e.opts.BackLabel || strings.EqualFold(t, "назад") || strings.EqualFold(t, "back") {
		return Back()
	}
	return Select(t)
}

// Replay selects labels in order starting from the root.
func (e *Engine) Replay(labels ...string) (State, View, error) {
	st, v := e.Start()
	for _, l := range labels {
		var err error
		if st, v, err = e.Step(st, Select(l)); err != nil {
			return st, v, err
		}
	}
	return st, v, nil
}

func (e *Engine) resolve(st State) (*classifier.Node, error) {
	n, depth, err := e.tree.Resolve(st.Path)
	if err != nil {
		label := ""
		if depth < len(st.Path) {
			label = st.Path[depth]
		}
		return nil, &Error{Kind: KindInvalidPath, Label: label, Depth: depth}
	}
	return n, nil
}

func (e *Engine) children(n *classifier.Node) []*classifier.Node {
	if s, ok := e.sorted[n]; ok {
		return s
	}
	return n.Children()
}

func (e *Engine) view(path []string, n *classifier.Node) View {
	v := View{
		Depth:       len(path),
		Breadcrumbs: e.crumbs(path),
	}
	if n.IsLeaf() {
		v.Done = true
		v.Records = n.Records()
	} else {
		kids := e.children(n)
		v.Options = make([]Option, 0, len(kids)+1)
		for _, k := range kids {
			v.Options = append(v.Options, Option{Label: k.Label(), Code: k.Code()})
		}
	}
	if len(path) > 0 {
		v.Options = append(v.Options, Option{Label: e.opts.BackLabel, Back: true})
	}
	return v
}

func (e *Engine) crumbs(path []string) []Crumb {
	out := make([]Crumb, 0, len(path))
	n := e.tree.Root()
	for _, l := range path {
		c, ok := n.Child(l)
		if !ok {
			break
		}
		out = append(out, Crumb{Label: l, Code: c.Code()})
		n = c
	}
	return out
}
