package navigation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/m3rciful/achibot/internal/classifier"
)

func leaf(label string, codes ...string) *classifier.Node {
	recs := make([]classifier.Record, 0, len(codes))
	for _, c := range codes {
		recs = append(recs, classifier.Record{Code: c, NameUA: "назва " + c})
	}
	return classifier.NewLeaf(classifier.Info{Label: label, Code: label + "-code"}, recs)
}

func branch(t testing.TB, label string, kids ...*classifier.Node) *classifier.Node {
	t.Helper()
	n, err := classifier.NewBranch(classifier.Info{Label: label, Code: label + "-code"}, kids)
	require.NoError(t, err)
	return n
}

// sampleTree:
//
//	ClassA
//	  BlockA
//	    NosologyA [CodeA1 CodeA2]
//	    NosologyB [CodeB1]
//	  Єдиний
//	    Only
//	      Deep [D1]
//	ClassB
//	  Дах [C1]
//	  Ґанок [X1]
func sampleTree(t testing.TB) *classifier.Tree {
	t.Helper()
	root := branch(t, "",
		branch(t, "ClassA",
			branch(t, "BlockA",
				leaf("NosologyA", "CodeA1", "CodeA2"),
				leaf("NosologyB", "CodeB1"),
			),
			branch(t, "Єдиний",
				branch(t, "Only", leaf("Deep", "D1")),
			),
		),
		branch(t, "ClassB",
			leaf("Дах", "C1"),
			leaf("Ґанок", "X1"),
		),
	)
	tree, err := classifier.NewTree("test", root)
	require.NoError(t, err)
	return tree
}

func labelsOf(opts []Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Label)
	}
	return out
}

func TestStartMenu(t *testing.T) {
	t.Parallel()

	e := New(sampleTree(t), Options{})
	st, v := e.Start()
	assert.Equal(t, 0, st.Depth())
	assert.False(t, v.Done)
	assert.Equal(t, []string{"ClassA", "ClassB"}, labelsOf(v.Options), "no back option at the root")
}

func TestReplayToLeafThenBack(t *testing.T) {
	t.Parallel()

	e := New(sampleTree(t), Options{})
	st, v, err := e.Replay("ClassA", "BlockA", "NosologyA")
	require.NoError(t, err)
	require.True(t, v.Done)
	assert.Equal(t, 3, v.Depth)
	assert.Equal(t, []string{"CodeA1", "CodeA2"}, []string{v.Records[0].Code, v.Records[1].Code})
	assert.Equal(t, []Option{{Label: DefaultBackLabel, Back: true}}, v.Options)
	assert.Equal(t, []Crumb{
		{Label: "ClassA", Code: "ClassA-code"},
		{Label: "BlockA", Code: "BlockA-code"},
		{Label: "NosologyA", Code: "NosologyA-code"},
	}, v.Breadcrumbs)

	st, v, err = e.Step(st, Back())
	require.NoError(t, err)
	assert.Equal(t, []string{"ClassA", "BlockA"}, st.Path)
	assert.Equal(t, []string{"NosologyA", "NosologyB", DefaultBackLabel}, labelsOf(v.Options))
	assert.Equal(t, []string{"NosologyA", "NosologyB"}, labelsOf(v.Choices()))
}

func TestBackAtRoot(t *testing.T) {
	t.Parallel()

	e := New(sampleTree(t), Options{})
	st, _ := e.Start()
	got, v, err := e.Step(st, Back())
	require.ErrorIs(t, err, ErrBackAtRoot)
	assert.True(t, got.Equal(st))
	assert.Equal(t, []string{"ClassA", "ClassB"}, labelsOf(v.Options))
}

func TestUnknownChild(t *testing.T) {
	t.Parallel()

	e := New(sampleTree(t), Options{})
	st, _, err := e.Replay("ClassA")
	require.NoError(t, err)

	got, v, err := e.Step(st, Select("Nope"))
	require.ErrorIs(t, err, ErrUnknownChildSelection)
	var navErr *Error
	require.True(t, errors.As(err, &navErr))
	assert.Equal(t, "Nope", navErr.Label)
	assert.Equal(t, 1, navErr.Depth)
	assert.Equal(t, st.Path, got.Path)
	assert.Equal(t, []string{"BlockA", "Єдиний", DefaultBackLabel}, labelsOf(v.Options))
}

func TestSelectAfterDone(t *testing.T) {
	t.Parallel()

	e := New(sampleTree(t), Options{})
	st, _, err := e.Replay("ClassB", "Дах")
	require.NoError(t, err)
	_, _, err = e.Step(st, Select("C1"))
	require.ErrorIs(t, err, ErrUnknownChildSelection)
}

func TestInvalidPath(t *testing.T) {
	t.Parallel()

	e := New(sampleTree(t), Options{})
	_, err := e.Render(State{Path: []string{"ClassA", "Gone"}})
	require.ErrorIs(t, err, ErrInvalidPath)

	_, _, err = e.Step(State{Path: []string{"Gone"}}, Back())
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestSortedOrder(t *testing.T) {
	t.Parallel()

	e := New(sampleTree(t), Options{Order: OrderSorted})
	_, v, err := e.Replay("ClassB")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ґанок", "Дах", DefaultBackLabel}, labelsOf(v.Options), "ґ sorts after г, not by code point")

	insertion := New(e.Tree(), Options{})
	_, v, err = insertion.Replay("ClassB")
	require.NoError(t, err)
	assert.Equal(t, []string{"Дах", "Ґанок", DefaultBackLabel}, labelsOf(v.Options))
}

func TestAutoSkip(t *testing.T) {
	t.Parallel()

	e := New(sampleTree(t), Options{AutoSkip: true, BackLabel: "назад"})
	st, _, err := e.Replay("ClassA")
	require.NoError(t, err)

	next, v, err := e.Step(st, Select("Єдиний"))
	require.NoError(t, err)
	assert.True(t, v.Done)
	assert.Equal(t, []string{"ClassA", "Єдиний", "Only", "Deep"}, next.Path)

	back, v, err := e.Step(next, Back())
	require.NoError(t, err)
	assert.True(t, back.Equal(st), "back unwinds the skipped chain")
	assert.Equal(t, "назад", v.Options[len(v.Options)-1].Label)
}

func TestParse(t *testing.T) {
	t.Parallel()

	e := New(sampleTree(t), Options{})
	tests := []struct {
		in    string
		back  bool
		label string
	}{
		{in: DefaultBackLabel, back: true},
		{in: "  Назад ", back: true},
		{in: "BACK", back: true},
		{in: " BlockA ", label: "BlockA"},
	}
	for _, tt := range tests {
		got := e.Parse(tt.in)
		assert.Equal(t, tt.back, got.IsBack(), tt.in)
		assert.Equal(t, tt.label, got.Label(), tt.in)
	}
}

func TestParseOrder(t *testing.T) {
	t.Parallel()

	o, ok := ParseOrder("Sorted")
	assert.True(t, ok)
	assert.Equal(t, OrderSorted, o)
	o, ok = ParseOrder("")
	assert.True(t, ok)
	assert.Equal(t, OrderInsertion, o)
	_, ok = ParseOrder("random")
	assert.False(t, ok)
}

// walkRandom drives the engine with arbitrary valid selections and returns
// the visited resting state.
func walkRandom(t *rapid.T, e *Engine) State {
	st, v := e.Start()
	steps := rapid.IntRange(0, 6).Draw(t, "steps")
	for i := 0; i < steps && !v.Done; i++ {
		choices := v.Choices()
		pick := rapid.SampledFrom(choices).Draw(t, "pick")
		var err error
		st, v, err = e.Step(st, Select(pick.Label))
		if err != nil {
			t.Fatalf("select %q: %v", pick.Label, err)
		}
	}
	return st
}

func TestBackIsLeftInverseOfSelect(t *testing.T) {
	tree := sampleTree(t)
	rapid.Check(t, func(t *rapid.T) {
		e := New(tree, Options{
			AutoSkip: rapid.Bool().Draw(t, "autoskip"),
			Order:    Order(rapid.IntRange(0, 1).Draw(t, "order")),
		})
		st := walkRandom(t, e)
		v, err := e.Render(st)
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if v.Done {
			return
		}
		pick := rapid.SampledFrom(v.Choices()).Draw(t, "next")
		fwd, _, err := e.Step(st, Select(pick.Label))
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		back, _, err := e.Step(fwd, Back())
		if err != nil {
			t.Fatalf("back: %v", err)
		}
		if !back.Equal(st) {
			t.Fatalf("back from %v gave %v, want %v", fwd.Path, back.Path, st.Path)
		}
	})
}

func TestDepthNeverExceedsTree(t *testing.T) {
	tree := sampleTree(t)
	rapid.Check(t, func(t *rapid.T) {
		e := New(tree, Options{AutoSkip: rapid.Bool().Draw(t, "autoskip")})
		st := walkRandom(t, e)
		if st.Depth() > tree.MaxDepth() {
			t.Fatalf("depth %d exceeds max %d", st.Depth(), tree.MaxDepth())
		}
		if _, _, err := tree.Resolve(st.Path); err != nil {
			t.Fatalf("state %v does not resolve: %v", st.Path, err)
		}
	})
}

func TestReplayEveryLeafPath(t *testing.T) {
	t.Parallel()

	tree := sampleTree(t)
	e := New(tree, Options{})
	visited := 0
	tree.Walk(func(path []*classifier.Node, n *classifier.Node) {
		if !n.IsLeaf() {
			return
		}
		labels := make([]string, 0, len(path)+1)
		for _, p := range path {
			labels = append(labels, p.Label())
		}
		labels = append(labels, n.Label())

		_, v, err := e.Replay(labels...)
		require.NoError(t, err, labels)
		assert.True(t, v.Done, labels)
		assert.Equal(t, n.Records(), v.Records, labels)
		visited++
	})
	assert.Equal(t, 5, visited)
}
