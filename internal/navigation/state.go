package navigation

import (
	"errors"
	"fmt"
	"slices"
)

// State is the per-conversation position: the labels chosen so far.
type State struct {
	Path []string
}

// Depth is the number of labels chosen.
func (s State) Depth() int { return len(s.Path) }

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	if len(s.Path) == 0 {
		return State{}
	}
	return State{Path: slices.Clone(s.Path)}
}

// Equal reports whether both states point at the same node.
func (s State) Equal(o State) bool { return slices.Equal(s.Path, o.Path) }

// Input is a single user action.
type Input struct {
	back  bool
	label string
}

// Select chooses a child of the current node.
func Select(label string) Input { return Input{label: label} }

// Back returns to the previous menu.
func Back() Input { return Input{back: true} }

// IsBack reports whether the input is a back action.
func (in Input) IsBack() bool { return in.back }

// Label returns the selected label; empty for Back.
func (in Input) Label() string { return in.label }

var (
	ErrUnknownChildSelection = errors.New("navigation: unknown child selection")
	ErrBackAtRoot            = errors.New("navigation: back at root")
	ErrInvalidPath           = errors.New("navigation: invalid path")
)

// Kind classifies an Error.
type Kind int

const (
	KindUnknownChild Kind = iota + 1
	KindBackAtRoot
	KindInvalidPath
)

// Error reports a rejected input. It matches the package sentinels with
// errors.Is.
type Error struct {
	Kind  Kind
	Label string
	Depth int
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnknownChild:
		return fmt.Sprintf("%v: %q at depth %d", ErrUnknownChildSelection, e.Label, e.Depth)
	case KindBackAtRoot:
		return ErrBackAtRoot.Error()
	default:
		return fmt.Sprintf("%v: %q at depth %d", ErrInvalidPath, e.Label, e.Depth)
	}
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnknownChildSelection:
		return e.Kind == KindUnknownChild
	case ErrBackAtRoot:
		return e.Kind == KindBackAtRoot
	case ErrInvalidPath:
		return e.Kind == KindInvalidPath
	}
	return false
}
