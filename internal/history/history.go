// Package history implements an undo/redo container over immutable
// snapshots. Every operation returns a new State and leaves its input
// untouched.
package history

// State holds the past, present and future snapshots of a value.
type State[T any] struct {
	Past    []T
	Present T
	Future  []T
}

// New returns a State with initial as its present and empty stacks.
func New[T any](initial T) State[T] {
	return State[T]{Present: initial}
}

// Push records next as the new present. The old present moves onto the past
// stack and the future is discarded.
func Push[T any](s State[T], next T) State[T] {
	past := make([]T, len(s.Past), len(s.Past)+1)
	copy(past, s.Past)
	return State[T]{
		Past:    append(past, s.Present),
		Present: next,
	}
}

// Undo moves the most recent past snapshot into the present. It returns s
// unchanged when there is nothing to undo.
func Undo[T any](s State[T]) State[T] {
	if len(s.Past) == 0 {
		return s
	}
	n := len(s.Past)
	future := make([]T, 0, len(s.Future)+1)
	future = append(future, s.Present)
	future = append(future, s.Future...)
	return State[T]{
		Past:    append([]T(nil), s.Past[:n-1]...),
		Present: s.Past[n-1],
		Future:  future,
	}
}

// Redo moves the first future snapshot into the present. It returns s
// unchanged when there is nothing to redo.
func Redo[T any](s State[T]) State[T] {
	if len(s.Future) == 0 {
		return s
	}
	past := make([]T, len(s.Past), len(s.Past)+1)
	copy(past, s.Past)
	return State[T]{
		Past:    append(past, s.Present),
		Present: s.Future[0],
		Future:  append([]T(nil), s.Future[1:]...),
	}
}

// CanUndo reports whether Undo would change the state.
func CanUndo[T any](s State[T]) bool { return len(s.Past) > 0 }

// CanRedo reports whether Redo would change the state.
func CanRedo[T any](s State[T]) bool { return len(s.Future) > 0 }

// Trim drops the oldest past snapshots so that at most limit remain.
// A limit of zero or less keeps everything.
func Trim[T any](s State[T], limit int) State[T] {
	if limit <= 0 || len(s.Past) <= limit {
		return s
	}
	return State[T]{
		Past:    append([]T(nil), s.Past[len(s.Past)-limit:]...),
		Present: s.Present,
		Future:  s.Future,
	}
}
