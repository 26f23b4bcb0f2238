package main

// ListBuffer is an ordered sequence of items with an optional selected index.
// An empty buffer never has a selection, and a present selection is always in
// range. Navigation wraps around at both ends.
type ListBuffer[T any] struct {
	items    []T
	selected int // -1 when nothing is selected
}

func NewListBuffer[T any](items []T) ListBuffer[T] {
	return ListBuffer[T]{items: items, selected: -1}
}

func (l *ListBuffer[T]) Items() []T {
	return l.items
}

func (l *ListBuffer[T]) Len() int {
	return len(l.items)
}

// Selected returns the selected index, if any.
func (l *ListBuffer[T]) Selected() (int, bool) {
	if l.selected < 0 || l.selected >= len(l.items) {
		return 0, false
	}
	return l.selected, true
}

func (l *ListBuffer[T]) SelectedItem() (T, bool) {
	var zero T
	i, ok := l.Selected()
	if !ok {
		return zero, false
	}
	return l.items[i], true
}

// Select moves the selection to i, clamped into range.
func (l *ListBuffer[T]) Select(i int) {
	if len(l.items) == 0 {
		l.selected = -1
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(l.items) {
		i = len(l.items) - 1
	}
	l.selected = i
}

func (l *ListBuffer[T]) Next() {
	l.Step(1)
}

func (l *ListBuffer[T]) Previous() {
	l.Step(-1)
}

// Step moves the selection by n positions with wrap-around. Without a
// selection it selects the first item.
func (l *ListBuffer[T]) Step(n int) {
	size := len(l.items)
	if size == 0 {
		l.selected = -1
		return
	}
	i, ok := l.Selected()
	if !ok {
		l.selected = 0
		return
	}
	l.selected = ((i+n)%size + size) % size
}

func (l *ListBuffer[T]) First() {
	l.Select(0)
}

func (l *ListBuffer[T]) Last() {
	l.Select(len(l.items) - 1)
}

// Replace swaps the items and keeps the current selection index, clamping it
// to the last item or clearing it when the new sequence is empty.
func (l *ListBuffer[T]) Replace(items []T) {
	l.items = items
	if len(items) == 0 {
		l.selected = -1
		return
	}
	if l.selected >= len(items) {
		l.selected = len(items) - 1
	}
}

// Reset swaps the items and selects the first one.
func (l *ListBuffer[T]) Reset(items []T) {
	l.items = items
	l.selected = -1
	if len(items) > 0 {
		l.selected = 0
	}
}

func (l *ListBuffer[T]) Clear() {
	l.items = nil
	l.selected = -1
}
