package natsort

import (
	"cmp"
	"slices"
)

// Key is the sort key of one item. Ranks compare element by element in
// ascending order; Text breaks ties with the comparator given to SortBy.
type Key struct {
	Ranks []int
	Text  string
}

// Front ranks matching items before the rest
func Front(b bool) int {
	if b {
		return 0
	}
	return 1
}

type keyed[T any] struct {
	item T
	key  Key
}

// SortBy returns a stably sorted copy of items. key is evaluated once per
// item and textCmp orders the Text part of keys with equal ranks.
func SortBy[T any](items []T, key func(T) Key, textCmp func(a, b string) int) []T {
	if textCmp == nil {
		textCmp = cmp.Compare[string]
	}

	decorated := make([]keyed[T], len(items))
	for i, it := range items {
		decorated[i] = keyed[T]{item: it, key: key(it)}
	}

	slices.SortStableFunc(decorated, func(a, b keyed[T]) int {
		if c := slices.Compare(a.key.Ranks, b.key.Ranks); c != 0 {
			return c
		}
		return textCmp(a.key.Text, b.key.Text)
	})

	out := make([]T, len(decorated))
	for i, d := range decorated {
		out[i] = d.item
	}
	return out
}
