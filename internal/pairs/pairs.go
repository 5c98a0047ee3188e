// Package pairs enumerates the unordered combinations of an ordered
// collection in a fixed, deterministic order.
//
// For items [x0 .. xN-1] the canonical order is
//
//	for i := 0; i < N-1; i++ { for j := i+1; j < N; j++ { emit(x[i], x[j]) } }
//
// A pair's canonical position is fully determined by (I, J): sorting pairs by
// I then J restores the order.
package pairs

import "iter"

// Pair is one combination (First, Second) = (items[I], items[J]) with I < J.
type Pair[T any] struct {
	I, J   int
	First  T
	Second T
}

// Count returns n·(n-1)/2, the number of pairs for n items.
func Count(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// Generate returns a lazy sequence over every pair of items in canonical order.
// The sequence is restartable: each range over it starts from the beginning.
// Fewer than two items yields nothing.
func Generate[T any](items []T) iter.Seq[Pair[T]] {
	return func(yield func(Pair[T]) bool) {
		n := len(items)
		for i := 0; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				if !yield(Pair[T]{I: i, J: j, First: items[i], Second: items[j]}) {
					return
				}
			}
		}
	}
}

// Accumulator pairs items that arrive one at a time. Each new item is paired
// with every item seen before it, so after k calls to Add exactly Count(k)
// pairs have been produced, and the pairs involving item j appear only once
// j has been added.
//
// Unlike Generate, the order across the whole run is grouped by the later
// endpoint ((0,1), (0,2), (1,2), (0,3) ...).
//
// An Accumulator is not safe for concurrent use.
type Accumulator[T any] struct {
	seen []T
}

// Add records item and returns the pairs it closes, oldest partner first.
func (a *Accumulator[T]) Add(item T) iter.Seq[Pair[T]] {
	j := len(a.seen)
	a.seen = append(a.seen, item)
	seen := a.seen
	return func(yield func(Pair[T]) bool) {
		for i := 0; i < j; i++ {
			if !yield(Pair[T]{I: i, J: j, First: seen[i], Second: seen[j]}) {
				return
			}
		}
	}
}

// Len returns the number of items added so far.
func (a *Accumulator[T]) Len() int {
	return len(a.seen)
}
