package qualys

import (
	"errors"
	"iter"
	"slices"
)

// ErrEmptyIterator is returned by First when the iterator yields no items.
var ErrEmptyIterator = errors.New("iterator is empty")

// ResultCollection is the ordered result of a paginated call. Items appear in page
// arrival order, which is the order the API reported them.
type ResultCollection[T any] struct {
	items  []T
	pages  int
	reason Reason
}

// Items returns the collected items. The slice belongs to the caller.
func (r *ResultCollection[T]) Items() []T {
	return r.items
}

// Len returns the number of items.
func (r *ResultCollection[T]) Len() int {
	return len(r.items)
}

// Pages returns the number of page requests issued.
func (r *ResultCollection[T]) Pages() int {
	return r.pages
}

// Reason returns why pagination stopped.
func (r *ResultCollection[T]) Reason() Reason {
	return r.reason
}

// All iterates over the items with their index.
func (r *ResultCollection[T]) All() iter.Seq2[int, T] {
	return slices.All(r.items)
}

func (r *ResultCollection[T]) seal(pages int, reason Reason) {
	r.pages = pages
	r.reason = reason
}

// Collect drains an iterator into a slice. Unlike a paginated call with
// KeepPartial, it is fail-fast: on error the items gathered so far are dropped.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	result := make([]T, 0)
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, nil
}

// First returns the first item from an iterator, or an error if the iterator is empty or fails.
// Iteration stops after the first item, so no further pages are requested.
func First[T any](seq iter.Seq2[T, error]) (T, error) {
	for item, err := range seq {
		return item, err
	}
	var zero T
	return zero, ErrEmptyIterator
}

// Take returns an iterator that yields at most n items from the source iterator.
func Take[T any](seq iter.Seq2[T, error], n int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if n <= 0 {
			return
		}
		count := 0
		for item, err := range seq {
			if !yield(item, err) || err != nil {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}

// Filter returns an iterator that yields only items matching the predicate.
// Errors are passed through.
func Filter[T any](seq iter.Seq2[T, error], pred func(T) bool) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for item, err := range seq {
			if err != nil {
				yield(item, err)
				return
			}
			if pred(item) && !yield(item, nil) {
				return
			}
		}
	}
}

// failed returns an iterator that yields only err.
func failed[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}
