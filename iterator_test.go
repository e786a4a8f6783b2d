package qualys_test

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-qualys"
)

func makeSeq[T any](items []T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func makeSeqWithError[T any](items []T, errAt int, err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for i, item := range items {
			if i == errAt {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

func TestCollect(t *testing.T) {
	t.Run("collects all items", func(t *testing.T) {
		seq := makeSeq([]int{1, 2, 3, 4, 5})

		result, err := qualys.Collect(seq)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, result)
	})

	t.Run("drops items on error", func(t *testing.T) {
		testErr := errors.New("test error")
		seq := makeSeqWithError([]int{1, 2, 3, 4, 5}, 3, testErr)

		result, err := qualys.Collect(seq)
		require.ErrorIs(t, err, testErr)
		assert.Nil(t, result)
	})

	t.Run("handles empty sequence", func(t *testing.T) {
		seq := makeSeq([]int{})

		result, err := qualys.Collect(seq)
		require.NoError(t, err)
		assert.Empty(t, result)
	})
}

func TestFirst(t *testing.T) {
	t.Run("returns first item", func(t *testing.T) {
		seq := makeSeq([]string{"a", "b", "c"})

		result, err := qualys.First(seq)
		require.NoError(t, err)
		assert.Equal(t, "a", result)
	})

	t.Run("returns error for empty iterator", func(t *testing.T) {
		seq := makeSeq([]string{})

		_, err := qualys.First(seq)
		require.Error(t, err)
		assert.ErrorIs(t, err, qualys.ErrEmptyIterator)
	})

	t.Run("returns error if first item errors", func(t *testing.T) {
		testErr := errors.New("test error")
		seq := makeSeqWithError([]string{"a"}, 0, testErr)

		_, err := qualys.First(seq)
		require.ErrorIs(t, err, testErr)
	})
}

func TestTake(t *testing.T) {
	t.Run("takes n items", func(t *testing.T) {
		seq := makeSeq([]int{1, 2, 3, 4, 5})
		taken := qualys.Take(seq, 3)

		result, err := qualys.Collect(taken)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, result)
	})

	t.Run("takes all if less than n", func(t *testing.T) {
		seq := makeSeq([]int{1, 2})
		taken := qualys.Take(seq, 5)

		result, err := qualys.Collect(taken)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, result)
	})

	t.Run("zero yields nothing", func(t *testing.T) {
		result, err := qualys.Collect(qualys.Take(makeSeq([]int{1, 2}), 0))
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("propagates errors", func(t *testing.T) {
		testErr := errors.New("test error")
		seq := makeSeqWithError([]int{1, 2, 3, 4, 5}, 2, testErr)
		taken := qualys.Take(seq, 5)

		_, err := qualys.Collect(taken)
		require.ErrorIs(t, err, testErr)
	})
}

func TestFilter(t *testing.T) {
	t.Run("filters items", func(t *testing.T) {
		seq := makeSeq([]int{1, 2, 3, 4, 5, 6})
		even := qualys.Filter(seq, func(n int) bool { return n%2 == 0 })

		result, err := qualys.Collect(even)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 4, 6}, result)
	})

	t.Run("propagates errors", func(t *testing.T) {
		testErr := errors.New("test error")
		seq := makeSeqWithError([]int{1, 2, 3}, 1, testErr)
		filtered := qualys.Filter(seq, func(n int) bool { return true })

		_, err := qualys.Collect(filtered)
		require.ErrorIs(t, err, testErr)
	})
}

func TestIteratorsOverPaginate(t *testing.T) {
	t.Run("take filtered stops paging", func(t *testing.T) {
		var requests atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			n := int(requests.Add(1))
			_, _ = io.WriteString(w, findingsPage(true, n*10+1, n*10+2))
		})

		seq := qualys.Paginate(context.Background(), client, "was", "get_findings", nil, qualys.FindingFromRecord)
		even := qualys.Filter(seq, func(f *qualys.Finding) bool { return f.ID%2 == 0 })
		findings, err := qualys.Collect(qualys.Take(even, 3))
		require.NoError(t, err)

		require.Len(t, findings, 3)
		assert.Equal(t, int64(12), findings[0].ID)
		assert.Equal(t, int64(32), findings[2].ID)
		assert.EqualValues(t, 3, requests.Load())
	})

	t.Run("first fetches one page", func(t *testing.T) {
		var requests atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			_, _ = io.WriteString(w, findingsPage(true, 7, 8))
		})

		f, err := qualys.First(qualys.Paginate(context.Background(), client, "was", "get_findings", nil, qualys.FindingFromRecord))
		require.NoError(t, err)
		assert.Equal(t, int64(7), f.ID)
		assert.EqualValues(t, 1, requests.Load())
	})

	t.Run("first on empty result", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, findingsPage(false))
		})

		_, err := qualys.First(qualys.Paginate(context.Background(), client, "was", "get_findings", nil, qualys.FindingFromRecord))
		assert.ErrorIs(t, err, qualys.ErrEmptyIterator)
	})

	t.Run("collect drops items on page failure", func(t *testing.T) {
		var requests atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) == 1 {
				_, _ = io.WriteString(w, findingsPage(true, 1, 2))
				return
			}
			w.WriteHeader(http.StatusBadGateway)
		})

		findings, err := qualys.Collect(qualys.Paginate(context.Background(), client, "was", "get_findings", nil, qualys.FindingFromRecord))
		assert.Nil(t, findings)
		var serverErr *qualys.ServerError
		require.ErrorAs(t, err, &serverErr)
	})
}
