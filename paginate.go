package qualys

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"reflect"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/tphakala/go-qualys/internal/schema"
)

// Reason records why a paginated call stopped.
type Reason string

const (
	// ReasonExhausted: the API reported no further pages, or a page was empty.
	ReasonExhausted Reason = "exhausted"
	// ReasonLimitReached: the caller's page budget was used up.
	ReasonLimitReached Reason = "limit_reached"
	// ReasonCanceled: the context ended between or during pages.
	ReasonCanceled Reason = "canceled"
	// ReasonFailed: a page could not be built, fetched, or normalized.
	ReasonFailed Reason = "failed"
)

// pageCursor is the per-call pagination state, mutated once per page.
type pageCursor struct {
	pageIndex  int
	token      *cursorSignal
	exhausted  bool
	pagesSoFar int
	// head is the first record of the previous page on page-number endpoints.
	head Record
}

func newPageCursor(c *schema.Contract, p ValidatedParams) *pageCursor {
	cur := &pageCursor{pageIndex: c.Continuation.PageStart}
	if name := c.Continuation.PageParam; name != "" {
		if v, ok := p.Get(name); ok {
			if n, err := strconv.Atoi(v); err == nil {
				cur.pageIndex = n
			}
		}
	}
	return cur
}

// apply merges the continuation state into a copy of p.
func (cur *pageCursor) apply(c *schema.Contract, p ValidatedParams) ValidatedParams {
	if cur == nil {
		return p
	}
	if t := cur.token; t != nil {
		p = p.with(t.Field, t.Value)
		if t.Operator != "" {
			p = p.with(t.Field+schema.OperatorSuffix, t.Operator)
		}
	}
	if name := c.Continuation.PageParam; name != "" {
		p = p.with(name, strconv.Itoa(cur.pageIndex))
	}
	return p
}

// advance folds one page's outcome into the cursor.
func (cur *pageCursor) advance(c *schema.Contract, batch []Record, sig signal) error {
	cur.pagesSoFar++
	if len(batch) == 0 || !c.Paginated {
		cur.exhausted = true
		return nil
	}

	switch s := sig.(type) {
	case doneSignal:
		if s.Done {
			cur.exhausted = true
			return nil
		}
	case cursorSignal:
		if cur.token != nil && cur.token.Value == s.Value {
			return &MalformedResponseError{
				Endpoint: c.Key(),
				Reason:   fmt.Sprintf("cursor %s did not advance past %s", s.Field, s.Value),
			}
		}
		cur.token = &s
	}

	if c.Continuation.PageParam != "" {
		if cur.head != nil && reflect.DeepEqual(cur.head, batch[0]) {
			return &MalformedResponseError{
				Endpoint: c.Key(),
				Reason:   fmt.Sprintf("%s %d repeated the previous page", c.Continuation.PageParam, cur.pageIndex),
			}
		}
		cur.head = batch[0]
		cur.pageIndex++
	}
	return nil
}

// driver runs the fetch loop for one call.
type driver struct {
	call   *call
	cursor *pageCursor
	limit  int
	reason Reason
}

func newDriver(cl *call, pageLimit int) *driver {
	return &driver{
		call:   cl,
		cursor: newPageCursor(cl.contract, cl.params),
		limit:  pageLimit,
	}
}

// pages yields each page's records in arrival order. A limit <= 0 means no limit.
// When the sequence ends on its own, d.reason holds the terminal state.
func (d *driver) pages(ctx context.Context) iter.Seq2[[]Record, error] {
	return func(yield func([]Record, error) bool) {
		log := d.call.log
		for {
			if err := ctx.Err(); err != nil {
				d.finish(ReasonCanceled)
				yield(nil, err)
				return
			}

			batch, sig, err := d.call.fetch(ctx, d.cursor)
			if err == nil {
				err = d.cursor.advance(d.call.contract, batch, sig)
			}
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					d.finish(ReasonCanceled)
				} else {
					d.finish(ReasonFailed)
				}
				yield(nil, err)
				return
			}

			log.WithFields(logrus.Fields{
				"page":    d.cursor.pagesSoFar,
				"records": len(batch),
			}).Debug("page fetched")

			if !yield(batch, nil) {
				return
			}

			switch {
			case d.cursor.exhausted:
				d.finish(ReasonExhausted)
				return
			case d.limit > 0 && d.cursor.pagesSoFar >= d.limit:
				d.finish(ReasonLimitReached)
				return
			}
		}
	}
}

func (d *driver) finish(r Reason) {
	d.reason = r
	entry := d.call.log.WithFields(logrus.Fields{
		"pages":  d.cursor.pagesSoFar,
		"reason": r,
	})
	if r == ReasonFailed {
		entry.Debug("pagination stopped")
		return
	}
	entry.Info("pagination finished")
}
