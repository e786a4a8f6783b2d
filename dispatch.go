package qualys

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"

	"github.com/sirupsen/logrus"

	"github.com/tphakala/go-qualys/internal/api"
	"github.com/tphakala/go-qualys/internal/auth"
	"github.com/tphakala/go-qualys/internal/schema"
)

// Factory converts one raw record into a domain object.
type Factory[T any] func(Record) (T, error)

// RawRecord is the identity Factory.
func RawRecord(r Record) (Record, error) {
	return r, nil
}

// call is one validated invocation of an endpoint.
type call struct {
	client   *Client
	contract *schema.Contract
	params   ValidatedParams
	cfg      *requestConfig
	log      logrus.FieldLogger
}

// prepare resolves and validates everything that does not need the network.
func (c *Client) prepare(module, endpoint string, params Params, opts []RequestOption) (*call, error) {
	contract, err := c.registry.Lookup(module, endpoint)
	if err != nil {
		return nil, err
	}
	vp, err := validate(contract, params)
	if err != nil {
		return nil, err
	}

	cfg := newRequestConfig()
	cfg.apply(opts...)
	if cfg.method != "" {
		if _, err := selectMethod(contract, cfg.method, false); err != nil {
			return nil, err
		}
	}

	return &call{
		client:   c,
		contract: contract,
		params:   vp,
		cfg:      cfg,
		log:      c.logger.WithField("endpoint", contract.Key()),
	}, nil
}

// fetch runs build, send, and normalize for one page.
func (cl *call) fetch(ctx context.Context, cur *pageCursor) ([]Record, signal, error) {
	req, err := cl.client.builder.build(ctx, cl.contract, cl.params, cur, cl.cfg.method)
	if err != nil {
		return nil, nil, err
	}
	maps.Copy(req.Headers, cl.cfg.headers)

	resp, err := cl.client.transport.Do(ctx, &api.Request{
		Method:  req.Method,
		Host:    api.Host(req.Host),
		Path:    req.Path,
		Query:   req.Query,
		Body:    req.Body,
		Headers: req.Headers,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("qualys: %s: %w", cl.contract.Key(), err)
	}

	raw := newRawResponse(cl.contract.ResponseFormat, resp.StatusCode, resp.Body, resp.Headers)
	records, sig, err := normalize(cl.contract, raw)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) {
			if tok, ok := cl.client.builder.signers[cl.contract.AuthMode].(*auth.Token); ok {
				tok.Invalidate()
			}
		}
		return nil, nil, err
	}
	return records, sig, nil
}

// Execute calls a single-record endpoint and converts its first record.
// It returns ErrNoRecords when the response holds none.
func Execute[T any](ctx context.Context, c *Client, module, endpoint string, params Params, factory Factory[T], opts ...RequestOption) (T, error) {
	var zero T
	cl, err := c.prepare(module, endpoint, params, opts)
	if err != nil {
		return zero, err
	}
	batch, _, err := cl.fetch(ctx, nil)
	if err != nil {
		return zero, err
	}
	if len(batch) == 0 {
		return zero, fmt.Errorf("%w: %s", ErrNoRecords, cl.contract.Key())
	}
	return convert(cl.contract, factory, batch[0])
}

// ExecutePaginated fetches up to pageLimit pages (all pages when pageLimit <= 0)
// and returns every record converted by factory, in API order. Any failure
// discards the accumulated records. When the context ends and KeepPartial was
// given, the partial collection is returned together with the context error.
// A non-paginated endpoint yields exactly one page. A cursor that does not move,
// or a page-number endpoint that serves the same first record twice, fails with
// MalformedResponseError.
func ExecutePaginated[T any](ctx context.Context, c *Client, module, endpoint string, pageLimit int, params Params, factory Factory[T], opts ...RequestOption) (*ResultCollection[T], error) {
	cl, err := c.prepare(module, endpoint, params, opts)
	if err != nil {
		return nil, err
	}

	d := newDriver(cl, pageLimit)
	coll := &ResultCollection[T]{}
	for batch, err := range d.pages(ctx) {
		if err != nil {
			if d.reason == ReasonCanceled && cl.cfg.keepPartial {
				coll.seal(d.cursor.pagesSoFar, ReasonCanceled)
				return coll, err
			}
			return nil, err
		}
		for _, rec := range batch {
			item, err := convert(cl.contract, factory, rec)
			if err != nil {
				return nil, err
			}
			coll.items = append(coll.items, item)
		}
	}
	coll.seal(d.cursor.pagesSoFar, d.reason)
	return coll, nil
}

// Paginate returns a lazy iterator over every record of a paginated endpoint.
// Pages are fetched as iteration proceeds; breaking out stops further requests.
// WithPageLimit bounds the number of pages.
func Paginate[T any](ctx context.Context, c *Client, module, endpoint string, params Params, factory Factory[T], opts ...RequestOption) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		cl, err := c.prepare(module, endpoint, params, opts)
		if err != nil {
			yield(zero, err)
			return
		}

		d := newDriver(cl, cl.cfg.pageLimit)
		for batch, err := range d.pages(ctx) {
			if err != nil {
				yield(zero, err)
				return
			}
			for _, rec := range batch {
				item, err := convert(cl.contract, factory, rec)
				if err != nil {
					yield(zero, err)
					return
				}
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

func convert[T any](c *schema.Contract, factory Factory[T], rec Record) (T, error) {
	item, err := factory(rec)
	if err != nil {
		var zero T
		return zero, &MalformedResponseError{Endpoint: c.Key(), Reason: "record conversion failed", Err: err}
	}
	return item, nil
}
