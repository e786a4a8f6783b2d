package qualys

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/clbanning/mxj/v2"

	"github.com/tphakala/go-qualys/internal/schema"
)

// Record is one raw unit of domain data extracted from a response, before it is
// converted into a typed object. JSON numbers appear as json.Number; XML values
// appear as strings, with attributes under "-name" keys.
type Record map[string]any

// RawResponse is the wire response of one call. The body is decoded at most once.
type RawResponse struct {
	StatusCode int
	Body       []byte
	Header     http.Header

	format schema.ResponseFormat
	once   sync.Once
	tree   any
	err    error
}

func newRawResponse(format schema.ResponseFormat, status int, body []byte, header http.Header) *RawResponse {
	return &RawResponse{StatusCode: status, Body: body, Header: header, format: format}
}

// Parsed returns the decoded body tree. An empty body decodes to nil.
func (r *RawResponse) Parsed() (any, error) {
	r.once.Do(func() {
		if len(bytes.TrimSpace(r.Body)) == 0 {
			return
		}
		switch r.format {
		case schema.FormatXML:
			m, err := mxj.NewMapXml(r.Body)
			if err != nil {
				r.err = err
				return
			}
			r.tree = map[string]any(m)
		default:
			dec := json.NewDecoder(bytes.NewReader(r.Body))
			dec.UseNumber()
			var v any
			if err := dec.Decode(&v); err != nil {
				r.err = err
				return
			}
			if _, err := dec.Token(); !errors.Is(err, io.EOF) {
				r.err = errors.New("trailing data after JSON value")
				return
			}
			r.tree = v
		}
	})
	return r.tree, r.err
}

// signal is the continuation information a page carries for the next request.
type signal interface {
	isSignal()
}

// noSignal: the response says nothing about further pages.
type noSignal struct{}

// cursorSignal: more data exists; splice Value into Field (with Operator, if any).
type cursorSignal struct {
	Field    string
	Operator string
	Value    string
}

// doneSignal: an explicit flag; Done means no further pages.
type doneSignal struct {
	Done bool
}

func (noSignal) isSignal()     {}
func (cursorSignal) isSignal() {}
func (doneSignal) isSignal()   {}

// normalize reduces a response to its records and continuation signal. It does not
// modify resp, so repeated calls yield equal results.
func normalize(c *schema.Contract, resp *RawResponse) ([]Record, signal, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, parseStatusError(c.Key(), resp.StatusCode, resp.Body, resp.Header)
	}

	tree, err := resp.Parsed()
	if err != nil {
		return nil, nil, &MalformedResponseError{
			Endpoint: c.Key(),
			Reason:   "undecodable " + string(c.ResponseFormat) + " body",
			Snippet:  snippet(resp.Body),
			Err:      err,
		}
	}

	if c.ResponseFormat == schema.FormatXML {
		if err := simpleReturnError(c, tree); err != nil {
			return nil, nil, err
		}
	}

	env := c.Envelope
	node := tree
	if env.Root != "" {
		wrapper, ok := lookup(tree, env.Root)
		if !ok {
			return nil, nil, &MalformedResponseError{
				Endpoint: c.Key(),
				Reason:   fmt.Sprintf("missing %q wrapper", env.Root),
				Snippet:  snippet(resp.Body),
			}
		}
		node = wrapper
	}

	if len(env.StatusPath) > 0 {
		raw, ok := lookup(node, env.StatusPath...)
		status, _ := scalarString(raw)
		if !ok || status == "" {
			return nil, nil, &MalformedResponseError{
				Endpoint: c.Key(),
				Reason:   fmt.Sprintf("missing status field %s", strings.Join(env.StatusPath, "/")),
				Snippet:  snippet(resp.Body),
			}
		}
		if status != env.Success {
			msg, _ := lookup(node, env.MessagePath...)
			text, _ := scalarString(msg)
			return nil, nil, &APIReportedError{Endpoint: c.Key(), Code: status, Message: text}
		}
	}

	records, err := extractRecords(c, node)
	if err != nil {
		return nil, nil, withSnippet(err, resp.Body)
	}
	if len(records) == 0 {
		return records, doneSignal{Done: true}, nil
	}
	sig, err := continuation(c, node)
	if err != nil {
		return nil, nil, withSnippet(err, resp.Body)
	}
	return records, sig, nil
}

// withSnippet fills in the body snippet of a MalformedResponseError that has none.
func withSnippet(err error, body []byte) error {
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) && malformed.Snippet == "" {
		malformed.Snippet = snippet(body)
	}
	return err
}

// simpleReturnError reports an XML SIMPLE_RETURN that carries an error CODE. A
// SIMPLE_RETURN without CODE is a normal acknowledgement.
func simpleReturnError(c *schema.Contract, tree any) error {
	resp, ok := lookup(tree, "SIMPLE_RETURN", "RESPONSE")
	if !ok {
		return nil
	}
	code, ok := scalarString(mapValue(resp, "CODE"))
	if !ok || code == "" {
		return nil
	}
	text, _ := scalarString(mapValue(resp, "TEXT"))
	return &APIReportedError{Endpoint: c.Key(), Code: code, Message: text}
}

func extractRecords(c *schema.Contract, node any) ([]Record, error) {
	container := node
	if path := c.Envelope.RecordPath; len(path) > 0 {
		v, ok := lookup(node, path...)
		if !ok {
			return nil, nil
		}
		container = v
	}

	switch v := container.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
	case map[string]any:
		if len(v) == 0 {
			return nil, nil
		}
		if key := c.Envelope.KeyField; key != "" {
			return keyedRecords(c, v, key)
		}
		return []Record{Record(maps.Clone(v))}, nil
	case []any:
		out := make([]Record, 0, len(v))
		for i, item := range v {
			switch rec := item.(type) {
			case map[string]any:
				out = append(out, Record(maps.Clone(rec)))
			case nil:
			case string:
				if strings.TrimSpace(rec) != "" {
					return nil, recordTypeError(c, i, item)
				}
			default:
				return nil, recordTypeError(c, i, item)
			}
		}
		return out, nil
	}
	return nil, &MalformedResponseError{
		Endpoint: c.Key(),
		Reason:   fmt.Sprintf("record container is %T, want object or list", container),
	}
}

func keyedRecords(c *schema.Contract, m map[string]any, keyField string) ([]Record, error) {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		inner, ok := m[k].(map[string]any)
		if !ok {
			return nil, &MalformedResponseError{
				Endpoint: c.Key(),
				Reason:   fmt.Sprintf("value for key %q is %T, want object", k, m[k]),
			}
		}
		rec := Record(maps.Clone(inner))
		rec[keyField] = k
		out = append(out, rec)
	}
	return out, nil
}

func recordTypeError(c *schema.Contract, i int, item any) error {
	return &MalformedResponseError{
		Endpoint: c.Key(),
		Reason:   fmt.Sprintf("record %d is %T, want object", i, item),
	}
}

func continuation(c *schema.Contract, node any) (signal, error) {
	cont := c.Continuation
	switch c.Kind() {
	case schema.ContinueCursor:
		more, _ := lookup(node, cont.MorePath...)
		if !truthy(more) {
			return doneSignal{Done: true}, nil
		}
		raw, _ := lookup(node, cont.CursorPath...)
		value, ok := scalarString(raw)
		if !ok || value == "" {
			return nil, &MalformedResponseError{
				Endpoint: c.Key(),
				Reason:   fmt.Sprintf("more records reported without %s", strings.Join(cont.CursorPath, "/")),
			}
		}
		return cursorSignal{Field: cont.CursorParam, Operator: cont.CursorOperator, Value: value}, nil

	case schema.ContinueURLCursor:
		raw, ok := lookup(node, cont.CursorPath...)
		next, _ := scalarString(raw)
		if !ok || strings.TrimSpace(next) == "" {
			return doneSignal{Done: true}, nil
		}
		u, err := url.Parse(strings.TrimSpace(next))
		if err != nil {
			return nil, &MalformedResponseError{Endpoint: c.Key(), Reason: "unparseable next-page URL", Snippet: next, Err: err}
		}
		value := u.Query().Get(cont.CursorURLParam)
		if value == "" {
			return nil, &MalformedResponseError{
				Endpoint: c.Key(),
				Reason:   fmt.Sprintf("next-page URL has no %s", cont.CursorURLParam),
				Snippet:  next,
			}
		}
		return cursorSignal{Field: cont.CursorParam, Value: value}, nil

	case schema.ContinueLastFlag:
		raw, ok := lookup(node, cont.LastPath...)
		if !ok {
			return noSignal{}, nil
		}
		return doneSignal{Done: truthy(raw)}, nil
	}
	return noSignal{}, nil
}

// lookup walks nested objects by key.
func lookup(node any, path ...string) (any, bool) {
	cur := node
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func mapValue(node any, key string) any {
	v, _ := lookup(node, key)
	return v
}

// scalarString renders a decoded scalar as a string. XML elements with attributes
// carry their text under "#text".
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case map[string]any:
		if text, ok := x["#text"]; ok {
			return scalarString(text)
		}
	}
	return "", false
}

func truthy(v any) bool {
	s, ok := scalarString(v)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
