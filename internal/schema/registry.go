package schema

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrUnknownEndpoint is returned by Lookup for names not in the registry.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

var validate = validator.New()

var templateToken = regexp.MustCompile(`\{[^}]*\}`)

// Registry is a read-only index of contracts keyed by module and endpoint name.
// It is safe for concurrent use.
type Registry struct {
	contracts map[string]map[string]*Contract
}

// New validates contracts and builds a registry from them. Every problem found is
// reported in the returned error.
func New(contracts ...Contract) (*Registry, error) {
	r := &Registry{contracts: make(map[string]map[string]*Contract)}
	var errs []error
	for i := range contracts {
		c := contracts[i]
		if err := check(&c); err != nil {
			errs = append(errs, err)
			continue
		}
		byName := r.contracts[c.Module]
		if byName == nil {
			byName = make(map[string]*Contract)
			r.contracts[c.Module] = byName
		}
		if _, dup := byName[c.Name]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate contract", c.Key()))
			continue
		}
		byName[c.Name] = &c
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	return New(builtin()...)
})

// Default returns the registry of built-in Qualys contracts. A malformed built-in
// table is a programming error and panics on first use.
func Default() *Registry {
	r, err := defaultRegistry()
	if err != nil {
		panic(fmt.Sprintf("schema: invalid built-in contract table: %v", err))
	}
	return r
}

// Lookup returns the contract for module/endpoint.
func (r *Registry) Lookup(module, endpoint string) (*Contract, error) {
	if c, ok := r.contracts[module][endpoint]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrUnknownEndpoint, module, endpoint)
}

// Modules returns the registered module names, sorted.
func (r *Registry) Modules() []string {
	mods := make([]string, 0, len(r.contracts))
	for m := range r.contracts {
		mods = append(mods, m)
	}
	sort.Strings(mods)
	return mods
}

// Endpoints returns the contracts of a module sorted by name.
func (r *Registry) Endpoints(module string) []*Contract {
	out := make([]*Contract, 0, len(r.contracts[module]))
	for _, c := range r.contracts[module] {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Contract) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// check runs struct-tag validation plus the cross-field rules tags cannot express,
// then compiles the lookup sets.
func check(c *Contract) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%s: %w", c.Key(), err)
	}
	c.compile()

	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: "+format, append([]any{c.Key()}, args...)...))
	}

	for _, tok := range templateToken.FindAllString(c.URLTemplate, -1) {
		if tok != placeholderToken {
			fail("unsupported URL template token %s", tok)
		}
	}
	for _, name := range c.QueryParams {
		if slices.Contains(c.BodyParams, name) {
			fail("parameter %q is both query and body", name)
		}
	}
	if c.BodyEncoding == BodyNone && len(c.BodyParams) > 0 {
		fail("body parameters declared without a body encoding")
	}
	if c.BodyEncoding != BodyNone && !c.AllowsMethod("POST") {
		fail("body encoding %s requires POST", c.BodyEncoding)
	}
	if c.ResponseFormat == FormatXML && c.Envelope.Root == "" {
		fail("XML responses need an envelope root")
	}
	for _, name := range c.UpperFields {
		if !c.Allows(name) {
			fail("upper-cased field %q is not a parameter", name)
		}
	}
	for name := range c.Defaults {
		if !c.Allows(name) {
			fail("default %q is not a parameter", name)
		}
	}
	if fk := c.FilterKeys; fk != nil && !c.Allows(fk.Param) {
		fail("filter key parameter %q is not a parameter", fk.Param)
	}

	cont := c.Continuation
	switch c.Kind() {
	case ContinueNone:
		if c.Paginated {
			fail("paginated contract without a continuation kind")
		}
	case ContinueCursor:
		if len(cont.MorePath) == 0 || len(cont.CursorPath) == 0 {
			fail("cursor continuation needs more and cursor paths")
		}
		if !c.Allows(cont.CursorParam) {
			fail("cursor parameter %q is not a parameter", cont.CursorParam)
		}
		if cont.CursorOperator != "" && !c.Allows(cont.CursorParam+OperatorSuffix) {
			fail("cursor operator set but %q is not a filter field", cont.CursorParam)
		}
	case ContinueURLCursor:
		if len(cont.CursorPath) == 0 || cont.CursorURLParam == "" {
			fail("URL cursor continuation needs a cursor path and URL parameter")
		}
		if !c.Allows(cont.CursorParam) {
			fail("cursor parameter %q is not a parameter", cont.CursorParam)
		}
	case ContinueLastFlag:
		if len(cont.LastPath) == 0 {
			fail("last-flag continuation needs a last path")
		}
		if cont.PageParam != "" && !c.Allows(cont.PageParam) {
			fail("page parameter %q is not a parameter", cont.PageParam)
		}
	case ContinuePageNumber:
		if !c.Allows(cont.PageParam) {
			fail("page parameter %q is not a parameter", cont.PageParam)
		}
	}
	if c.Kind() != ContinueNone && !c.Paginated {
		fail("continuation %s on a non-paginated contract", c.Kind())
	}
	return errors.Join(errs...)
}
