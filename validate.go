package qualys

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tphakala/go-qualys/internal/schema"
)

// Params are caller-supplied endpoint parameters. Values may be strings, booleans,
// integers, floats, time.Time, fmt.Stringer, or slices of those; slices are sent
// comma-joined. A nil value omits the parameter, including a built-in default.
type Params map[string]any

// wireTime is the timestamp layout the API accepts in parameters.
const wireTime = "2006-01-02T15:04:05Z"

var errUnsupportedValue = errors.New("unsupported value type")

// ValidatedParams is the immutable wire form of Params for one endpoint.
type ValidatedParams struct {
	values map[string]string
}

// Get returns the wire value of name.
func (p ValidatedParams) Get(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Len returns the number of parameters.
func (p ValidatedParams) Len() int {
	return len(p.values)
}

// Names returns the parameter names, sorted.
func (p ValidatedParams) Names() []string {
	return slices.Sorted(maps.Keys(p.values))
}

// with returns a copy with name set to value.
func (p ValidatedParams) with(name, value string) ValidatedParams {
	next := make(map[string]string, len(p.values)+1)
	maps.Copy(next, p.values)
	next[name] = value
	return ValidatedParams{values: next}
}

// split routes each parameter to the query string or the body per the contract.
func (p ValidatedParams) split(c *schema.Contract) (query url.Values, body map[string]string, placeholder string, hasPlaceholder bool) {
	query = url.Values{}
	body = make(map[string]string)
	for name, v := range p.values {
		switch {
		case name == schema.PlaceholderParam && c.HasPlaceholder():
			placeholder, hasPlaceholder = v, true
		case c.IsQuery(name):
			query.Set(name, v)
		default:
			body[name] = v
		}
	}
	return query, body, placeholder, hasPlaceholder
}

// validate checks raw against the contract and produces wire-ready values. It has
// no side effects.
func validate(c *schema.Contract, raw Params) (ValidatedParams, error) {
	values := make(map[string]string, len(c.Defaults)+len(raw))
	maps.Copy(values, c.Defaults)

	for _, name := range slices.Sorted(maps.Keys(raw)) {
		if !c.Allows(name) {
			return ValidatedParams{}, &UnknownParameterError{
				ParamError: ParamError{Endpoint: c.Key(), Param: name, Message: "not accepted by endpoint"},
				Allowed:    c.ParamNames(),
			}
		}
		v, present, err := wireValue(c.BoolStyle, raw[name])
		if err != nil {
			return ValidatedParams{}, &InvalidParameterError{
				ParamError: ParamError{Endpoint: c.Key(), Param: name, Message: err.Error()},
				Value:      raw[name],
			}
		}
		if !present {
			delete(values, name)
			continue
		}
		if _, isOp, _ := c.FilterField(name); isOp || c.IsUpper(name) {
			v = upper(v)
		}
		values[name] = v
	}

	if err := checkFilterPairs(c, values); err != nil {
		return ValidatedParams{}, err
	}
	if fk := c.FilterKeys; fk != nil {
		if v, ok := values[fk.Param]; ok {
			checked, err := checkFilterKey(c, fk, v)
			if err != nil {
				return ValidatedParams{}, err
			}
			values[fk.Param] = checked
		}
	}
	return ValidatedParams{values: values}, nil
}

func checkFilterPairs(c *schema.Contract, values map[string]string) error {
	for _, name := range slices.Sorted(maps.Keys(values)) {
		typ, isOp, ok := c.FilterField(name)
		if !ok {
			continue
		}
		if isOp {
			field := strings.TrimSuffix(name, schema.OperatorSuffix)
			if _, has := values[field]; !has {
				return &IncompleteFilterError{
					ParamError: ParamError{Endpoint: c.Key(), Param: name, Message: "operator without a value"},
					Missing:    field,
				}
			}
			if op := values[name]; !typ.Allows(op) {
				return &InvalidParameterError{
					ParamError: ParamError{
						Endpoint: c.Key(),
						Param:    name,
						Message:  fmt.Sprintf("operator %q not valid for %s field, want one of %s", op, typ, strings.Join(typ.Operators(), ", ")),
					},
					Value: op,
				}
			}
			continue
		}
		if typ.OperatorRequired() {
			if _, has := values[name+schema.OperatorSuffix]; !has {
				return &IncompleteFilterError{
					ParamError: ParamError{Endpoint: c.Key(), Param: name, Message: fmt.Sprintf("%s filter needs an operator", typ)},
					Missing:    name + schema.OperatorSuffix,
				}
			}
		}
	}
	return nil
}

func checkFilterKey(c *schema.Contract, fk *schema.FilterKeyRule, v string) (string, error) {
	key, value, found := strings.Cut(v, fk.Separator)
	key = strings.TrimSpace(key)
	if !found {
		return "", &InvalidParameterError{
			ParamError: ParamError{Endpoint: c.Key(), Param: fk.Param, Message: fmt.Sprintf("want key%svalue", fk.Separator)},
			Value:      v,
		}
	}
	if !slices.Contains(fk.Keys, key) {
		return "", &UnknownParameterError{
			ParamError: ParamError{Endpoint: c.Key(), Param: fk.Param, Message: "filter key not accepted"},
			Key:        key,
			Allowed:    slices.Clone(fk.Keys),
		}
	}
	if slices.Contains(fk.UpperKeys, key) {
		value = upper(value)
	}
	return key + fk.Separator + value, nil
}

// upper builds a fresh Caser per call; Casers are not safe for concurrent use.
func upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// wireValue converts v to its wire string. present is false for nil values and
// empty slices.
func wireValue(style schema.BoolStyle, v any) (string, bool, error) {
	if v == nil {
		return "", false, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false, nil
		}
		return wireValue(style, rv.Elem().Interface())
	}
	if s, ok := scalarWire(style, v); ok {
		return s, true, nil
	}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Len() == 0 {
			return "", false, nil
		}
		parts := make([]string, 0, rv.Len())
		for i := range rv.Len() {
			s, ok := scalarWire(style, rv.Index(i).Interface())
			if !ok {
				return "", false, fmt.Errorf("%w: list element %T", errUnsupportedValue, rv.Index(i).Interface())
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), true, nil
	}
	return "", false, fmt.Errorf("%w: %T", errUnsupportedValue, v)
}

func scalarWire(style schema.BoolStyle, v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return boolWire(style, x), true
	case time.Time:
		return x.UTC().Format(wireTime), true
	case fmt.Stringer:
		return x.String(), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return boolWire(style, rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, rv.Type().Bits()), true
	}
	return "", false
}

func boolWire(style schema.BoolStyle, b bool) string {
	if style == schema.BoolNumeric {
		if b {
			return "1"
		}
		return "0"
	}
	return strconv.FormatBool(b)
}
