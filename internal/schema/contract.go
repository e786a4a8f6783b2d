// Package schema holds the immutable per-endpoint contracts of the Qualys API.
package schema

import (
	"slices"
	"strings"
)

// Host selects which of the two Qualys base URLs an endpoint lives on.
type Host string

const (
	HostAPI     Host = "api"
	HostGateway Host = "gateway"
)

// BodyEncoding describes how body parameters are serialized.
type BodyEncoding string

const (
	BodyNone BodyEncoding = "none"
	BodyForm BodyEncoding = "form"
	BodyJSON BodyEncoding = "json"
	BodyXML  BodyEncoding = "xml"
)

// ResponseFormat is the wire format of the response body.
type ResponseFormat string

const (
	FormatJSON ResponseFormat = "json"
	FormatXML  ResponseFormat = "xml"
)

// AuthMode selects the credential used to sign a request.
type AuthMode string

const (
	AuthToken AuthMode = "token"
	AuthBasic AuthMode = "basic"
)

// BoolStyle is the wire literal used for boolean parameters.
type BoolStyle string

const (
	// BoolNumeric renders booleans as "1" / "0".
	BoolNumeric BoolStyle = "numeric"
	// BoolWord renders booleans as "true" / "false".
	BoolWord BoolStyle = "word"
)

// ContinuationKind names the page-continuation convention of an endpoint family.
type ContinuationKind string

const (
	// ContinueNone: a single page, no continuation.
	ContinueNone ContinuationKind = "none"
	// ContinueCursor: a "more" flag plus a last-id cursor spliced into the next request.
	ContinueCursor ContinuationKind = "cursor"
	// ContinueURLCursor: a next-page URL whose query carries the cursor (VMDR WARNING/URL).
	ContinueURLCursor ContinuationKind = "url_cursor"
	// ContinueLastFlag: a boolean "last" flag; pages are addressed by a page counter.
	ContinueLastFlag ContinuationKind = "last_flag"
	// ContinuePageNumber: a page counter only; an empty page ends the walk.
	ContinuePageNumber ContinuationKind = "page_number"
)

// OperatorSuffix marks the operator half of a filter field pair.
const OperatorSuffix = "_operator"

// PlaceholderParam is the reserved parameter substituted into {placeholder}.
const PlaceholderParam = "placeholder"

const placeholderToken = "{" + PlaceholderParam + "}"

// Envelope locates the status field and the records inside a response.
// Paths are relative to Root; an empty Root means the decoded body itself.
type Envelope struct {
	Root        string
	StatusPath  []string
	Success     string `validate:"required_with=StatusPath"`
	MessagePath []string
	// RecordPath points at the record container. Empty means the wrapper itself is the record.
	RecordPath []string
	// KeyField, when set, treats the container as an object whose values are the
	// records; each key is copied into the record under this name.
	KeyField string
}

// Continuation describes how the next page is requested.
type Continuation struct {
	Kind ContinuationKind `validate:"omitempty,oneof=none cursor url_cursor last_flag page_number"`

	MorePath       []string
	CursorPath     []string
	CursorURLParam string
	CursorParam    string
	CursorOperator string `validate:"omitempty,oneof=GREATER"`

	LastPath []string

	PageParam string
	PageStart int `validate:"gte=0"`
}

// FilterKeyRule constrains a "key:value" style filter parameter.
type FilterKeyRule struct {
	Param     string   `validate:"required"`
	Separator string   `validate:"required"`
	Keys      []string `validate:"required,min=1"`
	// UpperKeys lists keys whose value is upper-cased on the wire.
	UpperKeys []string
}

// Contract is the immutable rule set for one endpoint.
type Contract struct {
	Module         string         `validate:"required"`
	Name           string         `validate:"required"`
	Host           Host           `validate:"required,oneof=api gateway"`
	URLTemplate    string         `validate:"required,startswith=/"`
	Methods        []string       `validate:"required,min=1,dive,oneof=GET POST"`
	QueryParams    []string       `validate:"omitempty,dive,required"`
	BodyParams     []string       `validate:"omitempty,dive,required"`
	BodyEncoding   BodyEncoding   `validate:"required,oneof=none form json xml"`
	ResponseFormat ResponseFormat `validate:"required,oneof=json xml"`
	Paginated      bool
	AuthMode       AuthMode  `validate:"required,oneof=token basic"`
	BoolStyle      BoolStyle `validate:"required,oneof=numeric word"`

	// Defaults are applied before caller parameters; callers may override them.
	Defaults map[string]string

	// UpperFields are upper-cased before hitting the wire.
	UpperFields []string

	// Filters maps filter fields to their type; each accepts a "<field>_operator" companion.
	Filters map[string]FieldType `validate:"omitempty,dive,keys,required,endkeys,oneof=INTEGER TEXT DATE KEYWORD BOOLEAN"`

	FilterKeys *FilterKeyRule

	Envelope     Envelope
	Continuation Continuation

	query map[string]struct{}
	body  map[string]struct{}
	upper map[string]struct{}
}

// Key returns the "module/name" identifier used in errors and logs.
func (c *Contract) Key() string {
	return c.Module + "/" + c.Name
}

// HasPlaceholder reports whether the URL template carries {placeholder}.
func (c *Contract) HasPlaceholder() bool {
	return strings.Contains(c.URLTemplate, placeholderToken)
}

// ResolvePath substitutes an already-escaped placeholder value into the template.
func (c *Contract) ResolvePath(escaped string) string {
	return strings.ReplaceAll(c.URLTemplate, placeholderToken, escaped)
}

// AllowsMethod reports whether method is one of the contract's methods.
func (c *Contract) AllowsMethod(method string) bool {
	return slices.Contains(c.Methods, method)
}

// Allows reports whether name is a whitelisted parameter, including filter pairs and
// the path placeholder.
func (c *Contract) Allows(name string) bool {
	if name == PlaceholderParam {
		return c.HasPlaceholder()
	}
	return c.IsQuery(name) || c.IsBody(name)
}

// IsQuery reports whether name travels in the query string.
func (c *Contract) IsQuery(name string) bool {
	_, ok := c.query[name]
	return ok
}

// IsBody reports whether name travels in the request body.
func (c *Contract) IsBody(name string) bool {
	_, ok := c.body[name]
	return ok
}

// IsUpper reports whether values of name are upper-cased.
func (c *Contract) IsUpper(name string) bool {
	_, ok := c.upper[name]
	return ok
}

// FilterField reports the type of a filter field. For "<field>_operator" it returns the
// type of <field> and isOperator=true.
func (c *Contract) FilterField(name string) (typ FieldType, isOperator, ok bool) {
	if base, found := strings.CutSuffix(name, OperatorSuffix); found {
		typ, ok = c.Filters[base]
		return typ, true, ok
	}
	typ, ok = c.Filters[name]
	return typ, false, ok
}

// Kind returns the continuation kind, treating the zero value as ContinueNone.
func (c *Contract) Kind() ContinuationKind {
	if c.Continuation.Kind == "" {
		return ContinueNone
	}
	return c.Continuation.Kind
}

// ParamNames returns every accepted parameter name, sorted.
func (c *Contract) ParamNames() []string {
	names := make([]string, 0, len(c.query)+len(c.body))
	for n := range c.query {
		names = append(names, n)
	}
	for n := range c.body {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// compile builds the lookup sets. Filter fields and their operators join the body set
// for body-carrying endpoints and the query set otherwise.
func (c *Contract) compile() {
	c.query = toSet(c.QueryParams)
	c.body = toSet(c.BodyParams)
	c.upper = toSet(c.UpperFields)

	target := c.body
	if c.BodyEncoding == BodyNone {
		target = c.query
	}
	for field := range c.Filters {
		target[field] = struct{}{}
		target[field+OperatorSuffix] = struct{}{}
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
