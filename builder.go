package qualys

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tphakala/go-qualys/internal/auth"
	"github.com/tphakala/go-qualys/internal/schema"
)

// XMLRenderer renders the XML body of an xml-encoded endpoint from its body parameters.
type XMLRenderer interface {
	Render(endpoint string, params map[string]string) ([]byte, error)
}

// CallRequest is the fully resolved wire request for one page of a call. It is a
// pure function of the contract, the validated parameters, and the page cursor.
type CallRequest struct {
	Method  string
	Host    schema.Host
	Path    string
	Query   url.Values
	Body    []byte
	Headers http.Header
}

type builder struct {
	signers  map[schema.AuthMode]auth.Signer
	renderer XMLRenderer
}

// build resolves the request for the page described by cur (nil for a single call).
// method overrides automatic selection when non-empty.
func (b *builder) build(ctx context.Context, c *schema.Contract, p ValidatedParams, cur *pageCursor, method string) (*CallRequest, error) {
	p = cur.apply(c, p)
	query, body, placeholder, hasPlaceholder := p.split(c)

	path := c.URLTemplate
	if c.HasPlaceholder() {
		if !hasPlaceholder || strings.TrimSpace(placeholder) == "" {
			return nil, &MissingPathParameterError{
				ParamError: ParamError{Endpoint: c.Key(), Param: schema.PlaceholderParam, Message: "required by URL template"},
			}
		}
		if seg := strings.TrimSpace(placeholder); seg == "." || seg == ".." {
			return nil, &InvalidParameterError{
				ParamError: ParamError{Endpoint: c.Key(), Param: schema.PlaceholderParam, Message: "dot segment not allowed in path"},
				Value:      placeholder,
			}
		}
		path = c.ResolvePath(url.PathEscape(placeholder))
	}

	payload, contentType, err := b.encodeBody(c, body)
	if err != nil {
		return nil, err
	}

	m, err := selectMethod(c, method, len(payload) > 0)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	if c.ResponseFormat == schema.FormatXML {
		headers.Set("Accept", "application/xml")
	} else {
		headers.Set("Accept", "application/json")
	}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}
	if c.Host == schema.HostAPI {
		headers.Set("X-Requested-With", "go-qualys")
	}

	signer := b.signers[c.AuthMode]
	if signer == nil {
		return nil, fmt.Errorf("%w: %s requires %s auth", ErrNoCredentials, c.Key(), c.AuthMode)
	}
	authHeaders, err := signer.Sign(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: signing request: %w", c.Key(), err)
	}
	for k, v := range authHeaders {
		headers[k] = v
	}

	return &CallRequest{
		Method:  m,
		Host:    c.Host,
		Path:    path,
		Query:   query,
		Body:    payload,
		Headers: headers,
	}, nil
}

func (b *builder) encodeBody(c *schema.Contract, body map[string]string) ([]byte, string, error) {
	switch c.BodyEncoding {
	case schema.BodyForm:
		if len(body) == 0 {
			return nil, "", nil
		}
		form := make(url.Values, len(body))
		for k, v := range body {
			form.Set(k, v)
		}
		return []byte(form.Encode()), "application/x-www-form-urlencoded", nil
	case schema.BodyJSON:
		if len(body) == 0 {
			return nil, "", nil
		}
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("%s: marshaling request body: %w", c.Key(), err)
		}
		return data, "application/json", nil
	case schema.BodyXML:
		if b.renderer == nil {
			return nil, "", fmt.Errorf("%s: no XML renderer configured", c.Key())
		}
		data, err := b.renderer.Render(c.Name, body)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", c.Key(), err)
		}
		return data, "text/xml", nil
	}
	return nil, "", nil
}

// selectMethod honors an explicit override, then a single allowed method, then
// prefers POST when there is a body.
func selectMethod(c *schema.Contract, override string, hasBody bool) (string, error) {
	if override != "" {
		m := strings.ToUpper(override)
		if !c.AllowsMethod(m) {
			return "", &InvalidParameterError{
				ParamError: ParamError{
					Endpoint: c.Key(),
					Param:    "method",
					Message:  fmt.Sprintf("%s not allowed, want one of %s", m, strings.Join(c.Methods, ", ")),
				},
				Value: override,
			}
		}
		return m, nil
	}
	if len(c.Methods) == 1 {
		return c.Methods[0], nil
	}
	if hasBody && c.AllowsMethod(http.MethodPost) {
		return http.MethodPost, nil
	}
	if c.AllowsMethod(http.MethodGet) {
		return http.MethodGet, nil
	}
	return c.Methods[0], nil
}
