package qualys

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clbanning/mxj/v2"

	"github.com/tphakala/go-qualys/internal/schema"
)

// Sentinel errors for common failure modes.
var (
	ErrNoCredentials   = errors.New("qualys: no credentials configured")
	ErrNoBaseURL       = errors.New("qualys: no base URL configured")
	ErrUnknownEndpoint = schema.ErrUnknownEndpoint
	ErrNoRecords       = errors.New("qualys: response contained no records")
)

// maxSnippet bounds the raw body carried by diagnostic errors.
const maxSnippet = 512

// ParamError is the family of caller-misuse errors detected before any network call.
type ParamError struct {
	Endpoint string
	Param    string
	Message  string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("qualys: %s: parameter %q: %s", e.Endpoint, e.Param, e.Message)
}

// UnknownParameterError indicates a parameter outside the endpoint's whitelist, or a
// filter key the endpoint does not accept.
type UnknownParameterError struct {
	ParamError
	// Key is set when the rejected item is a filter key inside Param.
	Key     string
	Allowed []string
}

func (e *UnknownParameterError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("qualys: %s: unknown filter key %q in %q", e.Endpoint, e.Key, e.Param)
	}
	return fmt.Sprintf("qualys: %s: unknown parameter %q", e.Endpoint, e.Param)
}

// As implements error unwrapping for errors.As to match *ParamError.
func (e *UnknownParameterError) As(target any) bool {
	if t, ok := target.(**ParamError); ok {
		*t = &e.ParamError
		return true
	}
	return false
}

// IncompleteFilterError indicates half of a field/operator filter pair.
type IncompleteFilterError struct {
	ParamError
	Missing string
}

func (e *IncompleteFilterError) Error() string {
	return fmt.Sprintf("qualys: %s: filter %q requires %q", e.Endpoint, e.Param, e.Missing)
}

// As implements error unwrapping for errors.As to match *ParamError.
func (e *IncompleteFilterError) As(target any) bool {
	if t, ok := target.(**ParamError); ok {
		*t = &e.ParamError
		return true
	}
	return false
}

// MissingPathParameterError indicates a {placeholder} URL with no placeholder value.
type MissingPathParameterError struct {
	ParamError
}

func (e *MissingPathParameterError) Error() string {
	return fmt.Sprintf("qualys: %s: missing path parameter %q", e.Endpoint, e.Param)
}

// As implements error unwrapping for errors.As to match *ParamError.
func (e *MissingPathParameterError) As(target any) bool {
	if t, ok := target.(**ParamError); ok {
		*t = &e.ParamError
		return true
	}
	return false
}

// InvalidParameterError indicates a known parameter with an unusable value: a bad
// operator, an unsupported Go type, or a method the endpoint does not allow.
type InvalidParameterError struct {
	ParamError
	Value any
}

// As implements error unwrapping for errors.As to match *ParamError.
func (e *InvalidParameterError) As(target any) bool {
	if t, ok := target.(**ParamError); ok {
		*t = &e.ParamError
		return true
	}
	return false
}

// UnexpectedStatusError is returned for any non-2xx HTTP status.
type UnexpectedStatusError struct {
	Endpoint   string
	StatusCode int
	Code       string
	Message    string
	RequestID  string
	Body       string
}

func (e *UnexpectedStatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	if e.RequestID != "" {
		return fmt.Sprintf("qualys: %s: HTTP %d: %s (request_id=%s)", e.Endpoint, e.StatusCode, msg, e.RequestID)
	}
	return fmt.Sprintf("qualys: %s: HTTP %d: %s", e.Endpoint, e.StatusCode, msg)
}

// AuthenticationError indicates authentication failure (401/403).
type AuthenticationError struct {
	UnexpectedStatusError
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("qualys: %s: authentication failed: %s", e.Endpoint, e.UnexpectedStatusError.message())
}

// As implements error unwrapping for errors.As to match *UnexpectedStatusError.
func (e *AuthenticationError) As(target any) bool {
	if t, ok := target.(**UnexpectedStatusError); ok {
		*t = &e.UnexpectedStatusError
		return true
	}
	return false
}

// RateLimitError indicates the rate or concurrency limit was exceeded (409/429).
type RateLimitError struct {
	UnexpectedStatusError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("qualys: %s: rate limit exceeded, retry after %s", e.Endpoint, e.RetryAfter)
	}
	return fmt.Sprintf("qualys: %s: rate limit exceeded", e.Endpoint)
}

// As implements error unwrapping for errors.As to match *UnexpectedStatusError.
func (e *RateLimitError) As(target any) bool {
	if t, ok := target.(**UnexpectedStatusError); ok {
		*t = &e.UnexpectedStatusError
		return true
	}
	return false
}

// ServerError indicates an internal server error (5xx).
type ServerError struct {
	UnexpectedStatusError
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("qualys: %s: server error %d: %s", e.Endpoint, e.StatusCode, e.UnexpectedStatusError.message())
}

// As implements error unwrapping for errors.As to match *UnexpectedStatusError.
func (e *ServerError) As(target any) bool {
	if t, ok := target.(**UnexpectedStatusError); ok {
		*t = &e.UnexpectedStatusError
		return true
	}
	return false
}

func (e *UnexpectedStatusError) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Body
}

// APIReportedError indicates HTTP success with a failure status inside the payload.
type APIReportedError struct {
	Endpoint string
	Code     string
	Message  string
}

func (e *APIReportedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("qualys: %s: API reported %s: %s", e.Endpoint, e.Code, e.Message)
	}
	return fmt.Sprintf("qualys: %s: API reported %s", e.Endpoint, e.Code)
}

// MalformedResponseError indicates a response that does not match the expected envelope.
type MalformedResponseError struct {
	Endpoint string
	Reason   string
	Snippet  string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("qualys: %s: malformed response: %s: %v", e.Endpoint, e.Reason, e.Err)
	}
	return fmt.Sprintf("qualys: %s: malformed response: %s", e.Endpoint, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// parseStatusError converts a non-2xx response into the appropriate error type.
func parseStatusError(endpoint string, statusCode int, body []byte, headers http.Header) error {
	code, msg := vendorMessage(body)
	base := UnexpectedStatusError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Code:       code,
		Message:    msg,
		RequestID:  headers.Get("X-Request-ID"),
		Body:       snippet(body),
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &AuthenticationError{UnexpectedStatusError: base}
	case statusCode == http.StatusConflict || statusCode == http.StatusTooManyRequests:
		retry := parseRetryAfter(headers.Get("Retry-After"))
		if retry == 0 {
			retry = parseRetryAfter(headers.Get("X-RateLimit-ToWait-Sec"))
		}
		return &RateLimitError{UnexpectedStatusError: base, RetryAfter: retry}
	case statusCode >= http.StatusInternalServerError:
		return &ServerError{UnexpectedStatusError: base}
	default:
		return &base
	}
}

// vendorMessage extracts a code and message from the error payload shapes the API
// uses: XML SIMPLE_RETURN, QPS ServiceResponse, and JSON objects.
func vendorMessage(body []byte) (code, msg string) {
	trimmed := strings.TrimSpace(string(body))
	switch {
	case strings.HasPrefix(trimmed, "<"):
		m, err := mxj.NewMapXml(body)
		if err != nil {
			return "", ""
		}
		if resp, ok := lookup(map[string]any(m), "SIMPLE_RETURN", "RESPONSE"); ok {
			c, _ := scalarString(mapValue(resp, "CODE"))
			t, _ := scalarString(mapValue(resp, "TEXT"))
			return c, t
		}
		if resp, ok := lookup(map[string]any(m), "ServiceResponse"); ok {
			c, _ := scalarString(mapValue(resp, "responseCode"))
			t, _ := lookup(resp, "responseErrorDetails", "errorMessage")
			ts, _ := scalarString(t)
			return c, ts
		}
	case strings.HasPrefix(trimmed, "{"):
		var payload struct {
			Code            any    `json:"code"`
			Message         string `json:"message"`
			ErrorMessage    string `json:"errorMessage"`
			ResponseCode    string `json:"responseCode"`
			ResponseMessage string `json:"responseMessage"`
		}
		if json.Unmarshal(body, &payload) != nil {
			return "", ""
		}
		code, _ = scalarString(payload.Code)
		if code == "" {
			code = payload.ResponseCode
		}
		for _, m := range []string{payload.Message, payload.ErrorMessage, payload.ResponseMessage} {
			if m != "" {
				return code, m
			}
		}
		return code, ""
	}
	return "", ""
}

func snippet(body []byte) string {
	if len(body) <= maxSnippet {
		return string(body)
	}
	cut := maxSnippet
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}

// parseRetryAfter parses a Retry-After style header value.
// It handles both seconds (integer) and HTTP-date formats.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := time.Parse(time.RFC1123, value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}
