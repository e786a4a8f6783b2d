// Package api provides low-level HTTP transport for Qualys API calls.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultHTTPTimeout = 2 * time.Minute
	defaultMaxBodySize = 64 * 1024 * 1024 // 64MB, host detection pages are large
)

// Host names one of the two Qualys base URLs.
type Host string

const (
	HostAPI     Host = "api"
	HostGateway Host = "gateway"
)

// ErrHostNotConfigured is returned when a request targets a host with no base URL.
var ErrHostNotConfigured = errors.New("base URL not configured")

// Transport handles HTTP communication with the Qualys API and gateway hosts.
type Transport struct {
	bases       map[Host]*url.URL
	HTTPClient  *http.Client
	Limiter     *rate.Limiter
	Logger      logrus.FieldLogger
	UserAgent   string
	MaxBodySize int64
}

// NewTransport creates a Transport. Either base URL may be empty, but not both.
func NewTransport(apiURL, gatewayURL string, httpClient *http.Client) (*Transport, error) {
	bases := make(map[Host]*url.URL, 2)
	for host, raw := range map[Host]string{HostAPI: apiURL, HostGateway: gatewayURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(strings.TrimSuffix(raw, "/"))
		if err != nil {
			return nil, fmt.Errorf("invalid %s base URL: %w", host, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid %s base URL %q: scheme and host required", host, raw)
		}
		bases[host] = u
	}
	if len(bases) == 0 {
		return nil, ErrHostNotConfigured
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultHTTPTimeout,
		}
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return &Transport{
		bases:       bases,
		HTTPClient:  httpClient,
		Logger:      logger,
		UserAgent:   "go-qualys/1.0",
		MaxBodySize: defaultMaxBodySize,
	}, nil
}

// BaseURL returns the configured base URL for host.
func (t *Transport) BaseURL(host Host) (*url.URL, error) {
	u, ok := t.bases[host]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHostNotConfigured, host)
	}
	return u, nil
}

// Request represents an API request. Body is sent verbatim; Content-Type belongs in Headers.
type Request struct {
	Method  string
	Host    Host
	Path    string
	Query   url.Values
	Body    []byte
	Headers http.Header
}

// Response represents an API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Do executes an API request and returns the raw response. Non-2xx statuses are
// not errors at this layer.
func (t *Transport) Do(ctx context.Context, req *Request) (*Response, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	httpReq, err := t.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	log := t.Logger.WithFields(logrus.Fields{
		"method":     httpReq.Method,
		"host":       req.Host,
		"path":       httpReq.URL.Path,
		"request_id": httpReq.Header.Get("X-Request-ID"),
	})
	log.Debug("sending request")
	start := time.Now()

	httpResp, err := t.HTTPClient.Do(httpReq)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	limit := t.MaxBodySize
	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response too large: exceeds %d bytes", limit)
	}

	log.WithFields(logrus.Fields{
		"status":   httpResp.StatusCode,
		"bytes":    len(body),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("received response")

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}, nil
}

func (t *Transport) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	base, err := t.BaseURL(req.Host)
	if err != nil {
		return nil, err
	}
	u := base.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("User-Agent", t.UserAgent)
	maps.Copy(httpReq.Header, req.Headers)
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", uuid.NewString())
	}

	return httpReq, nil
}
