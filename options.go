package qualys

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/tphakala/go-qualys/internal/schema"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	apiURL     string
	gatewayURL string
	platform   string
	username   string
	password   string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     logrus.FieldLogger
	rateLimit  rate.Limit
	rateBurst  int
	renderer   XMLRenderer
	registry   *schema.Registry
}

// WithBaseURL sets the API host base URL (basic-auth endpoints), e.g.
// https://qualysapi.qg2.apps.qualys.com.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.apiURL = url
	}
}

// WithGatewayURL sets the gateway base URL (token-auth endpoints), e.g.
// https://gateway.qg2.apps.qualys.com.
func WithGatewayURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.gatewayURL = url
	}
}

// WithPlatform derives both base URLs from a platform pod such as "qg1" or "qg3".
// Explicit WithBaseURL / WithGatewayURL values take precedence.
func WithPlatform(pod string) ClientOption {
	return func(c *clientConfig) {
		c.platform = pod
	}
}

// WithBasicAuth sets the account credentials. They sign api-host requests and are
// exchanged for a gateway token when no token is given.
func WithBasicAuth(username, password string) ClientOption {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithToken sets a pre-issued gateway JWT. It is never refreshed.
func WithToken(token string) ClientOption {
	return func(c *clientConfig) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the default request timeout.
// Note: This option is ignored when WithHTTPClient is used;
// set the timeout directly on the provided client instead.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger. By default the client logs nothing.
func WithLogger(l logrus.FieldLogger) ClientOption {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithRateLimit caps outgoing requests at perSecond with the given burst.
// Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *clientConfig) {
		c.rateLimit = rate.Limit(perSecond)
		c.rateBurst = burst
	}
}

// WithXMLRenderer replaces the renderer used for xml-encoded request bodies.
func WithXMLRenderer(r XMLRenderer) ClientOption {
	return func(c *clientConfig) {
		c.renderer = r
	}
}

// WithRegistry replaces the built-in endpoint registry.
func WithRegistry(r *schema.Registry) ClientOption {
	return func(c *clientConfig) {
		c.registry = r
	}
}

func (c *clientConfig) baseURLs() (apiURL, gatewayURL string) {
	apiURL, gatewayURL = c.apiURL, c.gatewayURL
	if c.platform != "" {
		if apiURL == "" {
			apiURL = fmt.Sprintf("https://qualysapi.%s.apps.qualys.com", c.platform)
		}
		if gatewayURL == "" {
			gatewayURL = fmt.Sprintf("https://gateway.%s.apps.qualys.com", c.platform)
		}
	}
	return apiURL, gatewayURL
}

// RequestOption configures individual API calls.
type RequestOption func(*requestConfig)

type requestConfig struct {
	headers     http.Header
	method      string
	pageLimit   int
	keepPartial bool
}

func newRequestConfig() *requestConfig {
	return &requestConfig{
		headers: make(http.Header),
	}
}

func (r *requestConfig) apply(opts ...RequestOption) {
	for _, opt := range opts {
		opt(r)
	}
}

// WithHeader adds a custom header to every request of a call.
func WithHeader(key, value string) RequestOption {
	return func(r *requestConfig) {
		r.headers.Set(key, value)
	}
}

// WithHeaders adds multiple custom headers to every request of a call.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *requestConfig) {
		for k, v := range headers {
			r.headers.Set(k, v)
		}
	}
}

// WithRequestID sets the X-Request-ID header for tracing.
func WithRequestID(id string) RequestOption {
	return WithHeader("X-Request-ID", id)
}

// WithMethod forces the HTTP method. It must be one the endpoint allows.
func WithMethod(method string) RequestOption {
	return func(r *requestConfig) {
		r.method = method
	}
}

// WithPageLimit bounds the number of pages fetched by Paginate. Zero or less means all.
func WithPageLimit(n int) RequestOption {
	return func(r *requestConfig) {
		r.pageLimit = n
	}
}

// KeepPartial makes ExecutePaginated return the records gathered so far when the
// context is canceled between pages.
func KeepPartial() RequestOption {
	return func(r *requestConfig) {
		r.keepPartial = true
	}
}
