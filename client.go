package qualys

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/tphakala/go-qualys/internal/api"
	"github.com/tphakala/go-qualys/internal/auth"
	"github.com/tphakala/go-qualys/internal/schema"
	"github.com/tphakala/go-qualys/internal/xmlbody"
)

// Default configuration values.
const defaultTimeout = 2 * time.Minute

// Client is the Qualys API client. It is safe for concurrent use; each call
// carries its own pagination state.
type Client struct {
	// Assets provides Global AssetView inventory operations.
	Assets AssetService
	// Hosts provides VMDR host and host detection operations.
	Hosts HostService
	// Findings provides Web Application Scanning finding operations.
	Findings FindingService
	// Connectors provides CloudView connector operations.
	Connectors ConnectorService
	// Agents provides Cloud Agent operations.
	Agents AgentService

	transport *api.Transport
	registry  *schema.Registry
	builder   *builder
	logger    logrus.FieldLogger
}

// NewClient creates a new Qualys client with the given options.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		timeout: defaultTimeout,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.platform != "" {
		if err := optionValidator.Var(cfg.platform, "alphanum,lowercase"); err != nil {
			return nil, fmt.Errorf("qualys: invalid platform %q", cfg.platform)
		}
	}

	apiURL, gatewayURL := cfg.baseURLs()
	if apiURL == "" && gatewayURL == "" {
		return nil, ErrNoBaseURL
	}

	basic := &auth.Basic{Username: cfg.username, Password: cfg.password}
	if !basic.Valid() && cfg.token == "" {
		return nil, ErrNoCredentials
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.timeout,
		}
	}

	transport, err := api.NewTransport(apiURL, gatewayURL, httpClient)
	if err != nil {
		return nil, err
	}
	if cfg.userAgent != "" {
		transport.UserAgent = cfg.userAgent
	}
	if cfg.logger != nil {
		transport.Logger = cfg.logger
	}
	if cfg.rateLimit > 0 {
		burst := max(cfg.rateBurst, 1)
		transport.Limiter = rate.NewLimiter(cfg.rateLimit, burst)
	}

	registry := cfg.registry
	if registry == nil {
		registry = schema.Default()
	}
	renderer := cfg.renderer
	if renderer == nil {
		renderer = xmlbody.New()
	}

	client := &Client{
		transport: transport,
		registry:  registry,
		logger:    transport.Logger,
	}

	signers := make(map[schema.AuthMode]auth.Signer, 2)
	if basic.Valid() {
		signers[schema.AuthBasic] = basic
	}
	switch {
	case cfg.token != "":
		signers[schema.AuthToken] = auth.NewStaticToken(cfg.token)
	case basic.Valid() && gatewayURL != "":
		signers[schema.AuthToken] = auth.NewToken(func(ctx context.Context) (string, error) {
			return client.fetchToken(ctx, basic)
		})
	}
	client.builder = &builder{signers: signers, renderer: renderer}

	// Initialize services
	client.Assets = newAssetService(client)
	client.Hosts = newHostService(client)
	client.Findings = newFindingService(client)
	client.Connectors = newConnectorService(client)
	client.Agents = newAgentService(client)

	return client, nil
}

// fetchToken exchanges account credentials for a gateway JWT.
func (c *Client) fetchToken(ctx context.Context, basic *auth.Basic) (string, error) {
	form := url.Values{}
	form.Set("username", basic.Username)
	form.Set("password", basic.Password)
	form.Set("token", "true")

	resp, err := c.transport.Do(ctx, &api.Request{
		Method: http.MethodPost,
		Host:   api.HostGateway,
		Path:   "/auth",
		Body:   []byte(form.Encode()),
		Headers: http.Header{
			"Content-Type": []string{"application/x-www-form-urlencoded"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("qualys: auth/token: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", parseStatusError("auth/token", resp.StatusCode, resp.Body, resp.Headers)
	}
	return strings.TrimSpace(string(resp.Body)), nil
}

// Registry returns the endpoint registry the client dispatches against.
func (c *Client) Registry() *schema.Registry {
	return c.registry
}

// APIBaseURL returns the configured API host base URL, or "" when unset.
func (c *Client) APIBaseURL() string {
	return c.baseURL(api.HostAPI)
}

// GatewayBaseURL returns the configured gateway base URL, or "" when unset.
func (c *Client) GatewayBaseURL() string {
	return c.baseURL(api.HostGateway)
}

func (c *Client) baseURL(host api.Host) string {
	u, err := c.transport.BaseURL(host)
	if err != nil {
		return ""
	}
	return u.String()
}

