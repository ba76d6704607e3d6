package alphavantage

import (
	"net/http"

	"github.com/go-resty/resty/v2"

	"marketboard/internal/httpx"
	"marketboard/internal/provider"
)

const (
	baseURL  = "https://www.alphavantage.co"
	keyParam = "apikey"
)

// Route tells the client where an endpoint lives and which fixed query
// parameters it needs. Path may be absolute to point at another vendor.
type Route struct {
	Path   string
	Params map[string]string
}

// DefaultRoutes maps every endpoint kind to its Alpha Vantage function.
func DefaultRoutes() map[provider.Endpoint]Route {
	return map[provider.Endpoint]Route{
		provider.EndpointMovers: {
			Path:   "/query",
			Params: map[string]string{"function": "TOP_GAINERS_LOSERS"},
		},
		provider.EndpointNews: {
			Path:   "/query",
			Params: map[string]string{"function": "NEWS_SENTIMENT", "topics": "financial_markets", "sort": "LATEST"},
		},
		provider.EndpointCompanyOverview: {
			Path:   "/query",
			Params: map[string]string{"function": "OVERVIEW"},
		},
	}
}

// Client is the Alpha Vantage implementation of provider.Fetcher.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_round_tripper_test.go net/http RoundTripper
type Client struct {
	// key is the API credential, sent as a query parameter.
	key string
	// routes maps endpoint kinds to paths and fixed parameters.
	routes map[provider.Endpoint]Route
	// rest is the underlying resty client.
	rest *resty.Client

	baseURL    string
	httpClient *http.Client
	transport  http.RoundTripper
	header     http.Header
	logger     resty.Logger
}

var _ provider.Fetcher = (*Client)(nil)

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets the base URL for relative routes.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the http.Client resty sends requests through.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTransport replaces the round tripper of the underlying http.Client.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithRoute overrides the route of one endpoint kind.
func WithRoute(endpoint provider.Endpoint, route Route) Option {
	return func(c *Client) {
		c.routes[endpoint] = route
	}
}

// WithLogger routes resty's own warnings to logger.
func WithLogger(logger resty.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client. An empty key is accepted; every Fetch then fails with
// a ConfigurationError before touching the network.
func New(key string, options ...Option) *Client {
	c := &Client{
		key:     key,
		routes:  DefaultRoutes(),
		baseURL: baseURL,
		header:  http.Header{},
	}
	for _, option := range options {
		option(c)
	}

	hc := c.httpClient
	if hc == nil {
		hc = httpx.New(0)
	}
	rest := resty.NewWithClient(hc).
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", httpx.UserAgent)
	if c.transport != nil {
		rest.SetTransport(c.transport)
	}
	for key, values := range c.header {
		for _, value := range values {
			rest.Header.Add(key, value)
		}
	}
	if c.logger != nil {
		rest.SetLogger(c.logger)
	}
	c.rest = rest
	return c
}
