package instagram

import (
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-insta-auth/cmsauth"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second
)

// Client talks to the CMS backend's Instagram proxy endpoints. Every call is
// authenticated with the CMS token supplied by tokens.
type Client struct {
	baseURL    string
	tokens     cmsauth.TokenSource
	httpClient *http.Client
	logger     zerolog.Logger
	userAgent  string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client for the backend at baseURL, e.g. "https://cms.example.com/api".
func NewClient(baseURL string, tokens cmsauth.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:    log.Logger,
		userAgent: defaultUserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
