package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Client configuration defaults.
const (
	DefaultBaseURL             = "https://crates.io"
	DefaultMaxIdleConns        = 50
	DefaultMaxIdleConnsPerHost = 20
	DefaultIdleConnTimeout     = 90 * time.Second
	DefaultRequestTimeout      = 30 * time.Second

	// DefaultUserAgent identifies the tool; the crates.io crawler
	// policy requires a meaningful User-Agent on every request.
	DefaultUserAgent = "cratedeb (https://github.com/cratedeb/cratedeb)"
)

// Error is a failed registry request.
type Error struct {
	StatusCode int
	URL        string
}

func (e *Error) Error() string {
	return fmt.Sprintf("registry request failed: HTTP %d: %s", e.StatusCode, e.URL)
}

// NotFound reports whether the registry answered 404: the crate or
// version does not exist there.
func (e *Error) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client fetches crate data from a crates.io style registry.
type Client struct {
	baseURL   string
	client    *http.Client
	userAgent string

	// Caches for the two JSON endpoints.
	crateCache sync.Map // map[string]*CrateResponse keyed by crate name
	depsCache  sync.Map // map[string]*DependenciesResponse keyed by "name@version"

	validateResponses bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithValidation enables or disables structural validation of
// responses.
func WithValidation(enabled bool) ClientOption {
	return func(c *Client) {
		c.validateResponses = enabled
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets a custom HTTP request timeout. Zero or negative
// values fall back to the default.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		} else {
			c.client.Timeout = DefaultRequestTimeout
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a client for the given registry URL.
//
// By default responses are validated structurally; use
// WithValidation(false) to skip that.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	transport := &http.Transport{
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout:   DefaultRequestTimeout,
			Transport: transport,
		},
		userAgent:         DefaultUserAgent,
		validateResponses: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the registry base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetCrate fetches a crate's record and version list. Results are
// cached by crate name.
func (c *Client) GetCrate(ctx context.Context, name string) (*CrateResponse, error) {
	if cached, ok := c.crateCache.Load(name); ok {
		return cached.(*CrateResponse), nil
	}

	url := fmt.Sprintf("%s/api/v1/crates/%s", c.baseURL, name)
	data, err := c.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching crate %s: %w", name, err)
	}

	var resp CrateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing crate %s: %w", name, err)
	}
	if c.validateResponses {
		if err := resp.Validate(); err != nil {
			return nil, fmt.Errorf("crate %s failed validation: %w", name, err)
		}
	}

	c.crateCache.Store(name, &resp)
	return &resp, nil
}

// GetDependencies fetches the dependency records of one release.
// Results are cached by "name@version".
func (c *Client) GetDependencies(ctx context.Context, name, version string) (*DependenciesResponse, error) {
	cacheKey := name + "@" + version
	if cached, ok := c.depsCache.Load(cacheKey); ok {
		return cached.(*DependenciesResponse), nil
	}

	url := fmt.Sprintf("%s/api/v1/crates/%s/%s/dependencies", c.baseURL, name, version)
	data, err := c.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching dependencies of %s %s: %w", name, version, err)
	}

	var resp DependenciesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing dependencies of %s %s: %w", name, version, err)
	}
	if c.validateResponses {
		if err := resp.Validate(); err != nil {
			return nil, fmt.Errorf("dependencies of %s %s failed validation: %w", name, version, err)
		}
	}

	c.depsCache.Store(cacheKey, &resp)
	return &resp, nil
}

// Download fetches the .crate tarball of one release. The registry
// redirects to its static host; the HTTP client follows. Downloads are
// not cached.
func (c *Client) Download(ctx context.Context, name, version string) ([]byte, error) {
	url := fmt.Sprintf("%s/api/v1/crates/%s/%s/download", c.baseURL, name, version)
	data, err := c.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("downloading %s %s: %w", name, version, err)
	}
	return data, nil
}

// ClearCache removes all cached responses.
func (c *Client) ClearCache() {
	c.crateCache = sync.Map{}
	c.depsCache = sync.Map{}
}

// fetch performs an HTTP GET and returns the response body.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{StatusCode: resp.StatusCode, URL: url}
	}

	return io.ReadAll(resp.Body)
}
