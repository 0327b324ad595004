package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodySize caps how much of a page is kept in memory.
const maxBodySize = 1 << 20

// Config holds HTTP client configuration
type Config struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	UserAgent  string
	// DefaultHeaders are sent with every request.
	DefaultHeaders http.Header
	// Jar stores cookies across requests. Nil disables cookies.
	Jar http.CookieJar
	// FollowRedirects lets the client follow redirects itself. When false,
	// 3xx responses are returned as is.
	FollowRedirects bool
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// DefaultConfig returns a default HTTP client configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		MaxRetries:      0,
		RetryDelay:      time.Second,
		DefaultHeaders:  make(http.Header),
		FollowRedirects: true,
	}
}

// Client wraps http.Client with common functionality
type Client struct {
	httpClient *http.Client
	config     *Config
}

// New creates a new HTTP client with the given configuration
func New(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	httpClient := &http.Client{
		Timeout:   config.Timeout,
		Jar:       config.Jar,
		Transport: config.Transport,
	}
	if !config.FollowRedirects {
		httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Client{
		httpClient: httpClient,
		config:     config,
	}
}

// HTTPClient returns the underlying client, for libraries that take one.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Request represents an HTTP request
type Request struct {
	Method  string
	URL     string
	Headers http.Header
}

// Response represents an HTTP response with its body already read
type Response struct {
	*http.Response
	BodyBytes []byte
}

// IsRedirect reports whether the response asks the client to navigate
// elsewhere.
func (r *Response) IsRedirect() bool {
	switch r.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return r.Header.Get("Location") != ""
	}
	return false
}

// String returns the response body as a string
func (r *Response) String() string {
	return string(r.BodyBytes)
}

// Do performs an HTTP request, retrying transport failures. Any HTTP status
// is a successful response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		resp, err := c.doSingle(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if c.config.MaxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// doSingle performs a single HTTP request
func (c *Client) doSingle(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}
	for key, values := range c.config.DefaultHeaders {
		httpReq.Header[key] = values
	}
	for key, values := range req.Headers {
		httpReq.Header[http.CanonicalHeaderKey(key)] = values
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Response:  httpResp,
		BodyBytes: bodyBytes,
	}, nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodGet,
		URL:     url,
		Headers: headers,
	})
}
