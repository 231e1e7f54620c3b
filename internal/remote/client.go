package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oshokin/playdate-sdk-updater/internal/version"
)

var (
	// ErrBadHTTPStatus is returned when the server answers with anything but 200.
	ErrBadHTTPStatus = errors.New("unexpected http status")
	// ErrMalformedInfo is returned when the update-check body is not a JSON object.
	ErrMalformedInfo = errors.New("malformed update info")
)

// Client wraps an *http.Client with the update-check endpoint parameters.
type Client struct {
	// httpClient performs every request.
	httpClient *http.Client
	// endpoint is the update-check URL without query parameters.
	endpoint string
	// appName is sent as the "app" query parameter.
	appName string
	// platform is sent as the "platform" query parameter.
	platform string
}

// Option configures client behaviour.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds every request. Zero keeps requests unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{
				Transport: c.httpClient.Transport,
				Timeout:   timeout,
			}
		}
	}
}

// NewClient creates a client for the given update-check endpoint.
func NewClient(endpoint, appName, platform string, opts ...Option) *Client {
	c := &Client{
		httpClient: new(http.Client),
		endpoint:   endpoint,
		appName:    appName,
		platform:   platform,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get issues a GET request and checks the status code.
// The caller closes the body of a non-nil response.
func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()

		return nil, fmt.Errorf("%s, %s: %w", target, response.Status, ErrBadHTTPStatus)
	}

	return response, nil
}
