package rest

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/IBM/go-sdk-core/v5/core"

	"github.com/imamik/miqcheck/internal/util/retry"
)

// Client talks to one appliance.
type Client struct {
	service *core.BaseService

	baseURL      string
	username     string
	password     string
	token        string
	httpClient   *http.Client
	insecure     bool
	maxRetries   int
	initialDelay time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBasicAuth authenticates with a user name and password.
func WithBasicAuth(username, password string) ClientOption {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithToken authenticates with an API token sent as X-Auth-Token.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithInsecureTLS disables certificate verification. Appliances under test
// usually run with self-signed certificates.
func WithInsecureTLS() ClientOption {
	return func(c *Client) {
		c.insecure = true
	}
}

// WithRetries sets how often GET and OPTIONS requests are retried.
func WithRetries(maxRetries int, initialDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialDelay = initialDelay
	}
}

// New creates a client for the appliance at baseURL. A trailing /api is
// accepted and stripped.
func New(baseURL string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL:      normalizeBaseURL(baseURL),
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		maxRetries:   3,
		initialDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}

	auth, err := c.authenticator()
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	service, err := core.NewBaseService(&core.ServiceOptions{
		URL:           c.baseURL,
		Authenticator: auth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create REST service: %w", err)
	}

	if c.insecure {
		c.httpClient = withInsecureTransport(c.httpClient)
	}
	service.SetHTTPClient(c.httpClient)

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	if c.token != "" {
		headers.Set("X-Auth-Token", c.token)
	}
	service.SetDefaultHeaders(headers)

	c.service = service
	return c, nil
}

// BaseURL returns the appliance URL without the /api suffix.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Collection returns a handle on /api/<name>. Nothing is fetched until
// Reload or a lookup is called.
func (c *Client) Collection(name string) *Collection {
	return &Collection{client: c, name: name}
}

// ResourceAt returns an unloaded resource for href.
func (c *Client) ResourceAt(href string) *Resource {
	return &Resource{client: c, Href: href}
}

// Load fetches the resource at href.
func (c *Client) Load(ctx context.Context, href string) (*Resource, error) {
	r := c.ResourceAt(href)
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) authenticator() (core.Authenticator, error) {
	if c.username != "" {
		return core.NewBasicAuthenticator(c.username, c.password)
	}
	return core.NewNoAuthAuthenticator()
}

// request performs one API call and decodes the JSON answer. Only GET and
// OPTIONS are retried on transient failures. A DELETE or POST that reached the
// server may already have taken effect, so those run once.
func (c *Client) request(ctx context.Context, method, ref string, query url.Values, body any) (map[string]any, error) {
	path, err := c.pathOf(ref)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	call := func(ctx context.Context) error {
		builder := core.NewRequestBuilder(method).WithContext(ctx)
		if _, err := builder.ResolveRequestURL(c.baseURL, path, nil); err != nil {
			return retry.Fatal(fmt.Errorf("failed to build URL for %s: %w", path, err))
		}
		for key, values := range query {
			for _, v := range values {
				builder.AddQuery(key, v)
			}
		}
		if body != nil {
			if _, err := builder.SetBodyContentJSON(body); err != nil {
				return retry.Fatal(fmt.Errorf("failed to encode request body: %w", err))
			}
		}
		req, err := builder.Build()
		if err != nil {
			return retry.Fatal(fmt.Errorf("failed to build request: %w", err))
		}

		var out map[string]any
		var target any = &out
		if method == http.MethodDelete {
			target = nil
		}
		resp, err := c.service.Request(req, target)
		if err != nil {
			apiErr := newAPIError(method, path, resp, err)
			if !isRetryable(apiErr) {
				return retry.Fatal(apiErr)
			}
			return apiErr
		}
		result = out
		return nil
	}

	retries := c.maxRetries
	if method != http.MethodGet && method != http.MethodOptions {
		retries = 0
	}
	err = retry.Do(ctx, call,
		retry.WithMaxRetries(retries),
		retry.WithInitialDelay(c.initialDelay),
		retry.WithName(method+" "+path))
	if err != nil {
		return nil, unwrapFatal(err)
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}

// pathOf turns a collection name, an API path or an absolute href into an
// API path below the base URL.
func (c *Client) pathOf(ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("invalid href %q: %w", ref, err)
		}
		base, _ := url.Parse(c.baseURL)
		if base != nil && base.Path != "" && strings.HasPrefix(u.Path, base.Path) {
			return strings.TrimPrefix(u.Path, base.Path), nil
		}
		return u.Path, nil
	case strings.HasPrefix(ref, "/api"):
		return ref, nil
	default:
		return "/api/" + strings.TrimPrefix(ref, "/"), nil
	}
}

func normalizeBaseURL(raw string) string {
	raw = strings.TrimRight(raw, "/")
	raw = strings.TrimSuffix(raw, "/api")
	return raw
}

func withInsecureTransport(hc *http.Client) *http.Client {
	clone := *hc
	var transport *http.Transport
	if t, ok := hc.Transport.(*http.Transport); ok && t != nil {
		transport = t.Clone()
	} else {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	clone.Transport = transport
	return &clone
}
