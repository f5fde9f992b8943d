package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/reportscan/internal/identity"
	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout bounds one request including the body read.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize limits response bodies. Report PDFs stay well below it.
	DefaultMaxBodySize int64 = 32 * 1024 * 1024

	maxRedirects = 10
)

// Client fetches pages and documents from the research portals.
// It optionally routes traffic through a SOCKS5 proxy.
type Client struct {
	// proxyAddress is the SOCKS5 proxy in "host:port" format, or "".
	proxyAddress string

	// dialer is nil when no proxy is configured.
	dialer proxy.Dialer

	timeout     time.Duration
	maxBodySize int64

	// headers are sent with every request.
	headers map[string]string

	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithProxy routes every request through the SOCKS5 proxy at address.
// Both "host:port" and "socks5://host:port" are accepted.
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodySize sets the largest accepted response body.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithHeaders adds static headers such as Referer to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// New creates a Client. It does not connect anywhere.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		headers:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.proxyAddress != "" {
		addr := strings.TrimPrefix(c.proxyAddress, "socks5://")
		if !isValidProxyAddress(addr) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		c.proxyAddress = addr
		c.dialer = dialer
	}

	c.http = c.newHTTPClient()
	return c, nil
}

// isValidProxyAddress checks for "host:port" with a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

func (c *Client) newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 4
	transport.IdleConnTimeout = 30 * time.Second
	if c.dialer != nil {
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := c.dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return c.dialer.Dial(network, addr)
		}
	}

	// The portals set session cookies on the list page.
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	var rt http.RoundTripper = transport
	if len(c.headers) > 0 {
		rt = &headerInjectingTransport{base: transport, headers: c.headers}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// HTTPClient returns the underlying *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// ProxyAddress returns the configured proxy address, or "".
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Get fetches rawURL with query as the query string, presenting id.
// Non-2xx statuses and oversized bodies are errors.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values, id identity.Identity) (*Response, error) {
	if len(query) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
		}
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if id.UserAgent != "" {
		req.Header.Set("User-Agent", id.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/json,application/pdf;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, req.URL.Redacted())
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("%w: more than %d bytes from %s", ErrBodyTooLarge, c.maxBodySize, req.URL.Redacted())
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// headerInjectingTransport sets static headers on every request,
// redirects included.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, value := range t.headers {
		if clone.Header.Get(key) == "" {
			clone.Header.Set(key, value)
		}
	}
	return t.base.RoundTrip(clone)
}
