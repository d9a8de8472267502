// Package geoip resolves a caller's country from their IP address.
package geoip

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/addrkit/internal/resilience"
)

// DefaultBaseURL is the public ipapi.co endpoint.
const DefaultBaseURL = "https://ipapi.co"

// Location is the subset of the geolocation response the detector uses.
type Location struct {
	IP          string `json:"ip"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Timezone    string `json:"timezone"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// Locator looks up the location of an IP address. An empty IP asks the
// service about the caller itself.
type Locator interface {
	Lookup(ctx context.Context, ip string) (*Location, error)
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the service endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithCircuitBreaker guards lookups with cb.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// Client calls the IP geolocation service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	breaker    *resilience.CircuitBreaker
}

// NewClient creates a geolocation Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    DefaultBaseURL,
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		cfg := resilience.DefaultCircuitBreakerConfig()
		cfg.Name = "geoip"
		c.breaker = resilience.NewCircuitBreaker(cfg)
	}
	return c
}

// Lookup resolves ip, or the caller's own address when ip is empty. A
// response flagged as an error by the service (for example a reserved
// address) is returned as an error. Malformed addresses are rejected before
// any request is made.
func (c *Client) Lookup(ctx context.Context, ip string) (*Location, error) {
	ip, err := canonicalIP(ip)
	if err != nil {
		return nil, err
	}
	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*Location, error) {
		return c.lookup(ctx, ip)
	})
}

func canonicalIP(ip string) (string, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return "", nil
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil || addr.Zone() != "" {
		return "", eris.Errorf("geoip: invalid ip address %q", ip)
	}
	return addr.String(), nil
}

func (c *Client) lookup(ctx context.Context, ip string) (*Location, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geoip: rate limit")
	}

	reqURL := c.baseURL + "/json/"
	if ip != "" {
		reqURL = c.baseURL + "/" + ip + "/json/"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geoip: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geoip: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Wrap(resilience.StatusError("geoip", resp.StatusCode), "geoip: lookup")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geoip: read body")
	}

	var loc Location
	if err := json.Unmarshal(body, &loc); err != nil {
		return nil, eris.Wrap(err, "geoip: parse response")
	}
	if loc.Error {
		return nil, eris.Errorf("geoip: lookup %q rejected: %s", ip, loc.Reason)
	}
	loc.CountryCode = strings.ToUpper(strings.TrimSpace(loc.CountryCode))
	return &loc, nil
}
