// Package restcountries fetches the country directory from the REST Countries
// service.
package restcountries

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/addrkit/internal/resilience"
)

// DefaultBaseURL is the public v3.1 API.
const DefaultBaseURL = "https://restcountries.com/v3.1"

// fields limits the response to what the catalog stores.
const fields = "cca2,name,flag"

// Country is one directory record.
type Country struct {
	CCA2 string `json:"cca2"`
	Name Name   `json:"name"`
	Flag string `json:"flag"`
}

// Name holds the common, official and per-language native names.
type Name struct {
	Common     string                `json:"common"`
	Official   string                `json:"official"`
	NativeName map[string]NativeName `json:"nativeName"`

	// order lists the nativeName keys as the service sent them.
	order []string
}

// UnmarshalJSON decodes the name and records the order of the native names.
func (n *Name) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	type plain Name
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	var native struct {
		NativeName json.RawMessage `json:"nativeName"`
	}
	if err := json.Unmarshal(b, &native); err != nil {
		return err
	}
	*n = Name(v)
	n.order = objectKeys(native.NativeName)
	return nil
}

// objectKeys returns the keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
		keys = append(keys, key)
	}
	return keys
}

// NativeName is a name in one of the country's languages.
type NativeName struct {
	Official string `json:"official"`
	Common   string `json:"common"`
}

// FirstNativeName returns the common native name listed first in the
// response, or "" when none is listed. Names built in Go carry no order and
// fall back to the lexically first language key.
func (c Country) FirstNativeName() string {
	if len(c.Name.NativeName) == 0 {
		return ""
	}
	for _, k := range c.Name.order {
		if n, ok := c.Name.NativeName[k]; ok {
			return n.Common
		}
	}
	keys := make([]string, 0, len(c.Name.NativeName))
	for k := range c.Name.NativeName {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return c.Name.NativeName[keys[0]].Common
}

// Directory lists every country.
type Directory interface {
	All(ctx context.Context) ([]Country, error)
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the API root.
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

// Client calls the REST Countries API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a REST Countries Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    DefaultBaseURL,
		limiter:    rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// All fetches the full directory.
func (c *Client) All(ctx context.Context) ([]Country, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "restcountries: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/all?fields="+fields, nil)
	if err != nil {
		return nil, eris.Wrap(err, "restcountries: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "restcountries: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Wrap(resilience.StatusError("restcountries", resp.StatusCode), "restcountries: all")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "restcountries: read body")
	}

	var out []Country
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "restcountries: parse response")
	}
	return out, nil
}
