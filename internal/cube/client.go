// Package cube provides a client for the Cube analytics REST API.
// See https://cube.dev/docs/product/apis-integrations/rest-api for full documentation.
package cube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 30 * time.Second

	// Tokens copied from the Cube playground include the header name.
	tokenPrefix = "Authorization: "

	continueWait = "Continue wait"
)

// ErrContinueWait is returned when Cube has not finished computing the query.
var ErrContinueWait = errors.New("cube: query still processing")

// Client provides methods to interact with the Cube API.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a new Cube client for the given /load endpoint and API token.
func New(apiURL, token string, opts ...Option) *Client {
	c := &Client{
		apiURL: apiURL,
		token:  strings.TrimPrefix(strings.TrimSpace(token), tokenPrefix),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError represents a non-success response from the Cube API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cube: API error %d: %s", e.StatusCode, e.Message)
}

// FetchTopCompanies returns companies with engaged users whose last product tour
// is on or after asOf, ordered by total sessions descending. Rows without a
// company name are dropped. A successful query with no rows returns an empty
// slice and a nil error.
func (c *Client) FetchTopCompanies(ctx context.Context, asOf time.Time) ([]Company, error) {
	rows, err := c.Load(ctx, TopCompaniesQuery(asOf))
	if err != nil {
		return nil, err
	}

	companies, err := parseCompanies(rows)
	if err != nil {
		return nil, fmt.Errorf("cube: failed to parse rows: %w", err)
	}

	log.Info().
		Str("as_of", asOf.Format(dateLayout)).
		Int("rows", len(rows)).
		Int("companies", len(companies)).
		Msg("Fetched top companies from Cube")

	return companies, nil
}

// Load runs an arbitrary query and returns the raw result rows.
func (c *Client) Load(ctx context.Context, q Query) ([]map[string]any, error) {
	body, err := json.Marshal(loadRequest{Query: q})
	if err != nil {
		return nil, fmt.Errorf("cube: failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cube: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cube: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cube: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, raw)
	}

	var out loadResponse
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("cube: failed to decode response: %w", err)
	}

	if out.Error != "" {
		if out.Error == continueWait {
			return nil, ErrContinueWait
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: out.Error}
	}

	return out.Data, nil
}

func apiError(status int, body []byte) error {
	var apiResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiResp) == nil && apiResp.Error != "" {
		return &APIError{StatusCode: status, Message: apiResp.Error}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}
