// Package salesforce provides a minimal Salesforce API client: username/password
// login through the partner SOAP endpoint, SOQL queries and sObject updates
// through the REST API.
package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultDomain     = "login"
	defaultAPIVersion = "59.0"
	clientName        = "salesforce-account-updater"
)

// ErrNotFound is returned when a lookup matches no records.
var ErrNotFound = errors.New("salesforce: record not found")

// Credentials hold the values needed for a username/password login.
type Credentials struct {
	Username      string
	Password      string
	SecurityToken string
}

// Client logs in to Salesforce and hands out API sessions.
type Client struct {
	creds      Credentials
	loginURL   string
	apiVersion string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithDomain selects the login host, e.g. "test" for sandboxes or "login" for production.
func WithDomain(domain string) Option {
	return func(c *Client) {
		if domain != "" {
			c.loginURL = fmt.Sprintf("https://%s.salesforce.com", domain)
		}
	}
}

// WithLoginURL overrides the login base URL entirely.
func WithLoginURL(base string) Option {
	return func(c *Client) {
		c.loginURL = strings.TrimRight(base, "/")
	}
}

// WithAPIVersion sets the API version used for both SOAP and REST calls.
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a new Salesforce client. Login is deferred until Login is called.
func New(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:      creds,
		loginURL:   fmt.Sprintf("https://%s.salesforce.com", defaultDomain),
		apiVersion: defaultAPIVersion,
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

// APIError represents an error response from Salesforce.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("salesforce: API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("salesforce: API error %d: %s", e.StatusCode, e.Message)
}

// Session is an authenticated connection to one Salesforce instance.
type Session struct {
	ID          string
	InstanceURL string
	UserID      string

	apiVersion string
	httpClient *http.Client
}

type loginEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Result  struct {
		ServerURL string `xml:"serverUrl"`
		SessionID string `xml:"sessionId"`
		UserID    string `xml:"userId"`
	} `xml:"Body>loginResponse>result"`
	Fault struct {
		Code   string `xml:"faultcode"`
		String string `xml:"faultstring"`
	} `xml:"Body>Fault"`
}

// Login authenticates with the partner SOAP API and returns a REST session.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	endpoint := fmt.Sprintf("%s/services/Soap/u/%s", c.loginURL, c.apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(c.loginBody()))
	if err != nil {
		return nil, fmt.Errorf("salesforce: failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=UTF-8")
	req.Header.Set("SOAPAction", "login")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("salesforce: login request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("salesforce: failed to read login response: %w", err)
	}

	var env loginEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return nil, fmt.Errorf("salesforce: failed to decode login response: %w", err)
	}

	if env.Fault.String != "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: env.Fault.Code, Message: env.Fault.String}
	}
	if resp.StatusCode != http.StatusOK || env.Result.SessionID == "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "login response did not contain a session"}
	}

	instance, err := instanceURL(env.Result.ServerURL)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("instance_url", instance).
		Str("user_id", env.Result.UserID).
		Msg("Salesforce session established")

	return &Session{
		ID:          env.Result.SessionID,
		InstanceURL: instance,
		UserID:      env.Result.UserID,
		apiVersion:  c.apiVersion,
		httpClient:  c.httpClient,
	}, nil
}

func (c *Client) loginBody() []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8" ?>`)
	b.WriteString(`<env:Envelope xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:env="http://schemas.xmlsoap.org/soap/envelope/" xmlns:urn="urn:partner.soap.sforce.com">`)
	b.WriteString(`<env:Header><urn:CallOptions><urn:client>` + clientName + `</urn:client></urn:CallOptions></env:Header>`)
	b.WriteString(`<env:Body><n1:login xmlns:n1="urn:partner.soap.sforce.com"><n1:username>`)
	_ = xml.EscapeText(&b, []byte(c.creds.Username))
	b.WriteString(`</n1:username><n1:password>`)
	_ = xml.EscapeText(&b, []byte(c.creds.Password+c.creds.SecurityToken))
	b.WriteString(`</n1:password></n1:login></env:Body></env:Envelope>`)
	return b.Bytes()
}

// instanceURL reduces the SOAP server URL to scheme://host.
func instanceURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("salesforce: invalid server URL %q", serverURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// QueryResult is the envelope of a SOQL query response.
type QueryResult struct {
	TotalSize      int             `json:"totalSize"`
	Done           bool            `json:"done"`
	NextRecordsURL string          `json:"nextRecordsUrl,omitempty"`
	Records        json.RawMessage `json:"records"`
}

// Query runs a SOQL query and decodes the first page of records into records,
// which must be a pointer to a slice.
func (s *Session) Query(ctx context.Context, soql string, records any) (*QueryResult, error) {
	endpoint := fmt.Sprintf("%s?q=%s", s.dataURL("query"), url.QueryEscape(soql))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("salesforce: failed to create query request: %w", err)
	}

	var result QueryResult
	if err := s.do(req, &result); err != nil {
		return nil, err
	}

	if records != nil && len(result.Records) > 0 {
		if err := json.Unmarshal(result.Records, records); err != nil {
			return nil, fmt.Errorf("salesforce: failed to decode records: %w", err)
		}
	}

	return &result, nil
}

// Update applies a partial field update to one sObject record.
func (s *Session) Update(ctx context.Context, sobject, id string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("salesforce: failed to marshal fields: %w", err)
	}

	endpoint := s.dataURL("sobjects", sobject, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("salesforce: failed to create update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return s.do(req, nil)
}

func (s *Session) dataURL(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return fmt.Sprintf("%s/services/data/v%s/%s", s.InstanceURL, s.apiVersion, strings.Join(escaped, "/"))
}

// do executes the request with the session token and decodes a JSON response into out.
func (s *Session) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+s.ID)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("salesforce: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("salesforce: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return restError(resp.StatusCode, body)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("salesforce: failed to decode response: %w", err)
	}
	return nil
}

// REST errors arrive as [{"message": "...", "errorCode": "..."}].
func restError(status int, body []byte) error {
	var errs []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	}
	if json.Unmarshal(body, &errs) == nil && len(errs) > 0 {
		return &APIError{StatusCode: status, Code: errs[0].ErrorCode, Message: errs[0].Message}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}

// EscapeSOQL escapes a value for use inside a single-quoted SOQL string literal.
func EscapeSOQL(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return r.Replace(s)
}
