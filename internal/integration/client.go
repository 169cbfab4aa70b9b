// Package integration holds the HTTP clients for the collaborators the
// admissions engine calls: MDM, Finance, Workflow, Notification and Transport.
package integration

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

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admissions-api/pkg/config"
	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
)

// HeaderAPIKey carries the shared integration key.
const HeaderAPIKey = "X-API-Key"

// ClientConfig holds configuration for one collaborator client.
type ClientConfig struct {
	Name     string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	RetryMax int
}

// ConfigFor derives a client config from the integrations block.
func ConfigFor(name, baseURL string, cfg config.IntegrationsConfig) ClientConfig {
	return ClientConfig{
		Name:     name,
		BaseURL:  baseURL,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.Timeout,
		RetryMax: cfg.RetryMax,
	}
}

// Client sends JSON requests to a collaborator with retries on transient failures.
type Client struct {
	name    string
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
	logger  *zap.Logger
}

// NewClient builds a retrying JSON client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = leveledLogger{s: logger.Named(cfg.Name).Sugar()}
	// Hand the final response back instead of a generic "giving up" error so
	// callers can inspect the status code.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    rc,
		logger:  logger,
	}
}

// Name returns the collaborator name used in errors and logs.
func (c *Client) Name() string { return c.name }

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Send issues the request and decodes the "data" member of the response into out.
// It returns the final HTTP status; non-2xx statuses yield an *HTTPError wrapped
// as an upstream failure.
func (c *Client) Send(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, appErrors.Internal(err, "failed to encode "+c.name+" request")
		}
		payload = raw
	}

	var reader interface{}
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to build "+c.name+" request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, appErrors.Upstream(err, c.name)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, appErrors.Upstream(err, c.name)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, appErrors.Upstream(&HTTPError{Collaborator: c.name, StatusCode: resp.StatusCode, Body: respBody}, c.name)
	}

	if out != nil && len(respBody) > 0 {
		var env envelope
		if err := json.Unmarshal(respBody, &env); err != nil {
			return resp.StatusCode, appErrors.Upstream(fmt.Errorf("decode response: %w", err), c.name)
		}
		if len(env.Data) > 0 && string(env.Data) != "null" {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return resp.StatusCode, appErrors.Upstream(fmt.Errorf("decode response data: %w", err), c.name)
			}
		}
	}

	return resp.StatusCode, nil
}

// HTTPError describes a non-2xx collaborator response.
type HTTPError struct {
	Collaborator string
	StatusCode   int
	Body         []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s responded %d", e.Collaborator, e.StatusCode)
}

// IsHTTPError checks if an error carries a collaborator response.
func IsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}
func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}
func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}
func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
