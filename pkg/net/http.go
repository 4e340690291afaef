package net

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	maxIdleConns        = 10
	timeoutInSeconds    = 60
	maxErrorBodyBytes   = 1 << 12
	contentTypeJSON     = "application/json"
	clientAgentTemplate = "nutctl/%s"
)

var (
	// ErrorURLNotFound is matched by a ResponseError with a 404 status.
	ErrorURLNotFound = errors.New("URL not found")

	// UserAgent is sent with every request. The CLI sets the version at startup.
	UserAgent = fmt.Sprintf(clientAgentTemplate, "dev")

	reqTransport = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       timeoutInSeconds * time.Second,
		DisableKeepAlives:     false,
		ResponseHeaderTimeout: time.Duration(timeoutInSeconds) * time.Second,
	}
)

// SetVersion updates the User-Agent sent by the JSON helpers.
func SetVersion(version string) {
	UserAgent = fmt.Sprintf(clientAgentTemplate, version)
}

// ResponseError is returned for any non-2xx response.
type ResponseError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *ResponseError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected response (status: %d - %s): %s", e.StatusCode, e.Status, e.URL)
	}
	return fmt.Sprintf("unexpected response (status: %d - %s): %s: %s", e.StatusCode, e.Status, e.URL, e.Body)
}

func (e *ResponseError) Is(target error) bool {
	return target == ErrorURLNotFound && e.StatusCode == http.StatusNotFound
}

// GetHTTPClient returns a client sharing the package transport.
// A zero timeout uses the package default.
func GetHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = timeoutInSeconds * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: reqTransport,
	}
}

// GetJSON retrieves the HTTP content and decodes it into the passed target.
func GetJSON[T any](ctx context.Context, c *http.Client, url string, target *T) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating HTTP GET request: %w", err)
	}
	return doJSON(c, req, target)
}

// PostJSON sends body encoded as JSON and decodes the response into the passed target.
func PostJSON[T any](ctx context.Context, c *http.Client, url string, body any, target *T) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("error creating HTTP POST request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)

	return doJSON(c, req, target)
}

func doJSON[T any](c *http.Client, req *http.Request, target *T) error {
	if c == nil {
		c = GetHTTPClient(0)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := c.Do(req) //nolint:gosec // G107: URL built by internal callers
	if err != nil {
		return fmt.Errorf("error executing %s request: %w", req.Method, err)
	}
	defer resp.Body.Close()

	if slog.Default().Enabled(req.Context(), slog.LevelDebug) {
		PrintHTTPResponse(resp)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &ResponseError{
			URL:        redact(req),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(bytes.TrimSpace(b)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("error decoding content: %w", err)
	}
	return nil
}

// redact drops query parameters so API keys never end up in errors or logs.
func redact(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}
