// Package jira is a small Jira Cloud REST v3 client covering the calls the
// pull and push pipelines make.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds each HTTP request.
const DefaultTimeout = 60 * time.Second

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("jira %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, body)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to one Jira Cloud site.
type Client struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
	auth       AuthFunc

	// noRedirect shares HTTPClient's transport but hands redirects back
	// to the caller.
	noRedirect *http.Client
}

// NewClient returns a client for host. A host without a scheme is assumed
// to be https.
func NewClient(host string, auth AuthFunc, timeout time.Duration) (*Client, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("jira host is empty")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	base, err := url.Parse(strings.TrimSuffix(host, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse jira host: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return newClient(base, auth, &http.Client{Timeout: timeout}), nil
}

func newClient(base *url.URL, auth AuthFunc, hc *http.Client) *Client {
	if auth == nil {
		auth = func(*http.Request) {}
	}
	return &Client{
		BaseURL:    base,
		HTTPClient: hc,
		auth:       auth,
		noRedirect: &http.Client{
			Transport: hc.Transport,
			Timeout:   hc.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	rel, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("parse path: %w", err)
	}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	return c.BaseURL.ResolveReference(rel).String(), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target, err := c.resolve(path, query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.auth(req)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// doJSON sends body as JSON and decodes the response into out when out is
// non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, query, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	respBody, err := c.do(c.HTTPClient, req)
	if err != nil {
		return err
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) do(hc *http.Client, req *http.Request) ([]byte, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}
	return respBody, nil
}
