// Package clients holds the HTTP clients for the scoring backend's
// request/response API. Each call is independent and side-effect free to
// share: one client instance serves any number of sessions.
package clients

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// BaseClient wraps net/http with a base URL, default headers and an
// optional bearer token. Deadlines come from the caller's context; the
// underlying http.Client carries no timeout of its own.
type BaseClient struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// NewBaseClient creates a client rooted at baseURL.
func NewBaseClient(baseURL string) *BaseClient {
	return &BaseClient{
		baseURL: baseURL,
		client:  &http.Client{},
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	}
}

// SetTimeout installs a hard per-request timeout on top of whatever
// deadline the caller's context carries.
func (c *BaseClient) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// SetHeader sets a default header sent with every request.
func (c *BaseClient) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetBearerToken installs an Authorization header, or removes it when
// token is empty.
func (c *BaseClient) SetBearerToken(token string) {
	if token == "" {
		delete(c.headers, "Authorization")
		return
	}
	c.headers["Authorization"] = "Bearer " + token
}

// MakeRequest performs one HTTP round trip and returns the response
// body. Failures are classified: see KindOf.
func (c *BaseClient) MakeRequest(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, &APIError{Kind: FailureTransport, Err: err}
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Kind: FailureStatus, Status: resp.StatusCode}
	}

	return responseBody, nil
}

// Get performs a GET against the base URL.
func (c *BaseClient) Get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.MakeRequest(ctx, http.MethodGet, endpoint, nil)
}

// Post performs a POST with a JSON body against the base URL.
func (c *BaseClient) Post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	return c.MakeRequest(ctx, http.MethodPost, endpoint, body)
}
