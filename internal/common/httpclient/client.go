// Package httpclient is a thin timeout-bounded wrapper over net/http.
package httpclient

import (
	"context"
	"net/http"
	"time"
)

type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Do executes the request. The wall-clock bound comes from the underlying
// client's Timeout so it also covers reading the response body; the caller's
// ctx still cancels the request early.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req.WithContext(ctx))
}

// Timeout reports the per-call deadline, used in diagnostic messages.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}
