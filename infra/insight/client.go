// Package insight calls a remote insight service over HTTP.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/offload/auth"
	coreinsight "github.com/kilianp07/offload/core/insight"
)

// Config locates the remote service.
type Config struct {
	URL            string    `json:"url"`
	TimeoutSeconds int       `json:"timeout_seconds"`
	Auth           auth.Conf `json:"auth"`
}

// Enabled reports whether a remote URL is configured.
func (c Config) Enabled() bool { return c.URL != "" }

// ErrRemote wraps non-2xx responses.
var ErrRemote = errors.New("insight service error")

type tokenSource interface {
	SetAuthHeader(r *http.Request) error
	ForceRefresh(ctx context.Context) (string, error)
}

// Client implements core/insight.Generator against a remote endpoint.
type Client struct {
	url   string
	http  *http.Client
	creds tokenSource
}

var _ coreinsight.Generator = (*Client)(nil)

// NewClient builds a client. Bearer tokens are attached when cfg.Auth is set.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("insight: url is required")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{url: cfg.URL, http: &http.Client{Timeout: timeout}}
	if cfg.Auth.Enabled() {
		c.creds = auth.NewClientCred(cfg.Auth)
	}
	return c, nil
}

// Generate posts in and decodes the returned insight. A 401 triggers one
// token refresh and retry.
func (c *Client) Generate(ctx context.Context, in coreinsight.Input) (coreinsight.Insight, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return coreinsight.Insight{}, fmt.Errorf("failed to encode input: %w", err)
	}
	res, status, err := c.post(ctx, body)
	if status == http.StatusUnauthorized && c.creds != nil {
		if _, rerr := c.creds.ForceRefresh(ctx); rerr != nil {
			return coreinsight.Insight{}, rerr
		}
		res, _, err = c.post(ctx, body)
	}
	return res, err
}

func (c *Client) post(ctx context.Context, body []byte) (coreinsight.Insight, int, error) {
	var out coreinsight.Insight
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return out, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.creds != nil {
		if err := c.creds.SetAuthHeader(req); err != nil {
			return out, 0, err
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return out, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return out, resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, resp.StatusCode, fmt.Errorf("failed to decode insight: %w", err)
	}
	return out, resp.StatusCode, nil
}
