package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"hlspiped/internal/logger"
)

// FetchError reports a transport-level non-success status.
type FetchError struct {
	Status int
	URL    string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
}

// Client performs all outbound HTTP for the pipeline. Fetches are
// optionally routed through a proxy URL prefix to which the target URL
// is appended query-escaped.
type Client struct {
	httpClient  *http.Client
	logger      logger.Logger
	userAgent   string
	proxyPrefix string

	// RequestTimeout bounds each individual segment download attempt.
	RequestTimeout time.Duration
}

// NewClient creates a transport client. An empty proxyPrefix fetches
// targets directly.
func NewClient(log logger.Logger, userAgent, proxyPrefix string) *Client {
	transport := &http.Transport{
		ResponseHeaderTimeout: 3 * time.Second,
	}

	return &Client{
		httpClient:     &http.Client{Transport: transport},
		logger:         log,
		userAgent:      userAgent,
		proxyPrefix:    proxyPrefix,
		RequestTimeout: 5 * time.Second,
	}
}

// HTTPClient returns the underlying http.Client instance.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// requestURL wraps the target in the proxy prefix, when one is set.
func (c *Client) requestURL(target string) string {
	if c.proxyPrefix == "" {
		return target
	}
	return c.proxyPrefix + url.QueryEscape(target)
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

// FetchText fetches the target and returns its body as a string plus
// the effective URL to resolve relative references against. For direct
// fetches that is the final URL after redirects; for proxied fetches it
// is the logical target itself, since the redirect chain belongs to the
// proxy.
func (c *Client) FetchText(ctx context.Context, target string) (string, string, error) {
	reqURL := c.requestURL(target)
	c.logger.Debugf("Fetching text from %s", reqURL)

	resp, err := c.get(ctx, reqURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", &FetchError{Status: resp.StatusCode, URL: target}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read response body from %s: %w", target, err)
	}

	effective := target
	if c.proxyPrefix == "" && resp.Request != nil && resp.Request.URL != nil {
		effective = resp.Request.URL.String()
	}
	return string(data), effective, nil
}

// FetchBinary downloads the target with retries. A final failure after
// all attempts surfaces the last error; callers treat it as a skipped
// segment, never a fatal fault.
func (c *Client) FetchBinary(ctx context.Context, target string) ([]byte, error) {
	const maxRetries = 3
	const retryDelay = 100 * time.Millisecond
	var lastErr error

	reqURL := c.requestURL(target)

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.RequestTimeout)

		c.logger.Debugf("Downloading %s (attempt %d/%d)", target, attempt, maxRetries)
		resp, err := c.get(attemptCtx, reqURL)
		if err != nil {
			cancel()
			lastErr = fmt.Errorf("download attempt %d failed for %s: %w", attempt, target, err)
			c.logger.Warnf(lastErr.Error())
			time.Sleep(retryDelay)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			cancel()
			lastErr = &FetchError{Status: resp.StatusCode, URL: target}
			c.logger.Warnf("download attempt %d for %s received status %d", attempt, target, resp.StatusCode)
			time.Sleep(retryDelay)
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("download attempt %d for %s failed while reading body: %w", attempt, target, err)
			c.logger.Warnf(lastErr.Error())
			time.Sleep(retryDelay)
			continue
		}

		return data, nil
	}

	return nil, fmt.Errorf("failed to download %s after %d attempts: %w", target, maxRetries, lastErr)
}

// FetchDirect fetches the target without the proxy prefix and returns
// the body and content type. Used by the built-in proxy endpoint,
// which must not route through itself.
func (c *Client) FetchDirect(ctx context.Context, target string) ([]byte, string, error) {
	resp, err := c.get(ctx, target)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &FetchError{Status: resp.StatusCode, URL: target}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body from %s: %w", target, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// IsFetchError reports whether err is a transport status failure and
// returns it when so.
func IsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
