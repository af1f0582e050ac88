// Package fetch retrieves listing and search pages over HTTP. The client
// keeps crawling polite: bounded retries with backoff, a shared rate
// limiter, per-host robots rules, and conditional revalidation through the
// page cache. Bodies are decoded to UTF-8 before the parser ever sees them.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/baranw/adscraper/internal/cache"
)

// Client wraps http.Client with the crawl policy.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// RedirectMaxHops caps redirect following. Zero means default (5).
	RedirectMaxHops int
	// Cache enables conditional requests and 304 reuse when set.
	Cache *cache.PageCache
	// Limiter, when set, paces every outgoing request including retries.
	Limiter *rate.Limiter
	// Robots, when set, consults per-host robots.txt before each fetch.
	Robots *RobotsGate
}

// ErrRobotsDisallowed reports a URL the site's robots rules exclude for our
// user agent.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// Page fetches url and returns its body decoded to UTF-8 text.
func (c *Client) Page(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return "", fmt.Errorf("unsupported url scheme: %q", rawURL)
	}
	if c.Robots != nil {
		allowed, err := c.Robots.Allowed(ctx, u)
		if err == nil && !allowed {
			return "", fmt.Errorf("%s: %w", rawURL, ErrRobotsDisallowed)
		}
	}

	var etag, lastMod, cachedType string
	if c.Cache != nil {
		if meta, err := c.Cache.Meta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
			cachedType = meta.ContentType
		}
	}

	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		body, contentType, status, err := c.tryOnce(ctx, rawURL, etag, lastMod)
		if err == nil {
			if status == http.StatusNotModified && c.Cache != nil {
				cached, err := c.Cache.Body(ctx, rawURL)
				if err != nil {
					return "", fmt.Errorf("load cached body: %w", err)
				}
				// 304 responses rarely repeat the content type; fall back
				// to what was cached with the body.
				if contentType == "" {
					contentType = cachedType
				}
				return decodeBody(cached, contentType)
			}
			if c.Cache != nil {
				_ = c.Cache.Put(ctx, rawURL, contentType, body.etag, body.lastModified, body.data)
			}
			return decodeBody(body.data, contentType)
		}
		lastErr = err
		if !isTransient(err) {
			return "", err
		}
		if i < attempts-1 {
			select {
			case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", lastErr
}

type response struct {
	data         []byte
	etag         string
	lastModified string
}

func (c *Client) tryOnce(ctx context.Context, rawURL, etag, lastMod string) (response, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return response{}, "", 0, fmt.Errorf("new request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return response{}, "", 0, err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	switch {
	case resp.StatusCode == http.StatusNotModified:
		return response{}, contentType, resp.StatusCode, nil
	case resp.StatusCode >= 500:
		return response{}, "", resp.StatusCode, fmt.Errorf("server error: %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return response{}, "", resp.StatusCode, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if !isHTMLContentType(contentType) {
		return response{}, "", resp.StatusCode, fmt.Errorf("unsupported content type: %s", contentType)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	r := response{
		data:         data,
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}
	return r, contentType, resp.StatusCode, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach the redirect policy without mutating the caller's
		// client.
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirect
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirect}
}

func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	if len(via) >= max {
		return errors.New("too many redirects")
	}
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return errors.New("redirect to unsupported scheme")
	}
	return nil
}

// decodeBody converts response bytes to UTF-8 text, sniffing the encoding
// from the Content-Type header and the document itself.
func decodeBody(data []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return "", fmt.Errorf("determine charset: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(decoded), nil
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "server error:")
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return ct == "" ||
		strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml")
}
