// Package ckan talks to the action API of a CKAN portal.
package ckan

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrNotFound is returned when an identifier no longer resolves to a
	// package, or the portal cannot be reached over a verified TLS session.
	ErrNotFound = errors.New("ckan: resource not found")
	ErrNoResult = errors.New("ckan: response has no result")
)

const defaultUserAgent = "ckandiff (https://github.com/turbolytics/ckandiff)"

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithRateLimit spaces out requests. Zero or negative disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// Client fetches the package list and individual packages.
type Client struct {
	ListURL string
	ShowURL string

	http      *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
	userAgent string
}

func New(listURL, showURL string, opts ...Option) *Client {
	c := &Client{
		ListURL:   listURL,
		ShowURL:   showURL,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Inf, 1),
		logger:    zap.NewNop(),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShowURLFor is the package_show URL of id. It also serves as the
// query URL in the deleted items report.
func (c *Client) ShowURLFor(id string) string {
	return c.ShowURL + url.QueryEscape(id)
}

// List returns every dataset identifier on the portal together with the
// verbatim response body.
func (c *Client) List(ctx context.Context) ([]string, []byte, error) {
	body, err := c.get(ctx, c.ListURL)
	if err != nil {
		return nil, nil, err
	}

	var resp Response[[]string]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("decode package list: %w", err)
	}
	if resp.Error != nil {
		return nil, nil, resp.Error
	}

	c.logger.Info("package list fetched", zap.Int("count", len(resp.Result)))
	return resp.Result, body, nil
}

// Show returns the metadata record of id together with the verbatim
// response body.
func (c *Client) Show(ctx context.Context, id string) (*Package, []byte, error) {
	u := c.ShowURLFor(id)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, nil, err
	}

	pkg, err := DecodePackage(body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Type), "not found") {
			return nil, nil, fmt.Errorf("%s: %w", u, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("decode package %q: %w", id, err)
	}
	return pkg, body, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("GET", zap.String("url", u))

	resp, err := c.http.Do(req)
	if err != nil {
		if isCertificateError(err) {
			return nil, fmt.Errorf("%s: %v: %w", u, err, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", u, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", u, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, u)
	}

	return body, nil
}

func isCertificateError(err error) bool {
	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalid          x509.CertificateInvalidError
		verification     *tls.CertificateVerificationError
	)
	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid) ||
		errors.As(err, &verification)
}
