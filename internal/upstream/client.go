// Package upstream talks to the university registration backend: the
// identity endpoints used for login and the timetable endpoints that return
// compressed payloads.
package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTermPath is appended to the auth base URL to resolve the current term.
const DefaultTermPath = "/Schedule/CurrentAcad"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	AuthBaseURL      string
	TimetableBaseURL string
	SecretKey        string // CredentialCipher key, required for Login
	TermPath         string
	HTTPClient       *http.Client
	Logger           *zap.Logger
}

// Client performs single-attempt, request scoped upstream calls. It keeps no
// per-user state and is safe for concurrent use.
type Client struct {
	authBase      string
	timetableBase string
	secretKey     string
	termPath      string
	httpClient    *http.Client
	log           *zap.Logger
}

// New validates opts and returns a Client. A missing secret key is a
// configuration error: the service must not start logins without it.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SecretKey) == "" {
		return nil, configError("init", "credential secret key is not configured", nil)
	}
	if strings.TrimSpace(opts.AuthBaseURL) == "" {
		return nil, configError("init", "auth base url is not configured", nil)
	}
	if strings.TrimSpace(opts.TimetableBaseURL) == "" {
		return nil, configError("init", "timetable base url is not configured", nil)
	}
	c := &Client{
		authBase:      strings.TrimRight(opts.AuthBaseURL, "/"),
		timetableBase: strings.TrimRight(opts.TimetableBaseURL, "/"),
		secretKey:     opts.SecretKey,
		termPath:      opts.TermPath,
		httpClient:    opts.HTTPClient,
		log:           opts.Logger,
	}
	if c.termPath == "" {
		c.termPath = DefaultTermPath
	}
	if !strings.HasPrefix(c.termPath, "/") {
		c.termPath = "/" + c.termPath
	}
	if c.httpClient == nil {
		c.httpClient = DefaultHTTPClient()
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c, nil
}

// DefaultHTTPClient returns the client used when none is injected. Callers
// that need a different deadline pass their own or use a context.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

func (c *Client) newRequest(ctx context.Context, method, url, bearer string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req, nil
}

// getJSON performs an authenticated GET and decodes a 200 body into out.
func (c *Client) getJSON(ctx context.Context, op, url, bearer string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, url, bearer, nil)
	if err != nil {
		return unavailable(op, "build request", err)
	}
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("upstream request failed", zap.String("op", op), zap.Error(err))
		return transportError(op, err)
	}
	defer resp.Body.Close()
	c.log.Debug("upstream response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)),
	)

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return unexpectedStatus(op, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return unavailable(op, "decode response", err)
	}
	return nil
}

func (c *Client) authURL(path string) string {
	return c.authBase + path
}
