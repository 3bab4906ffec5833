// Package reddit fetches posts and full comment threads from the Reddit API.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"RedditCurator/internal/config"
)

const defaultUserAgent = "RedditCurator/1.0"

// errUnauthorized marks an expired or revoked bearer token.
var errUnauthorized = errors.New("reddit rejected the access token")

// Client is an authenticated, rate limited Reddit API client.
type Client struct {
	http    *http.Client
	cfg     config.RedditConfig
	limiter *rate.Limiter
	logger  *slog.Logger
	clock   clockwork.Clock

	mu      sync.Mutex
	token   string
	expires time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// NewClient wires a retrying HTTP client paced to RequestsPerMinute.
func NewClient(cfg config.RedditConfig, logger *slog.Logger, options ...Option) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	settings := newSettings(cfg.MaxRetries, logger, options...)
	return &Client{
		http:    settings.httpClient(),
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
		clock:   settings.clock,
	}
}

// Authenticate exchanges the app credentials for a bearer token. The
// password grant is used when a username is configured, otherwise the
// application-only client_credentials grant.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{}
	if c.cfg.Username != "" {
		form.Set("grant_type", "password")
		form.Set("username", c.cfg.Username)
		form.Set("password", c.cfg.Password)
	} else {
		form.Set("grant_type", "client_credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("decode token: %w", err)
	}
	if tok.Error != "" {
		return fmt.Errorf("token endpoint: %s", tok.Error)
	}
	if tok.AccessToken == "" {
		return errors.New("token endpoint returned no access token")
	}

	expiresIn := time.Duration(tok.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}

	c.mu.Lock()
	c.token = tok.AccessToken
	c.expires = c.clock.Now().Add(expiresIn - time.Minute)
	c.mu.Unlock()

	c.logger.Debug("reddit token acquired", "expires_in", expiresIn)
	return nil
}

func (c *Client) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token, expires := c.token, c.expires
	c.mu.Unlock()

	if token != "" && c.clock.Now().Before(expires) {
		return token, nil
	}
	if err := c.Authenticate(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// getJSON issues an authenticated GET and decodes the body into v. A 401
// triggers one re-authentication.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	err := c.doGet(ctx, path, query, v)
	if errors.Is(err, errUnauthorized) {
		c.invalidate()
		err = c.doGet(ctx, path, query, v)
	}
	return err
}

func (c *Client) doGet(ctx context.Context, path string, query url.Values, v any) error {
	token, err := c.currentToken(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.APIURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: %w", path, errUnauthorized)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("GET %s: reddit returned %s", path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}
