package itunes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public iTunes Search API host.
const DefaultBaseURL = "https://itunes.apple.com"

// ErrEmptyTerm is returned when Search is called without a term.
var ErrEmptyTerm = errors.New("itunes: search term is required")

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("itunes: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("itunes: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config controls the upstream query and the retry policy.
type Config struct {
	BaseURL       string
	Limit         int
	Media         string
	Entity        string
	Country       string
	Timeout       time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
}

// DefaultConfig asks for up to 200 podcasts and podcast episodes per search.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		Limit:         200,
		Media:         "podcast",
		Entity:        "podcastEpisode,podcast",
		Timeout:       10 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    250 * time.Millisecond,
	}
}

// Client queries the iTunes Search API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a Client. Zero config fields fall back to DefaultConfig.
func NewClient(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Media == "" {
		cfg.Media = def.Media
	}
	if cfg.Entity == "" {
		cfg.Entity = def.Entity
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 1
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchURL returns the upstream URL queried for term.
func (c *Client) SearchURL(term string) string {
	params := url.Values{}
	params.Set("term", term)
	params.Set("limit", strconv.Itoa(c.cfg.Limit))
	params.Set("media", c.cfg.Media)
	params.Set("entity", c.cfg.Entity)
	if c.cfg.Country != "" {
		params.Set("country", c.cfg.Country)
	}
	return c.cfg.BaseURL + "/search?" + params.Encode()
}

// Search runs one upstream search. Rate limiting, server errors and transport failures
// are retried; other client errors fail immediately.
func (c *Client) Search(ctx context.Context, term string) (*Response, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptyTerm
	}

	endpoint := c.SearchURL(term)

	var out *Response
	err := retry.Do(
		func() error {
			resp, err := c.fetch(ctx, endpoint)
			if err != nil {
				return err
			}
			out = resp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.cfg.RetryAttempts),
		retry.Delay(c.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying itunes search",
				zap.String("term", term),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("building itunes request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Unrecoverable(ctx.Err())
		}
		return nil, fmt.Errorf("calling itunes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		if statusErr.Temporary() {
			return nil, statusErr
		}
		return nil, retry.Unrecoverable(statusErr)
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("decoding itunes response: %w", err))
	}
	return &payload, nil
}
