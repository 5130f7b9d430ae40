package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"wikidatago/pkg/cache"
	"wikidatago/pkg/tracker"
	"wikidatago/pkg/version"
)

var (
	defaultUserAgent = fmt.Sprintf("wikidatago/%s (https://github.com/wikidatago/wikidatago)", version.Version)
)

// ErrMaxRetries is returned when every attempt hit a retryable failure.
var ErrMaxRetries = errors.New("max retries exceeded")

// StatusError is a non-retryable HTTP error response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: status %d", e.Code)
}

// Options tunes a Client. Zero fields take the defaults.
type Options struct {
	Timeout    time.Duration // per HTTP attempt, default 60s
	MaxRetries int           // attempts per request, default 3
	BaseDelay  time.Duration // first retry delay, default 500ms
	MaxDelay   time.Duration // cap for the per-provider backoff, default 30s
	MinGap     time.Duration // pause between requests to one provider, default 100ms
	UserAgent  string
	Logger     *slog.Logger
}

func (o *Options) withDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 500 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.MinGap < 0 {
		o.MinGap = 0
	} else if o.MinGap == 0 {
		o.MinGap = 100 * time.Millisecond
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Client handles HTTP requests with queuing, caching, and tracking.
type Client struct {
	httpClient *http.Client
	cache      cache.Cacher
	tracker    *tracker.Tracker
	backoff    *ProviderBackoff
	opts       Options
	logger     *slog.Logger

	// Queues per provider (domain)
	queues map[string]chan job
	mu     sync.Mutex // Protects queues map
}

// job represents a queued request.
type job struct {
	req      *http.Request
	headers  map[string]string
	cacheKey string
	respChan chan jobResult
}

type jobResult struct {
	body []byte
	err  error
}

// New creates a new Client.
func New(c cache.Cacher, t *tracker.Tracker, opts Options) *Client {
	opts.withDefaults()
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		cache:      c,
		tracker:    t,
		backoff:    NewProviderBackoff(opts.BaseDelay, opts.MaxDelay),
		opts:       opts,
		logger:     opts.Logger,
		queues:     make(map[string]chan job),
	}
}

// Get performs a GET request with queuing and caching if key is provided.
func (c *Client) Get(ctx context.Context, u, cacheKey string) ([]byte, error) {
	return c.GetWithHeaders(ctx, u, nil, cacheKey)
}

// GetWithHeaders performs a GET request with custom headers and optional caching.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string, cacheKey string) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	provider := normalizeProvider(parsedURL.Host)

	// 1. Check Cache (Only if key is provided)
	if cacheKey != "" {
		if val, hit := c.cache.GetCache(ctx, cacheKey); hit {
			c.tracker.TrackCacheHit(provider)
			c.logger.Debug("Cache Hit", "provider", provider, "key", cacheKey)
			return val, nil
		}
		c.tracker.TrackCacheMiss(provider)
		c.logger.Debug("Cache Miss", "provider", provider, "key", cacheKey)
	}

	// 2. Enqueue Request
	req, err := http.NewRequestWithContext(ctx, "GET", u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respChan := make(chan jobResult, 1)
	j := job{req: req, headers: headers, cacheKey: cacheKey, respChan: respChan}

	c.dispatch(provider, j)

	// 3. Wait for Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-respChan:
		return res.body, res.err
	}
}

func normalizeProvider(host string) string {
	// Group all wikidata subdomains (www, query, etc.) into one "wikidata" provider for serialization
	if strings.HasSuffix(host, ".wikidata.org") || host == "wikidata.org" {
		return "wikidata"
	}
	if strings.HasSuffix(host, ".wikipedia.org") || host == "wikipedia.org" {
		return "wikipedia"
	}
	if strings.HasSuffix(host, ".wikimedia.org") || host == "wikimedia.org" {
		return "wikimedia"
	}
	return host
}

// dispatch sends the job to the provider's queue, creating the queue/worker if needed.
func (c *Client) dispatch(provider string, j job) {
	c.mu.Lock()
	q, ok := c.queues[provider]
	if !ok {
		// Create new queue and start worker
		q = make(chan job, 100)
		c.queues[provider] = q
		go c.worker(provider, q)
	}
	c.mu.Unlock()

	// We block here if the queue is full, effectively throttling the caller
	select {
	case q <- j:
	case <-j.req.Context().Done():
		// Caller gave up before we could even enqueue
		j.respChan <- jobResult{err: j.req.Context().Err()}
	}
}

// worker processes requests for a specific provider sequentially.
func (c *Client) worker(provider string, q <-chan job) {
	for j := range q {
		// Check context before processing
		if j.req.Context().Err() != nil {
			c.logger.Warn("Job dropped from queue (context expired)", "provider", provider, "error", j.req.Context().Err())
			j.respChan <- jobResult{err: j.req.Context().Err()}
			continue
		}

		// Apply User-Agent (Default if not provided)
		uaMatch := false
		for k, v := range j.headers {
			j.req.Header.Set(k, v)
			if http.CanonicalHeaderKey(k) == "User-Agent" {
				uaMatch = true
			}
		}
		if !uaMatch {
			j.req.Header.Set("User-Agent", c.opts.UserAgent)
		}

		if err := c.backoff.Wait(j.req.Context(), provider); err != nil {
			j.respChan <- jobResult{err: err}
			continue
		}
		body, err := c.executeWithBackoff(j.req)

		if err == nil {
			c.tracker.TrackAPISuccess(provider)
			c.backoff.RecordSuccess(provider)
			// Cache result (Only if key is provided)
			if j.cacheKey != "" {
				if err := c.cache.SetCache(context.Background(), j.cacheKey, body); err != nil {
					c.logger.Error("Failed to cache response", "url", j.req.URL, "error", err)
				}
			}
		} else {
			c.tracker.TrackAPIFailure(provider)
			var se *StatusError
			if !errors.As(err, &se) && j.req.Context().Err() == nil {
				c.backoff.RecordFailure(provider)
			}
		}

		j.respChan <- jobResult{body: body, err: err}

		// Safety gap to prevent hitting rate limits
		time.Sleep(c.opts.MinGap)
	}
}

// executeWithBackoff attempts the request with exponential backoff on retryable errors.
func (c *Client) executeWithBackoff(req *http.Request) ([]byte, error) {
	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		// Verify context is still alive before dialing
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}

		c.logger.Debug("Network Request", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.httpClient.Do(req)

		if err != nil {
			// Check if the error is a context cancellation from OUR side
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}

			// Otherwise, it's a network error or server timeout
			c.logger.Warn("Request failed, retrying", "url", req.URL, "attempt", attempt+1, "error", err)
			if err := c.sleep(req.Context(), attempt); err != nil {
				return nil, err
			}
			continue
		}

		// Handle Status Codes
		if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode < 600) {
			resp.Body.Close()
			c.logger.Warn("API Backoff", "status", resp.StatusCode, "url", req.URL, "attempt", attempt+1)
			if err := c.sleep(req.Context(), attempt); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.String()}
		}

		// Success
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return body, nil
	}

	return nil, ErrMaxRetries
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	// Simple exponential backoff
	d := time.Duration(math.Pow(2, float64(attempt))) * c.opts.BaseDelay
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
