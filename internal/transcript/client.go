package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"videotrack/internal/logger"
)

// LanguagePlaceholder is replaced by the language code in transcript URLs.
const LanguagePlaceholder = "__lang__"

// ErrNotFound is returned when the server has no transcript for a request.
var ErrNotFound = errors.New("transcript not found")

// Request identifies a transcript to fetch.
type Request struct {
	// URLTemplate is the transcript URL, optionally containing LanguagePlaceholder.
	URLTemplate string
	Language    string
	// YoutubeID, when set, is sent as the videoId query parameter.
	YoutubeID string
}

// Client fetches transcripts from the course server.
type Client struct {
	httpClient *http.Client
	logger     logger.Logger
	userAgent  string

	// MaxAttempts counts the first request. Values below 1 mean a single attempt.
	MaxAttempts    int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// NewClient creates a new transcript client.
func NewClient(log logger.Logger, userAgent string) *Client {
	transport := &http.Transport{
		ResponseHeaderTimeout: 3 * time.Second,
	}

	return &Client{
		httpClient:     &http.Client{Transport: transport},
		logger:         logger.OrNop(log),
		userAgent:      userAgent,
		MaxAttempts:    3,
		RetryDelay:     100 * time.Millisecond,
		RequestTimeout: 5 * time.Second,
	}
}

// BuildURL substitutes the language and appends the YouTube id.
func BuildURL(req Request) (string, error) {
	raw := strings.ReplaceAll(req.URLTemplate, LanguagePlaceholder, url.PathEscape(req.Language))
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse transcript URL '%s': %w", raw, err)
	}
	if req.YoutubeID != "" {
		q := u.Query()
		q.Set("videoId", req.YoutubeID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Fetch downloads and parses a transcript, retrying network errors and
// server errors. Client errors are returned immediately.
func (c *Client) Fetch(ctx context.Context, req Request) (*Track, error) {
	target, err := BuildURL(req)
	if err != nil {
		return nil, err
	}

	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Debugf("Fetching transcript %s (Attempt %d/%d)", target, attempt, attempts)

		data, retry, err := c.fetchOnce(ctx, target)
		if err == nil {
			track, err := ParseTrack(c.logger, data)
			if err != nil {
				return nil, fmt.Errorf("failed to parse transcript from %s: %w", target, err)
			}
			c.logger.Debugf("Fetched transcript %s with %d captions", target, track.Size())
			return track, nil
		}
		if !retry {
			return nil, err
		}

		lastErr = fmt.Errorf("fetch attempt %d failed for transcript %s: %w", attempt, target, err)
		c.logger.Warnf("%v", lastErr)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.RetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("failed to fetch transcript %s after %d attempts: %w", target, attempts, lastErr)
}

// fetchOnce performs a single request. The boolean reports whether the
// failure is worth retrying.
func (c *Client) fetchOnce(ctx context.Context, target string) ([]byte, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request for transcript: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: %s", ErrNotFound, target)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("received status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("failed to fetch transcript: received status code %d from %s", resp.StatusCode, target)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read transcript response body: %w", err)
	}
	return data, false, nil
}
