// ABOUTME: HTTP client that scrapes the watch page and downloads caption tracks
// ABOUTME: Retries transient failures with the shared backoff policy and returns typed errors
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/harper/vidchat/internal/models"
	"github.com/harper/vidchat/internal/util"
)

const (
	// DefaultBaseURL is the YouTube origin used for watch pages
	DefaultBaseURL = "https://www.youtube.com"

	userAgent       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxWatchPage    = 6 * 1024 * 1024
	maxTimedText    = 2 * 1024 * 1024
	defaultTimeout  = 30 * time.Second
	defaultRetries  = 3
	defaultInterval = 500 * time.Millisecond
)

// Client fetches transcripts and metadata for YouTube videos
type Client struct {
	baseURL    string
	httpClient *http.Client
	languages  []string
	maxRetries uint64
	interval   time.Duration
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at a different origin (used by tests)
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets the per-request timeout of the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithLanguages sets the preferred caption languages, in order
func WithLanguages(langs ...string) Option {
	return func(c *Client) {
		if len(langs) > 0 {
			c.languages = langs
		}
	}
}

// WithRetry sets how many times a transient failure is retried and the first wait
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.interval = initial
	}
}

// WithLogger sets the logger used for retry diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client with sensible defaults
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		languages:  []string{"en"},
		maxRetries: defaultRetries,
		interval:   defaultInterval,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTranscript downloads the caption track for videoID.
// Missing transcripts are reported as ErrTranscriptsDisabled, ErrNoTranscriptFound
// or ErrVideoUnavailable; anything else is a *FetchError.
func (c *Client) FetchTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	pr, err := c.playerResponse(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if err := pr.playable(); err != nil {
		return nil, err
	}

	tracks := pr.tracks()
	if len(tracks) == 0 {
		return nil, fmt.Errorf("video %s: %w", videoID, ErrTranscriptsDisabled)
	}
	track, ok := pickTrack(tracks, c.languages)
	if !ok {
		return nil, fmt.Errorf("video %s, languages %v: %w", videoID, c.languages, ErrNoTranscriptFound)
	}

	data, err := c.get(ctx, c.resolve(track.BaseURL), maxTimedText)
	if err != nil {
		return nil, &FetchError{VideoID: videoID, Err: fmt.Errorf("timedtext: %w", err)}
	}
	segments, err := parseTimedText(data)
	if err != nil {
		return nil, &FetchError{VideoID: videoID, Err: err}
	}

	c.logger.Debug("fetched transcript",
		"video_id", videoID,
		"language", track.LanguageCode,
		"generated", track.Kind == "asr",
		"segments", len(segments))

	return &models.Transcript{
		VideoID:   videoID,
		Language:  track.LanguageCode,
		Generated: track.Kind == "asr",
		Segments:  segments,
	}, nil
}

// FetchMetadata returns title, description and view count from the watch page
func (c *Client) FetchMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error) {
	pr, err := c.playerResponse(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if err := pr.playable(); err != nil {
		return nil, err
	}
	meta, err := pr.metadata(videoID)
	if err != nil {
		return nil, &FetchError{VideoID: videoID, Err: err}
	}
	return meta, nil
}

func (c *Client) playerResponse(ctx context.Context, videoID string) (*playerResponse, error) {
	watchURL := c.baseURL + "/watch?v=" + videoID

	page, err := c.get(ctx, watchURL, maxWatchPage)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("video %s: %w", videoID, ErrVideoUnavailable)
		}
		return nil, &FetchError{VideoID: videoID, Err: fmt.Errorf("watch page: %w", err)}
	}

	pr, err := parsePlayerResponse(page)
	if err != nil {
		return nil, &FetchError{VideoID: videoID, Err: err}
	}
	return pr, nil
}

// resolve makes relative caption URLs absolute against the base URL
func (c *Client) resolve(ref string) string {
	if strings.HasPrefix(ref, "/") {
		return c.baseURL + ref
	}
	return ref
}

// get performs a GET with retries on network errors, 429 and 5xx
func (c *Client) get(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	policy := util.Policy{
		MaxRetries: int(c.maxRetries),
		BaseDelay:  c.interval,
		Retryable:  isRetryableFetch,
	}

	attempt := 0
	return util.Do(ctx, policy, func(ctx context.Context) ([]byte, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Debug("youtube request failed", "url", rawURL, "attempt", attempt, "error", err)
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			c.logger.Debug("youtube returned error status", "url", rawURL, "attempt", attempt, "status", resp.StatusCode)
			return nil, &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	})
}

// isRetryableFetch retries transport failures and transient statuses
func isRetryableFetch(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return isRetryableStatus(se.StatusCode)
	}
	return true
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
