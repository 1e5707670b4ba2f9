// ABOUTME: Video id extraction and the typed errors returned by the transcript fetcher
// ABOUTME: Callers classify missing transcripts with errors.Is or IsNoTranscript
package youtube

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTranscriptsDisabled means the video has no captions at all
	ErrTranscriptsDisabled = errors.New("transcripts are disabled for this video")
	// ErrNoTranscriptFound means captions exist but none in the requested languages
	ErrNoTranscriptFound = errors.New("no transcript found in the requested languages")
	// ErrVideoUnavailable means the video is private, removed, or otherwise not playable
	ErrVideoUnavailable = errors.New("video is unavailable")
)

// FetchError wraps any failure that is not one of the typed transcript errors
type FetchError struct {
	VideoID string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching transcript for %s: %v", e.VideoID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusError reports an unexpected HTTP status from YouTube
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// IsNoTranscript reports whether err says the video has no usable transcript,
// as opposed to a transport or parsing failure.
func IsNoTranscript(err error) bool {
	return errors.Is(err, ErrTranscriptsDisabled) ||
		errors.Is(err, ErrNoTranscriptFound) ||
		errors.Is(err, ErrVideoUnavailable)
}

// ExtractVideoID returns everything after the last "v=" in url.
// Trailing query parameters are kept and nothing is validated, so
// "https://www.youtube.com/watch?v=abc&t=30s" yields "abc&t=30s".
// Input without "v=" is returned unchanged.
func ExtractVideoID(url string) string {
	parts := strings.Split(url, "v=")
	return parts[len(parts)-1]
}
