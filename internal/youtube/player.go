// ABOUTME: Parsing of the ytInitialPlayerResponse blob embedded in the watch page
// ABOUTME: Classifies playability and picks the caption track for the preferred languages
package youtube

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/harper/vidchat/internal/models"
)

// playerResponseMarker marks the start of the player response JSON in watch page HTML
const playerResponseMarker = "ytInitialPlayerResponse = "

type playerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	VideoDetails *struct {
		VideoID          string `json:"videoId"`
		Title            string `json:"title"`
		ShortDescription string `json:"shortDescription"`
		Author           string `json:"author"`
		ViewCount        string `json:"viewCount"`
		LengthSeconds    string `json:"lengthSeconds"`
	} `json:"videoDetails"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// parsePlayerResponse finds and decodes ytInitialPlayerResponse in a watch page
func parsePlayerResponse(page []byte) (*playerResponse, error) {
	idx := bytes.Index(page, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	raw := extractJSON(page[idx+len(playerResponseMarker):])
	if raw == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &pr, nil
}

// extractJSON returns the balanced JSON object at the start of b
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// playable returns ErrVideoUnavailable unless the status is OK.
// A missing status block is treated as playable.
func (pr *playerResponse) playable() error {
	if pr.PlayabilityStatus == nil {
		return nil
	}
	status := pr.PlayabilityStatus.Status
	if status == "" || status == "OK" {
		return nil
	}
	if reason := pr.PlayabilityStatus.Reason; reason != "" {
		return fmt.Errorf("%w: %s (%s)", ErrVideoUnavailable, reason, status)
	}
	return fmt.Errorf("%w: %s", ErrVideoUnavailable, status)
}

func (pr *playerResponse) tracks() []captionTrack {
	if pr.Captions == nil {
		return nil
	}
	return pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
}

// metadata converts videoDetails into the model type
func (pr *playerResponse) metadata(videoID string) (*models.VideoMetadata, error) {
	if pr.VideoDetails == nil {
		return nil, errors.New("videoDetails missing from player response")
	}
	d := pr.VideoDetails
	meta := &models.VideoMetadata{
		VideoID:     videoID,
		Title:       d.Title,
		Description: d.ShortDescription,
		Author:      d.Author,
	}
	if d.ViewCount != "" {
		views, err := strconv.ParseInt(d.ViewCount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse view count %q: %w", d.ViewCount, err)
		}
		meta.ViewCount = views
	}
	if d.LengthSeconds != "" {
		if secs, err := strconv.Atoi(d.LengthSeconds); err == nil {
			meta.LengthSeconds = secs
		}
	}
	return meta, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only)
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack selects a caption track for the given language preferences.
// Manual tracks win over auto-generated ones within the same language, and
// languages are tried in order. A preference of "en" also matches "en-GB".
func pickTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}

	matches := func(t captionTrack, lang string) bool {
		return t.LanguageCode == lang || strings.HasPrefix(t.LanguageCode, lang+"-")
	}

	for _, lang := range langs {
		for _, t := range usable {
			if matches(t, lang) && t.Kind != "asr" {
				return t, true
			}
		}
		for _, t := range usable {
			if matches(t, lang) {
				return t, true
			}
		}
	}
	return captionTrack{}, false
}
