// Package transcript fetches video transcripts. The orchestration core
// only needs the Fetcher contract; the YouTube client is one
// implementation of it.
package transcript

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Segment is one raw caption line with its timing.
type Segment struct {
	Text     string
	Start    float64
	Duration float64
}

// Fetcher retrieves the full transcript for a source id.
type Fetcher interface {
	Fetch(ctx context.Context, sourceID string) ([]Segment, error)
}

var (
	videoIDExact    = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
	videoIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`watch\?v=([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`embed/([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`),
	}
)

// ExtractVideoID pulls the 11-character video id out of a YouTube URL,
// accepting a bare id unchanged.
func ExtractVideoID(url string) (string, error) {
	if videoIDExact.MatchString(url) {
		return url, nil
	}
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("no video id found in %q", url)
}

// YouTubeFetcher fetches captions from the public timedtext endpoint.
type YouTubeFetcher struct {
	baseURL  string
	language string
	client   *http.Client
}

// NewYouTubeFetcher creates a fetcher for the given caption language.
func NewYouTubeFetcher(language string) *YouTubeFetcher {
	if language == "" {
		language = "en"
	}
	return &YouTubeFetcher{
		baseURL:  "https://video.google.com/timedtext",
		language: language,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SetTimeout bounds each caption download.
func (f *YouTubeFetcher) SetTimeout(d time.Duration) {
	if d > 0 {
		f.client.Timeout = d
	}
}

type timedText struct {
	Texts []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Start    float64 `xml:"start,attr"`
	Duration float64 `xml:"dur,attr"`
	Body     string  `xml:",chardata"`
}

// Fetch downloads and parses the caption track for a video.
func (f *YouTubeFetcher) Fetch(ctx context.Context, videoID string) ([]Segment, error) {
	url := fmt.Sprintf("%s?lang=%s&v=%s", f.baseURL, f.language, videoID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcript fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcript endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("no captions available for %s (lang %s)", videoID, f.language)
	}

	var parsed timedText
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}

	segments := make([]Segment, 0, len(parsed.Texts))
	for _, line := range parsed.Texts {
		text := strings.TrimSpace(html.UnescapeString(line.Body))
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Text:     text,
			Start:    line.Start,
			Duration: line.Duration,
		})
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("transcript for %s is empty", videoID)
	}
	return segments, nil
}
