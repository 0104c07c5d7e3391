// Package ytdlp resolves social media posts through the yt-dlp command line tool.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Media is the subset of the yt-dlp info dictionary the caption service uses.
type Media struct {
	// ID is the platform's post identifier (the shortcode on Instagram).
	ID string `json:"id"`
	// Title is the generated title, e.g. "Video by someuser".
	Title string `json:"title"`
	// Description carries the post caption.
	Description string `json:"description"`
	// Uploader is the account display name.
	Uploader string `json:"uploader"`
	// ThumbnailURL is the best available thumbnail.
	ThumbnailURL string `json:"thumbnail_url"`
	// MediaURLs are direct media URLs, when yt-dlp exposes them.
	MediaURLs []string `json:"media_urls"`
	// Raw is the untouched info dictionary.
	Raw map[string]interface{} `json:"-"`
	// FetchedAt is when the lookup ran.
	FetchedAt time.Time `json:"fetched_at"`
}

// runFunc executes the binary and returns its stdout
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Client runs yt-dlp as a subprocess
type Client struct {
	path    string
	timeout time.Duration
	run     runFunc
}

// NewClient creates a new yt-dlp client. A zero timeout leaves the
// deadline to the caller's context.
func NewClient(path string, timeout time.Duration) *Client {
	if path == "" {
		path = "yt-dlp"
	}
	return &Client{
		path:    path,
		timeout: timeout,
		run:     runCommand,
	}
}

// Resolve fetches the info dictionary for rawURL
func (c *Client) Resolve(ctx context.Context, rawURL string) (*Media, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := c.run(ctx, c.path, "-J", "--no-warnings", "--skip-download", "--no-playlist", rawURL)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp resolve: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("parse yt-dlp JSON: %w", err)
	}

	return parseMedia(raw), nil
}

func parseMedia(raw map[string]interface{}) *Media {
	media := &Media{
		Raw:       raw,
		FetchedAt: time.Now().UTC(),
	}

	media.ID = stringField(raw, "id")
	media.Title = stringField(raw, "title")
	media.Description = stringField(raw, "description")
	media.Uploader = stringField(raw, "uploader")
	media.ThumbnailURL = stringField(raw, "thumbnail")

	if u := stringField(raw, "url"); u != "" {
		media.MediaURLs = append(media.MediaURLs, u)
	}

	// Carousel posts come back as a playlist of entries
	if entries, ok := raw["entries"].([]interface{}); ok {
		for _, entry := range entries {
			m, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			if u := stringField(m, "url"); u != "" {
				media.MediaURLs = append(media.MediaURLs, u)
			}
		}
	}

	return media
}

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
