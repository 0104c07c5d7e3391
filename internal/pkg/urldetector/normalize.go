package urldetector

import (
	"net/url"
	"strings"

	"clippilot/internal/domain"
)

// NormalizeURL validates that rawURL belongs to the platform and returns it
// with the query string and fragment removed. Post identity is the path
// alone; share and tracking parameters are dropped with the query.
//
// The result is always a prefix of rawURL.
func NormalizeURL(rawURL string, platform domain.Platform) (string, error) {
	invalid := func(reason string) error {
		return &domain.InvalidInputError{Platform: platform.Name, Reason: reason}
	}

	if strings.TrimSpace(rawURL) == "" {
		return "", invalid("empty URL")
	}

	// Step 1: Domain check (substring match)
	if !strings.Contains(strings.ToLower(rawURL), platform.Domain) {
		return "", invalid("URL is not on " + platform.Domain)
	}

	// Step 2: Must parse as an absolute http(s) URL
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", invalid("failed to parse URL: " + err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", invalid("unsupported scheme")
	}
	if u.Host == "" {
		return "", invalid("no host found")
	}

	// Step 3: Cut at the first '?' or '#'
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i], nil
	}
	return rawURL, nil
}

// NewRequest builds an ExtractionRequest for rawURL
func NewRequest(rawURL string, platform domain.Platform) (domain.ExtractionRequest, error) {
	normalized, err := NormalizeURL(rawURL, platform)
	if err != nil {
		return domain.ExtractionRequest{}, err
	}
	return domain.ExtractionRequest{
		RawURL:        rawURL,
		NormalizedURL: normalized,
	}, nil
}
