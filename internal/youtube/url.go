package youtube

import (
	"errors"
	"regexp"
)

// ErrInvalidURL is returned when a URL contains no recognizable video ID.
var ErrInvalidURL = errors.New("not a valid YouTube video URL")

// Extraction is deliberately lenient: any URL carrying a recognizable ID
// fragment yields that ID. Validation below is stricter and anchored; the
// two pattern sets are independent on purpose.
var extractPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([^&]+)`),
	regexp.MustCompile(`youtu\.be/([^?]+)`),
	regexp.MustCompile(`embed/([^?]+)`),
}

var validURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/watch\?v=[\w-]+`),
	regexp.MustCompile(`^https?://youtu\.be/[\w-]+`),
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/embed/[\w-]+`),
}

// ExtractVideoID extracts a YouTube video ID from a free-form URL string.
// Patterns are tried in order: watch query parameter, short link, embed
// path. Returns ErrInvalidURL when nothing matches.
func ExtractVideoID(rawURL string) (string, error) {
	for _, pattern := range extractPatterns {
		if matches := pattern.FindStringSubmatch(rawURL); matches != nil {
			return matches[1], nil
		}
	}
	return "", ErrInvalidURL
}

// IsValidWatchURL reports whether the URL is a structurally valid YouTube
// video URL (anchored full-URL check, independent of extraction).
func IsValidWatchURL(rawURL string) bool {
	for _, pattern := range validURLPatterns {
		if pattern.MatchString(rawURL) {
			return true
		}
	}
	return false
}
