package video

import (
	"strings"

	"github.com/timmy/pitchtrack/internal/domain"
)

// LocatorScheme identifies how a video locator should be resolved.
type LocatorScheme string

const (
	SchemeHTTP    LocatorScheme = "http"
	SchemeHTTPS   LocatorScheme = "https"
	SchemeStorage LocatorScheme = "storage"
	SchemeFile    LocatorScheme = "file"
)

// Locator is a parsed video reference from a detection request.
type Locator struct {
	Scheme LocatorScheme
	Raw    string
	// Target is the scheme-specific remainder: the full URL for http(s),
	// the object key for storage, or the filesystem path for file.
	Target string
}

// ParseLocator parses a raw video URL into a Locator.
// Plain paths without a scheme are treated as local files.
// Returns a *domain.ValidationError for empty or unsupported locators.
func ParseLocator(raw string) (*Locator, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &domain.ValidationError{Field: "video_url", Reason: "must not be empty"}
	}

	switch {
	case strings.HasPrefix(raw, "http://"):
		return &Locator{Scheme: SchemeHTTP, Raw: raw, Target: raw}, nil
	case strings.HasPrefix(raw, "https://"):
		return &Locator{Scheme: SchemeHTTPS, Raw: raw, Target: raw}, nil
	case strings.HasPrefix(raw, "storage://"):
		key := strings.TrimPrefix(raw, "storage://")
		if key == "" {
			return nil, &domain.ValidationError{Field: "video_url", Reason: "storage locator is missing an object key"}
		}
		return &Locator{Scheme: SchemeStorage, Raw: raw, Target: key}, nil
	case strings.HasPrefix(raw, "file://"):
		return &Locator{Scheme: SchemeFile, Raw: raw, Target: strings.TrimPrefix(raw, "file://")}, nil
	case strings.Contains(raw, "://"):
		scheme := raw[:strings.Index(raw, "://")]
		return nil, &domain.ValidationError{Field: "video_url", Reason: "unsupported scheme: " + scheme}
	default:
		// Bare path, treat as a local file
		return &Locator{Scheme: SchemeFile, Raw: raw, Target: raw}, nil
	}
}

// Remote reports whether the locator needs a network fetch.
func (l *Locator) Remote() bool {
	return l.Scheme != SchemeFile
}
