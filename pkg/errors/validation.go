package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// ValidatePanelKey validates a raw panel identifier before normalization.
// It rejects names that could be used for path traversal or injection when
// keys are later used in cache paths and manifest records.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidatePanelKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return Fatal(ErrCodeInvalidPanel, "panel key cannot be empty")
	}

	if len(key) > 128 {
		return Fatal(ErrCodeInvalidPanel, "panel key too long (max 128 characters)")
	}

	for _, r := range key {
		if unicode.IsControl(r) {
			return Fatal(ErrCodeInvalidPanel, "panel key contains control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(key, pattern) {
			return Fatal(ErrCodeInvalidPanel, "panel key contains invalid sequence %q", pattern)
		}
	}

	return nil
}

// ValidateSourceURL validates a panel source URL. Only absolute http(s)
// URLs are accepted; everything else must be supplied as inline bytes.
func ValidateSourceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return Fatal(ErrCodeInvalidPanel, "invalid source URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Fatal(ErrCodeInvalidPanel, "unsupported source URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return Fatal(ErrCodeInvalidPanel, "source URL missing host")
	}
	return nil
}
