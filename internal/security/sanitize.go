package security

import (
	"html"
	"math"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	// MaxSearchTermLength caps sanitised search terms, in runes.
	MaxSearchTermLength = 100

	// MaxFilenameLength caps sanitised file names, in runes.
	MaxFilenameLength = 255

	// MinZoom and MaxZoom bound the preview zoom factor.
	MinZoom = 0.5
	MaxZoom = 3.0

	// DefaultZoom replaces zoom values that are not numbers.
	DefaultZoom = 1.0
)

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
	"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
	"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// SanitizeText HTML-escapes text and drops control characters other than
// newline, carriage return and tab.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	escaped := html.EscapeString(text)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, escaped)
}

// SanitizeSearchTerm strips quoting, statement and path characters plus
// control characters, caps the length and trims surrounding space.
// An empty result means there is nothing to search for.
func SanitizeSearchTerm(term string) string {
	if term == "" {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == ';', r == '\'', r == '"', r == '\\', r == '/':
			return -1
		case r < 32 || r == 127:
			return -1
		}
		return r
	}, term)
	return strings.TrimSpace(truncateRunes(cleaned, MaxSearchTermLength))
}

// IsSafeFilename rejects traversal sequences, separators, control
// characters and Windows reserved device names.
func IsSafeFilename(name string) bool {
	if name == "" {
		return false
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return false
	}
	for _, r := range name {
		if r < 32 {
			return false
		}
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if _, reserved := reservedNames[strings.ToUpper(stem)]; reserved {
		return false
	}
	return true
}

// SanitizeFilename turns name into something safe to use as a file name.
// Separators and reserved characters become underscores; an empty result
// becomes "unnamed".
func SanitizeFilename(name string) string {
	if name == "" {
		return "unnamed"
	}
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r == '/', r == '\\':
			return '_'
		case r < 32:
			return -1
		case strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		}
		return r
	}, name)
	sanitized = truncateRunes(sanitized, MaxFilenameLength)
	if sanitized == "" {
		return "unnamed"
	}
	return sanitized
}

// ValidatePageNumber clamps page into [1, total].
func ValidatePageNumber(page, total int) int {
	if total < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// ValidateZoom clamps zoom into [MinZoom, MaxZoom].
func ValidateZoom(zoom float64) float64 {
	if math.IsNaN(zoom) {
		return DefaultZoom
	}
	return math.Min(math.Max(zoom, MinZoom), MaxZoom)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
