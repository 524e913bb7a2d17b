package photo

import (
	"path/filepath"
	"strings"
)

// DefaultExtensions is the allow-list of file extensions that are ingested.
var DefaultExtensions = []string{".jpg", ".jpeg", ".gif", ".png", ".bmp", ".tiff"}

// ExtensionFilter reports whether a path has an allowed extension.
// Matching is case-insensitive.
type ExtensionFilter struct {
	allowed map[string]bool
}

// NewExtensionFilter builds a filter from exts. Entries without a leading
// dot get one.
func NewExtensionFilter(exts []string) ExtensionFilter {
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		allowed[e] = true
	}

	return ExtensionFilter{allowed: allowed}
}

// Allows reports whether path passes the filter.
func (f ExtensionFilter) Allows(path string) bool {
	return f.allowed[strings.ToLower(filepath.Ext(path))]
}
