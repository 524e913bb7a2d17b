package photo

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// CanonicalName returns the archive filename for a photo:
// YYYY-MM-DD-SSSSSS<ext>, where SSSSSS is seq as six uppercase hex digits.
// The extension is lowercased.
func CanonicalName(taken time.Time, seq int64, ext string) string {
	return fmt.Sprintf("%s-%06X%s", taken.Format("2006-01-02"), seq, strings.ToLower(ext))
}

// CanonicalNameFor is CanonicalName using the extension of the source path.
func CanonicalNameFor(taken time.Time, seq int64, sourcePath string) string {
	return CanonicalName(taken, seq, filepath.Ext(sourcePath))
}

// CaptureTime picks the capture timestamp of a photo. The embedded tag is
// used only when it is earlier than the file's modification time; in every
// other case the modification time wins.
func CaptureTime(tagged *time.Time, modified time.Time) time.Time {
	if tagged != nil && tagged.Before(modified) {
		return *tagged
	}

	return modified
}
