// Package photo holds the archive's record types and the pure functions
// that derive a photo's identity and canonical name.
package photo

import "time"

// Record is one unique archived photo as stored in the Photos table.
type Record struct {
	ID        int64
	Name      string
	Hash      string
	Size      int64
	DateTaken time.Time
	Metadata
}

// Metadata holds the optional tag values read from a photo. A nil field
// means the tag was absent or could not be parsed.
type Metadata struct {
	DateTime    *time.Time
	Make        *string
	Model       *string
	Software    *string
	Width       *int
	Height      *int
	Orientation *string
	Latitude    *float64
	Longitude   *float64
	Altitude    *float64
}
