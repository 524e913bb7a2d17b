// Package exifmeta reads the embedded EXIF tags of a photo into a
// photo.Metadata. Every field is read independently: a missing or
// malformed tag leaves that field nil and never fails the extraction.
package exifmeta

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/bdmihai/pyphotodb/internal/photo"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"
	"go.uber.org/zap"
)

func init() {
	// Register camera makernote parsers - currently Nikon and Canon are supported.
	exif.RegisterParsers(mknote.All...)
}

// orientations maps the EXIF orientation value to the printable form
// stored in the catalog.
var orientations = map[int]string{
	1: "Horizontal (normal)",
	2: "Mirrored horizontal",
	3: "Rotated 180",
	4: "Mirrored vertical",
	5: "Mirrored horizontal then rotated 90 CCW",
	6: "Rotated 90 CW",
	7: "Mirrored horizontal then rotated 90 CW",
	8: "Rotated 90 CCW",
}

// Extractor decodes EXIF tags.
type Extractor struct {
	log *zap.Logger
}

// New returns an Extractor that logs per-tag failures to log at debug level.
func New(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}

	return &Extractor{log: log}
}

// Extract reads all of r and returns the tags found in it. It returns a nil
// Metadata when the content carries no readable EXIF block. Only a failure
// to read r is reported as an error.
func (e *Extractor) Extract(r io.Reader) (*photo.Metadata, error) {
	content, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading photo content: %w", err)
	}

	if err := validate(content); err != nil {
		e.log.Debug("rejecting exif data", zap.Error(err))
		return nil, nil
	}

	x, err := decode(content)
	if err != nil {
		if x == nil || exif.IsCriticalError(err) {
			e.log.Debug("no exif data", zap.Error(err))
			return nil, nil
		}
		e.log.Debug("partial exif data", zap.Error(err))
	}

	m := &photo.Metadata{}

	if tm, err := x.DateTime(); err == nil {
		m.DateTime = &tm
	} else {
		e.skip("DateTime", err)
	}

	m.Make = e.stringTag(x, exif.Make)
	m.Model = e.stringTag(x, exif.Model)
	m.Software = e.stringTag(x, exif.Software)
	m.Width = e.intTag(x, exif.PixelXDimension)
	m.Height = e.intTag(x, exif.PixelYDimension)

	if o := e.intTag(x, exif.Orientation); o != nil {
		if s, ok := orientations[*o]; ok {
			m.Orientation = &s
		} else {
			s := fmt.Sprintf("Unknown (%d)", *o)
			m.Orientation = &s
		}
	}

	m.Latitude = e.coordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef, "S")
	m.Longitude = e.coordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef, "W")
	m.Altitude = e.altitude(x)

	return m, nil
}

// decode runs the EXIF decoder, turning a panic on malformed maker notes
// into an error.
func decode(content []byte) (x *exif.Exif, err error) {
	defer func() {
		if r := recover(); r != nil {
			x, err = nil, fmt.Errorf("decoding exif: %v", r)
		}
	}()

	return exif.Decode(bytes.NewReader(content))
}

func (e *Extractor) skip(field string, err error) {
	if exif.IsTagNotPresentError(err) {
		return
	}
	e.log.Debug("skipping exif tag", zap.String("tag", field), zap.Error(err))
}

func (e *Extractor) stringTag(x *exif.Exif, name exif.FieldName) *string {
	tag, err := x.Get(name)
	if err != nil {
		e.skip(string(name), err)
		return nil
	}

	s, err := tag.StringVal()
	if err != nil {
		e.skip(string(name), err)
		return nil
	}

	s = strings.TrimSpace(s)
	return &s
}

func (e *Extractor) intTag(x *exif.Exif, name exif.FieldName) *int {
	tag, err := x.Get(name)
	if err != nil {
		e.skip(string(name), err)
		return nil
	}

	v, err := tag.Int(0)
	if err != nil {
		e.skip(string(name), err)
		return nil
	}

	return &v
}

func rational(tag *tiff.Tag, i int) (float64, error) {
	num, den, err := tag.Rat2(i)
	if err != nil {
		return 0, err
	}
	if den == 0 {
		return 0, fmt.Errorf("zero denominator at index %d", i)
	}

	return float64(num) / float64(den), nil
}

// coordinate folds a degrees/minutes/seconds triple into decimal degrees.
// The value is negated when the reference tag equals negRef.
func (e *Extractor) coordinate(x *exif.Exif, name, ref exif.FieldName, negRef string) *float64 {
	tag, err := x.Get(name)
	if err != nil {
		e.skip(string(name), err)
		return nil
	}

	var dms [3]float64
	for i := range dms {
		if dms[i], err = rational(tag, i); err != nil {
			e.skip(string(name), err)
			return nil
		}
	}

	v := dms[0] + dms[1]/60 + dms[2]/3600
	if r := e.stringTag(x, ref); r != nil && strings.EqualFold(*r, negRef) {
		v = -v
	}

	return &v
}

func (e *Extractor) altitude(x *exif.Exif) *float64 {
	tag, err := x.Get(exif.GPSAltitude)
	if err != nil {
		e.skip(string(exif.GPSAltitude), err)
		return nil
	}

	v, err := rational(tag, 0)
	if err != nil {
		e.skip(string(exif.GPSAltitude), err)
		return nil
	}

	// reference 1 means below sea level
	if ref := e.intTag(x, exif.GPSAltitudeRef); ref != nil && *ref == 1 {
		v = -v
	}

	return &v
}
