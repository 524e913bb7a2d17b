package exifmeta

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Tags the decoder follows to further directories.
const (
	tagMake       = 0x010f
	tagExifIFD    = 0x8769
	tagGPSIFD     = 0x8825
	tagInteropIFD = 0xa005
	tagMakerNote  = 0x927c
)

// typeSizes is the byte size of one value of each TIFF data type.
var typeSizes = map[uint16]uint64{
	1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1,
	7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8,
}

var errCorrupt = errors.New("corrupt exif block")

// validate rejects EXIF blocks the decoder cannot read safely: a tag whose
// value count exceeds the block, which the decoder would allocate in full,
// or directories chained into a loop.
func validate(content []byte) error {
	b := locateTIFF(content)
	if b == nil {
		return nil
	}

	return checkTIFF(b, true)
}

// locateTIFF returns the TIFF structure the decoder reads from content: a
// bare TIFF file, a raw "Exif\0\0" block or the first JPEG APP1 segment.
// It returns nil when there is none.
func locateTIFF(content []byte) []byte {
	if len(content) < 4 {
		return nil
	}

	switch string(content[:4]) {
	case "II*\x00", "MM\x00*":
		return content
	case "Exif":
		if len(content) < 6 || string(content[:6]) != "Exif\x00\x00" {
			return nil
		}
		return content[6:]
	}

	for i := 0; ; {
		j := bytes.IndexByte(content[i:], 0xff)
		if j < 0 {
			return nil
		}
		i += j + 1
		if i >= len(content) {
			return nil
		}

		marker := content[i]
		i++
		if marker != 0xe1 {
			continue
		}

		if i+2 > len(content) {
			return nil
		}
		n := int(binary.BigEndian.Uint16(content[i:])) - 2
		i += 2
		if n == 0 {
			continue
		}
		if n < 0 || i+n > len(content) {
			return nil
		}

		seg := content[i : i+n]
		if len(seg) < 6 || string(seg[:6]) != "Exif\x00\x00" {
			return nil
		}
		return seg[6:]
	}
}

type tiffCheck struct {
	b     []byte
	order binary.ByteOrder

	maker     string
	subdirs   []uint32
	makerNote []byte
	noteStart uint32
}

func checkTIFF(b []byte, followSubdirs bool) error {
	if len(b) < 8 {
		return nil
	}

	c := &tiffCheck{b: b}
	switch string(b[:2]) {
	case "II":
		c.order = binary.LittleEndian
	case "MM":
		c.order = binary.BigEndian
	default:
		return nil
	}

	seen := map[uint32]bool{}
	for off := c.order.Uint32(b[4:]); off != 0; {
		if seen[off] {
			return fmt.Errorf("%w: directory loop at offset %d", errCorrupt, off)
		}
		seen[off] = true

		next, ok, err := c.dir(off)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		off = next
	}

	if !followSubdirs {
		return nil
	}

	checked := map[uint32]bool{}
	for i := 0; i < len(c.subdirs); i++ {
		off := c.subdirs[i]
		if checked[off] {
			continue
		}
		checked[off] = true

		if _, _, err := c.dir(off); err != nil {
			return err
		}
	}

	return c.checkMakerNote()
}

// checkMakerNote checks the Canon and Nikon maker note layouts the decoder
// parses.
func (c *tiffCheck) checkMakerNote() error {
	note := c.makerNote
	if note == nil {
		return nil
	}

	if c.maker == "Canon" {
		canon := &tiffCheck{b: c.b[:int(c.noteStart)+len(note)], order: c.order}
		if c.noteStart == 0 {
			canon.b = note
		}
		if _, _, err := canon.dir(c.noteStart); err != nil {
			return err
		}
	}

	if len(note) >= 10 && string(note[:6]) == "Nikon\x00" {
		return checkTIFF(note[10:], false)
	}

	return nil
}

// dir checks the directory at off and returns the offset of the next one.
// ok is false when the decoder would stop at this directory on its own.
func (c *tiffCheck) dir(off uint32) (next uint32, ok bool, err error) {
	b := c.b
	if off > math.MaxInt32 || uint64(off)+2 > uint64(len(b)) {
		return 0, false, nil
	}

	n := int(int16(c.order.Uint16(b[off:])))
	pos := uint64(off) + 2
	for i := 0; i < n; i++ {
		if pos+12 > uint64(len(b)) {
			return 0, false, nil
		}
		e := b[pos : pos+12]
		pos += 12

		id, typ, count := c.order.Uint16(e), c.order.Uint16(e[2:]), c.order.Uint32(e[4:])
		size := typeSizes[typ]
		if size*uint64(count) > uint64(len(b)) {
			return 0, false, fmt.Errorf("%w: tag %#04x claims %d values of %d bytes", errCorrupt, id, count, size)
		}

		c.note(id, typ, size*uint64(count), e[8:12])
	}

	if pos+4 > uint64(len(b)) {
		return 0, false, nil
	}

	return c.order.Uint32(b[pos:]), true, nil
}

// note remembers the tags that lead to further directories.
func (c *tiffCheck) note(id, typ uint16, length uint64, field []byte) {
	if length == 0 {
		return
	}

	var (
		val   []byte
		start uint32
	)
	if length <= 4 {
		val = field[:length]
	} else {
		start = c.order.Uint32(field)
		if uint64(start)+length > uint64(len(c.b)) {
			return
		}
		val = c.b[start : uint64(start)+length]
	}

	switch id {
	case tagExifIFD, tagGPSIFD, tagInteropIFD:
		switch typ {
		case 1, 6:
			c.subdirs = append(c.subdirs, uint32(val[0]))
		case 3, 8:
			c.subdirs = append(c.subdirs, uint32(c.order.Uint16(val)))
		case 4, 9:
			c.subdirs = append(c.subdirs, c.order.Uint32(val))
		}
	case tagMake:
		if typ == 2 {
			if i := bytes.IndexByte(val, 0); i >= 0 {
				val = val[:i]
			}
			c.maker = string(val)
		}
	case tagMakerNote:
		c.makerNote = val
		c.noteStart = start
	}
}
