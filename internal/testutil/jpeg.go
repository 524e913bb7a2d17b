// Package testutil builds photo fixtures for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// Tags describes the EXIF tags written into a fixture. Zero values are
// left out of the file.
type Tags struct {
	DateTime         string // 2006:01:02 15:04:05
	DateTimeOriginal string // written to the Exif sub-IFD
	Make             string
	Model            string
	Software         string
	Orientation      int
	GPS              *GPS
}

// GPS holds rationals as {numerator, denominator} pairs.
type GPS struct {
	Lat     [3][2]uint32
	LatRef  string
	Long    [3][2]uint32
	LongRef string
	Alt     [2]uint32
	AltRef  byte
}

const (
	typeByte     = 1
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
)

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

var le = binary.LittleEndian

func ascii(tag uint16, s string) entry {
	b := append([]byte(s), 0)
	return entry{tag: tag, typ: typeASCII, count: uint32(len(b)), data: b}
}

func short(tag uint16, v int) entry {
	b := make([]byte, 2)
	le.PutUint16(b, uint16(v))
	return entry{tag: tag, typ: typeShort, count: 1, data: b}
}

func long(tag uint16, v uint32) entry {
	b := make([]byte, 4)
	le.PutUint32(b, v)
	return entry{tag: tag, typ: typeLong, count: 1, data: b}
}

func rationals(tag uint16, vals ...[2]uint32) entry {
	b := make([]byte, 8*len(vals))
	for i, v := range vals {
		le.PutUint32(b[8*i:], v[0])
		le.PutUint32(b[8*i+4:], v[1])
	}
	return entry{tag: tag, typ: typeRational, count: uint32(len(vals)), data: b}
}

// ifd encodes entries as an IFD starting at offset start within the TIFF
// block, followed by the data that does not fit inline.
func ifd(start uint32, entries []entry) []byte {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	head := new(bytes.Buffer)
	extra := new(bytes.Buffer)
	extraStart := start + 2 + 12*uint32(len(entries)) + 4

	binary.Write(head, le, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(head, le, e.tag)
		binary.Write(head, le, e.typ)
		binary.Write(head, le, e.count)
		if len(e.data) <= 4 {
			v := make([]byte, 4)
			copy(v, e.data)
			head.Write(v)
			continue
		}
		binary.Write(head, le, extraStart+uint32(extra.Len()))
		extra.Write(e.data)
		if extra.Len()%2 == 1 {
			extra.WriteByte(0)
		}
	}
	binary.Write(head, le, uint32(0))

	return append(head.Bytes(), extra.Bytes()...)
}

// TIFF returns a little-endian TIFF block holding tags.
func TIFF(tags Tags) []byte {
	var ifd0 []entry
	if tags.Make != "" {
		ifd0 = append(ifd0, ascii(0x010F, tags.Make))
	}
	if tags.Model != "" {
		ifd0 = append(ifd0, ascii(0x0110, tags.Model))
	}
	if tags.Orientation != 0 {
		ifd0 = append(ifd0, short(0x0112, tags.Orientation))
	}
	if tags.Software != "" {
		ifd0 = append(ifd0, ascii(0x0131, tags.Software))
	}
	if tags.DateTime != "" {
		ifd0 = append(ifd0, ascii(0x0132, tags.DateTime))
	}

	out := []byte{'I', 'I', 42, 0, 8, 0, 0, 0}
	var sub [][]entry
	if tags.DateTimeOriginal != "" {
		ifd0 = append(ifd0, long(0x8769, 0))
		sub = append(sub, []entry{ascii(0x9003, tags.DateTimeOriginal)})
	}
	if g := tags.GPS; g != nil {
		ifd0 = append(ifd0, long(0x8825, 0))
		gps := []entry{
			rationals(0x0002, g.Lat[0], g.Lat[1], g.Lat[2]),
			rationals(0x0004, g.Long[0], g.Long[1], g.Long[2]),
			{tag: 0x0005, typ: typeByte, count: 1, data: []byte{g.AltRef}},
			rationals(0x0006, g.Alt),
		}
		if g.LatRef != "" {
			gps = append(gps, ascii(0x0001, g.LatRef))
		}
		if g.LongRef != "" {
			gps = append(gps, ascii(0x0003, g.LongRef))
		}
		sub = append(sub, gps)
	}

	// pointer values do not change the IFD lengths
	start := 8 + uint32(len(ifd(8, ifd0)))
	starts := make([]uint32, len(sub))
	for i, entries := range sub {
		starts[i] = start
		start += uint32(len(ifd(start, entries)))
	}
	for i, p := 0, 0; i < len(ifd0); i++ {
		if ifd0[i].tag == 0x8769 || ifd0[i].tag == 0x8825 {
			ifd0[i] = long(ifd0[i].tag, starts[p])
			p++
		}
	}

	out = append(out, ifd(8, ifd0)...)
	for i, entries := range sub {
		out = append(out, ifd(starts[i], entries)...)
	}
	return out
}

// JPEG returns a minimal JPEG stream whose APP1 segment carries tags.
func JPEG(tags Tags) []byte {
	payload := append([]byte("Exif\x00\x00"), TIFF(tags)...)

	b := []byte{0xFF, 0xD8, 0xFF, 0xE1}
	size := make([]byte, 2)
	binary.BigEndian.PutUint16(size, uint16(len(payload)+2))
	b = append(b, size...)
	b = append(b, payload...)

	return append(b, 0xFF, 0xD9)
}

// WriteFile writes content to dir/name, creating dir, and sets its
// modification time.
func WriteFile(t testing.TB, dir, name string, content []byte, modified time.Time) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(p, modified, modified); err != nil {
		t.Fatal(err)
	}

	return p
}
