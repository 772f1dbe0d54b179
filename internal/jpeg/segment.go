// Package jpeg provides the small subset of JPEG byte-structure handling the
// motion photo container needs: marker constants, marker segment encoding,
// segment insertion after the start-of-image marker and boundary search.
// It never decodes pixel data.
package jpeg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	markerStart = 0xFF
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA

	// MarkerAPP1 is the application segment type carrying XMP metadata.
	MarkerAPP1 = 0xE1
)

// SegmentOverhead is the size of the marker code plus the length field.
const SegmentOverhead = 4

// maxPayload is the largest payload a 16-bit length field can describe.
const maxPayload = 0xFFFF - 2

var (
	// SOI is the start-of-image marker.
	SOI = []byte{markerStart, markerSOI}
	// EOI is the end-of-image marker.
	EOI = []byte{markerStart, markerEOI}
)

// Static errors for segment handling.
var (
	// ErrNotJPEG is returned when data does not begin with the SOI marker.
	ErrNotJPEG = errors.New("jpeg: missing start-of-image marker FF D8")
	// ErrSegmentTooLarge is returned when a payload does not fit a 16-bit length field.
	ErrSegmentTooLarge = errors.New("jpeg: segment payload exceeds 65533 bytes")
	// ErrTruncated is returned when a marker segment runs past the end of data.
	ErrTruncated = errors.New("jpeg: truncated marker segment")
)

// Segment is a marker segment: FF <Marker> <length:2> <Payload>, where the
// big-endian length counts itself plus the payload.
type Segment struct {
	Marker  byte
	Payload []byte
}

// Len returns the encoded size of the segment.
func (s Segment) Len() int {
	return SegmentOverhead + len(s.Payload)
}

// Bytes encodes the segment.
func (s Segment) Bytes() ([]byte, error) {
	var out bytes.Buffer
	if err := s.writeTo(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (s Segment) writeTo(out *bytes.Buffer) error {
	if len(s.Payload) > maxPayload {
		return fmt.Errorf("%w: got %d", ErrSegmentTooLarge, len(s.Payload))
	}
	out.Grow(s.Len())
	out.WriteByte(markerStart)
	out.WriteByte(s.Marker)
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(s.Payload)+2))
	out.Write(length[:])
	out.Write(s.Payload)
	return nil
}

// IsJPEG reports whether data begins with the SOI marker.
func IsJPEG(data []byte) bool {
	return bytes.HasPrefix(data, SOI)
}

// InsertAfterSOI returns a copy of image with segs inserted directly after
// the start-of-image marker. Everything after the marker, including the
// trailing EOI, is kept verbatim.
func InsertAfterSOI(image []byte, segs ...Segment) ([]byte, error) {
	if !IsJPEG(image) {
		return nil, ErrNotJPEG
	}
	size := len(image)
	for _, s := range segs {
		size += s.Len()
	}
	var out bytes.Buffer
	out.Grow(size)
	out.Write(image[:len(SOI)])
	for _, s := range segs {
		if err := s.writeTo(&out); err != nil {
			return nil, err
		}
	}
	out.Write(image[len(SOI):])
	return out.Bytes(), nil
}

// LastIndexEOI returns the index of the last FF D9 pair in data, or -1.
// The scan runs backward from the end so that a marker occurring inside an
// earlier segment payload is never preferred over the terminating one.
func LastIndexEOI(data []byte) int {
	for i := len(data) - 2; i >= 0; i-- {
		if data[i+1] == markerEOI && data[i] == markerStart {
			return i
		}
	}
	return -1
}

// EndsAt reports whether the two bytes before index end form an EOI marker.
func EndsAt(data []byte, end int) bool {
	if end < len(EOI) || end > len(data) {
		return false
	}
	return data[end-2] == markerStart && data[end-1] == markerEOI
}

// Segments walks the marker segments that follow SOI and stops at the start
// of scan or end of image. Payloads alias data.
func Segments(data []byte) ([]Segment, error) {
	if !IsJPEG(data) {
		return nil, ErrNotJPEG
	}
	var segs []Segment
	pos := len(SOI)
	for pos+1 < len(data) {
		if data[pos] != markerStart {
			pos++
			continue
		}
		for pos < len(data) && data[pos] == markerStart {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++
		if marker == markerSOS || marker == markerEOI {
			break
		}
		// Standalone markers carry no length field.
		if (marker >= 0xD0 && marker <= 0xD7) || marker == 0x01 || marker == markerSOI {
			continue
		}
		if pos+1 >= len(data) {
			return nil, ErrTruncated
		}
		segLen := int(binary.BigEndian.Uint16(data[pos:]))
		if segLen < 2 || pos+segLen > len(data) {
			return nil, fmt.Errorf("%w: marker FF %02X length %d at offset %d", ErrTruncated, marker, segLen, pos-2)
		}
		segs = append(segs, Segment{Marker: marker, Payload: data[pos+2 : pos+segLen]})
		pos += segLen
	}
	return segs, nil
}
