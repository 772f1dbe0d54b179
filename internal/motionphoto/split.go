package motionphoto

import (
	"bytes"
	"fmt"

	"github.com/maauso/motionphoto/internal/jpeg"
	"github.com/maauso/motionphoto/internal/xmp"
)

// Boundary describes how the still/video boundary was located.
type Boundary int

const (
	// BoundaryLastEOI means the boundary is the last FF D9 pair in the file.
	BoundaryLastEOI Boundary = iota
	// BoundaryOffset means the recorded offset is the still-image length.
	BoundaryOffset
	// BoundaryOffsetFromEnd means the recorded offset is the video length.
	BoundaryOffsetFromEnd
)

func (b Boundary) String() string {
	switch b {
	case BoundaryOffset:
		return "offset"
	case BoundaryOffsetFromEnd:
		return "offset-from-end"
	default:
		return "last-eoi"
	}
}

// Parts is the result of splitting a motion photo.
type Parts struct {
	// Image is the still-image portion, up to and including its EOI marker.
	// A previously inserted motion photo APP1 segment is kept.
	Image []byte
	// Video is everything after the still-image portion.
	Video []byte
	// Packet holds the motion photo attributes when the still carries them.
	Packet *xmp.Packet
	// Boundary tells which rule located the split point.
	Boundary Boundary
}

// Split locates the end of the still-image portion and splits data there.
// Image and Video alias data.
//
// When the still carries a motion photo packet whose offset lands right after
// an FF D9 pair, that position wins. Otherwise the last FF D9 in data is used.
func Split(data []byte) (*Parts, error) {
	packet := findPacket(data)

	end, how := -1, BoundaryLastEOI
	if packet != nil {
		end, how = boundaryFromPacket(data, packet)
	}
	if end < 0 {
		idx := jpeg.LastIndexEOI(data)
		if idx < 0 {
			return nil, fmt.Errorf("%w: end-of-image marker FF D9 not found", ErrFormat)
		}
		end, how = idx+len(jpeg.EOI), BoundaryLastEOI
	}

	return &Parts{
		Image:    data[:end],
		Video:    data[end:],
		Packet:   packet,
		Boundary: how,
	}, nil
}

func boundaryFromPacket(data []byte, p *xmp.Packet) (int, Boundary) {
	if p.Offset > 0 && jpeg.EndsAt(data, p.Offset) {
		return p.Offset, BoundaryOffset
	}
	if fromEnd := len(data) - p.Offset; p.Offset > 0 && jpeg.EndsAt(data, fromEnd) {
		return fromEnd, BoundaryOffsetFromEnd
	}
	return -1, BoundaryLastEOI
}

// findPacket returns the first motion photo packet found in the APP1
// segments of data, or nil. Malformed segment structure is not an error
// here; the caller falls back to searching for the EOI marker.
func findPacket(data []byte) *xmp.Packet {
	if !jpeg.IsJPEG(data) {
		return nil
	}
	segs, err := jpeg.Segments(data)
	if err != nil {
		return nil
	}
	for _, seg := range segs {
		if seg.Marker != jpeg.MarkerAPP1 || !isXMP(seg.Payload) {
			continue
		}
		if p, err := xmp.Parse(seg.Payload); err == nil {
			return p
		}
	}
	return nil
}

var (
	xpacketPrefix   = []byte("<?xpacket")
	namespacePrefix = append([]byte(xmp.Namespace), 0)
)

func isXMP(payload []byte) bool {
	return bytes.HasPrefix(payload, xpacketPrefix) ||
		bytes.HasPrefix(payload, namespacePrefix)
}
