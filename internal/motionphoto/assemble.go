// Package motionphoto splices a JPEG still and a video payload into a single
// motion photo container and splits such a container back apart.
//
// The container layout is
//
//	FF D8 | APP1(xmp packet) | original segments ... FF D9 | video payload
//
// where the packet's MicroVideoOffset equals the length of everything before
// the video payload.
package motionphoto

import (
	"errors"
	"fmt"

	"github.com/maauso/motionphoto/internal/jpeg"
	"github.com/maauso/motionphoto/internal/xmp"
)

// maxOffsetPasses bounds the offset/packet-length fixpoint search. The
// sequence of candidate offsets is non-decreasing and bounded, so it settles
// after a handful of passes even when it crosses a power of ten.
const maxOffsetPasses = 8

// Static errors for container assembly and splitting.
var (
	// ErrFormat is returned when the input is not a recognized still-image container.
	ErrFormat = errors.New("not a recognized still-image container")
	// ErrOffsetNotConverged is returned when the packet length never stabilizes.
	ErrOffsetNotConverged = errors.New("motion photo offset did not converge")
)

// Container is an assembled motion photo.
type Container struct {
	// Bytes is the complete file: still-image portion followed by the video.
	Bytes []byte
	// Packet is the XMP packet written into the APP1 segment.
	Packet []byte
	// Offset is the value recorded in Packet.
	Offset int
	// ImageLen is the length of the still-image portion.
	ImageLen int
	// Passes is the number of packet builds needed to reach a stable offset.
	Passes int
}

// Video returns the embedded video payload.
func (c *Container) Video() []byte {
	return c.Bytes[c.ImageLen:]
}

// Image returns the still-image portion, including the inserted APP1 segment.
func (c *Container) Image() []byte {
	return c.Bytes[:c.ImageLen]
}

// Assemble builds a motion photo from a JPEG still and an already transcoded
// video payload. Neither input is modified.
func Assemble(still, video []byte) (*Container, error) {
	if !jpeg.IsJPEG(still) {
		return nil, fmt.Errorf("%w: %w", ErrFormat, jpeg.ErrNotJPEG)
	}
	remainderLen := len(still) - len(jpeg.SOI)

	packet, offset, passes, err := resolveOffset(remainderLen)
	if err != nil {
		return nil, err
	}

	image, err := jpeg.InsertAfterSOI(still, jpeg.Segment{Marker: jpeg.MarkerAPP1, Payload: packet})
	if err != nil {
		return nil, err
	}
	if len(image) != offset {
		return nil, fmt.Errorf("motion photo: still portion is %d bytes, packet records %d", len(image), offset)
	}

	out := make([]byte, 0, len(image)+len(video))
	out = append(out, image...)
	out = append(out, video...)

	return &Container{
		Bytes:    out,
		Packet:   packet,
		Offset:   offset,
		ImageLen: len(image),
		Passes:   passes,
	}, nil
}

// resolveOffset finds the offset for which
//
//	offset == len(SOI) + SegmentOverhead + len(Build(offset)) + remainderLen
//
// The packet embeds the offset as decimal text, so its length depends on the
// value it describes. Starting from a placeholder of 0 the candidate is
// recomputed until it no longer changes.
func resolveOffset(remainderLen int) (packet []byte, offset, passes int, err error) {
	for passes < maxOffsetPasses {
		packet, err = xmp.Build(offset)
		if err != nil {
			return nil, 0, passes, err
		}
		passes++

		next := len(jpeg.SOI) + jpeg.SegmentOverhead + len(packet) + remainderLen
		if next == offset {
			return packet, offset, passes, nil
		}
		offset = next
	}
	return nil, 0, passes, fmt.Errorf("%w after %d passes", ErrOffsetNotConverged, passes)
}
