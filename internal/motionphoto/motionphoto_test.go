package motionphoto

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/motionphoto/internal/jpeg"
	"github.com/maauso/motionphoto/internal/xmp"
)

// stillImage returns a JPEG-shaped buffer of exactly n bytes (n >= 8):
// FF D8, one APP0 segment, FF D9.
func stillImage(t *testing.T, n int) []byte {
	t.Helper()
	require.GreaterOrEqual(t, n, 8)
	img := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	img = binary.BigEndian.AppendUint16(img, uint16(n-8+2))
	img = append(img, bytes.Repeat([]byte{0x11}, n-8)...)
	img = append(img, 0xFF, 0xD9)
	require.Len(t, img, n)
	return img
}

func videoPayload(n int) []byte {
	return bytes.Repeat([]byte{0x22}, n)
}

// recordedOffset parses the offset out of the packet actually written.
func recordedOffset(t *testing.T, c *Container) int {
	t.Helper()
	p, err := xmp.Parse(c.Packet)
	require.NoError(t, err)
	return p.Offset
}

func TestAssemble_EndToEnd(t *testing.T) {
	still := stillImage(t, 50)
	video := videoPayload(1000)

	c, err := Assemble(still, video)
	require.NoError(t, err)

	wantImageLen := 2 + 4 + len(c.Packet) + 48
	assert.Len(t, c.Bytes, wantImageLen+1000)
	assert.Equal(t, wantImageLen, c.Offset)
	assert.Equal(t, wantImageLen, recordedOffset(t, c))
	assert.Equal(t, wantImageLen, c.ImageLen)

	// Layout: SOI, APP1 wrapper, packet, original remainder, video.
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xE1}, c.Bytes[:4])
	assert.Equal(t, uint16(2+len(c.Packet)), binary.BigEndian.Uint16(c.Bytes[4:6]))
	assert.Equal(t, c.Packet, c.Bytes[6:6+len(c.Packet)])
	assert.Equal(t, still[2:], c.Bytes[6+len(c.Packet):wantImageLen])
	assert.Equal(t, video, c.Video())

	parts, err := Split(c.Bytes)
	require.NoError(t, err)
	assert.Len(t, parts.Image, wantImageLen)
	assert.Len(t, parts.Video, 1000)
	assert.Equal(t, c.Image(), parts.Image)
	assert.Equal(t, video, parts.Video)
}

func TestAssemble_OffsetIsSelfConsistent(t *testing.T) {
	for _, n := range []int{8, 50, 600, 4096, 60000} {
		still := stillImage(t, n)
		c, err := Assemble(still, videoPayload(10))
		require.NoError(t, err)

		h, r := 2, n-2
		assert.Equal(t, h+4+len(c.Packet)+r, recordedOffset(t, c), "still length %d", n)
	}
}

func TestAssemble_DoesNotModifyInputs(t *testing.T) {
	still := stillImage(t, 64)
	video := videoPayload(32)
	stillCopy := append([]byte(nil), still...)
	videoCopy := append([]byte(nil), video...)

	_, err := Assemble(still, video)
	require.NoError(t, err)
	assert.Equal(t, stillCopy, still)
	assert.Equal(t, videoCopy, video)
}

func TestAssemble_RejectsNonJPEG(t *testing.T) {
	_, err := Assemble([]byte("\x89PNG\r\n\x1a\n"), videoPayload(4))
	assert.ErrorIs(t, err, ErrFormat)
	assert.ErrorIs(t, err, jpeg.ErrNotJPEG)
}

func TestAssemble_EmptyVideo(t *testing.T) {
	c, err := Assemble(stillImage(t, 20), nil)
	require.NoError(t, err)
	assert.Equal(t, c.ImageLen, len(c.Bytes))
	assert.Empty(t, c.Video())
}

// Offsets in the packet cross decimal digit boundaries as the still grows.
// The segment length field must match the final packet on both sides of each
// boundary.
func TestResolveOffset_DigitBoundaries(t *testing.T) {
	base := len(jpeg.SOI) + jpeg.SegmentOverhead
	for _, target := range []int{999, 1000, 9999, 10000, 99999, 100000} {
		for delta := -6; delta <= 6; delta++ {
			remainder := target + delta - base - xmp.Len(target+delta)
			if remainder < 0 {
				continue
			}
			packet, offset, passes, err := resolveOffset(remainder)
			require.NoError(t, err)

			assert.Equal(t, base+len(packet)+remainder, offset, "remainder %d", remainder)
			assert.Equal(t, xmp.Len(offset), len(packet))
			assert.LessOrEqual(t, passes, maxOffsetPasses)

			seg, err := jpeg.Segment{Marker: jpeg.MarkerAPP1, Payload: packet}.Bytes()
			require.NoError(t, err)
			assert.Equal(t, uint16(2+len(packet)), binary.BigEndian.Uint16(seg[2:4]))
		}
	}
}

func TestResolveOffset_SmallOffsets(t *testing.T) {
	// The packet alone is hundreds of bytes, so offsets below that are
	// unreachable; exercise the equation for every small remainder instead.
	for remainder := 0; remainder < 2048; remainder++ {
		packet, offset, _, err := resolveOffset(remainder)
		require.NoError(t, err)
		require.Equal(t, 6+len(packet)+remainder, offset, "remainder %d", remainder)
	}
}

// A fixed two-pass computation (placeholder 0, then one rebuild) records a
// wrong offset when the rebuild pushes the offset past a power of ten. The
// fixpoint loop must not.
func TestResolveOffset_TwoPassWouldBeWrong(t *testing.T) {
	twoPass := func(remainder int) (recorded, actual int) {
		first := 6 + xmp.Len(0) + remainder
		recorded = 6 + xmp.Len(first) + remainder
		actual = 6 + xmp.Len(recorded) + remainder
		return recorded, actual
	}

	// first pass lands on 998: 3 digits instead of 1 adds two bytes -> 1000.
	remainder := 998 - 6 - xmp.Len(0)
	require.GreaterOrEqual(t, remainder, 0)

	recorded, actual := twoPass(remainder)
	assert.NotEqual(t, recorded, actual, "two passes should be off by one here")

	packet, offset, passes, err := resolveOffset(remainder)
	require.NoError(t, err)
	assert.Equal(t, 6+len(packet)+remainder, offset)
	assert.Greater(t, passes, 2)
}

func TestSplit_VideoStartingWithEOI(t *testing.T) {
	still := stillImage(t, 50)
	video := append([]byte{0xFF, 0xD9}, videoPayload(998)...)

	c, err := Assemble(still, video)
	require.NoError(t, err)

	parts, err := Split(c.Bytes)
	require.NoError(t, err)
	assert.Equal(t, BoundaryOffset, parts.Boundary)
	assert.Equal(t, c.Image(), parts.Image)
	assert.Equal(t, video, parts.Video)
}

func TestSplit_VideoContainingEOI(t *testing.T) {
	still := stillImage(t, 50)
	video := videoPayload(1000)
	copy(video[500:], []byte{0xFF, 0xD9})
	copy(video[998:], []byte{0xFF, 0xD9})

	c, err := Assemble(still, video)
	require.NoError(t, err)

	parts, err := Split(c.Bytes)
	require.NoError(t, err)
	assert.Len(t, parts.Image, c.ImageLen)
	assert.Equal(t, video, parts.Video)
}

func TestSplit_BackwardSearchWithoutPacket(t *testing.T) {
	// No motion photo packet: an FF D9 inside segment payload must not be
	// taken for the end of image.
	still := stillImage(t, 40)
	copy(still[10:], []byte{0xFF, 0xD9})
	video := videoPayload(100)
	data := append(append([]byte(nil), still...), video...)

	parts, err := Split(data)
	require.NoError(t, err)
	assert.Equal(t, BoundaryLastEOI, parts.Boundary)
	assert.Nil(t, parts.Packet)
	assert.Equal(t, still, parts.Image)
	assert.Equal(t, video, parts.Video)
}

func TestSplit_OffsetFromEnd(t *testing.T) {
	still := stillImage(t, 60)
	video := videoPayload(1000)
	packet, err := xmp.Build(len(video))
	require.NoError(t, err)
	image, err := jpeg.InsertAfterSOI(still, jpeg.Segment{Marker: jpeg.MarkerAPP1, Payload: packet})
	require.NoError(t, err)
	data := append(image, video...)

	parts, err := Split(data)
	require.NoError(t, err)
	assert.Equal(t, BoundaryOffsetFromEnd, parts.Boundary)
	assert.Equal(t, image, parts.Image)
	assert.Equal(t, video, parts.Video)
}

func TestSplit_StaleOffsetFallsBack(t *testing.T) {
	still := stillImage(t, 60)
	packet, err := xmp.Build(7)
	require.NoError(t, err)
	image, err := jpeg.InsertAfterSOI(still, jpeg.Segment{Marker: jpeg.MarkerAPP1, Payload: packet})
	require.NoError(t, err)
	data := append(image, videoPayload(300)...)

	parts, err := Split(data)
	require.NoError(t, err)
	assert.Equal(t, BoundaryLastEOI, parts.Boundary)
	require.NotNil(t, parts.Packet)
	assert.Equal(t, 7, parts.Packet.Offset)
	assert.Equal(t, image, parts.Image)
}

func TestSplit_NoEOI(t *testing.T) {
	_, err := Split([]byte{0xFF, 0xD8, 0x00, 0x01, 0x02, 0xD9, 0xFF})
	assert.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "FF D9")

	_, err = Split(nil)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestSplit_KeepsInsertedSegment(t *testing.T) {
	still := stillImage(t, 50)
	c, err := Assemble(still, videoPayload(10))
	require.NoError(t, err)

	parts, err := Split(c.Bytes)
	require.NoError(t, err)
	assert.NotEqual(t, still, parts.Image)
	assert.Len(t, parts.Image, len(still)+jpeg.SegmentOverhead+len(c.Packet))

	// Combining the extracted still again stacks a second packet.
	again, err := Assemble(parts.Image, parts.Video)
	require.NoError(t, err)
	assert.Greater(t, again.ImageLen, c.ImageLen)

	parts2, err := Split(again.Bytes)
	require.NoError(t, err)
	assert.Equal(t, again.Image(), parts2.Image)
}

func TestBoundary_String(t *testing.T) {
	assert.Equal(t, "last-eoi", BoundaryLastEOI.String())
	assert.Equal(t, "offset", BoundaryOffset.String())
	assert.Equal(t, "offset-from-end", BoundaryOffsetFromEnd.String())
}

func TestSplit_NamespacePrefixedPacket(t *testing.T) {
	prefix := append([]byte(xmp.Namespace), 0)

	// Image: SOI, APP1(namespace + packet), EOI. The offset equals its length.
	offset := 0
	for i := 0; i < 5; i++ {
		offset = len(jpeg.SOI) + jpeg.SegmentOverhead + len(prefix) + xmp.Len(offset) + len(jpeg.EOI)
	}
	packet, err := xmp.Build(offset)
	require.NoError(t, err)

	image, err := jpeg.InsertAfterSOI(append(append([]byte{}, jpeg.SOI...), jpeg.EOI...),
		jpeg.Segment{Marker: jpeg.MarkerAPP1, Payload: append(append([]byte{}, prefix...), packet...)})
	require.NoError(t, err)
	require.Len(t, image, offset)

	video := append([]byte{0xFF, 0xD9}, videoPayload(40)...)
	parts, err := Split(append(append([]byte{}, image...), video...))
	require.NoError(t, err)

	assert.Equal(t, BoundaryOffset, parts.Boundary)
	assert.Equal(t, image, parts.Image)
	assert.Equal(t, video, parts.Video)
	require.NotNil(t, parts.Packet)
	assert.Equal(t, offset, parts.Packet.Offset)
}

func TestIsXMP(t *testing.T) {
	assert.True(t, isXMP([]byte("<?xpacket begin=''?>")))
	assert.True(t, isXMP(append([]byte(xmp.Namespace+"\x00"), "<x:xmpmeta/>"...)))
	assert.False(t, isXMP([]byte(xmp.Namespace)))
	assert.False(t, isXMP([]byte("Exif\x00\x00")))

	// Repeated checks must not disturb the shared prefix.
	for i := 0; i < 3; i++ {
		isXMP([]byte("Exif\x00\x00"))
	}
	assert.Equal(t, append([]byte(xmp.Namespace), 0), namespacePrefix)
}
