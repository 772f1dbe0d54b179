// Package xmp builds and reads the XMP packet that marks a JPEG as a motion
// photo and records where the embedded video begins.
package xmp

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Static errors for packet construction and parsing.
var (
	// ErrNegativeOffset is returned when Build is called with a negative offset.
	ErrNegativeOffset = errors.New("xmp: offset must not be negative")
	// ErrNotMotionPhoto is returned when a packet lacks the MicroVideo flag.
	ErrNotMotionPhoto = errors.New("xmp: packet does not describe a motion photo")
	// ErrMissingOffset is returned when a motion photo packet has no offset attribute.
	ErrMissingOffset = errors.New("xmp: MicroVideoOffset attribute missing")
)

// Namespace is the identifier that prefixes XMP payloads in standard APP1
// segments. Motion photo packets written by Build carry no such prefix; it is
// only recognized when reading.
const Namespace = "http://ns.adobe.com/xap/1.0/"

// The packet text is a compatibility contract with existing viewers and must
// stay byte-for-byte stable. The offset is the only variable field.
const (
	packetHead = "<?xpacket begin='\ufeff' id='W5M0MpCehiHzreSzNTczkc9d'>\n" +
		"<x:xmpmeta xmlns:x='adobe:ns:meta/' x:xmptk='Python'>\n" +
		" <rdf:RDF xmlns:rdf='http://www.w3.org/1999/02/22-rdf-syntax-ns#'>\n" +
		"  <rdf:Description xmlns:GCamera='http://ns.google.com/photos/1.0/camera/'\n" +
		"   GCamera:MicroVideo='1'\n" +
		"   GCamera:MicroVideoVersion='1'\n" +
		"   GCamera:MicroVideoOffset='"
	packetTail = "'/>\n" +
		" </rdf:RDF>\n" +
		"</x:xmpmeta>\n" +
		"<?xpacket end='w'>"
)

// Build returns the packet for the given offset, the position in the file
// where the embedded video begins. The result is the APP1 payload, not a
// complete segment.
func Build(offset int) ([]byte, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeOffset, offset)
	}
	digits := strconv.Itoa(offset)
	buf := make([]byte, 0, len(packetHead)+len(digits)+len(packetTail))
	buf = append(buf, packetHead...)
	buf = append(buf, digits...)
	buf = append(buf, packetTail...)
	return buf, nil
}

// Len reports len(Build(offset)) without building the packet.
func Len(offset int) int {
	return len(packetHead) + len(strconv.Itoa(offset)) + len(packetTail)
}

// Packet holds the motion photo attributes read from an XMP payload.
type Packet struct {
	Version int
	Offset  int
}

var (
	reMicroVideo        = regexp.MustCompile(`GCamera:MicroVideo=["']([^"']*)["']`)
	reMicroVideoVersion = regexp.MustCompile(`GCamera:MicroVideoVersion=["']([^"']*)["']`)
	reMicroVideoOffset  = regexp.MustCompile(`GCamera:MicroVideoOffset=["']([^"']*)["']`)
)

// Parse reads motion photo attributes from an XMP payload. A leading
// namespace prefix (as used by standard XMP APP1 segments) is tolerated.
func Parse(payload []byte) (*Packet, error) {
	text := string(payload)

	getStr := func(re *regexp.Regexp) (string, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) != 2 {
			return "", false
		}
		return m[1], true
	}

	if v, ok := getStr(reMicroVideo); !ok || v != "1" {
		return nil, ErrNotMotionPhoto
	}

	p := &Packet{Version: 1}
	if v, ok := getStr(reMicroVideoVersion); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("xmp: invalid MicroVideoVersion %q: %w", v, err)
		}
		p.Version = n
	}

	v, ok := getStr(reMicroVideoOffset)
	if !ok {
		return nil, ErrMissingOffset
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("xmp: invalid MicroVideoOffset %q: %w", v, err)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeOffset, n)
	}
	p.Offset = n
	return p, nil
}
