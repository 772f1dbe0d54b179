package convert

// CombineRequest names the inputs and output of a Combine call.
type CombineRequest struct {
	// StillPath is the JPEG still image.
	StillPath string `validate:"required"`
	// VideoPath is the separate video clip.
	VideoPath string `validate:"required,nefield=StillPath"`
	// OutputPath receives the combined motion photo.
	OutputPath string `validate:"required,nefield=StillPath,nefield=VideoPath"`
	// Upload publishes the output through the configured storage.
	Upload bool
}

// CombineResult describes a written motion photo.
type CombineResult struct {
	OutputPath string
	// Offset is the value recorded in the XMP packet.
	Offset int
	// ImageLen is the length of the still-image portion of the output.
	ImageLen int
	// VideoLen is the length of the embedded video payload.
	VideoLen int
	// Passes is the number of packet builds before the offset settled.
	Passes int
	// URL is set when the output was uploaded.
	URL string
}

// ExtractRequest names the input and output prefix of an Extract call.
type ExtractRequest struct {
	// CombinedPath is the motion photo to split.
	CombinedPath string `validate:"required"`
	// OutputPrefix is extended with the image and video extensions to form
	// the two output paths.
	OutputPrefix string `validate:"required"`
	// Upload publishes both outputs through the configured storage.
	Upload bool
}

// ExtractResult describes the files written by Extract.
type ExtractResult struct {
	ImagePath string
	VideoPath string
	// ImageLen is the length of the still image written to ImagePath.
	ImageLen int
	// PayloadLen is the length of the embedded video before transcoding.
	PayloadLen int
	// Boundary names the rule that located the split point.
	Boundary string
	ImageURL string
	VideoURL string
}

// InspectResult describes the layout of a motion photo without writing anything.
type InspectResult struct {
	Path      string `json:"path"`
	Size      int    `json:"size"`
	ImageLen  int    `json:"image_len"`
	VideoLen  int    `json:"video_len"`
	Boundary  string `json:"boundary"`
	HasPacket bool   `json:"has_packet"`
	// Offset is the recorded MicroVideoOffset, or zero when HasPacket is false.
	Offset int `json:"offset,omitempty"`
	// OffsetMatches reports whether Offset agrees with the located boundary
	// under either offset convention.
	OffsetMatches bool `json:"offset_matches"`
}
