// Package media provides the video transcoding capability used when moving a
// clip between the separate-file and embedded-payload conventions.
package media

import "context"

// Transcoder converts a media file into the container format implied by the
// output path. Implementations must overwrite output if it already exists and
// must report failure when no playable output was produced.
type Transcoder interface {
	Transcode(ctx context.Context, input, output string) error
}

// TranscoderFunc adapts a plain function to the Transcoder interface.
type TranscoderFunc func(ctx context.Context, input, output string) error

// Transcode calls f(ctx, input, output).
func (f TranscoderFunc) Transcode(ctx context.Context, input, output string) error {
	return f(ctx, input, output)
}
