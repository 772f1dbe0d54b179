package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// Static errors for transcoding.
var (
	// ErrNoOutput is returned when ffmpeg exits cleanly but leaves no output file.
	ErrNoOutput = errors.New("ffmpeg produced no output")
	// ErrSameInputOutput is returned when input and output name the same file.
	ErrSameInputOutput = errors.New("input and output must differ")
)

// FFmpegTranscoder implements Transcoder using the ffmpeg CLI.
type FFmpegTranscoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	logger     *slog.Logger
}

// NewFFmpegTranscoder creates a new FFmpegTranscoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegTranscoder(ffmpegPath string, logger *slog.Logger) *FFmpegTranscoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegTranscoder{ffmpegPath: ffmpegPath, logger: logger}
}

// Transcode converts input into the container named by output's extension.
// Streams are re-muxed or re-encoded at ffmpeg's discretion; the call blocks
// until ffmpeg exits or ctx is done.
func (p *FFmpegTranscoder) Transcode(ctx context.Context, input, output string) error {
	if input == output {
		return fmt.Errorf("%w: %s", ErrSameInputOutput, input)
	}

	args := []string{
		"-y",        // Overwrite output file without asking
		"-i", input, // Input file
		output, // Output file, container chosen from extension
	}

	start := time.Now()
	if err := p.runFFmpeg(ctx, args); err != nil {
		return err
	}

	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrNoOutput, output)
	}

	p.logger.Debug("ffmpeg finished",
		slog.String("input", input),
		slog.String("output", output),
		slog.Int64("output_bytes", info.Size()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpegTranscoder) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
