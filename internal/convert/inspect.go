package convert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/motionphoto/internal/motionphoto"
)

// Inspect locates the still/video boundary of the file at path and reports
// the layout. It writes nothing and does not run the transcoder.
func (s *Service) Inspect(ctx context.Context, path string) (*InspectResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidRequest)
	}

	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	parts, err := motionphoto.Split(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	res := &InspectResult{
		Path:     path,
		Size:     len(data),
		ImageLen: len(parts.Image),
		VideoLen: len(parts.Video),
		Boundary: parts.Boundary.String(),
	}
	if parts.Packet != nil {
		res.HasPacket = true
		res.Offset = parts.Packet.Offset
		res.OffsetMatches = res.Offset == res.ImageLen || res.Offset == res.VideoLen
	}

	s.logger.Debug("inspected",
		slog.String("path", path),
		slog.String("boundary", res.Boundary),
		slog.Bool("offset_matches", res.OffsetMatches),
	)
	return res, nil
}
