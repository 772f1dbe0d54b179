// Package convert provides the file-level Combine and Extract operations.
// It reads inputs, runs the transcoder inside a scoped workspace, splices
// containers with package motionphoto and commits outputs only after every
// preceding step has succeeded.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"

	"github.com/maauso/motionphoto/internal/jpeg"
	"github.com/maauso/motionphoto/internal/media"
	"github.com/maauso/motionphoto/internal/motionphoto"
	"github.com/maauso/motionphoto/internal/storage"
)

// Service converts between separate still/video pairs and motion photos.
//
// Dependencies:
//   - media.Transcoder: container conversion of the video clip
//   - storage.Storage: scoped workspaces and optional upload
type Service struct {
	transcoder media.Transcoder
	store      storage.Storage
	validator  *validator.Validate
	logger     *slog.Logger

	imageExt string
	videoExt string
	embedExt string
}

// Option configures a Service.
type Option func(*Service)

// WithImageExt sets the extension of the still image written by Extract.
func WithImageExt(ext string) Option {
	return func(s *Service) {
		if ext != "" {
			s.imageExt = ext
		}
	}
}

// WithVideoExt sets the extension of the video written by Extract.
func WithVideoExt(ext string) Option {
	return func(s *Service) {
		if ext != "" {
			s.videoExt = ext
		}
	}
}

// WithEmbedExt sets the container format of the video embedded by Combine.
func WithEmbedExt(ext string) Option {
	return func(s *Service) {
		if ext != "" {
			s.embedExt = ext
		}
	}
}

// NewService creates a new Service.
func NewService(transcoder media.Transcoder, store storage.Storage, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		transcoder: transcoder,
		store:      store,
		validator:  validator.New(),
		logger:     logger,
		imageExt:   ".jpg",
		videoExt:   ".mov",
		embedExt:   ".mp4",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Combine transcodes the video, embeds it after the still image and writes
// the motion photo to req.OutputPath. Nothing is written to OutputPath
// unless every step succeeds.
func (s *Service) Combine(ctx context.Context, req CombineRequest) (*CombineResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	still, err := readFile(req.StillPath)
	if err != nil {
		return nil, err
	}
	if !jpeg.IsJPEG(still) {
		return nil, fmt.Errorf("%s: %w: %w", req.StillPath, motionphoto.ErrFormat, jpeg.ErrNotJPEG)
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		return nil, &IOError{Op: "read", Path: req.VideoPath, Err: err}
	}

	ws, err := s.store.NewWorkspace(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire workspace: %w", err)
	}
	defer s.cleanup(ws)

	embedded := ws.Path("embed" + s.embedExt)
	if err := s.transcode(ctx, req.VideoPath, embedded); err != nil {
		return nil, err
	}

	video, err := readFile(embedded)
	if err != nil {
		return nil, err
	}

	c, err := motionphoto.Assemble(still, video)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.StillPath, err)
	}

	if err := storage.WriteFileAtomic(req.OutputPath, c.Bytes); err != nil {
		return nil, &IOError{Op: "write", Path: req.OutputPath, Err: err}
	}

	s.logger.Info("motion photo written",
		slog.String("output", req.OutputPath),
		slog.Int("offset", c.Offset),
		slog.Int("passes", c.Passes),
		slog.String("image_size", humanize.Bytes(uint64(c.ImageLen))),
		slog.String("video_size", humanize.Bytes(uint64(len(video)))),
	)

	res := &CombineResult{
		OutputPath: req.OutputPath,
		Offset:     c.Offset,
		ImageLen:   c.ImageLen,
		VideoLen:   len(video),
		Passes:     c.Passes,
	}

	if req.Upload {
		if res.URL, err = s.upload(ctx, req.OutputPath); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Extract splits a motion photo into a still image and a transcoded video
// written to req.OutputPrefix plus the configured extensions. The video is
// committed first; if the image cannot be written the video is removed again.
func (s *Service) Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	imagePath := req.OutputPrefix + s.imageExt
	videoPath := req.OutputPrefix + s.videoExt
	if err := checkOutputs(req.CombinedPath, imagePath, videoPath); err != nil {
		return nil, err
	}

	data, err := readFile(req.CombinedPath)
	if err != nil {
		return nil, err
	}

	parts, err := motionphoto.Split(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.CombinedPath, err)
	}
	if len(parts.Video) == 0 {
		return nil, fmt.Errorf("%s: %w: %w", req.CombinedPath, motionphoto.ErrFormat, ErrNoVideo)
	}

	s.logger.Debug("split motion photo",
		slog.String("input", req.CombinedPath),
		slog.String("boundary", parts.Boundary.String()),
		slog.Int("image_len", len(parts.Image)),
		slog.Int("payload_len", len(parts.Video)),
	)

	ws, err := s.store.NewWorkspace(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire workspace: %w", err)
	}
	defer s.cleanup(ws)

	payload, err := ws.SaveTemp(ctx, "payload"+s.embedExt, bytes.NewReader(parts.Video))
	if err != nil {
		return nil, &IOError{Op: "write", Path: ws.Path("payload" + s.embedExt), Err: err}
	}

	transcoded := ws.Path("video" + s.videoExt)
	if err := s.transcode(ctx, payload, transcoded); err != nil {
		return nil, err
	}

	if err := storage.CommitFile(transcoded, videoPath); err != nil {
		return nil, &IOError{Op: "write", Path: videoPath, Err: err}
	}
	if err := storage.WriteFileAtomic(imagePath, parts.Image); err != nil {
		if rmErr := os.Remove(videoPath); rmErr != nil {
			s.logger.Warn("failed to remove video after image write failure",
				slog.String("path", videoPath),
				slog.String("error", rmErr.Error()),
			)
		}
		return nil, &IOError{Op: "write", Path: imagePath, Err: err}
	}

	s.logger.Info("motion photo extracted",
		slog.String("image", imagePath),
		slog.String("video", videoPath),
		slog.String("boundary", parts.Boundary.String()),
		slog.String("image_size", humanize.Bytes(uint64(len(parts.Image)))),
		slog.String("payload_size", humanize.Bytes(uint64(len(parts.Video)))),
	)

	res := &ExtractResult{
		ImagePath:  imagePath,
		VideoPath:  videoPath,
		ImageLen:   len(parts.Image),
		PayloadLen: len(parts.Video),
		Boundary:   parts.Boundary.String(),
	}

	if req.Upload {
		if res.ImageURL, err = s.upload(ctx, imagePath); err != nil {
			return res, err
		}
		if res.VideoURL, err = s.upload(ctx, videoPath); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *Service) validate(req any) error {
	if err := s.validator.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// checkOutputs rejects output paths that would overwrite each other or the input.
func checkOutputs(input, imagePath, videoPath string) error {
	in := filepath.Clean(input)
	switch {
	case filepath.Clean(imagePath) == filepath.Clean(videoPath):
		return fmt.Errorf("%w: image and video outputs are both %s", ErrInvalidRequest, imagePath)
	case filepath.Clean(imagePath) == in:
		return fmt.Errorf("%w: image output %s would overwrite the input", ErrInvalidRequest, imagePath)
	case filepath.Clean(videoPath) == in:
		return fmt.Errorf("%w: video output %s would overwrite the input", ErrInvalidRequest, videoPath)
	}
	return nil
}

func (s *Service) transcode(ctx context.Context, input, output string) error {
	s.logger.Debug("transcoding",
		slog.String("input", input),
		slog.String("output", output),
	)
	if err := s.transcoder.Transcode(ctx, input, output); err != nil {
		return &TranscodeError{Input: input, Output: output, Err: err}
	}
	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		return &TranscodeError{Input: input, Output: output, Err: media.ErrNoOutput}
	}
	return nil
}

func (s *Service) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path was just written by this service
	if err != nil {
		return "", &IOError{Op: "read", Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	url, err := s.store.UploadToS3(ctx, filepath.Base(path), f)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	s.logger.Info("uploaded", slog.String("path", path), slog.String("url", url))
	return url, nil
}

func (s *Service) cleanup(ws *storage.Workspace) {
	if err := ws.Cleanup(); err != nil {
		s.logger.Warn("failed to remove workspace",
			slog.String("dir", ws.Dir()),
			slog.String("error", err.Error()),
		)
	}
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 - user-supplied input path
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// IsUsageError reports whether err was caused by a malformed request rather
// than by the inputs or the environment.
func IsUsageError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
