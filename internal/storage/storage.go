// Package storage provides scoped temporary storage for intermediate
// transcoder output, crash-safe writes of final outputs and optional S3
// publishing of converted files.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for temporary and persistent file storage.
type Storage interface {
	// NewWorkspace acquires a fresh, isolated temporary directory. The caller
	// must call Cleanup on the returned Workspace on every exit path.
	NewWorkspace(ctx context.Context) (*Workspace, error)

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
