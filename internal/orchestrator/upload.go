package orchestrator

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"imgto3d/internal/api"
	"imgto3d/internal/infra"
)

// UploadError names the file whose transfer failed. The whole group is
// aborted on the first failure; presigned slots are single-use, so nothing
// is retried or requeued here.
type UploadError struct {
	Filename string
	Index    int
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("orchestrator: upload of %q (file %d) failed: %v", e.Filename, e.Index+1, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Uploader obtains presigned slots for a group and transfers file bytes to
// storage.
type Uploader struct {
	client      *api.Client
	logger      *infra.Logger
	concurrency int
}

// NewUploader constructs an Uploader. Concurrency bounds the number of
// in-flight PUTs per group; values below one are treated as one.
func NewUploader(client *api.Client, logger *infra.Logger, concurrency int) *Uploader {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Uploader{client: client, logger: logger, concurrency: concurrency}
}

// Upload requests one slot per file in a single presign call, then transfers
// each file to its slot. Transfers run in parallel, but the Kth returned
// ImageRef always corresponds to the Kth input file. A single failure cancels
// the remaining transfers and aborts the group.
func (u *Uploader) Upload(ctx context.Context, files []api.LocalFile) ([]api.ImageRef, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("orchestrator: no files to upload")
	}

	filenames := make([]string, len(files))
	contentTypes := make([]string, len(files))
	for i, f := range files {
		filenames[i] = f.Name
		contentTypes[i] = f.ContentType
	}

	presigned, err := u.client.PresignUploads(ctx, filenames, contentTypes)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: presign uploads: %w", err)
	}

	refs := make([]api.ImageRef, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for i := range files {
		g.Go(func() error {
			slot := presigned.URLs[i]
			if err := u.client.UploadFile(gctx, slot, files[i]); err != nil {
				return &UploadError{Filename: files[i].Name, Index: i, Err: err}
			}
			refs[i] = api.ImageRef{URL: slot.Key, Filename: files[i].Name}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	u.logger.Debug().Int("files", len(files)).Msg("orchestrator: group uploaded")
	return refs, nil
}
