package orchestrator

import (
	"fmt"
	"strings"

	"imgto3d/internal/api"
)

// MaxFileSize is the per-file upload ceiling enforced before any network call.
const MaxFileSize = 10 << 20 // 10 MiB

// allowedContentTypes matches the raster types the backend will presign.
var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/heic": {},
}

// RejectedFile couples a rejected candidate with the reason it was excluded.
type RejectedFile struct {
	File   api.LocalFile
	Reason string
}

// AllowedContentType reports whether ct is an accepted raster image type.
func AllowedContentType(ct string) bool {
	_, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(ct))]
	return ok
}

// ValidateFiles filters candidates by declared content type and size. It is a
// pure local gate: it runs before any upload slot is requested so presigned
// URLs are never wasted on bytes that would be rejected anyway.
func ValidateFiles(files []api.LocalFile) (accepted []api.LocalFile, rejected []RejectedFile) {
	for _, f := range files {
		if !AllowedContentType(f.ContentType) {
			rejected = append(rejected, RejectedFile{
				File:   f,
				Reason: fmt.Sprintf("unsupported content type %q", f.ContentType),
			})
			continue
		}
		if f.Size > MaxFileSize {
			rejected = append(rejected, RejectedFile{
				File:   f,
				Reason: fmt.Sprintf("file size %d exceeds limit of %d bytes", f.Size, MaxFileSize),
			})
			continue
		}
		accepted = append(accepted, f)
	}
	return accepted, rejected
}
