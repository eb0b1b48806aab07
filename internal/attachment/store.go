// Package attachment stores uploaded ticket files on local disk.
package attachment

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Store accepts uploads and returns their stored metadata.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (*domain.Attachment, error)
	Remove(ctx context.Context, a *domain.Attachment) error
}

// DiskStore writes files under a root directory with generated names.
type DiskStore struct {
	dir      string
	maxBytes int64
}

func NewDiskStore(dir string, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &DiskStore{dir: dir, maxBytes: maxBytes}, nil
}

// Save reads at most maxBytes from r. Larger uploads are rejected with a
// validation error before anything is written.
func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader) (*domain.Attachment, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, errorutil.NewValidationError("attachment too large", map[string]any{
			"max_bytes": s.maxBytes,
		})
	}
	if len(data) == 0 {
		return nil, errorutil.NewValidationError("attachment is empty", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	original := filepath.Base(strings.TrimSpace(filename))
	if original == "." || original == string(filepath.Separator) {
		original = "upload"
	}
	mtype := mimetype.Detect(data)
	stored := uuid.NewString() + storedExtension(original, mtype)
	path := filepath.Join(s.dir, stored)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write attachment: %w", err)
	}

	return &domain.Attachment{
		FileName:    original,
		StoragePath: path,
		MimeType:    mtype.String(),
		SizeBytes:   int64(len(data)),
	}, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *DiskStore) Remove(_ context.Context, a *domain.Attachment) error {
	if a == nil || a.StoragePath == "" {
		return nil
	}
	rel, err := filepath.Rel(s.dir, a.StoragePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("attachment path %q outside store", a.StoragePath)
	}
	if err := os.Remove(a.StoragePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func storedExtension(name string, mtype *mimetype.MIME) string {
	if ext := filepath.Ext(name); ext != "" {
		return strings.ToLower(ext)
	}
	return mtype.Extension()
}
