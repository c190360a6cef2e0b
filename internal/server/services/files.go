package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/logging"
	"github.com/tkbstudios/tinet/internal/server/blobstore"
	"github.com/tkbstudios/tinet/internal/server/config"
	"github.com/tkbstudios/tinet/internal/server/metrics"
	"github.com/tkbstudios/tinet/internal/server/models"
	"github.com/tkbstudios/tinet/internal/server/validation"
)

const bytesPerMiB = 1024 * 1024

// UploadFile is one part of a multi-file upload.
type UploadFile struct {
	Name string
	Size int64
	Body io.ReadSeeker
}

// UploadOutcome reports what happened to one uploaded file. FileName is set
// only on success.
type UploadOutcome struct {
	Success  bool
	Message  string
	FileName string
}

// DeleteResult splits a delete batch into removed and missing names.
type DeleteResult struct {
	Deleted  []string
	NotFound []string
}

// Usage is the storage a user currently occupies.
type Usage struct {
	Bytes      int64
	MiB        float64
	QuotaBytes int64
}

// FileStore keeps per-user files under "{username}/" in a blob store and
// enforces the aggregate quota at upload time.
//
// The quota check and the write are not atomic: concurrent uploads of one
// user may overshoot the quota.
type FileStore struct {
	store      blobstore.Store
	quotaBytes int64
	logger     logging.Logger
}

func NewFileStore(store blobstore.Store, cfg *config.Config, logger logging.Logger) *FileStore {
	return &FileStore{
		store:      store,
		quotaBytes: cfg.QuotaBytes,
		logger:     logger.With("module", "files"),
	}
}

func userPrefix(identity *models.Identity) string {
	return identity.UserName + "/"
}

func isDirectoryMarker(key string) bool {
	return strings.HasSuffix(key, "/")
}

// Upload stores each file independently and returns one outcome per file in
// input order. It fails as a whole only when files is empty.
func (s *FileStore) Upload(ctx context.Context, identity *models.Identity, files []UploadFile) ([]UploadOutcome, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files provided", common.ErrorValidation)
	}

	outcomes := make([]UploadOutcome, 0, len(files))
	for _, f := range files {
		outcome, label := s.uploadOne(ctx, identity, f)
		metrics.FileUploads.WithLabelValues(label).Inc()
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (s *FileStore) uploadOne(ctx context.Context, identity *models.Identity, f UploadFile) (UploadOutcome, string) {
	if !validation.IsFilename(f.Name) {
		return UploadOutcome{Message: fmt.Sprintf("Error: Invalid filename %q", f.Name)}, "invalid"
	}

	used, err := s.UsageBytes(ctx, identity)
	if err != nil {
		s.logger.Error(ctx, "usage lookup failed", "username", identity.UserName, "error", err)
		return UploadOutcome{Message: fmt.Sprintf("Error: Upload of %s failed", f.Name)}, "error"
	}
	if used+f.Size > s.quotaBytes {
		return UploadOutcome{
			Message: fmt.Sprintf("Error: Upload of %s will exceed the %dMB bucket limit", f.Name, s.quotaBytes/bytesPerMiB),
		}, "quota_exceeded"
	}

	key := userPrefix(identity) + f.Name
	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		s.logger.Error(ctx, "exists check failed", "key", key, "error", err)
		return UploadOutcome{Message: fmt.Sprintf("Error: Upload of %s failed", f.Name)}, "error"
	}
	if exists {
		return UploadOutcome{Message: fmt.Sprintf("Error: File %s already exists", f.Name)}, "exists"
	}

	if err := s.store.Put(ctx, key, f.Body, f.Size); err != nil {
		s.logger.Error(ctx, "object write failed", "key", key, "error", err)
		return UploadOutcome{Message: fmt.Sprintf("Error: Upload of %s failed", f.Name)}, "error"
	}

	return UploadOutcome{
		Success:  true,
		Message:  fmt.Sprintf("File %s was successfully uploaded", f.Name),
		FileName: f.Name,
	}, "stored"
}

// List returns the names of the user's files in key order.
func (s *FileStore) List(ctx context.Context, identity *models.Identity) ([]string, error) {
	prefix := userPrefix(identity)
	objects, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("error listing objects: %w", err)
	}

	names := make([]string, 0, len(objects))
	for _, o := range objects {
		if isDirectoryMarker(o.Key) {
			continue
		}
		names = append(names, strings.TrimPrefix(o.Key, prefix))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes every named file that exists. Missing and invalid names are
// reported in NotFound.
func (s *FileStore) Delete(ctx context.Context, identity *models.Identity, names []string) (*DeleteResult, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no filenames provided", common.ErrorValidation)
	}

	res := &DeleteResult{Deleted: []string{}, NotFound: []string{}}
	for _, name := range names {
		if !validation.IsFilename(name) {
			res.NotFound = append(res.NotFound, name)
			continue
		}
		err := s.store.Delete(ctx, userPrefix(identity)+name)
		switch {
		case err == nil:
			res.Deleted = append(res.Deleted, name)
		case errors.Is(err, common.ErrorNotFound):
			res.NotFound = append(res.NotFound, name)
		default:
			return nil, fmt.Errorf("error deleting object: %w", err)
		}
	}
	return res, nil
}

// Download opens a file of the user. The caller closes the reader.
func (s *FileStore) Download(ctx context.Context, identity *models.Identity, name string) (io.ReadCloser, error) {
	if !validation.IsFilename(name) {
		return nil, common.ErrorNotFound
	}
	body, err := s.store.Get(ctx, userPrefix(identity)+name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error reading object: %w", err)
	}
	return body, nil
}

// UsageBytes sums the sizes of the user's objects, directory markers excluded.
func (s *FileStore) UsageBytes(ctx context.Context, identity *models.Identity) (int64, error) {
	objects, err := s.store.List(ctx, userPrefix(identity))
	if err != nil {
		return 0, fmt.Errorf("error listing objects: %w", err)
	}
	var total int64
	for _, o := range objects {
		if !isDirectoryMarker(o.Key) {
			total += o.Size
		}
	}
	return total, nil
}

// Usage returns UsageBytes together with its MiB value rounded to two places.
func (s *FileStore) Usage(ctx context.Context, identity *models.Identity) (*Usage, error) {
	b, err := s.UsageBytes(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &Usage{
		Bytes:      b,
		MiB:        math.Round(float64(b)/bytesPerMiB*100) / 100,
		QuotaBytes: s.quotaBytes,
	}, nil
}
