package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"

	"app/internal/config"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrFileNotFound         = errors.New("file not found")
	ErrFileTooLarge         = errors.New("file exceeds the maximum upload size")
	ErrUnsupportedFileType  = errors.New("file type not allowed")
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
)

type FileService interface {
	Upload(ctx context.Context, ownerID int64, originalName string, size int64, r io.Reader) (*model.File, error)
	Get(ctx context.Context, id, ownerID int64) (*model.File, error)
	List(ctx context.Context, ownerID int64, filter model.FileListFilter) ([]model.File, int, error)
	Download(ctx context.Context, id, ownerID int64) (*model.File, io.ReadCloser, error)
	UpdateMeta(ctx context.Context, id, ownerID int64, newName *string, isPublic *bool) (*model.File, error)
	Delete(ctx context.Context, id, ownerID int64) error
}

type fileService struct {
	fileRepo     repository.FileRepository
	blobs        storage.Blobs
	maxSizeBytes int64
	quotaBytes   int64
	allowedExts  map[string]bool
	logger       zerolog.Logger
}

func NewFileService(cfg *config.Config, fileRepo repository.FileRepository, blobs storage.Blobs, logger zerolog.Logger) FileService {
	allowed := make(map[string]bool)
	for _, ext := range cfg.AllowedExtensionList() {
		allowed[ext] = true
	}
	return &fileService{
		fileRepo:     fileRepo,
		blobs:        blobs,
		maxSizeBytes: cfg.MaxFileSizeBytes,
		quotaBytes:   cfg.StorageQuotaBytes,
		allowedExts:  allowed,
		logger:       logger.With().Str("service", "FileService").Logger(),
	}
}

func (s *fileService) Upload(ctx context.Context, ownerID int64, originalName string, size int64, r io.Reader) (*model.File, error) {
	ext := model.Extension(originalName)
	if !s.allowedExts[ext] {
		return nil, fmt.Errorf("%w: .%s", ErrUnsupportedFileType, ext)
	}
	if size > s.maxSizeBytes {
		return nil, ErrFileTooLarge
	}

	mimeType := mime.TypeByExtension("." + ext)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	storedName := uuid.NewString() + "." + ext
	f := &model.File{
		OwnerID:      ownerID,
		StoredName:   storedName,
		OriginalName: originalName,
		StoragePath:  fmt.Sprintf("users/%d/%s", ownerID, storedName),
		SizeBytes:    size,
		FileType:     ext,
		MimeType:     mimeType,
		Status:       model.FileStatusUploaded,
	}

	// Reserve the quota before streaming the bytes so two concurrent uploads
	// cannot both slip under the limit.
	if err := s.fileRepo.CreateFileWithinQuota(ctx, f, s.quotaBytes); err != nil {
		if errors.Is(err, repository.ErrQuotaExceeded) {
			return nil, ErrStorageQuotaExceeded
		}
		return nil, err
	}

	if err := s.blobs.Put(ctx, f.StoragePath, r, size); err != nil {
		if delErr := s.fileRepo.SoftDeleteFile(ctx, f.ID, ownerID); delErr != nil {
			s.logger.Error().Err(delErr).Int64("file_id", f.ID).Msg("Failed to release quota after store error")
		}
		return nil, fmt.Errorf("store upload: %w", err)
	}
	return f, nil
}

func (s *fileService) Get(ctx context.Context, id, ownerID int64) (*model.File, error) {
	f, err := s.fileRepo.GetFileByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrFileNotFound
	}
	return f, nil
}

func (s *fileService) List(ctx context.Context, ownerID int64, filter model.FileListFilter) ([]model.File, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	return s.fileRepo.ListFiles(ctx, ownerID, filter)
}

func (s *fileService) Download(ctx context.Context, id, ownerID int64) (*model.File, io.ReadCloser, error) {
	f, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, f.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob %s: %w", f.StoragePath, err)
	}
	if err := s.fileRepo.TouchAccessed(ctx, f.ID); err != nil {
		s.logger.Error().Err(err).Int64("file_id", f.ID).Msg("Failed to record file access")
	}
	return f, rc, nil
}

func (s *fileService) UpdateMeta(ctx context.Context, id, ownerID int64, newName *string, isPublic *bool) (*model.File, error) {
	f, err := s.fileRepo.UpdateFileMeta(ctx, id, ownerID, newName, isPublic)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete soft-deletes the row, releases the owner's quota exactly once and
// removes the blob best effort.
func (s *fileService) Delete(ctx context.Context, id, ownerID int64) error {
	f, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := s.fileRepo.SoftDeleteFile(ctx, id, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFileNotFound
		}
		return err
	}
	if err := s.blobs.Delete(ctx, f.StoragePath); err != nil {
		s.logger.Error().Err(err).Str("path", f.StoragePath).Msg("Failed to delete blob, row already soft-deleted")
	}
	return nil
}
