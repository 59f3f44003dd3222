package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"app/internal/model"
)

type FileRepository interface {
	// CreateFileWithinQuota atomically checks the owner's storage quota,
	// inserts the metadata row and bumps the owner's usage counters.
	// Returns ErrQuotaExceeded without inserting when the file would not fit.
	CreateFileWithinQuota(ctx context.Context, f *model.File, quotaBytes int64) error
	GetFileByID(ctx context.Context, id, ownerID int64) (*model.File, error)
	// GetFileForProcessing loads a live file regardless of owner; used by the
	// analysis worker.
	GetFileForProcessing(ctx context.Context, id int64) (*model.File, error)
	ListFiles(ctx context.Context, ownerID int64, filter model.FileListFilter) ([]model.File, int, error)
	// SoftDeleteFile flips the deleted flag and returns the owner's storage
	// counter by the file's size. Deleting an already-deleted file returns
	// ErrNotFound, so the accounting decreases exactly once.
	SoftDeleteFile(ctx context.Context, id, ownerID int64) error
	UpdateFileMeta(ctx context.Context, id, ownerID int64, newName *string, isPublic *bool) (*model.File, error)
	TouchAccessed(ctx context.Context, id int64) error
	SetFileStatus(ctx context.Context, id int64, status string, errorMessage *string) error
	SetFileShape(ctx context.Context, id int64, rowCount, columnCount int) error
}

type fileRepo struct {
	db *sql.DB
}

func NewFileRepo(db *sql.DB) FileRepository {
	return &fileRepo{db: db}
}

const fileColumns = `id, owner_id, stored_name, original_name, storage_path,
	size_bytes, file_type, mime_type, status, error_message,
	row_count, column_count, is_public, is_deleted,
	processing_started_at, processing_completed_at, created_at, updated_at, accessed_at`

func scanFile(row interface{ Scan(...any) error }) (*model.File, error) {
	var f model.File
	err := row.Scan(
		&f.ID, &f.OwnerID, &f.StoredName, &f.OriginalName, &f.StoragePath,
		&f.SizeBytes, &f.FileType, &f.MimeType, &f.Status, &f.ErrorMessage,
		&f.RowCount, &f.ColumnCount, &f.IsPublic, &f.IsDeleted,
		&f.ProcessingStartedAt, &f.ProcessingCompletedAt, &f.CreatedAt, &f.UpdatedAt, &f.AccessedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *fileRepo) CreateFileWithinQuota(ctx context.Context, f *model.File, quotaBytes int64) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin upload transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var usedBytes int64
	const usageQ = `SELECT storage_used_bytes FROM users WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, usageQ, f.OwnerID).Scan(&usedBytes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("read storage usage for user %d: %w", f.OwnerID, err)
	}
	if quotaBytes > 0 && usedBytes+f.SizeBytes > quotaBytes {
		return ErrQuotaExceeded
	}

	const insertQ = `INSERT INTO files (owner_id, stored_name, original_name, storage_path, size_bytes, file_type, mime_type, status)
                     VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
                     RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, insertQ,
		f.OwnerID, f.StoredName, f.OriginalName, f.StoragePath, f.SizeBytes, f.FileType, f.MimeType, f.Status,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert file row: %w", err)
	}

	const counterQ = `UPDATE users
                      SET storage_used_bytes = storage_used_bytes + $2,
                          file_uploads_count = file_uploads_count + 1,
                          updated_at = NOW()
                      WHERE id = $1`
	if _, err := tx.ExecContext(ctx, counterQ, f.OwnerID, f.SizeBytes); err != nil {
		return fmt.Errorf("update usage counters for user %d: %w", f.OwnerID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upload for user %d: %w", f.OwnerID, err)
	}
	return nil
}

func (r *fileRepo) GetFileByID(ctx context.Context, id, ownerID int64) (*model.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND owner_id = $2 AND is_deleted = FALSE`
	return scanFile(r.db.QueryRowContext(ctx, query, id, ownerID))
}

func (r *fileRepo) GetFileForProcessing(ctx context.Context, id int64) (*model.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND is_deleted = FALSE`
	return scanFile(r.db.QueryRowContext(ctx, query, id))
}

func (r *fileRepo) ListFiles(ctx context.Context, ownerID int64, filter model.FileListFilter) ([]model.File, int, error) {
	where := `owner_id = $1 AND is_deleted = FALSE`
	args := []any{ownerID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.FileType != "" {
		args = append(args, filter.FileType)
		where += fmt.Sprintf(" AND file_type = $%d", len(args))
	}

	var total int
	countQ := `SELECT COUNT(*) FROM files WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count files for user %d: %w", ownerID, err)
	}

	limit := filter.PageSize
	offset := (filter.Page - 1) * filter.PageSize
	args = append(args, limit, offset)
	listQ := `SELECT ` + fileColumns + ` FROM files WHERE ` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, listQ, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query files for user %d: %w", ownerID, err)
	}
	defer rows.Close()

	var files []model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan file row: %w", err)
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return files, total, nil
}

func (r *fileRepo) SoftDeleteFile(ctx context.Context, id, ownerID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var sizeBytes int64
	const deleteQ = `UPDATE files SET is_deleted = TRUE, updated_at = NOW()
                     WHERE id = $1 AND owner_id = $2 AND is_deleted = FALSE
                     RETURNING size_bytes`
	if err := tx.QueryRowContext(ctx, deleteQ, id, ownerID).Scan(&sizeBytes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("soft delete file %d: %w", id, err)
	}

	const counterQ = `UPDATE users
                      SET storage_used_bytes = GREATEST(storage_used_bytes - $2, 0), updated_at = NOW()
                      WHERE id = $1`
	if _, err := tx.ExecContext(ctx, counterQ, ownerID, sizeBytes); err != nil {
		return fmt.Errorf("decrement storage for user %d: %w", ownerID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete of file %d: %w", id, err)
	}
	return nil
}

func (r *fileRepo) UpdateFileMeta(ctx context.Context, id, ownerID int64, newName *string, isPublic *bool) (*model.File, error) {
	query := `UPDATE files
              SET original_name = COALESCE($3, original_name),
                  is_public = COALESCE($4, is_public),
                  updated_at = NOW()
              WHERE id = $1 AND owner_id = $2 AND is_deleted = FALSE
              RETURNING ` + fileColumns
	f, err := scanFile(r.db.QueryRowContext(ctx, query, id, ownerID, newName, isPublic))
	if err != nil {
		return nil, fmt.Errorf("update file %d: %w", id, err)
	}
	if f == nil {
		return nil, ErrNotFound
	}
	return f, nil
}

func (r *fileRepo) TouchAccessed(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE files SET accessed_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("touch file %d: %w", id, err)
	}
	return nil
}

func (r *fileRepo) SetFileStatus(ctx context.Context, id int64, status string, errorMessage *string) error {
	query := `UPDATE files
              SET status = $2,
                  error_message = $3,
                  processing_started_at = CASE WHEN $2 = 'processing' THEN NOW() ELSE processing_started_at END,
                  processing_completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN NOW() ELSE processing_completed_at END,
                  updated_at = NOW()
              WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, errorMessage); err != nil {
		return fmt.Errorf("set status of file %d to %s: %w", id, status, err)
	}
	return nil
}

func (r *fileRepo) SetFileShape(ctx context.Context, id int64, rowCount, columnCount int) error {
	query := `UPDATE files SET row_count = $2, column_count = $3, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, rowCount, columnCount); err != nil {
		return fmt.Errorf("set shape of file %d: %w", id, err)
	}
	return nil
}
