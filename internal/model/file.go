package model

import (
	"strings"
	"time"
)

// File processing statuses.
const (
	FileStatusUploaded   = "uploaded"
	FileStatusProcessing = "processing"
	FileStatusCompleted  = "completed"
	FileStatusFailed     = "failed"
)

// File represents an uploaded file's metadata row. The bytes live on the
// configured blob store; rows are soft-deleted, never removed.
type File struct {
	ID           int64   `db:"id" json:"id"`
	OwnerID      int64   `db:"owner_id" json:"owner_id"`
	StoredName   string  `db:"stored_name" json:"stored_name"`
	OriginalName string  `db:"original_name" json:"original_name"`
	StoragePath  string  `db:"storage_path" json:"storage_path"`
	SizeBytes    int64   `db:"size_bytes" json:"size_bytes"`
	FileType     string  `db:"file_type" json:"file_type"`
	MimeType     string  `db:"mime_type" json:"mime_type"`
	Status       string  `db:"status" json:"status"`
	ErrorMessage *string `db:"error_message" json:"error_message,omitempty"`

	RowCount    *int `db:"row_count" json:"row_count,omitempty"`
	ColumnCount *int `db:"column_count" json:"column_count,omitempty"`

	IsPublic  bool `db:"is_public" json:"is_public"`
	IsDeleted bool `db:"is_deleted" json:"is_deleted"`

	ProcessingStartedAt   *time.Time `db:"processing_started_at" json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `db:"processing_completed_at" json:"processing_completed_at,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
	AccessedAt            *time.Time `db:"accessed_at" json:"accessed_at,omitempty"`
}

// Extension returns the lowercase extension of a filename, without the dot.
func Extension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// FileListFilter narrows file listings.
type FileListFilter struct {
	Status   string
	FileType string
	Page     int
	PageSize int
}
