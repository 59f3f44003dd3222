package dto

import (
	"time"

	"app/internal/model"
)

// FileResponseDTO is returned in API responses for files
type FileResponseDTO struct {
	ID           int64      `json:"id"`
	OriginalName string     `json:"original_name"`
	SizeBytes    int64      `json:"size_bytes"`
	FileType     string     `json:"file_type"`
	MimeType     string     `json:"mime_type"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	RowCount     *int       `json:"row_count,omitempty"`
	ColumnCount  *int       `json:"column_count,omitempty"`
	IsPublic     bool       `json:"is_public"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	AccessedAt   *time.Time `json:"accessed_at,omitempty"`
}

// NewFileResponseDTO maps a domain file to its response shape.
func NewFileResponseDTO(f *model.File) FileResponseDTO {
	return FileResponseDTO{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		SizeBytes:    f.SizeBytes,
		FileType:     f.FileType,
		MimeType:     f.MimeType,
		Status:       f.Status,
		ErrorMessage: f.ErrorMessage,
		RowCount:     f.RowCount,
		ColumnCount:  f.ColumnCount,
		IsPublic:     f.IsPublic,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
		AccessedAt:   f.AccessedAt,
	}
}

// FileMetadataResponseDTO is the trimmed, analysis-free shape returned by
// the metadata endpoint
type FileMetadataResponseDTO struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	SizeBytes   int64     `json:"size_bytes"`
	FileType    string    `json:"file_type"`
	RowCount    *int      `json:"row_count,omitempty"`
	ColumnCount *int      `json:"column_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewFileMetadataResponseDTO maps a domain file to its metadata shape.
func NewFileMetadataResponseDTO(f *model.File) FileMetadataResponseDTO {
	return FileMetadataResponseDTO{
		ID:          f.ID,
		Filename:    f.OriginalName,
		SizeBytes:   f.SizeBytes,
		FileType:    f.FileType,
		RowCount:    f.RowCount,
		ColumnCount: f.ColumnCount,
		CreatedAt:   f.CreatedAt,
	}
}

// FileListResponseDTO is a paginated file listing
type FileListResponseDTO struct {
	Files    []FileResponseDTO `json:"files"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// FileUpdateDTO is used for incoming file metadata update requests
type FileUpdateDTO struct {
	Filename *string `json:"filename,omitempty" validate:"omitempty,min=1,max=255"`
	IsPublic *bool   `json:"is_public,omitempty"`
}
