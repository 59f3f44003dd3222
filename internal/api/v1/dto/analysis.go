package dto

import (
	"time"

	"app/internal/model"
)

// AnalyzeRequestDTO selects the file to analyze
type AnalyzeRequestDTO struct {
	FileID int64 `json:"file_id" validate:"required,gt=0"`
}

// AnalyzeAcceptedDTO acknowledges a queued analysis
type AnalyzeAcceptedDTO struct {
	FileID int64  `json:"file_id"`
	Status string `json:"status"`
}

// AnalysisResultResponseDTO carries the computed dataset summary
type AnalysisResultResponseDTO struct {
	FileID     int64                 `json:"file_id"`
	Metadata   model.AnalysisMeta    `json:"metadata"`
	Results    model.AnalysisColumns `json:"results"`
	ComputedAt time.Time             `json:"computed_at"`
}
