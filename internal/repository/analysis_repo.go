package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"
)

type AnalysisRepository interface {
	// UpsertResult stores the analysis for a file, replacing any prior run.
	UpsertResult(ctx context.Context, fileID int64, meta model.AnalysisMeta, results model.AnalysisColumns) error
	GetResultByFileID(ctx context.Context, fileID int64) (*model.AnalysisResult, error)
}

type analysisRepo struct {
	db *sql.DB
}

func NewAnalysisRepo(db *sql.DB) AnalysisRepository {
	return &analysisRepo{db: db}
}

func (r *analysisRepo) UpsertResult(ctx context.Context, fileID int64, meta model.AnalysisMeta, results model.AnalysisColumns) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal analysis metadata for file %d: %w", fileID, err)
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal analysis results for file %d: %w", fileID, err)
	}
	const q = `
        INSERT INTO analysis_results (file_id, metadata, results, computed_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (file_id) DO UPDATE
        SET metadata = EXCLUDED.metadata,
            results = EXCLUDED.results,
            computed_at = NOW()
    `
	if _, err := r.db.ExecContext(ctx, q, fileID, metaJSON, resultsJSON); err != nil {
		return fmt.Errorf("upsert analysis result for file %d: %w", fileID, err)
	}
	return nil
}

func (r *analysisRepo) GetResultByFileID(ctx context.Context, fileID int64) (*model.AnalysisResult, error) {
	const q = `SELECT id, file_id, metadata, results, computed_at FROM analysis_results WHERE file_id = $1`
	var res model.AnalysisResult
	var rawMeta, rawResults []byte
	err := r.db.QueryRowContext(ctx, q, fileID).Scan(&res.ID, &res.FileID, &rawMeta, &rawResults, &res.ComputedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch analysis result for file %d: %w", fileID, err)
	}
	if err := json.Unmarshal(rawMeta, &res.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal analysis metadata for file %d: %w", fileID, err)
	}
	if err := json.Unmarshal(rawResults, &res.Results); err != nil {
		return nil, fmt.Errorf("unmarshal analysis results for file %d: %w", fileID, err)
	}
	return &res, nil
}
