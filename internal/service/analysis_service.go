package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/analysis"
	"app/internal/config"
	"app/internal/model"
	"app/internal/pgmq"
	"app/internal/repository"
	"app/internal/storage"

	"github.com/rs/zerolog"
)

var (
	ErrAnalysisInProgress = errors.New("analysis already in progress")
	ErrResultsNotReady    = errors.New("analysis results not available")
)

// AnalysisJob is the queue payload for one dataset analysis.
type AnalysisJob struct {
	FileID int64 `json:"file_id"`
}

type AnalysisService interface {
	RequestAnalysis(ctx context.Context, fileID, ownerID int64) (*model.File, error)
	GetResults(ctx context.Context, fileID, ownerID int64) (*model.AnalysisResult, error)
	// ProcessFile runs the analysis for a queued job. Used by the worker and
	// by inline mode.
	ProcessFile(ctx context.Context, fileID int64) error
}

type analysisService struct {
	fileRepo     repository.FileRepository
	analysisRepo repository.AnalysisRepository
	userRepo     repository.UserRepository
	blobs        storage.Blobs
	queue        *pgmq.Client
	queueName    string
	inline       bool
	logger       zerolog.Logger
}

func NewAnalysisService(
	cfg *config.Config,
	fileRepo repository.FileRepository,
	analysisRepo repository.AnalysisRepository,
	userRepo repository.UserRepository,
	blobs storage.Blobs,
	queue *pgmq.Client,
	logger zerolog.Logger,
) AnalysisService {
	return &analysisService{
		fileRepo:     fileRepo,
		analysisRepo: analysisRepo,
		userRepo:     userRepo,
		blobs:        blobs,
		queue:        queue,
		queueName:    cfg.AnalysisQueueName,
		inline:       cfg.AnalysisInline,
		logger:       logger.With().Str("service", "AnalysisService").Logger(),
	}
}

func (s *analysisService) RequestAnalysis(ctx context.Context, fileID, ownerID int64) (*model.File, error) {
	f, err := s.fileRepo.GetFileByID(ctx, fileID, ownerID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrFileNotFound
	}
	if f.Status == model.FileStatusProcessing {
		return nil, ErrAnalysisInProgress
	}

	if s.inline {
		if err := s.ProcessFile(ctx, f.ID); err != nil {
			return nil, err
		}
		return s.fileRepo.GetFileByID(ctx, fileID, ownerID)
	}

	payload, err := json.Marshal(AnalysisJob{FileID: f.ID})
	if err != nil {
		return nil, err
	}

	// Claim the file before enqueueing so a concurrent request sees
	// `processing` and cannot double-enqueue. Released if the send fails.
	if err := s.fileRepo.SetFileStatus(ctx, f.ID, model.FileStatusProcessing, nil); err != nil {
		return nil, err
	}
	if err := s.queue.Send(ctx, s.queueName, payload); err != nil {
		if revErr := s.fileRepo.SetFileStatus(ctx, f.ID, f.Status, f.ErrorMessage); revErr != nil {
			s.logger.Error().Err(revErr).Int64("file_id", f.ID).Msg("Failed to release file after enqueue error")
		}
		return nil, fmt.Errorf("enqueue analysis: %w", err)
	}
	f.Status = model.FileStatusProcessing
	return f, nil
}

func (s *analysisService) GetResults(ctx context.Context, fileID, ownerID int64) (*model.AnalysisResult, error) {
	f, err := s.fileRepo.GetFileByID(ctx, fileID, ownerID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrFileNotFound
	}

	res, err := s.analysisRepo.GetResultByFileID(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrResultsNotReady
	}
	return res, nil
}

func (s *analysisService) ProcessFile(ctx context.Context, fileID int64) error {
	f, err := s.fileRepo.GetFileForProcessing(ctx, fileID)
	if err != nil {
		return err
	}
	if f == nil {
		return ErrFileNotFound
	}

	if err := s.fileRepo.SetFileStatus(ctx, f.ID, model.FileStatusProcessing, nil); err != nil {
		return err
	}

	meta, results, err := s.analyze(ctx, f)
	if err != nil {
		msg := err.Error()
		if stErr := s.fileRepo.SetFileStatus(ctx, f.ID, model.FileStatusFailed, &msg); stErr != nil {
			s.logger.Error().Err(stErr).Int64("file_id", f.ID).Msg("Failed to mark file as failed")
		}
		return err
	}

	if err := s.analysisRepo.UpsertResult(ctx, f.ID, meta, results); err != nil {
		return err
	}
	if err := s.fileRepo.SetFileShape(ctx, f.ID, meta.RowCount, meta.ColumnCount); err != nil {
		return err
	}
	if err := s.fileRepo.SetFileStatus(ctx, f.ID, model.FileStatusCompleted, nil); err != nil {
		return err
	}
	if err := s.userRepo.IncrementAnalyses(ctx, f.OwnerID); err != nil {
		s.logger.Error().Err(err).Int64("user_id", f.OwnerID).Msg("Failed to increment analyses counter")
	}
	return nil
}

func (s *analysisService) analyze(ctx context.Context, f *model.File) (model.AnalysisMeta, model.AnalysisColumns, error) {
	rc, err := s.blobs.Get(ctx, f.StoragePath)
	if err != nil {
		return model.AnalysisMeta{}, model.AnalysisColumns{}, fmt.Errorf("open blob %s: %w", f.StoragePath, err)
	}
	defer rc.Close()
	return analysis.Run(f.FileType, rc)
}
