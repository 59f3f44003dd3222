// Package analysis runs the queue-driven dataset analysis worker.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"app/internal/analysis"
	"app/internal/config"
	"app/internal/pgmq"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// Run polls the analysis queue until ctx is cancelled. Failed jobs are
// retried with exponential backoff and moved to the dead-letter queue once
// retries are exhausted. Permanent failures (unparsable files) go straight
// to the DLQ.
func Run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, client *pgmq.Client, svc service.AnalysisService) error {
	queue := cfg.AnalysisQueueName
	dlq := cfg.AnalysisDeadLetterQueueName

	for _, q := range []string{queue, dlq} {
		if err := client.EnsureQueue(ctx, q); err != nil {
			return err
		}
	}
	logger.Info().Str("queue", queue).Msg("Starting analysis worker")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down analysis worker")
			return nil
		default:
		}

		msgs, err := client.ReadWithPoll(ctx, queue, cfg.AnalysisPollTimeoutSec, cfg.AnalysisPollMaxMsg)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("Shutting down analysis worker")
				return nil
			}
			logger.Error().Err(err).Msg("Error reading analysis queue")
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			handleMessage(ctx, cfg, logger, client, svc, msg)
		}
	}
}

func handleMessage(ctx context.Context, cfg *config.Config, logger zerolog.Logger, client *pgmq.Client, svc service.AnalysisService, msg *pgmq.Message) {
	queue := cfg.AnalysisQueueName
	dlq := cfg.AnalysisDeadLetterQueueName

	logger.Info().Int64("msg_id", msg.ID).Msgf("Received analysis job: %s", string(msg.Data))

	var job service.AnalysisJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		logger.Error().Err(err).Msg("Failed to unmarshal analysis payload; deleting message")
		client.Delete(ctx, queue, msg.ID)
		return
	}

	backoff := time.Duration(cfg.AnalysisBackoffInitialSec) * time.Second
	var procErr error
	for attempt := 1; attempt <= cfg.AnalysisMaxRetries; attempt++ {
		start := time.Now()
		procErr = svc.ProcessFile(ctx, job.FileID)
		if procErr == nil {
			logger.Info().Int64("file_id", job.FileID).Str("duration", time.Since(start).String()).Msg("Analysis completed")
			break
		}
		if errors.Is(procErr, analysis.ErrUnsupportedType) || errors.Is(procErr, service.ErrFileNotFound) {
			// Retrying cannot fix these.
			break
		}
		logger.Error().Err(procErr).Int("attempt", attempt).Int64("file_id", job.FileID).Msg("Analysis failed, retrying")
		time.Sleep(backoff)
		backoff *= 2
		if max := time.Duration(cfg.AnalysisBackoffMaxSec) * time.Second; backoff > max {
			backoff = max
		}
	}

	if procErr != nil {
		if err := client.Send(ctx, dlq, msg.Data); err != nil {
			logger.Error().Err(err).Str("dlq", dlq).Msg("Failed to send message to dead-letter queue")
		}
		logger.Warn().Int64("file_id", job.FileID).Err(procErr).Msg("Moving analysis job to DLQ")
	}

	if err := client.Delete(ctx, queue, msg.ID); err != nil {
		logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error deleting analysis message")
	}
}
