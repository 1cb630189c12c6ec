package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-matcher/internal/config"
	"resume-matcher/internal/constants"
	"resume-matcher/internal/metrics"
	"resume-matcher/internal/processor"
	"resume-matcher/internal/storage"
	"resume-matcher/internal/tracing"
)

const batchLockTTL = 10 * time.Minute

// StartScoreJobConsumer 启动 workers 个消费者处理异步评分任务
func (h *ScoreHandler) StartScoreJobConsumer(ctx context.Context, workers int) error {
	if !h.AsyncEnabled() {
		return fmt.Errorf("异步评分未启用: %w", storage.ErrNotConfigured)
	}
	if workers < 1 {
		workers = 1
	}
	prefetch := h.cfg.RabbitMQ.PrefetchCount
	if prefetch < 1 {
		prefetch = 1
	}
	for i := 0; i < workers; i++ {
		if err := h.deps.Queue.StartConsumer(ctx, h.cfg.RabbitMQ.ScoreJobQueue, prefetch, h.handleScoreJob); err != nil {
			return fmt.Errorf("启动第%d个评分消费者失败: %w", i+1, err)
		}
	}
	h.log.Info().Int("workers", workers).Str("queue", h.cfg.RabbitMQ.ScoreJobQueue).Msg("评分任务消费者已启动")
	return nil
}

// handleScoreJob 处理一条评分任务消息，返回 true 表示确认
func (h *ScoreHandler) handleScoreJob(ctx context.Context, body []byte) bool {
	ctx, span := h.tracer.Start(ctx, "ScoreJob.Consume", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.source.name", h.cfg.RabbitMQ.ScoreJobQueue),
		attribute.Int("messaging.message.body.size", len(body)),
	)

	var msg storage.ScoreJobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.log.Error().Err(err).Msg("评分任务消息解析失败，丢弃")
		return h.drop(span, "", err.Error())
	}
	if err := msg.Validate(); err != nil {
		h.log.Error().Err(err).Str("batch_id", msg.BatchID).Msg("评分任务消息无效，丢弃")
		return h.drop(span, msg.BatchID, err.Error())
	}
	span.SetAttributes(attribute.String("batch.id", msg.BatchID), attribute.Int("batch.size", len(msg.Resumes)))
	log := h.log.With().Str("batch_id", msg.BatchID).Logger()

	if h.deps.Locker != nil {
		lockKey := storage.BatchLockKey(msg.BatchID)
		lockValue, err := h.deps.Locker.AcquireLock(ctx, lockKey, batchLockTTL)
		if err != nil {
			log.Error().Err(err).Msg("获取批次锁失败，稍后重试")
			return h.requeue(ctx, span, msg.BatchID, err.Error())
		}
		if lockValue == "" {
			log.Info().Msg("批次正在被其他消费者处理，忽略重复投递")
			return h.skipDuplicate(span)
		}
		defer func() {
			if _, err := h.deps.Locker.ReleaseLock(context.Background(), lockKey, lockValue); err != nil {
				log.Warn().Err(err).Msg("释放批次锁失败")
			}
		}()
	}

	batch, err := h.deps.Batches.GetBatch(ctx, msg.BatchID)
	if errors.Is(err, storage.ErrBatchNotFound) {
		log.Warn().Msg("评分批次不存在，丢弃消息")
		return h.drop(span, msg.BatchID, err.Error())
	}
	if err != nil {
		log.Error().Err(err).Msg("查询评分批次失败，稍后重试")
		return h.requeue(ctx, span, msg.BatchID, err.Error())
	}
	if batch.Status == constants.BatchStatusCompleted || batch.Status == constants.BatchStatusFailed {
		log.Info().Str("status", batch.Status).Msg("批次已处理完成，忽略重复投递")
		return h.skipDuplicate(span)
	}
	if err := h.deps.Batches.UpdateBatchStatus(ctx, msg.BatchID, constants.BatchStatusProcessing); err != nil {
		log.Warn().Err(err).Msg("更新批次状态为PROCESSING失败")
	}

	docs := make([]processor.ResumeDocument, 0, len(msg.Resumes))
	for _, r := range msg.Resumes {
		doc := processor.ResumeDocument{ID: r.ResumeID, Filename: r.Filename, ObjectKey: r.ObjectKey}
		data, err := h.deps.Objects.GetResumeFile(ctx, r.ObjectKey)
		if err != nil {
			log.Warn().Err(err).Str("object_key", r.ObjectKey).Msg("下载简历失败")
			span.AddEvent("resume.download_failed", trace.WithAttributes(
				attribute.String("resume.id", r.ResumeID),
				attribute.String("resume.filename", tracing.SafeAttributeValue("resume.filename", r.Filename, tracing.DefaultMaxLength)),
			))
			doc.Err = processor.NewDownloadError(r.ResumeID, err)
		} else {
			doc.Data = data
		}
		docs = append(docs, doc)
	}

	scorer := h.scorer.WithOptions(
		processor.WithSource(metrics.SourceQueue),
		processor.WithStore(h.deps.Batches),
	)
	result, err := scorer.ScoreBatch(ctx, processor.BatchRequest{
		BatchID:        msg.BatchID,
		JobID:          msg.JobID,
		JobDescription: msg.JobDescription,
		Resumes:        docs,
		Weights:        msg.Weights,
		EvaluatedAt:    msg.EvaluatedAt,
	})
	switch {
	case errors.Is(err, processor.ErrPersistFailed), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Error().Err(err).Msg("评分批次处理中断，稍后重试")
		return h.requeue(ctx, span, msg.BatchID, err.Error())
	case err != nil:
		log.Error().Err(err).Msg("评分批次处理失败")
		tracing.RecordErrorWithInfo(span, err, tracing.ErrorTypeScoring,
			attribute.String("batch.status", constants.BatchStatusFailed))
		if merr := h.deps.Batches.MarkBatchFailed(context.Background(), msg.BatchID, err.Error()); merr != nil {
			log.Error().Err(merr).Msg("标记批次失败状态失败")
		}
		metrics.QueueJobs.WithLabelValues(metrics.OutcomeFailed).Inc()
		return true
	}

	metrics.QueueJobs.WithLabelValues(metrics.OutcomeCompleted).Inc()
	log.Info().Int("resumes", len(result.Results)).Int("failed", result.Failed).Msg("异步评分批次完成")
	return true
}

// drop 确认并丢弃无法处理的消息
func (h *ScoreHandler) drop(span trace.Span, batchID, reason string) bool {
	metrics.QueueJobs.WithLabelValues(metrics.OutcomeDropped).Inc()
	tracing.RecordRabbitMQNack(span, batchID, reason, false)
	return true
}

// skipDuplicate 重复投递直接确认
func (h *ScoreHandler) skipDuplicate(span trace.Span) bool {
	metrics.QueueJobs.WithLabelValues(metrics.OutcomeDropped).Inc()
	span.SetAttributes(attribute.Bool("score_job.duplicate", true))
	return true
}

// requeue 等待重试间隔后拒绝消息使其重新入队
func (h *ScoreHandler) requeue(ctx context.Context, span trace.Span, batchID, reason string) bool {
	metrics.QueueJobs.WithLabelValues(metrics.OutcomeRequeued).Inc()
	tracing.RecordRabbitMQNack(span, batchID, reason, true)
	wait := config.GetDuration(h.cfg.RabbitMQ.RetryInterval, 5*time.Second)
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
	return false
}
