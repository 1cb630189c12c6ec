package outbox // 发件箱模式：与业务数据同事务写入的消息由中继异步发布

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resume-matcher/internal/logger"
	"resume-matcher/internal/storage/models"
	"resume-matcher/internal/tracing"
)

const (
	defaultPollingInterval = 2 * time.Second
	defaultBatchSize       = 10
	defaultMaxRetryCount   = 5
)

// Publisher 消息发布器
type Publisher interface {
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error
}

// Option 中继配置项
type Option func(*MessageRelay)

// WithPollingInterval 设置轮询间隔
func WithPollingInterval(d time.Duration) Option {
	return func(r *MessageRelay) {
		if d > 0 {
			r.pollingInterval = d
		}
	}
}

// WithBatchSize 设置每次轮询处理的消息数
func WithBatchSize(n int) Option {
	return func(r *MessageRelay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithMaxRetries 设置发布失败后标记为 FAILED 前的最大尝试次数
func WithMaxRetries(n int) Option {
	return func(r *MessageRelay) {
		if n > 0 {
			r.maxRetries = n
		}
	}
}

// MessageRelay 轮询 outbox 表并将消息发布到消息代理
type MessageRelay struct {
	db              *gorm.DB
	publisher       Publisher
	log             zerolog.Logger
	pollingInterval time.Duration
	batchSize       int
	maxRetries      int
	tracer          trace.Tracer

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewMessageRelay 创建中继
func NewMessageRelay(db *gorm.DB, publisher Publisher, opts ...Option) *MessageRelay {
	r := &MessageRelay{
		db:              db,
		publisher:       publisher,
		log:             logger.Component("outbox"),
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		maxRetries:      defaultMaxRetryCount,
		tracer:          otel.Tracer("resume-matcher/outbox"),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start 启动后台轮询，ctx 取消或调用 Stop 后退出
func (r *MessageRelay) Start(ctx context.Context) {
	r.log.Info().Dur("interval", r.pollingInterval).Msg("MessageRelay 启动")
	ticker := time.NewTicker(r.pollingInterval)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.log.Info().Msg("MessageRelay 已停止")
				return
			case <-r.done:
				r.log.Info().Msg("MessageRelay 已停止")
				return
			case <-ticker.C:
				if _, err := r.processPendingMessages(ctx); err != nil {
					r.log.Error().Err(err).Msg("处理待发布消息失败")
				}
			}
		}
	}()
}

// Stop 停止轮询并等待当前批次结束
func (r *MessageRelay) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
	r.wg.Wait()
}

// processPendingMessages 锁定一批 PENDING 消息并逐条发布，返回成功发布的条数
func (r *MessageRelay) processPendingMessages(ctx context.Context) (int, error) {
	var messages []models.OutboxMessage

	// 空轮询不创建 span
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return 0, tx.Error
	}
	defer tx.Rollback()

	// SKIP LOCKED 让多个实例各自领取不同的行
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(attribute.Int("messaging.batch.message_count", len(messages))))
	defer span.End()

	sent := 0
	for i := range messages {
		msg := &messages[i]
		err := r.publisher.PublishMessage(ctx, msg.TargetExchange, msg.TargetRoutingKey, []byte(msg.Payload), true)
		if err != nil {
			msg.RetryCount++
			msg.ErrorMessage = err.Error()
			if msg.RetryCount >= r.maxRetries {
				msg.Status = models.OutboxStatusFailed
			}
			r.log.Warn().Err(err).
				Uint64("message_id", msg.ID).
				Str("batch_id", msg.AggregateID).
				Int("retries", msg.RetryCount).
				Msg("发布outbox消息失败")
		} else {
			now := time.Now()
			msg.Status = models.OutboxStatusSent
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
			sent++
		}

		// 更新失败时整批回滚，消息在下次轮询时重新领取
		if err := tx.Save(msg).Error; err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeDB)
			return 0, err
		}
	}

	span.SetAttributes(attribute.Int("messaging.batch.sent_count", sent))
	return sent, tx.Commit().Error
}
