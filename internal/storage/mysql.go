package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resume-matcher/internal/config"
	"resume-matcher/internal/constants"
	"resume-matcher/internal/storage/models"
	"resume-matcher/internal/tracing"
)

var mysqlTracer = otel.Tracer("resume-matcher/storage/mysql")

type spanCtxKey struct{}

// GormTracingPlugin 为GORM的CRUD回调创建OpenTelemetry span
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// NewGormTracingPlugin 创建追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// Name 插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册 before/after 回调
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("INSERT")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	return cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after())
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, table),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", table),
			))
		db.Statement.Context = context.WithValue(newCtx, spanCtxKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(spanCtxKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		if sql := db.Statement.SQL.String(); sql != "" {
			span.SetAttributes(attribute.String("db.statement", tracing.SafeSQL(sql)))
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		// ErrRecordNotFound 属于正常业务分支
		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(db.Error, gorm.ErrRecordNotFound):
			span.SetAttributes(attribute.String("error.type", "record_not_found"))
			span.SetStatus(codes.Ok, "record not found")
		default:
			tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
		}
	}
}

// MySQL 评分批次与结果的持久化
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 连接MySQL、注册追踪插件并自动迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	default:
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m, err := NewMySQLWithDB(db, cfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := m.autoMigrateSchema(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}
	return m, nil
}

// NewMySQLWithDB 使用已打开的连接，注册追踪插件但不做迁移
func NewMySQLWithDB(db *gorm.DB, cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		cfg = &config.MySQLConfig{}
	}
	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}
	return &MySQL{db: db, cfg: cfg}, nil
}

func (m *MySQL) autoMigrateSchema() error {
	silentDB := m.db.Session(&gorm.Session{Logger: logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{LogLevel: logger.Silent, IgnoreRecordNotFoundError: true},
	)})
	if err := silentDB.AutoMigrate(
		&models.ScoringBatch{},
		&models.ResumeScore{},
		&models.OutboxMessage{},
	); err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM连接
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// CreatePendingBatch 在同一事务中写入待处理批次与对应的 outbox 消息
func (m *MySQL) CreatePendingBatch(ctx context.Context, batch *models.ScoringBatch, msg *models.OutboxMessage) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.CreatePendingBatch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("batch.id", batch.BatchID),
		attribute.Int("batch.size", batch.TotalResumes),
	)

	batch.Status = constants.BatchStatusPending
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Scores").Create(batch).Error; err != nil {
			return fmt.Errorf("写入评分批次失败: %w", err)
		}
		if msg == nil {
			return nil
		}
		msg.AggregateID = batch.BatchID
		if msg.Status == "" {
			msg.Status = models.OutboxStatusPending
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("写入outbox消息失败: %w", err)
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
	}
	return err
}

// UpdateBatchStatus 更新批次状态
func (m *MySQL) UpdateBatchStatus(ctx context.Context, batchID, status string) error {
	res := m.db.WithContext(ctx).Model(&models.ScoringBatch{}).
		Where("batch_id = ?", batchID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("更新批次状态失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	return nil
}

// SaveBatchResult 写入批次最终状态并替换其全部评分结果
func (m *MySQL) SaveBatchResult(ctx context.Context, batch *models.ScoringBatch) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.SaveBatchResult", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("batch.id", batch.BatchID),
		attribute.Int("batch.size", len(batch.Scores)),
	)

	scores := batch.Scores
	for i := range scores {
		scores[i].BatchID = batch.BatchID
		scores[i].ID = 0
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Scores", "CreatedAt").Save(batch).Error; err != nil {
			return fmt.Errorf("保存评分批次失败: %w", err)
		}
		if err := tx.Where("batch_id = ?", batch.BatchID).Delete(&models.ResumeScore{}).Error; err != nil {
			return fmt.Errorf("清理旧评分结果失败: %w", err)
		}
		if len(scores) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&scores, 100).Error; err != nil {
			return fmt.Errorf("写入评分结果失败: %w", err)
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// MarkBatchFailed 将批次标记为失败并记录原因
func (m *MySQL) MarkBatchFailed(ctx context.Context, batchID, reason string) error {
	now := time.Now()
	res := m.db.WithContext(ctx).Model(&models.ScoringBatch{}).
		Where("batch_id = ?", batchID).
		Updates(map[string]any{
			"status":        constants.BatchStatusFailed,
			"error_message": reason,
			"completed_at":  &now,
		})
	if res.Error != nil {
		return fmt.Errorf("标记批次失败状态失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	return nil
}

// GetBatch 读取批次及按名次排序的评分结果
func (m *MySQL) GetBatch(ctx context.Context, batchID string) (*models.ScoringBatch, error) {
	var batches []models.ScoringBatch
	err := m.db.WithContext(ctx).
		Preload("Scores", func(db *gorm.DB) *gorm.DB { return db.Order("rank_no ASC") }).
		Where("batch_id = ?", batchID).
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("查询评分批次失败: %w", err)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	return &batches[0], nil
}
