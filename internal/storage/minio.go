package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-matcher/internal/config"
	"resume-matcher/internal/tracing"
)

var minioTracer = otel.Tracer("resume-matcher/storage/minio")

// ObjectStorage 异步评分所需的简历原件存取
type ObjectStorage interface {
	UploadResume(ctx context.Context, batchID, resumeID, filename string, data []byte) (string, error)
	GetResumeFile(ctx context.Context, objectKey string) ([]byte, error)
	DeleteFile(ctx context.Context, objectKey string) error
}

var _ ObjectStorage = (*MinIO)(nil)

// MinIO 基于单一存储桶的简历原件存储
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
	log    zerolog.Logger
}

// NewMinIO 创建客户端，确保存储桶存在并按配置设置过期规则
func NewMinIO(cfg *config.MinIOConfig, log zerolog.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("MinIO存储桶名称不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{
		client: client,
		cfg:    cfg,
		bucket: cfg.BucketName,
		log:    log.With().Str("bucket", cfg.BucketName).Logger(),
	}

	ctx := context.Background()
	if err := m.ensureBucketExists(ctx); err != nil {
		return nil, err
	}
	if cfg.ResumeExpireDays > 0 {
		// 生命周期规则失败不影响启动
		if err := m.setupLifecycle(ctx, cfg.ResumeExpireDays); err != nil {
			m.log.Warn().Err(err).Msg("设置存储桶生命周期失败")
		}
	}

	m.log.Info().Str("endpoint", cfg.Endpoint).Msg("MinIO客户端初始化完成")
	return m, nil
}

func (m *MinIO) ensureBucketExists(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.cfg.Location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", m.bucket, err)
	}
	m.log.Info().Msg("已创建存储桶")
	return nil
}

func (m *MinIO) setupLifecycle(ctx context.Context, expiryDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:         "expire-score-uploads",
			Status:     "Enabled",
			RuleFilter: lifecycle.Filter{Prefix: "resume/"},
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, m.bucket, lc)
}

// ResumeObjectKey 返回批次内简历原件的对象键: resume/<batch>/<resume><ext>
func ResumeObjectKey(batchID, resumeID, filename string) string {
	return fmt.Sprintf("resume/%s/%s%s", batchID, resumeID, strings.ToLower(filepath.Ext(filename)))
}

// UploadResume 上传简历原件，返回对象键
func (m *MinIO) UploadResume(ctx context.Context, batchID, resumeID, filename string, data []byte) (string, error) {
	objectKey := ResumeObjectKey(batchID, resumeID, filename)

	ctx, span := minioTracer.Start(ctx, "MinIO.PutObject", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("object.key", tracing.SafeObjectKey(objectKey)),
		attribute.Int("object.size", len(data)),
	)

	_, err := m.client.PutObject(ctx, m.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  getContentType(filepath.Ext(filename)),
		UserMetadata: map[string]string{"filename": filename},
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStorage)
		return "", fmt.Errorf("上传对象 %s 失败: %w", objectKey, err)
	}
	return objectKey, nil
}

// GetResumeFile 读取简历原件
func (m *MinIO) GetResumeFile(ctx context.Context, objectKey string) ([]byte, error) {
	ctx, span := minioTracer.Start(ctx, "MinIO.GetObject", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("object.key", tracing.SafeObjectKey(objectKey)))

	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStorage)
		return nil, fmt.Errorf("获取对象 %s 失败: %w", objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStorage)
		return nil, fmt.Errorf("读取对象 %s 数据失败: %w", objectKey, err)
	}
	span.SetAttributes(attribute.Int("object.size", len(data)))
	return data, nil
}

// DeleteFile 删除对象
func (m *MinIO) DeleteFile(ctx context.Context, objectKey string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", objectKey, err)
	}
	return nil
}

func getContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt", ".md":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
