package processor

import (
	"context"
	"time"

	"resume-matcher/internal/storage/models"
)

// TextExtractor 从上传的文件内容中提取简历文本
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, filename string) (string, error)
}

// SimilarityScorer 计算 JD 与每份简历的文本相关度，返回值与 resumes 一一对应
type SimilarityScorer interface {
	Name() string
	Score(ctx context.Context, jobDescription string, resumes []string) ([]float64, error)
}

// ResultCache 单份简历评分结果缓存
type ResultCache interface {
	GetScore(ctx context.Context, fingerprint string, dest any) (bool, error)
	SetScore(ctx context.Context, fingerprint string, value any, ttl time.Duration) error
}

// ResultStore 批次结果持久化
type ResultStore interface {
	SaveBatchResult(ctx context.Context, batch *models.ScoringBatch) error
}
