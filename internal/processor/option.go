package processor

import (
	"time"

	"github.com/rs/zerolog"
)

// Option BatchScorer 配置项
type Option func(*BatchScorer)

// WithWorkers 设置单批并发数，小于1时为1
func WithWorkers(n int) Option {
	return func(b *BatchScorer) {
		if n < 1 {
			n = 1
		}
		b.workers = n
	}
}

// WithExtractor 设置文件文本提取器
func WithExtractor(e TextExtractor) Option {
	return func(b *BatchScorer) {
		b.extractor = e
	}
}

// WithCache 启用结果缓存，ttl<=0 时不启用
func WithCache(c ResultCache, ttl time.Duration) Option {
	return func(b *BatchScorer) {
		if c == nil || ttl <= 0 {
			b.cache, b.cacheTTL = nil, 0
			return
		}
		b.cache, b.cacheTTL = c, ttl
	}
}

// WithStore 评分完成后持久化批次
func WithStore(s ResultStore) Option {
	return func(b *BatchScorer) {
		b.store = s
	}
}

// WithSource 指标中的来源标签
func WithSource(source string) Option {
	return func(b *BatchScorer) {
		if source != "" {
			b.source = source
		}
	}
}

// WithLogger 设置日志实例
func WithLogger(l zerolog.Logger) Option {
	return func(b *BatchScorer) {
		b.log = l
	}
}
