package constants

import "time"

const (
	// ServiceName 服务名，用于日志、追踪与指标
	ServiceName = "resume-matcher"

	// DefaultScoreCacheTTL 评分结果缓存默认时长
	DefaultScoreCacheTTL = 24 * time.Hour

	// BatchStatus 评分批次状态
	BatchStatusPending    = "PENDING"
	BatchStatusProcessing = "PROCESSING"
	BatchStatusCompleted  = "COMPLETED"
	BatchStatusFailed     = "FAILED"
)
