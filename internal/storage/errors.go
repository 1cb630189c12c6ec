package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrBatchNotFound 评分批次不存在
	ErrBatchNotFound = errors.New("评分批次不存在")
	// ErrInvalidMessage 队列消息格式或内容无效，不应重试
	ErrInvalidMessage = errors.New("无效的评分任务消息")
	// ErrNotConfigured 存储组件未启用
	ErrNotConfigured = errors.New("存储组件未启用")
)

func errInvalidMessage(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMessage, fmt.Sprintf(format, args...))
}
