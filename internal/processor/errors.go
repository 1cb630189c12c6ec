package processor

import (
	"errors"
	"fmt"
)

// 批次级错误，出现时整个批次失败
var (
	ErrEmptyJobDescription   = errors.New("岗位描述不能为空")
	ErrNoResumes             = errors.New("没有待评分的简历")
	ErrMissingEvaluationTime = errors.New("缺少评估时间")
	ErrInvalidWeights        = errors.New("评分权重无效")
	ErrSimilarityFailed      = errors.New("计算文本相关度失败")
	ErrPersistFailed         = errors.New("保存评分结果失败")
)

// 单份简历的错误，只记录在该简历的结果中
var (
	ErrExtractionFailed = errors.New("提取简历文本失败")
	ErrResumeDownload   = errors.New("下载简历失败")
)

// ScoreError 单份简历处理失败的详细信息
type ScoreError struct {
	ResumeID string
	Op       string
	BaseErr  error
	Detail   string
}

func (e *ScoreError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 简历:%s): %s", e.BaseErr, e.Op, e.ResumeID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 简历:%s)", e.BaseErr, e.Op, e.ResumeID)
}

func (e *ScoreError) Unwrap() error {
	return e.BaseErr
}

// Is 按 BaseErr 比较
func (e *ScoreError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// NewExtractionError 文本提取失败
func NewExtractionError(resumeID string, err error) error {
	return &ScoreError{ResumeID: resumeID, Op: "extract", BaseErr: ErrExtractionFailed, Detail: err.Error()}
}

// NewDownloadError 从对象存储读取原件失败
func NewDownloadError(resumeID string, err error) error {
	return &ScoreError{ResumeID: resumeID, Op: "download", BaseErr: ErrResumeDownload, Detail: err.Error()}
}
