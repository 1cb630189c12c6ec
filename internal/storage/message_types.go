package storage

import (
	"time"

	"resume-matcher/internal/scoring"
)

// ScoreJobRequestedEvent outbox 事件类型
const ScoreJobRequestedEvent = "score.job.requested"

// ScoreJobMessage 异步评分任务消息
type ScoreJobMessage struct {
	BatchID        string           `json:"batch_id"`
	JobID          string           `json:"job_id,omitempty"`
	JobDescription string           `json:"job_description"`
	Resumes        []ScoreJobResume `json:"resumes"`
	Weights        *scoring.Weights `json:"weights,omitempty"`
	EvaluatedAt    time.Time        `json:"evaluated_at"`
	SubmittedAt    time.Time        `json:"submitted_at"`
}

// ScoreJobResume 已上传到对象存储的一份简历
type ScoreJobResume struct {
	ResumeID  string `json:"resume_id"`
	Filename  string `json:"filename"`
	ObjectKey string `json:"object_key"`
}

// Validate 检查消息是否可处理
func (m ScoreJobMessage) Validate() error {
	switch {
	case m.BatchID == "":
		return errInvalidMessage("batch_id为空")
	case m.JobDescription == "":
		return errInvalidMessage("job_description为空")
	case len(m.Resumes) == 0:
		return errInvalidMessage("resumes为空")
	case m.EvaluatedAt.IsZero():
		return errInvalidMessage("evaluated_at为空")
	}
	for i, r := range m.Resumes {
		if r.ObjectKey == "" {
			return errInvalidMessage("第%d份简历缺少object_key", i)
		}
	}
	return nil
}
