package processor

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"resume-matcher/internal/constants"
	"resume-matcher/internal/scoring"
	"resume-matcher/internal/storage/models"
)

// ResumeDocument 待评分的一份简历；Text 为空时从 Data 提取
type ResumeDocument struct {
	ID        string
	Filename  string
	ObjectKey string
	Text      string
	Data      []byte
	// Err 非空表示上游已失败（如下载失败），直接记入结果
	Err error
}

// BatchRequest 同一 JD 下的一组简历
type BatchRequest struct {
	BatchID        string
	JobID          string
	JobDescription string
	Resumes        []ResumeDocument
	Weights        *scoring.Weights
	EvaluatedAt    time.Time
}

// ResumeScore 单份简历的评分结果，分项为百分制
type ResumeScore struct {
	Rank              int      `json:"rank"`
	ResumeID          string   `json:"resume_id"`
	Filename          string   `json:"filename,omitempty"`
	ObjectKey         string   `json:"-"`
	FinalScore        float64  `json:"final_score"`
	SkillsScore       float64  `json:"skills_score"`
	ExperienceScore   float64  `json:"experience_score"`
	EducationScore    float64  `json:"education_score"`
	RelevanceScore    float64  `json:"relevance_score"`
	YearsOfExperience float64  `json:"years_of_experience"`
	ExperienceSource  string   `json:"experience_source"`
	Degree            string   `json:"degree"`
	ATSScore          float64  `json:"ats_score"`
	MatchedSkills     []string `json:"matched_skills"`
	MissingSkills     []string `json:"missing_skills"`
	Cached            bool     `json:"cached,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// Failed 是否处理失败
func (s ResumeScore) Failed() bool { return s.Error != "" }

// BatchResult 一个批次的评分结果，Results 按名次排列
type BatchResult struct {
	BatchID        string          `json:"batch_id"`
	JobID          string          `json:"job_id,omitempty"`
	JobDescription string          `json:"-"`
	ProfileVersion string          `json:"profile_version"`
	Similarity     string          `json:"similarity"`
	Weights        scoring.Weights `json:"weights"`
	EvaluatedAt    time.Time       `json:"evaluated_at"`
	JobSkills      []string        `json:"job_skills"`
	Results        []ResumeScore   `json:"results"`
	Failed         int             `json:"failed"`
	Duration       time.Duration   `json:"-"`
}

// ToModel 转换为持久化模型，状态为 COMPLETED
func (r *BatchResult) ToModel() *models.ScoringBatch {
	weights, _ := json.Marshal(r.Weights)
	completed := time.Now()
	batch := &models.ScoringBatch{
		BatchID:        r.BatchID,
		JobID:          r.JobID,
		JobDescription: r.JobDescription,
		Status:         constants.BatchStatusCompleted,
		ProfileVersion: r.ProfileVersion,
		Similarity:     r.Similarity,
		Weights:        datatypes.JSON(weights),
		EvaluatedAt:    r.EvaluatedAt,
		TotalResumes:   len(r.Results),
		FailedResumes:  r.Failed,
		CompletedAt:    &completed,
		Scores:         make([]models.ResumeScore, 0, len(r.Results)),
	}
	for _, s := range r.Results {
		batch.Scores = append(batch.Scores, models.ResumeScore{
			BatchID:           r.BatchID,
			Rank:              s.Rank,
			ResumeID:          s.ResumeID,
			Filename:          s.Filename,
			ObjectKey:         s.ObjectKey,
			FinalScore:        s.FinalScore,
			SkillsScore:       s.SkillsScore,
			ExperienceScore:   s.ExperienceScore,
			EducationScore:    s.EducationScore,
			RelevanceScore:    s.RelevanceScore,
			YearsOfExperience: s.YearsOfExperience,
			ExperienceSource:  s.ExperienceSource,
			Degree:            s.Degree,
			ATSScore:          s.ATSScore,
			MatchedSkills:     jsonList(s.MatchedSkills),
			MissingSkills:     jsonList(s.MissingSkills),
			ErrorMessage:      s.Error,
		})
	}
	return batch
}

// ScoresFromModel 将持久化的结果还原为接口返回结构
func ScoresFromModel(rows []models.ResumeScore) []ResumeScore {
	out := make([]ResumeScore, 0, len(rows))
	for _, row := range rows {
		s := ResumeScore{
			Rank:              row.Rank,
			ResumeID:          row.ResumeID,
			Filename:          row.Filename,
			ObjectKey:         row.ObjectKey,
			FinalScore:        row.FinalScore,
			SkillsScore:       row.SkillsScore,
			ExperienceScore:   row.ExperienceScore,
			EducationScore:    row.EducationScore,
			RelevanceScore:    row.RelevanceScore,
			YearsOfExperience: row.YearsOfExperience,
			ExperienceSource:  row.ExperienceSource,
			Degree:            row.Degree,
			ATSScore:          row.ATSScore,
			Error:             row.ErrorMessage,
		}
		if len(row.MatchedSkills) > 0 {
			_ = json.Unmarshal(row.MatchedSkills, &s.MatchedSkills)
		}
		if len(row.MissingSkills) > 0 {
			_ = json.Unmarshal(row.MissingSkills, &s.MissingSkills)
		}
		out = append(out, s)
	}
	return out
}

func jsonList(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return datatypes.JSON(b)
}
