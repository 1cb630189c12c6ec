package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScoringBatch 一次评分批次(同一JD下的一组简历)
type ScoringBatch struct {
	BatchID        string         `gorm:"type:char(36);primaryKey"`
	JobID          string         `gorm:"type:varchar(100);index:idx_sb_job_id"`
	JobDescription string         `gorm:"type:mediumtext;not null"`
	Status         string         `gorm:"type:varchar(20);default:'PENDING';index:idx_sb_status"`
	ProfileVersion string         `gorm:"type:varchar(50)"`
	Similarity     string         `gorm:"type:varchar(20)"`
	Weights        datatypes.JSON `gorm:"type:json"`
	EvaluatedAt    time.Time      `gorm:"type:datetime(6)"`
	TotalResumes   int            `gorm:"default:0"`
	FailedResumes  int            `gorm:"default:0"`
	ErrorMessage   string         `gorm:"type:text"`
	CreatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
	CompletedAt    *time.Time     `gorm:"type:datetime(6);null"`

	Scores []ResumeScore `gorm:"foreignKey:BatchID;references:BatchID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (ScoringBatch) TableName() string {
	return "scoring_batches"
}

// ResumeScore 批次内单份简历的评分结果
type ResumeScore struct {
	ID                uint64         `gorm:"primaryKey;autoIncrement"`
	BatchID           string         `gorm:"type:char(36);not null;index:idx_rsc_batch_rank,priority:1"`
	Rank              int            `gorm:"column:rank_no;not null;index:idx_rsc_batch_rank,priority:2"`
	ResumeID          string         `gorm:"type:varchar(64);not null"`
	Filename          string         `gorm:"type:varchar(255)"`
	ObjectKey         string         `gorm:"type:varchar(1024)"`
	FinalScore        float64        `gorm:"type:decimal(5,2)"`
	SkillsScore       float64        `gorm:"type:decimal(4,1)"`
	ExperienceScore   float64        `gorm:"type:decimal(4,1)"`
	EducationScore    float64        `gorm:"type:decimal(4,1)"`
	RelevanceScore    float64        `gorm:"type:decimal(4,1)"`
	YearsOfExperience float64        `gorm:"type:decimal(4,1)"`
	ExperienceSource  string         `gorm:"type:varchar(20)"`
	Degree            string         `gorm:"type:varchar(20)"`
	ATSScore          float64        `gorm:"type:decimal(5,2)"`
	MatchedSkills     datatypes.JSON `gorm:"type:json"`
	MissingSkills     datatypes.JSON `gorm:"type:json"`
	ErrorMessage      string         `gorm:"type:text"`
	CreatedAt         time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (ResumeScore) TableName() string {
	return "resume_scores"
}
