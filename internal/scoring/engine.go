package scoring

import (
	"time"
)

// Engine 组合技能提取、经验与学历估算及加权评分。
// 构造后只读，可被多个 goroutine 共享
type Engine struct {
	profile    Profile
	weights    Weights
	skills     *SkillExtractor
	experience *ExperienceEstimator
	education  *EducationEstimator
}

type engineSettings struct {
	weights         Weights
	textualFallback bool
}

// EngineOption 引擎选项
type EngineOption func(*engineSettings)

// WithWeights 设置 ScoreResume 使用的默认权重
func WithWeights(w Weights) EngineOption {
	return func(s *engineSettings) {
		s.weights = w
	}
}

// WithTextualDurationFallback 开启文字年限兜底
func WithTextualDurationFallback(enabled bool) EngineOption {
	return func(s *engineSettings) {
		s.textualFallback = enabled
	}
}

// NewEngine 按规则集构造评分引擎
func NewEngine(profile Profile, opts ...EngineOption) *Engine {
	settings := engineSettings{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(&settings)
	}
	return &Engine{
		profile:    profile,
		weights:    settings.weights,
		skills:     NewSkillExtractor(profile.Skills),
		experience: NewExperienceEstimator(profile.Experience, WithTextualFallback(settings.textualFallback)),
		education:  NewEducationEstimator(profile.Education),
	}
}

// Profile 引擎使用的规则集
func (e *Engine) Profile() Profile { return e.profile }

// Weights 默认权重
func (e *Engine) Weights() Weights { return e.weights }

// ExtractSkills 提取词表技能
func (e *Engine) ExtractSkills(text string) SkillSet { return e.skills.Extract(text) }

// DisplaySkills 以词表大小写展示技能
func (e *Engine) DisplaySkills(s SkillSet) []string { return e.skills.Display(s) }

// EstimateExperience 估算工作年限
func (e *Engine) EstimateExperience(text string, at time.Time) Years {
	return e.experience.Estimate(text, at)
}

// EstimateExperienceDetail 估算工作年限并返回来源
func (e *Engine) EstimateExperienceDetail(text string, at time.Time) ExperienceDetail {
	return e.experience.EstimateDetail(text, at)
}

// EstimateEducation 识别最高学历
func (e *Engine) EstimateEducation(text string) DegreeLevel {
	return e.education.Estimate(text)
}

// ScoreResume 以默认权重计算一份简历的分项与总分
func (e *Engine) ScoreResume(jobSkills SkillSet, raw string, relevance float64, at time.Time) ComponentScores {
	return e.Assess(jobSkills, raw, relevance, at, e.weights).Scores
}

// Assessment 一份简历的完整评估结果
type Assessment struct {
	Skills     SkillSet
	Matched    []string
	Missing    []string
	Experience ExperienceDetail
	Degree     DegreeLevel
	ATS        ATSBreakdown
	Scores     ComponentScores
}

// Assess 计算分项、总分、ATS 以及技能命中/缺失
func (e *Engine) Assess(jobSkills SkillSet, raw string, relevance float64, at time.Time, w Weights) Assessment {
	resumeSkills := e.skills.Extract(raw)
	exp := e.experience.EstimateDetail(raw, at)
	degree := e.education.Estimate(raw)

	scores := Compose(Signals{
		Skills:     SkillsSignal(jobSkills, resumeSkills),
		Experience: ExperienceSignal(exp.Years),
		Education:  degree.Score(),
		Relevance:  relevance,
	}, w)

	return Assessment{
		Skills:     resumeSkills,
		Matched:    e.skills.Display(jobSkills.Intersect(resumeSkills)),
		Missing:    e.skills.Display(jobSkills.Difference(resumeSkills)),
		Experience: exp,
		Degree:     degree,
		ATS:        ComputeATS(resumeSkills.Len(), exp.Years, raw),
		Scores:     scores,
	}
}

// ATSScore ATS 友好度，0-100
func (e *Engine) ATSScore(text string, at time.Time) float64 {
	return e.ATS(text, at).Score
}

// ATS ATS 友好度及其组成
func (e *Engine) ATS(text string, at time.Time) ATSBreakdown {
	return ComputeATS(e.skills.Extract(text).Len(), e.experience.Estimate(text, at), text)
}

var defaultEngine = NewEngine(DefaultProfile())

// ExtractSkills 使用默认规则集提取技能
func ExtractSkills(text string) SkillSet { return defaultEngine.ExtractSkills(text) }

// EstimateExperience 使用默认规则集估算年限
func EstimateExperience(text string, at time.Time) Years {
	return defaultEngine.EstimateExperience(text, at)
}

// EstimateEducation 使用默认规则集识别学历
func EstimateEducation(text string) DegreeLevel { return defaultEngine.EstimateEducation(text) }
