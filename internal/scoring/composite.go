package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SkillsFallbackDenominator JD 未提取到技能时，简历技能数的满分基准
const SkillsFallbackDenominator = 8

// ExperienceSaturationYears 经验分项满分所需年限
const ExperienceSaturationYears = 10.0

// Weights 四个分项的权重，不要求归一化
type Weights struct {
	Skills     float64 `yaml:"skills" json:"skills"`
	Experience float64 `yaml:"experience" json:"experience"`
	Education  float64 `yaml:"education" json:"education"`
	Relevance  float64 `yaml:"relevance" json:"relevance"`
}

// DefaultWeights 四项等权
func DefaultWeights() Weights {
	return Weights{Skills: 0.25, Experience: 0.25, Education: 0.25, Relevance: 0.25}
}

// Sum 权重之和
func (w Weights) Sum() float64 {
	return w.Skills + w.Experience + w.Education + w.Relevance
}

// Finite 所有权重非负且有限；全为0仍算合法输入，合成时总分为0
func (w Weights) Finite() bool {
	for _, v := range []float64{w.Skills, w.Experience, w.Education, w.Relevance} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

// Valid 所有权重非负且有限，且总和大于0
func (w Weights) Valid() bool {
	return w.Finite() && w.Sum() > 0
}

// WeightsFromMap 从 {"skills":..,"experience":..} 形式构造权重，缺失项为0
func WeightsFromMap(m map[string]float64) (Weights, error) {
	var w Weights
	for k, v := range m {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "skills", "skill":
			w.Skills = v
		case "experience", "exp":
			w.Experience = v
		case "education", "edu":
			w.Education = v
		case "relevance", "similarity":
			w.Relevance = v
		default:
			return Weights{}, fmt.Errorf("未知的权重项: %q", k)
		}
	}
	return w, nil
}

// Signals 组合前的原始信号，均在 [0,1] 内
type Signals struct {
	Skills     float64
	Experience float64
	Education  float64
	Relevance  float64
}

// ComponentScores 各分项得分 [0,1] 与加权总分 [0,100]
type ComponentScores struct {
	Skills     float64 `json:"skills"`
	Experience float64 `json:"experience"`
	Education  float64 `json:"education"`
	Relevance  float64 `json:"relevance"`
	Final      float64 `json:"final"`
}

// SkillsPercent 百分制分项得分，保留一位小数
func (c ComponentScores) SkillsPercent() float64 { return roundTo(c.Skills*100, 1) }

// ExperiencePercent 百分制分项得分，保留一位小数
func (c ComponentScores) ExperiencePercent() float64 { return roundTo(c.Experience*100, 1) }

// EducationPercent 百分制分项得分，保留一位小数
func (c ComponentScores) EducationPercent() float64 { return roundTo(c.Education*100, 1) }

// RelevancePercent 百分制分项得分，保留一位小数
func (c ComponentScores) RelevancePercent() float64 { return roundTo(c.Relevance*100, 1) }

// SkillsSignal 技能分项：JD 技能命中比例；JD 无技能时按简历技能数估算
func SkillsSignal(jobSkills, resumeSkills SkillSet) float64 {
	if jobSkills.Len() == 0 {
		return math.Min(1, float64(resumeSkills.Len())/SkillsFallbackDenominator)
	}
	return float64(jobSkills.Intersect(resumeSkills).Len()) / float64(jobSkills.Len())
}

// ExperienceSignal 经验分项
func ExperienceSignal(y Years) float64 {
	if y <= 0 {
		return 0
	}
	return math.Min(1, float64(y)/ExperienceSaturationYears)
}

// Compose 加权合成总分；权重无效时总分为0
func Compose(s Signals, w Weights) ComponentScores {
	out := ComponentScores{
		Skills:     clamp01(s.Skills),
		Experience: clamp01(s.Experience),
		Education:  clamp01(s.Education),
		Relevance:  clamp01(s.Relevance),
	}
	if !w.Valid() {
		return out
	}
	total := w.Skills*out.Skills + w.Experience*out.Experience +
		w.Education*out.Education + w.Relevance*out.Relevance
	out.Final = roundTo(total/w.Sum()*100, 2)
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// roundTo 按十进制表示四舍六入五成双，与格式化输出保持一致
func roundTo(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
