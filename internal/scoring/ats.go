package scoring

import (
	"math"
	"strings"
)

// atsSections ATS 结构完整度检查的章节关键词
var atsSections = []string{"experience", "education", "skills", "projects", "summary"}

const (
	atsSkillsWeight     = 0.40
	atsSectionsWeight   = 0.20
	atsExperienceWeight = 0.15
	atsParseWeight      = 0.15
)

// ATSBreakdown ATS 得分的组成
type ATSBreakdown struct {
	Skills     float64 `json:"skills"`
	Sections   float64 `json:"sections"`
	Experience float64 `json:"experience"`
	Parse      float64 `json:"parse"`
	Score      float64 `json:"score"`
}

// ComputeATS 由技能数、年限与原始文本计算 ATS 友好度，0-100 两位小数
func ComputeATS(skillCount int, years Years, text string) ATSBreakdown {
	b := ATSBreakdown{
		Skills:     math.Min(1, float64(skillCount)/SkillsFallbackDenominator),
		Sections:   sectionCoverage(text),
		Experience: experienceStep(years),
		Parse:      parseStep(len(strings.Fields(text))),
	}
	total := atsSkillsWeight*b.Skills + atsSectionsWeight*b.Sections +
		atsExperienceWeight*b.Experience + atsParseWeight*b.Parse
	b.Score = roundTo(clamp01(total)*100, 2)
	return b
}

func sectionCoverage(text string) float64 {
	lower := strings.ToLower(text)
	n := 0
	for _, s := range atsSections {
		if strings.Contains(lower, s) {
			n++
		}
	}
	return float64(n) / float64(len(atsSections))
}

func experienceStep(y Years) float64 {
	switch {
	case y <= 0:
		return 0.6
	case y <= 2:
		return 0.7
	case y <= 5:
		return 0.85
	default:
		return 1.0
	}
}

// parseStep 词数过少通常意味着PDF提取失败或扫描件
func parseStep(words int) float64 {
	switch {
	case words < 80:
		return 0.3
	case words < 150:
		return 0.6
	case words < 300:
		return 0.85
	default:
		return 1.0
	}
}
