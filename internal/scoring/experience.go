package scoring

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxExperienceYears 经验年限上限
const MaxExperienceYears = 40.0

// Years 工作年限，保留一位小数
type Years float64

func (y Years) String() string {
	return strconv.FormatFloat(float64(y), 'f', 1, 64) + " Years"
}

// ExperienceSource 年限的来源
type ExperienceSource string

const (
	SourceNone     ExperienceSource = "none"
	SourceExplicit ExperienceSource = "explicit"
	SourceTimeline ExperienceSource = "timeline"
	SourceTextual  ExperienceSource = "textual"
	SourceNonWork  ExperienceSource = "non_work"
)

// ExperienceDetail 年限估算的中间结果，便于调试与展示
type ExperienceDetail struct {
	Years    Years            `json:"years"`
	Source   ExperienceSource `json:"source"`
	Section  string           `json:"-"`
	Timeline Timeline         `json:"-"`
}

var explicitYearsRe = regexp.MustCompile(`(\d+)\s*\+?\s*(?:years|yrs)\s+(?:of\s+)?experience`)

// ExperienceEstimator 估算工作年限
type ExperienceEstimator struct {
	locator  *Locator
	nonWork  []string
	jobRe    *regexp.Regexp
	textual  *textualDuration
	fallback bool
}

// ExperienceOption 经验估算器选项
type ExperienceOption func(*ExperienceEstimator)

// WithTextualFallback 时间线不足一年时，启用"N years"文字描述兜底
func WithTextualFallback(enabled bool) ExperienceOption {
	return func(e *ExperienceEstimator) {
		e.fallback = enabled
	}
}

// NewExperienceEstimator 根据规则集构造估算器
func NewExperienceEstimator(rules ExperienceRules, opts ...ExperienceOption) *ExperienceEstimator {
	start := append(Headers(HeaderTrailing, rules.StrongHeaders...), Headers(HeaderGuarded, rules.WeakHeaders...)...)
	e := &ExperienceEstimator{
		locator: NewLocator(SectionExperience, start, Headers(HeaderStandalone, rules.StopHeaders...)),
		nonWork: lowerAll(rules.NonWorkTerms),
		textual: newTextualDuration(rules.ContextKeywords),
	}
	if len(rules.JobKeywords) > 0 {
		e.jobRe = regexp.MustCompile(alternation(rules.JobKeywords))
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate 返回年限
func (e *ExperienceEstimator) Estimate(text string, at time.Time) Years {
	return e.EstimateDetail(text, at).Years
}

// EstimateDetail 返回年限及其来源
func (e *ExperienceEstimator) EstimateDetail(text string, at time.Time) ExperienceDetail {
	lower := strings.ToLower(text)

	// 显式声明优先于时间线
	if n, ok := explicitYears(lower); ok {
		return ExperienceDetail{Years: Years(n), Source: SourceExplicit}
	}

	repaired := RepairHeaders(text)
	section, ok := e.locator.Extract(repaired)
	if !ok {
		return ExperienceDetail{Source: SourceNone}
	}
	if e.isNonWork(section) {
		return ExperienceDetail{Source: SourceNonWork, Section: section}
	}

	timeline := MergeRanges(ExtractRanges(section, FromTime(at)))
	years := timeline.Years()
	source := SourceTimeline
	if len(timeline) == 0 {
		source = SourceNone
	}

	if e.fallback && years < 1 {
		if t, found := e.textual.scan(section); found && t > years {
			years = t
			source = SourceTextual
		}
	}

	if years > MaxExperienceYears {
		years = MaxExperienceYears
	}
	return ExperienceDetail{
		Years:    Years(roundTo(years, 1)),
		Source:   source,
		Section:  section,
		Timeline: timeline,
	}
}

func explicitYears(lower string) (float64, bool) {
	matches := explicitYearsRe.FindAllStringSubmatch(lower, -1)
	if len(matches) == 0 {
		return 0, false
	}
	best := 0
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			// 超长数字视为超出上限
			n = int(MaxExperienceYears)
		}
		if n > best {
			best = n
		}
	}
	if float64(best) > MaxExperienceYears {
		return MaxExperienceYears, true
	}
	return float64(best), true
}

// isNonWork 章节只描述社团、志愿等非工作经历时返回 true
func (e *ExperienceEstimator) isNonWork(section string) bool {
	hit := false
	for _, t := range e.nonWork {
		if strings.Contains(section, t) {
			hit = true
			break
		}
	}
	if !hit {
		return false
	}
	return e.jobRe == nil || !e.jobRe.MatchString(section)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func alternation(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range lowerAll(terms) {
		quoted = append(quoted, regexp.QuoteMeta(t))
	}
	return fmt.Sprintf("(?:%s)", strings.Join(quoted, "|"))
}
