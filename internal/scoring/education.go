package scoring

import (
	"fmt"
	"regexp"
	"strings"
)

// DegreeLevel 学历等级，数值越大学历越高
type DegreeLevel int

const (
	DegreeNone DegreeLevel = iota
	DegreeAssociate
	DegreeBachelor
	DegreeMaster
	DegreePhD
)

var degreeNames = map[DegreeLevel]string{
	DegreeNone:      "None",
	DegreeAssociate: "Associate",
	DegreeBachelor:  "Bachelor",
	DegreeMaster:    "Master",
	DegreePhD:       "PhD",
}

func (d DegreeLevel) String() string {
	if n, ok := degreeNames[d]; ok {
		return n
	}
	return fmt.Sprintf("DegreeLevel(%d)", int(d))
}

// Score 学历分项得分
func (d DegreeLevel) Score() float64 {
	switch d {
	case DegreePhD:
		return 1.0
	case DegreeMaster:
		return 0.8
	case DegreeBachelor:
		return 0.6
	case DegreeAssociate:
		return 0.4
	default:
		return 0
	}
}

// ParseDegreeLevel 由名称解析学历等级，不区分大小写
func ParseDegreeLevel(s string) (DegreeLevel, error) {
	for level, name := range degreeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return level, nil
		}
	}
	return DegreeNone, fmt.Errorf("未知学历等级: %q", s)
}

// MarshalText 以名称序列化
func (d DegreeLevel) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText 从名称反序列化
func (d *DegreeLevel) UnmarshalText(b []byte) error {
	level, err := ParseDegreeLevel(string(b))
	if err != nil {
		return err
	}
	*d = level
	return nil
}

type degreeTier struct {
	level DegreeLevel
	re    *regexp.Regexp
}

// 从高到低匹配，第一个命中的等级胜出
var degreeLadder = []degreeTier{
	{DegreePhD, regexp.MustCompile(`\b(?:ph\.?d\.?|doctorate|doctor of)\b`)},
	{DegreeMaster, regexp.MustCompile(`\b(?:master of|master's|masters|mba)\b|\b(?:m\.s\.|m\.a\.)(?:\W|$)`)},
	{DegreeBachelor, regexp.MustCompile(`\b(?:bachelor of|bachelor's|bachelors|bs|ba)\b|\b(?:b\.?s\.?|b\.?a\.?|b\.?tech|b\.?eng)(?:\W|$)`)},
	// 只认带点的缩写，裸 as/aa 与英文虚词无法区分
	{DegreeAssociate, regexp.MustCompile(`\bassociate\b|\b(?:a\.s\.|a\.a\.)(?:\W|$)`)},
}

// ClassifyDegree 按学历阶梯判断一段文本中的最高学历
func ClassifyDegree(section string) DegreeLevel {
	lower := strings.ToLower(section)
	for _, tier := range degreeLadder {
		if tier.re.MatchString(lower) {
			return tier.level
		}
	}
	return DegreeNone
}

// EducationEstimator 在教育章节内识别最高学历，章节缺失时为 None
type EducationEstimator struct {
	locator *Locator
}

// NewEducationEstimator 根据规则集构造估算器
func NewEducationEstimator(rules EducationRules) *EducationEstimator {
	return &EducationEstimator{
		locator: NewLocator(SectionEducation,
			Headers(HeaderAnchored, rules.Headers...),
			Headers(HeaderAnchored, rules.StopHeaders...)),
	}
}

// Estimate 返回学历等级
func (e *EducationEstimator) Estimate(text string) DegreeLevel {
	section, ok := e.locator.Extract(RepairHeaders(text))
	if !ok {
		return DegreeNone
	}
	return ClassifyDegree(section)
}
