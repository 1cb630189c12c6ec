package scoring

import (
	"regexp"
	"sort"
	"strings"
)

// SkillSet 规范化（小写）技能集合，顺序无意义
type SkillSet map[string]struct{}

// NewSkillSet 由若干技能词构造集合
func NewSkillSet(terms ...string) SkillSet {
	s := make(SkillSet, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			s[t] = struct{}{}
		}
	}
	return s
}

// Has 判断集合是否包含某技能
func (s SkillSet) Has(term string) bool {
	_, ok := s[strings.ToLower(term)]
	return ok
}

// Len 集合大小
func (s SkillSet) Len() int { return len(s) }

// Intersect 返回两个集合的交集
func (s SkillSet) Intersect(other SkillSet) SkillSet {
	out := make(SkillSet)
	for t := range s {
		if _, ok := other[t]; ok {
			out[t] = struct{}{}
		}
	}
	return out
}

// Difference 返回 s 中存在而 other 中不存在的技能
func (s SkillSet) Difference(other SkillSet) SkillSet {
	out := make(SkillSet)
	for t := range s {
		if _, ok := other[t]; !ok {
			out[t] = struct{}{}
		}
	}
	return out
}

// Sorted 按字母序返回技能列表
func (s SkillSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

type skillTerm struct {
	canonical string
	display   string
	pattern   *regexp.Regexp
}

// SkillExtractor 基于固定词表的技能提取器，编译后只读，可并发使用
type SkillExtractor struct {
	terms   []skillTerm
	display map[string]string
}

// NewSkillExtractor 编译词表。长度不超过3的短词（c、r、go）要求左侧为行首或空白，
// 右侧为行尾、空白或 , . / 之一；其余词条两侧使用单词边界
func NewSkillExtractor(vocabulary []string) *SkillExtractor {
	e := &SkillExtractor{display: make(map[string]string, len(vocabulary))}
	seen := make(map[string]bool, len(vocabulary))
	for _, raw := range vocabulary {
		display := strings.TrimSpace(raw)
		canonical := strings.ToLower(display)
		if canonical == "" || seen[canonical] {
			continue
		}
		seen[canonical] = true

		quoted := regexp.QuoteMeta(canonical)
		var pattern string
		if len(canonical) <= 3 {
			pattern = `(?:^|\s)` + quoted + `(?:$|[\s,./])`
		} else {
			pattern = `\b` + quoted + `\b`
		}
		e.terms = append(e.terms, skillTerm{
			canonical: canonical,
			display:   display,
			pattern:   regexp.MustCompile(pattern),
		})
		e.display[canonical] = display
	}
	return e
}

// Extract 返回文本中出现的词表技能
func (e *SkillExtractor) Extract(text string) SkillSet {
	lower := strings.ToLower(text)
	found := make(SkillSet)
	for _, t := range e.terms {
		if t.pattern.MatchString(lower) {
			found[t.canonical] = struct{}{}
		}
	}
	return found
}

// Display 按词表的展示大小写返回排序后的技能名
func (e *SkillExtractor) Display(s SkillSet) []string {
	keys := s.Sorted()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if d, ok := e.display[k]; ok {
			out = append(out, d)
		} else {
			out = append(out, k)
		}
	}
	return out
}

// Size 词表词条数
func (e *SkillExtractor) Size() int { return len(e.terms) }
