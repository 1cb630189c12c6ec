package scoring

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// SectionKind 章节类型
type SectionKind string

const (
	SectionExperience SectionKind = "experience"
	SectionEducation  SectionKind = "education"
	SectionSkills     SectionKind = "skills"
	SectionProjects   SectionKind = "projects"
)

// Section 小写文本上的半开区间 [start, end)
type Section struct {
	kind  SectionKind
	start int
	end   int
}

// Kind 章节类型
func (s Section) Kind() SectionKind { return s.kind }

// Start 章节内容起始偏移（标题之后）
func (s Section) Start() int { return s.start }

// End 章节结束偏移（下一个停止标题处或文本末尾）
func (s Section) End() int { return s.end }

// Len 章节长度
func (s Section) Len() int { return s.end - s.start }

// Text 截取章节内容，text 必须是定位时使用的同一份文本
func (s Section) Text(text string) string {
	if s.start < 0 || s.end > len(text) || s.start > s.end {
		return ""
	}
	return text[s.start:s.end]
}

// HeaderMode 标题匹配方式
type HeaderMode int

const (
	// HeaderAnchored 行首（允许空白）出现标题，其后紧跟冒号、换行或文本结尾
	HeaderAnchored HeaderMode = iota
	// HeaderTrailing 标题位于行尾即可，允许前面粘连其他字符（强标题）
	HeaderTrailing
	// HeaderGuarded 标题独占一行的弱标题，所在行长度不得超过标题长度+4
	HeaderGuarded
	// HeaderStandalone 行首标题，可选冒号，之后必须换行或结束
	HeaderStandalone
)

// guardAllowance 弱标题所在行允许的额外字符数（编号、项目符号等）
const guardAllowance = 5

// Header 一个章节标题及其匹配方式
type Header struct {
	Name string
	Mode HeaderMode
}

type compiledHeader struct {
	Header
	re *regexp.Regexp
}

func compileHeader(h Header) compiledHeader {
	name := strings.ToLower(strings.TrimSpace(h.Name))
	q := regexp.QuoteMeta(name)
	var pattern string
	switch h.Mode {
	case HeaderTrailing:
		pattern = q + `\s*(?::|\n|$)`
	case HeaderGuarded:
		// 按行匹配：标题前只允许编号与项目符号，再由长度守卫过滤
		pattern = `^([\s\d.)(*•-]*)` + q + `\s*(:|$)`
	case HeaderStandalone:
		pattern = `(?:^|\n)\s*` + q + `\s*:?\s*(?:\n|$)`
	default:
		pattern = `(?:^|\n)\s*` + q + `\s*(?::|\n|$)`
	}
	return compiledHeader{Header: Header{Name: name, Mode: h.Mode}, re: regexp.MustCompile(pattern)}
}

// find 返回标题匹配区间 [start, end)，start 为匹配起点，end 为标题之后的偏移
func (c compiledHeader) find(text string) (int, int, bool) {
	if c.Mode != HeaderGuarded {
		loc := c.re.FindStringIndex(text)
		if loc == nil {
			return 0, 0, false
		}
		return loc[0], loc[1], true
	}

	limit := utf8.RuneCountInString(c.Name) + guardAllowance
	lineStart := 0
	for lineStart <= len(text) {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += lineStart
		}
		line := text[lineStart:lineEnd]

		if m := c.re.FindStringSubmatchIndex(line); m != nil {
			content := strings.TrimSpace(line[:m[1]])
			if utf8.RuneCountInString(content) < limit {
				end := lineStart + m[1]
				// 以行尾结束时，章节从下一行开始
				if m[4] == m[5] && lineEnd < len(text) {
					end = lineEnd + 1
				}
				return lineStart, end, true
			}
		}

		if lineEnd >= len(text) {
			break
		}
		lineStart = lineEnd + 1
	}
	return 0, 0, false
}

// Locator 按优先级查找起始标题，并在其后查找最早出现的停止标题
type Locator struct {
	kind  SectionKind
	start []compiledHeader
	stop  []compiledHeader
}

// NewLocator 构造章节定位器；start 按优先级排列
func NewLocator(kind SectionKind, start []Header, stop []Header) *Locator {
	l := &Locator{kind: kind}
	for _, h := range start {
		l.start = append(l.start, compileHeader(h))
	}
	for _, h := range stop {
		l.stop = append(l.stop, compileHeader(h))
	}
	return l
}

// Locate 在小写文本中定位章节；未找到起始标题时 ok 为 false
func (l *Locator) Locate(text string) (Section, bool) {
	begin := -1
	for _, h := range l.start {
		if _, end, ok := h.find(text); ok {
			begin = end
			break
		}
	}
	if begin < 0 {
		return Section{}, false
	}

	end := len(text)
	rest := text[begin:]
	for _, h := range l.stop {
		if s, _, ok := h.find(rest); ok && begin+s < end {
			end = begin + s
		}
	}
	return Section{kind: l.kind, start: begin, end: end}, true
}

// Extract 定位并返回章节文本
func (l *Locator) Extract(text string) (string, bool) {
	sec, ok := l.Locate(text)
	if !ok {
		return "", false
	}
	return sec.Text(text), true
}

// Headers 以相同模式构造一组标题
func Headers(mode HeaderMode, names ...string) []Header {
	out := make([]Header, 0, len(names))
	for _, n := range names {
		out = append(out, Header{Name: n, Mode: mode})
	}
	return out
}

var gluedHeaders = func() []*regexp.Regexp {
	names := []string{"EDUCATION", "SKILLS", "EXPERIENCE", "PROJECTS", "SUMMARY", "AWARDS"}
	out := make([]*regexp.Regexp, 0, len(names))
	for _, n := range names {
		out = append(out, regexp.MustCompile(`([a-z\.,])(`+n+`)`))
	}
	return out
}()

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

// 拆字母标题先于 "e du" 修复，否则 "e du c a t i o n" 会残留
var headerRewrites = []rewrite{
	{regexp.MustCompile(`\be\s+d\s+u\s+c\s+a\s+t\s+i\s+o\s+n\b`), "education"},
	{regexp.MustCompile(`\be\s+x\s+p\s+e\s+r\s+i\s+e\s+n\s+c\s+e\b`), "experience"},
	{regexp.MustCompile(`\bs\s+k\s+i\s+l\s+l\s+s\b`), "skills"},
	{regexp.MustCompile(`\bp\s+r\s+o\s+j\s+e\s+c\s+t\s+s\b`), "projects"},
	{regexp.MustCompile(`\ba\s+w\s+a\s+r\s+d\s+s\b`), "awards"},
	{regexp.MustCompile(`\bs\s+u\s+m\s+m\s+a\s+r\s+y\b`), "summary"},
	{regexp.MustCompile(`\be du\b`), "edu"},
	{regexp.MustCompile(`\be xperience\b`), "experience"},
	// "JUnitW ORK EXPERIENCE" 这类粘连不带边界
	{regexp.MustCompile(`w ork\s+experience`), "work experience"},
	{regexp.MustCompile(`\bw ork\b`), "work"},
}

// RepairHeaders 修复PDF提取造成的标题损坏并返回小写文本：
// 拆开与上一段末尾粘连的大写标题，合并被空格拆散的标题字母。
// 对输出再次调用结果不变
func RepairHeaders(raw string) string {
	text := raw
	for _, re := range gluedHeaders {
		text = re.ReplaceAllString(text, "${1} \n${2}")
	}
	text = strings.ToLower(text)
	// 一条规则的输出可能成为另一条规则的输入，重复到不再变化；
	// 每条替换都会缩短文本，循环必然终止
	for {
		next := text
		for _, rw := range headerRewrites {
			next = rw.re.ReplaceAllString(next, rw.repl)
		}
		if next == text {
			break
		}
		text = next
	}
	return text
}
