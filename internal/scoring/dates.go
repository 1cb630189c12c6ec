package scoring

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// YearMonth 月粒度的日历时间点
type YearMonth struct {
	Year  int
	Month int
}

// FromTime 将时间截断为年月
func FromTime(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: int(t.Month())}
}

// Index 自公元0年1月起的月序号，用于比较与相减
func (ym YearMonth) Index() int { return ym.Year*12 + ym.Month - 1 }

// Before 严格早于
func (ym YearMonth) Before(o YearMonth) bool { return ym.Index() < o.Index() }

// After 严格晚于
func (ym YearMonth) After(o YearMonth) bool { return ym.Index() > o.Index() }

func (ym YearMonth) String() string { return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month) }

// DateRange 起止时间段，End 不早于 Start
type DateRange struct {
	Start YearMonth
	End   YearMonth
}

// Months 时间段跨度（月）
func (r DateRange) Months() int {
	return (r.End.Year-r.Start.Year)*12 + (r.End.Month - r.Start.Month)
}

// Timeline 合并后互不重叠、按起点排序的时间段
type Timeline []DateRange

// TotalMonths 时间线总月数
func (t Timeline) TotalMonths() int {
	total := 0
	for _, r := range t {
		total += r.Months()
	}
	return total
}

// Years 时间线总年数
func (t Timeline) Years() float64 {
	return float64(t.TotalMonths()) / 12.0
}

var monthIndex = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4,
	"may": 5, "jun": 6, "jul": 7, "aug": 8,
	"sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var presentTokens = map[string]bool{
	"present": true, "current": true, "now": true, "today": true, "till date": true,
}

var (
	yearOnlyRe   = regexp.MustCompile(`^\d{4}$`)
	numericDate  = regexp.MustCompile(`^(\d{1,2})[/-](\d{4})`)
	monthNameRe  = regexp.MustCompile(`^([a-z]+)\s*(\d{4})$`)
	dateNoiseRe  = regexp.MustCompile(`[,.]`)
	spaceCollape = regexp.MustCompile(`\s+`)
)

// ParseDate 解析单个日期记号；present/current/now 等解析为 now。
// 无法解析时返回 false
func ParseDate(token string, now YearMonth) (YearMonth, bool) {
	s := strings.ToLower(strings.TrimSpace(token))
	s = spaceCollape.ReplaceAllString(s, " ")
	if presentTokens[s] {
		return now, true
	}

	s = dateNoiseRe.ReplaceAllString(s, "")

	if yearOnlyRe.MatchString(s) {
		y, _ := strconv.Atoi(s)
		return validYearMonth(y, 1)
	}

	if m := numericDate.FindStringSubmatch(s); m != nil {
		mon, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		return validYearMonth(y, mon)
	}

	if m := monthNameRe.FindStringSubmatch(s); m != nil && len(m[1]) >= 3 {
		mon, ok := monthIndex[m[1][:3]]
		if !ok {
			return YearMonth{}, false
		}
		y, _ := strconv.Atoi(m[2])
		return validYearMonth(y, mon)
	}

	// "sept 2020" 以外的多段写法：首段取月份，末段取年份
	parts := strings.Fields(s)
	if len(parts) >= 2 && len(parts[0]) >= 3 {
		mon, ok := monthIndex[parts[0][:3]]
		if !ok {
			return YearMonth{}, false
		}
		y, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			return YearMonth{}, false
		}
		return validYearMonth(y, mon)
	}
	return YearMonth{}, false
}

func validYearMonth(y, m int) (YearMonth, bool) {
	if y < 1 || y > 9999 || m < 1 || m > 12 {
		return YearMonth{}, false
	}
	return YearMonth{Year: y, Month: m}, true
}

const monthsPattern = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t|tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

const datePattern = `\b` + monthsPattern + `\.?\s*\d{4}|\b\d{1,2}[/-]\d{4}|\b\d{4}`

// 右端额外允许 present 一类的记号
var rangeRe = regexp.MustCompile(
	`(` + datePattern + `)` +
		`\s*(?:-|–|to)\s*` +
		`(present|current|now|today|till date|` + datePattern + `)`,
)

// ExtractRanges 从（小写的）章节文本中抽取合法的日期区间，
// 任一端无法解析或结束早于开始的区间被丢弃
func ExtractRanges(section string, now YearMonth) []DateRange {
	matches := rangeRe.FindAllStringSubmatch(strings.ToLower(section), -1)
	ranges := make([]DateRange, 0, len(matches))
	for _, m := range matches {
		start, ok := ParseDate(m[1], now)
		if !ok {
			continue
		}
		end, ok := ParseDate(m[2], now)
		if !ok {
			continue
		}
		if end.Before(start) {
			continue
		}
		ranges = append(ranges, DateRange{Start: start, End: end})
	}
	return ranges
}

// MergeRanges 按起点排序后合并重叠或相接的区间，输入切片不被修改
func MergeRanges(ranges []DateRange) Timeline {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]DateRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].End.Before(sorted[j].End)
	})

	merged := Timeline{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
