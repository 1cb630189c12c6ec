package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

var numberWords = map[string]float64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"fifteen": 15, "twenty": 20,
}

var textualYearsRe = regexp.MustCompile(
	`(\d+(?:\.\d+)?|\b(?:one|two|three|four|five|six|seven|eight|nine|ten|fifteen|twenty)\b)\s*(?:\+|plus)?\s*years?`,
)

// textualDuration 从 "5+ years"、"five years" 这类描述中读取年限，
// 只看包含职业上下文关键词的行
type textualDuration struct {
	keywords []string
}

func newTextualDuration(keywords []string) *textualDuration {
	return &textualDuration{keywords: lowerAll(keywords)}
}

// scan 返回章节中出现的最大年限
func (t *textualDuration) scan(section string) (float64, bool) {
	best, found := 0.0, false
	for _, line := range strings.Split(section, "\n") {
		lower := strings.ToLower(line)
		if !t.hasContext(lower) {
			continue
		}
		for _, m := range textualYearsRe.FindAllStringSubmatch(lower, -1) {
			v, ok := numberWords[m[1]]
			if !ok {
				f, err := strconv.ParseFloat(m[1], 64)
				if err != nil {
					continue
				}
				v = f
			}
			if v > best {
				best = v
			}
			found = true
		}
	}
	return best, found
}

func (t *textualDuration) hasContext(line string) bool {
	for _, k := range t.keywords {
		if strings.Contains(line, k) {
			return true
		}
	}
	return false
}
