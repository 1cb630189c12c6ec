package similarity

import (
	"regexp"
	"strings"
)

var (
	// 控制字符、私有区字符（PDF 图标字体常见）替换为空格
	noiseRe = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f\x{00a0}\x{200b}-\x{200d}\x{feff}\x{e000}-\x{f8ff}]`)
	// 项目符号
	bulletRe = regexp.MustCompile(`[•●▪■◦‣∙·]`)
	spaceRe  = regexp.MustCompile(`[ \t]+`)
)

// CleanText 规范化提取出的文本：去除控制字符与项目符号，
// 合并行内空白，删除空行。c++、c#、node.js 这类记号保持原样
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = noiseRe.ReplaceAllString(text, " ")
	text = bulletRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
