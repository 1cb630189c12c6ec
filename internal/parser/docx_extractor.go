package parser

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

var (
	xmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	inlineSpace = regexp.MustCompile(`[ \t\f\v]+`)
	blankLines  = regexp.MustCompile(`\n{2,}`)
)

// DocxExtractor 提取 Word(.docx) 简历的正文
type DocxExtractor struct{}

// NewDocxExtractor 创建提取器
func NewDocxExtractor() *DocxExtractor { return &DocxExtractor{} }

// ExtractText 实现 processor.TextExtractor
func (d *DocxExtractor) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("解析docx失败 %s: %w", filename, err)
	}
	defer doc.Close()

	text := StripDocumentXML(doc.Editable().GetContent())
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}
	return text, nil
}

// StripDocumentXML 把 word/document.xml 转为纯文本：段落与换行符转为换行，
// 制表符保留，其余标签删除，XML 实体反转义
func StripDocumentXML(content string) string {
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = strings.ReplaceAll(content, "<w:br/>", "\n")
	content = strings.ReplaceAll(content, "<w:tab/>", "\t")
	content = xmlTagRe.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = inlineSpace.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	content = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n")
	return strings.TrimSpace(content)
}
