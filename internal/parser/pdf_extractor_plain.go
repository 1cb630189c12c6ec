package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// PlainPDFExtractor 纯 Go 的逐页 PDF 文本提取，不依赖 Eino
type PlainPDFExtractor struct{}

// NewPlainPDFExtractor 创建提取器
func NewPlainPDFExtractor() *PlainPDFExtractor { return &PlainPDFExtractor{} }

// Name 提取器名称
func (p *PlainPDFExtractor) Name() string { return EnginePlain }

// ExtractText 实现 processor.TextExtractor；空白页跳过，页与页之间以换行分隔
func (p *PlainPDFExtractor) ExtractText(ctx context.Context, data []byte, filename string) (text string, err error) {
	// 损坏的PDF可能让底层库 panic
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("解析PDF失败 %s: %v", filename, r)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("读取PDF失败 %s: %w", filename, err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("提取第%d页文本失败 %s: %w", i, filename, err)
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}

	text = sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}
	return text, nil
}
