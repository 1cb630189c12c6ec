package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupportedFormat 文件格式不受支持
	ErrUnsupportedFormat = errors.New("不支持的简历格式")
	// ErrEmptyDocument 文件中没有可提取的文本
	ErrEmptyDocument = errors.New("简历中没有可提取的文本")
)

// PDF 提取引擎
const (
	EngineEino  = "eino"
	EnginePlain = "plain"
)

// Extractor 单一格式的文本提取器
type Extractor interface {
	ExtractText(ctx context.Context, data []byte, filename string) (string, error)
}

// PlainTextExtractor 直接读取 .txt / .md 简历
type PlainTextExtractor struct{}

// ExtractText 要求内容是合法 UTF-8
func (PlainTextExtractor) ExtractText(_ context.Context, data []byte, filename string) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s 不是UTF-8文本", ErrUnsupportedFormat, filename)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}
	return text, nil
}

// MultiExtractor 按扩展名（缺失时按文件头）分派到具体提取器
type MultiExtractor struct {
	byExt map[string]Extractor
}

// NewMultiExtractor 以给定的 PDF 提取器构造分派器
func NewMultiExtractor(pdfExtractor Extractor) *MultiExtractor {
	text := PlainTextExtractor{}
	return &MultiExtractor{byExt: map[string]Extractor{
		".pdf":  pdfExtractor,
		".docx": NewDocxExtractor(),
		".txt":  text,
		".md":   text,
	}}
}

// NewDefaultExtractor 按引擎名构造分派器，未知引擎返回错误
func NewDefaultExtractor(ctx context.Context, engine string) (*MultiExtractor, error) {
	switch strings.ToLower(engine) {
	case "", EnginePlain:
		return NewMultiExtractor(NewPlainPDFExtractor()), nil
	case EngineEino:
		e, err := NewEinoPDFTextExtractor(ctx)
		if err != nil {
			return nil, err
		}
		return NewMultiExtractor(e), nil
	default:
		return nil, fmt.Errorf("未知的PDF提取引擎: %s", engine)
	}
}

// Register 为扩展名注册提取器，覆盖已有项
func (m *MultiExtractor) Register(ext string, e Extractor) {
	m.byExt[normalizeExt(ext)] = e
}

// Supports 是否支持该文件名
func (m *MultiExtractor) Supports(filename string) bool {
	_, ok := m.byExt[normalizeExt(filepath.Ext(filename))]
	return ok
}

// ExtractText 实现 processor.TextExtractor
func (m *MultiExtractor) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}
	ext := normalizeExt(filepath.Ext(filename))
	if ext == "" {
		ext = sniffExt(data)
	}
	e, ok := m.byExt[ext]
	if !ok || e == nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	return e.ExtractText(ctx, data, filename)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// sniffExt 根据文件头猜测格式
func sniffExt(data []byte) string {
	switch {
	case len(data) >= 5 && string(data[:5]) == "%PDF-":
		return ".pdf"
	case len(data) >= 4 && string(data[:4]) == "PK\x03\x04":
		return ".docx"
	case utf8.Valid(data):
		return ".txt"
	default:
		return ""
	}
}
