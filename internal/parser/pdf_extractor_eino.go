package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"

	"resume-matcher/internal/logger"
)

// EinoPDFTextExtractor 使用 Eino PDF Parser 提取整份简历的连续文本
type EinoPDFTextExtractor struct {
	parser  *pdf.PDFParser
	logger  zerolog.Logger
	timeout time.Duration
}

// EinoPDFOption PDF提取器的配置选项
type EinoPDFOption func(*EinoPDFTextExtractor)

// WithEinoLogger 配置日志记录器
func WithEinoLogger(l zerolog.Logger) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		e.logger = l
	}
}

// WithEinoTimeout 单个文件的解析超时
func WithEinoTimeout(d time.Duration) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEinoPDFTextExtractor 初始化 Eino PDF 文本提取器，不按页面分割
func NewEinoPDFTextExtractor(ctx context.Context, options ...EinoPDFOption) (*EinoPDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Eino PDF 解析器失败: %w", err)
	}

	extractor := &EinoPDFTextExtractor{
		parser:  p,
		logger:  logger.Logger.With().Str("component", "eino_pdf").Logger(),
		timeout: 30 * time.Second,
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor, nil
}

// Name 提取器名称
func (e *EinoPDFTextExtractor) Name() string { return EngineEino }

// ExtractText 实现 processor.TextExtractor
func (e *EinoPDFTextExtractor) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	return e.ExtractTextFromReader(ctx, bytes.NewReader(data), filename)
}

// ExtractFromFile 从本地PDF文件提取文本
func (e *EinoPDFTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开PDF文件失败 %s: %w", filePath, err)
	}
	defer file.Close()
	return e.ExtractTextFromReader(ctx, file, filePath)
}

// ExtractTextFromReader 从 io.Reader 中提取文本
func (e *EinoPDFTextExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string) (string, error) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, reader, einoParser.WithURI(uri))
	duration := time.Since(startTime)
	if err != nil {
		e.logger.Warn().Err(err).Str("uri", uri).Dur("duration", duration).Msg("Eino 解析PDF失败")
		return "", fmt.Errorf("eino 解析PDF失败 %s: %w", uri, err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, uri)
	}

	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(doc.Content)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, uri)
	}

	e.logger.Debug().Str("uri", uri).Int("chars", len(text)).Int("documents", len(docs)).
		Dur("duration", duration).Msg("PDF提取完成")
	return text, nil
}
