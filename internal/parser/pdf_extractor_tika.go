package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"resume-matcher/internal/logger"
)

// EngineTika 使用外部 Apache Tika 服务
const EngineTika = "tika"

var tikaContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// TikaExtractor 通过 Tika Server 的 PUT /tika 接口提取纯文本，PDF 与 DOCX 通用
type TikaExtractor struct {
	serverURL   string
	client      *http.Client
	annotations bool
	logger      zerolog.Logger
}

// TikaOption 配置选项
type TikaOption func(*TikaExtractor)

// WithAnnotations 是否提取PDF链接注释文本
func WithAnnotations(extract bool) TikaOption {
	return func(e *TikaExtractor) {
		e.annotations = extract
	}
}

// WithTimeout HTTP 超时
func WithTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaExtractor) {
		if timeout > 0 {
			e.client.Timeout = timeout
		}
	}
}

// WithHTTPClient 替换 HTTP 客户端
func WithHTTPClient(c *http.Client) TikaOption {
	return func(e *TikaExtractor) {
		if c != nil {
			e.client = c
		}
	}
}

// NewTikaExtractor 创建 Tika 提取器，serverURL 例如 http://localhost:9998
func NewTikaExtractor(serverURL string, options ...TikaOption) *TikaExtractor {
	e := &TikaExtractor{
		serverURL:   strings.TrimRight(serverURL, "/"),
		client:      &http.Client{Timeout: 60 * time.Second},
		annotations: true,
		logger:      logger.Logger.With().Str("component", "tika").Logger(),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Name 提取器名称
func (e *TikaExtractor) Name() string { return EngineTika }

// ExtractText 实现 processor.TextExtractor
func (e *TikaExtractor) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, e.serverURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("创建Tika请求失败: %w", err)
	}
	if ct, ok := tikaContentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		req.Header.Set("Content-Type", ct)
	}
	req.Header.Set("Accept", "text/plain")
	if filename != "" {
		req.Header.Set("X-Tika-Resource-Name", filepath.Base(filename))
	}
	if !e.annotations {
		req.Header.Set("X-Tika-PDFExtractAnnotationText", "false")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求Tika服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika服务返回错误状态码: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}

	text := string(body)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}
	e.logger.Debug().Str("file", filename).Int("chars", len(text)).
		Dur("duration", time.Since(startTime)).Msg("Tika提取完成")
	return text, nil
}
