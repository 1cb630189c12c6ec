package parser

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEinoPDFTextExtractor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	extractor, err := NewEinoPDFTextExtractor(ctx)
	require.NoError(t, err, "创建PDF提取器不应返回错误")
	require.NotNil(t, extractor.parser, "PDF提取器内部的parser不应为nil")
	assert.Equal(t, 30*time.Second, extractor.timeout)
	assert.Equal(t, EngineEino, extractor.Name())

	custom, err := NewEinoPDFTextExtractor(ctx,
		WithEinoLogger(zerolog.Nop()),
		WithEinoTimeout(5*time.Second),
		WithEinoTimeout(0))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, custom.timeout, "非正的超时应被忽略")
}

func TestEinoExtractFromNonExistentFile(t *testing.T) {
	ctx := context.Background()
	extractor, err := NewEinoPDFTextExtractor(ctx)
	require.NoError(t, err)

	_, err = extractor.ExtractFromFile(ctx, "/path/to/non/existent/resume.pdf")
	require.Error(t, err, "从不存在的文件提取应该返回错误")
	assert.Contains(t, err.Error(), "打开PDF文件失败")
}
