package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(Config{Level: "warn", Format: "json"}, &buf)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	Info().Msg("不应输出")
	batchLog := Component("batch")
	batchLog.Warn().Str("batch_id", "b1").Msg("批次告警")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "batch", entry["component"])
	assert.Equal(t, "b1", entry["batch_id"])
	assert.Equal(t, "批次告警", entry["message"])
}

func TestInitWithWriter_InvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(Config{Level: "loud"}, &buf)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(Config{Level: "info"}, &buf)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	// 空上下文回落到全局实例
	Ctx(context.Background()).Info().Msg("fallback")
	assert.Contains(t, buf.String(), "fallback")

	buf.Reset()
	ctx := WithContext(context.Background())
	Ctx(ctx).Info().Msg("from ctx")
	assert.Contains(t, buf.String(), "from ctx")
}
