package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"resume-matcher/internal/storage"
)

func recordSpans(t *testing.T, h *ScoreHandler) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	h.tracer = tp.Tracer("test")
	return rec, tp
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[string]attribute.Value {
	m := make(map[string]attribute.Value)
	for _, kv := range s.Attributes() {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestHandleScoreJob_TracesDrop(t *testing.T) {
	deps, _, _ := asyncDeps()
	h, _ := newTestHandler(t, deps)
	rec, _ := recordSpans(t, h)

	require.True(t, h.handleScoreJob(context.Background(), []byte("{oops")))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "ScoreJob.Consume", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	attrs := spanAttrs(ended[0])
	assert.False(t, attrs["messaging.rabbitmq.requeue"].AsBool())
	assert.Equal(t, "rabbitmq", attrs["error.type"].AsString())
}

func TestHandleScoreJob_TracesRequeue(t *testing.T) {
	deps, batches, objects := asyncDeps()
	h, _ := newTestHandler(t, deps)
	rec, _ := recordSpans(t, h)
	body := pendingJob(t, batches, objects)
	batches.getErr = errors.New("db down")

	require.False(t, h.handleScoreJob(context.Background(), body))

	attrs := spanAttrs(rec.Ended()[0])
	assert.True(t, attrs["messaging.rabbitmq.requeue"].AsBool())
	assert.Equal(t, "b-1", attrs["messaging.message_id"].AsString())
	assert.Equal(t, "db down", attrs["error.message"].AsString())
}

func TestHandleScoreJob_TracesDownloadFailure(t *testing.T) {
	deps, batches, objects := asyncDeps()
	h, _ := newTestHandler(t, deps)
	rec, _ := recordSpans(t, h)
	body := pendingJob(t, batches, objects)
	objects.getErr[storage.ResumeObjectKey("b-1", "r-weak", "john.txt")] = errors.New("timeout")

	require.True(t, h.handleScoreJob(context.Background(), body))

	var consume sdktrace.ReadOnlySpan
	for _, s := range rec.Ended() {
		if s.Name() == "ScoreJob.Consume" {
			consume = s
		}
	}
	require.NotNil(t, consume)
	assert.NotEqual(t, codes.Error, consume.Status().Code)
	require.Len(t, consume.Events(), 1)
	ev := consume.Events()[0]
	assert.Equal(t, "resume.download_failed", ev.Name)
	evAttrs := make(map[string]string)
	for _, kv := range ev.Attributes {
		evAttrs[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "r-weak", evAttrs["resume.id"])
	assert.Equal(t, "jo****xt", evAttrs["resume.filename"])
}

func TestErrorResponses_RecordOnRequestSpan(t *testing.T) {
	h, _ := newTestHandler(t, Dependencies{})
	rec, tp := recordSpans(t, h)

	c, span := tp.Tracer("test").Start(context.Background(), "POST /api/v1/score")
	ctx := app.NewContext(0)
	h.reject(c, ctx, "请求参数校验失败", []string{"job_description is required"})
	assert.Equal(t, consts.StatusBadRequest, ctx.Response.StatusCode())

	ctx = app.NewContext(0)
	h.internalError(c, ctx, "评分失败", errors.New("boom"))
	assert.Equal(t, consts.StatusInternalServerError, ctx.Response.StatusCode())
	span.End()

	attrs := spanAttrs(rec.Ended()[0])
	assert.Equal(t, "http", attrs["error.type"].AsString())
	assert.Equal(t, int64(consts.StatusInternalServerError), attrs["http.status_code"].AsInt64())
	assert.Equal(t, "server_error", attrs["error.category"].AsString())
	assert.Len(t, rec.Ended()[0].Events(), 2)
}
