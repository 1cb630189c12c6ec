package router

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resume-matcher/internal/api/handler"
	"resume-matcher/internal/config"
	"resume-matcher/internal/logger"
	"resume-matcher/internal/metrics"
	"resume-matcher/internal/ratelimit"
)

const apiKeyHeader = "X-API-Key"

var errInvalidAPIKey = errors.New("API Key 无效")

// RegisterRoutes 注册 API 路由；/health 与 /metrics 不鉴权、不限流
func RegisterRoutes(h *server.Hertz, cfg *config.ServerConfig, scoreHandler *handler.ScoreHandler, limiter *ratelimit.KeyedLimiter) {
	h.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{
			"status": "ok",
			"async":  scoreHandler.AsyncEnabled(),
		})
	})
	h.GET("/metrics", adaptor.HertzHandler(promhttp.Handler()))

	api := h.Group("/api/v1", RequestLogger())
	if len(cfg.APIKeys) > 0 {
		api.Use(APIKeyAuth(cfg.APIKeys))
	}
	if limiter.Enabled() {
		api.Use(RateLimit(limiter))
	}

	api.POST("/score", scoreHandler.Score)
	api.POST("/score/upload", scoreHandler.ScoreUpload)
	api.POST("/score/jobs", scoreHandler.SubmitScoreJob)
	api.GET("/score/jobs/:batch_id", scoreHandler.GetScoreJob)
	api.POST("/analyze", scoreHandler.Analyze)
}

// APIKeyAuth 校验 X-API-Key 请求头
func APIKeyAuth(keys []string) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+apiKeyHeader, ""),
		keyauth.WithValidator(func(_ context.Context, _ *app.RequestContext, key string) (bool, error) {
			for _, k := range keys {
				if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
					return true, nil
				}
			}
			return false, errInvalidAPIKey
		}),
		keyauth.WithErrorHandler(func(_ context.Context, ctx *app.RequestContext, _ error) {
			metrics.HTTPRequestsRejected.WithLabelValues(metrics.ReasonUnauthorized).Inc()
			ctx.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "API Key 无效或缺失"})
		}),
	)
}

// RateLimit 按 API Key 限流，未携带时按客户端 IP
func RateLimit(limiter *ratelimit.KeyedLimiter) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		key := string(ctx.GetHeader(apiKeyHeader))
		if key == "" {
			key = ctx.ClientIP()
		}
		if !limiter.Allow(key) {
			metrics.HTTPRequestsRejected.WithLabelValues(metrics.ReasonRateLimited).Inc()
			ctx.Header("Retry-After", "1")
			ctx.AbortWithStatusJSON(consts.StatusTooManyRequests, utils.H{"error": "请求过于频繁，请稍后重试"})
			return
		}
		ctx.Next(c)
	}
}

// RequestLogger 记录每个 API 请求的耗时与状态码
func RequestLogger() app.HandlerFunc {
	log := logger.Component("http")
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		status := ctx.Response.StatusCode()
		evt := log.Info()
		if status >= consts.StatusInternalServerError {
			evt = log.Error()
		} else if status >= consts.StatusBadRequest {
			evt = log.Warn()
		}
		evt.Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", ctx.ClientIP()).
			Msg("HTTP请求")
	}
}
