package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"resume-matcher/internal/api/handler"
	"resume-matcher/internal/api/router"
	"resume-matcher/internal/bootstrap"
	"resume-matcher/internal/config"
	"resume-matcher/internal/constants"
	"resume-matcher/internal/logger"
	"resume-matcher/internal/outbox"
	"resume-matcher/internal/processor"
	"resume-matcher/internal/ratelimit"
	"resume-matcher/internal/storage"
	"resume-matcher/internal/tracing"
)

var version = "1.0.0" //nolint:gochecknoglobals

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，默认在常见位置查找 config.yaml")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	initLogger(cfg.Logger)
	log := logger.Component("main")
	log.Info().Str("version", version).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Tracing.Enabled {
		shutdownTracer, err := tracing.InitTracer(ctx, tracing.ProviderConfig{
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
			ServiceName: cfg.Tracing.ServiceName,
			Version:     version,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("初始化链路追踪失败，继续运行")
		} else {
			defer func() {
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer scancel()
				_ = shutdownTracer(sctx)
			}()
		}
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()

	var cache processor.ResultCache
	if storageManager.Redis != nil {
		cache = storageManager.Redis
	}
	scorer, err := bootstrap.NewScorer(ctx, cfg, cache)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化评分器失败")
	}
	log.Info().
		Str("profile", scorer.Engine().Profile().Version).
		Str("similarity", scorer.SimilarityName()).
		Str("extraction", cfg.Extraction.Engine).
		Msg("评分器初始化成功")

	scoreHandler := handler.NewScoreHandler(cfg, scorer, handler.DependenciesFromStorage(storageManager))

	var relay *outbox.MessageRelay
	if storageManager.AsyncReady() {
		relay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ)
		relay.Start(ctx)
		log.Info().Msg("消息中继服务已启动")

		if err := scoreHandler.StartScoreJobConsumer(ctx, cfg.RabbitMQ.ConsumerWorkers); err != nil {
			log.Fatal().Err(err).Msg("启动评分任务消费者失败")
		}
	} else {
		log.Warn().Msg("MinIO/MySQL/RabbitMQ 未全部可用，异步评分接口已禁用")
	}

	limiter := ratelimit.NewKeyedLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	go sweepLimiter(ctx, limiter)

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(cfg.Server.MaxUploadMB<<20),
		server.WithExitWaitTime(config.GetDuration(cfg.Server.ShutdownWait, 10*time.Second)),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	router.RegisterRoutes(h, &cfg.Server, scoreHandler, limiter)

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("HTTP 服务器启动中")
		if err := h.Run(); err != nil {
			log.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("接收到终止信号，正在优雅退出...")

	// 先停止消费与中继，再关闭 HTTP 服务
	cancel()
	if relay != nil {
		relay.Stop()
		log.Info().Msg("消息中继服务已停止")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownWait, 10*time.Second))
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("服务器关闭失败")
	}
	log.Info().Msg("优雅退出完成")
}

func initLogger(cfg config.LoggerConfig) {
	logger.Init(logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		TimeFormat:   cfg.TimeFormat,
		ReportCaller: cfg.ReportCaller,
	})
	hlog.SetLogger(hertzadapter.From(logger.Logger))
	if cfg.Level == "debug" {
		hlog.SetLevel(hlog.LevelDebug)
	} else {
		hlog.SetLevel(hlog.LevelInfo)
	}
}

func sweepLimiter(ctx context.Context, limiter *ratelimit.KeyedLimiter) {
	if !limiter.Enabled() {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Sweep(); n > 0 {
				logger.Debug().Int("removed", n).Str("service", constants.ServiceName).Msg("清理空闲限流桶")
			}
		}
	}
}
