package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"resume-matcher/internal/config"
	"resume-matcher/internal/constants"
	"resume-matcher/internal/tracing"
)

// ErrNotFound 键不存在
var ErrNotFound = redis.Nil

var redisTracer = otel.Tracer("resume-matcher/storage/redis")

// 按key前缀的span采样率，未匹配的前缀按5%采样
var redisKeySamplingRates = map[string]float64{
	constants.AppPrefix + ":" + constants.ScoreModulePrefix + ":": 0.01,
	constants.AppPrefix + ":" + constants.BatchModulePrefix + ":": 0.5,
}

var (
	rnd      = rand.New(rand.NewSource(time.Now().UnixNano()))
	rndMutex sync.Mutex
)

func shouldSampleRedisOp(key string) bool {
	if key == "" {
		return false
	}
	for prefix, rate := range redisKeySamplingRates {
		if strings.HasPrefix(key, prefix) {
			return randFloat() < rate
		}
	}
	return randFloat() < 0.05
}

func randFloat() float64 {
	rndMutex.Lock()
	defer rndMutex.Unlock()
	return rnd.Float64()
}

// Redis 评分结果缓存与批次锁
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 连接 Redis 并挂载 OpenTelemetry 钩子
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// NewRedisFromClient 包装已有客户端
func NewRedisFromClient(client *redis.Client, cfg *config.RedisConfig) *Redis {
	if cfg == nil {
		cfg = &config.RedisConfig{}
	}
	return &Redis{Client: client, config: cfg}
}

// Close 关闭连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查连接
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// ScoreKey 评分结果缓存键
func ScoreKey(fingerprint string) string {
	return fmt.Sprintf(constants.KeyScoreResult, fingerprint)
}

// GetScore 读取缓存的评分结果到 dest，未命中返回 false
func (r *Redis) GetScore(ctx context.Context, fingerprint string, dest any) (bool, error) {
	val, err := r.Get(ctx, ScoreKey(fingerprint))
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("反序列化评分缓存失败: %w", err)
	}
	return true, nil
}

// SetScore 缓存评分结果，ttl<=0 时不写入
func (r *Redis) SetScore(ctx context.Context, fingerprint string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化评分结果失败: %w", err)
	}
	return r.Set(ctx, ScoreKey(fingerprint), string(data), ttl)
}

// Get 获取键的值
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Get", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		span.SetAttributes(
			semconv.DBSystemRedis,
			attribute.String("db.operation", "GET"),
			attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
		)
	}

	val, err := r.Client.Get(ctx, key).Result()
	if span != nil {
		switch {
		case errors.Is(err, redis.Nil):
			// 未命中不算错误
			span.SetStatus(codes.Ok, "key not found")
			span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
		case err != nil:
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		default:
			span.SetAttributes(
				attribute.Bool("db.redis.key_exists", true),
				attribute.Int("db.redis.value_length", len(val)),
			)
			span.SetStatus(codes.Ok, "")
		}
	}
	return val, err
}

// Set 设置键的值
func (r *Redis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Set", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		span.SetAttributes(
			semconv.DBSystemRedis,
			attribute.String("db.operation", "SET"),
			attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
			attribute.Int("db.redis.value_length", len(value)),
		)
		if expiration > 0 {
			span.SetAttributes(attribute.Int64("db.redis.expiration_ms", expiration.Milliseconds()))
		}
	}

	err := r.Client.Set(ctx, key, value, expiration).Err()
	if span != nil {
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
	return err
}

// AcquireLock 尝试获取分布式锁，未获取到时返回空字符串
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	lockValue := fmt.Sprintf("%d", time.Now().UnixNano())
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return lockValue, nil
	}
	return "", nil
}

// ReleaseLock 仅当锁仍由 lockValue 持有时释放
func (r *Redis) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	script := `
        if redis.call("get", KEYS[1]) == ARGV[1] then
            return redis.call("del", KEYS[1])
        else
            return 0
        end
    `
	res, err := r.Client.Eval(ctx, script, []string{lockKey}, lockValue).Result()
	if err != nil {
		return false, err
	}
	if released, ok := res.(int64); ok && released == 1 {
		return true, nil
	}
	return false, nil
}

// BatchLockKey 异步批次处理锁键
func BatchLockKey(batchID string) string {
	return fmt.Sprintf(constants.KeyBatchLock, batchID)
}
