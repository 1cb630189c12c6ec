package logger // 全局 zerolog 日志实例与初始化

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Logger 全局日志实例
	Logger = log.Logger
)

// Config 日志配置
type Config struct {
	Level        string `json:"level" yaml:"level"`                 // debug, info, warn, error
	Format       string `json:"format" yaml:"format"`               // json 或 pretty
	TimeFormat   string `json:"time_format" yaml:"time_format"`     // 时间戳格式
	ReportCaller bool   `json:"report_caller" yaml:"report_caller"` // 是否输出调用位置
}

// Init 按配置初始化全局日志，输出到标准输出
func Init(config Config) {
	InitWithWriter(config, os.Stdout)
}

// InitWithWriter 按配置初始化全局日志，输出到指定 writer
func InitWithWriter(config Config, out io.Writer) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := out
	if config.Format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: config.TimeFormat,
		}
	}

	if config.TimeFormat == "" {
		zerolog.TimeFieldFormat = time.RFC3339
	} else {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	ctxLogger := zerolog.New(output).Level(level).With().Timestamp()
	if config.ReportCaller {
		ctxLogger = ctxLogger.Caller()
	}

	Logger = ctxLogger.Logger()
	log.Logger = Logger
}

// Component 返回带 component 字段的子日志
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// Debug 调试级别日志
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info 信息级别日志
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn 警告级别日志
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error 错误级别日志
func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal 记录后程序退出
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// Ctx 从上下文中取日志实例，上下文中没有时返回全局实例
func Ctx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &Logger
}

// WithContext 将全局日志实例放入上下文
func WithContext(ctx context.Context) context.Context {
	return Logger.WithContext(ctx)
}
