package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"resume-matcher/internal/bootstrap"
	"resume-matcher/internal/config"
	"resume-matcher/internal/logger"
	"resume-matcher/internal/metrics"
	"resume-matcher/internal/processor"
)

type options struct {
	configPath string
	jdPath     string
	at         string
	profile    string
	weights    string
	workers    int
	format     string
	verbose    bool
}

func main() {
	var opts options
	pflag.StringVarP(&opts.configPath, "config", "c", "", "配置文件路径")
	pflag.StringVarP(&opts.jdPath, "jd", "j", "", "岗位描述文件(必填)")
	pflag.StringVar(&opts.at, "at", "", "评估时间，YYYY-MM 或 YYYY-MM-DD，默认当前月份")
	pflag.StringVar(&opts.profile, "profile", "", "评分规则集: core | extended，或规则集 YAML 路径")
	pflag.StringVarP(&opts.weights, "weights", "w", "", "权重，例如 skills=0.4,experience=0.3,education=0.1,relevance=0.2")
	pflag.IntVar(&opts.workers, "workers", 0, "并发数，默认取配置")
	pflag.StringVarP(&opts.format, "format", "f", "table", "输出格式: table | json")
	pflag.BoolVarP(&opts.verbose, "verbose", "v", false, "输出调试日志")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "用法: scorecli --jd jd.txt [选项] resume1.pdf resume2.docx ...\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if err := run(opts, pflag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func run(opts options, files []string) error {
	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger.InitWithWriter(logger.Config{Level: level, Format: "pretty", TimeFormat: "15:04:05"}, os.Stderr)

	if opts.jdPath == "" {
		return fmt.Errorf("缺少 --jd")
	}
	if len(files) == 0 {
		return fmt.Errorf("至少需要一份简历文件")
	}
	if opts.format != formatTable && opts.format != formatJSON {
		return fmt.Errorf("未知的输出格式: %s", opts.format)
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if err := applyOptions(cfg, opts); err != nil {
		return err
	}
	at, err := parseMonth(opts.at, time.Now())
	if err != nil {
		return err
	}

	jd, err := os.ReadFile(opts.jdPath)
	if err != nil {
		return fmt.Errorf("读取岗位描述失败: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	scorer, err := bootstrap.NewScorer(ctx, cfg, nil, processor.WithSource(metrics.SourceCLI))
	if err != nil {
		return err
	}

	docs := make([]processor.ResumeDocument, 0, len(files))
	for _, path := range files {
		doc := processor.ResumeDocument{ID: filepath.Base(path), Filename: filepath.Base(path)}
		if doc.Data, err = os.ReadFile(path); err != nil {
			doc.Err = fmt.Errorf("读取文件失败: %w", err)
		}
		docs = append(docs, doc)
	}

	result, err := scorer.ScoreBatch(ctx, processor.BatchRequest{
		JobDescription: string(jd),
		Resumes:        docs,
		EvaluatedAt:    at,
	})
	if err != nil {
		return err
	}
	return render(os.Stdout, opts.format, result)
}

// applyOptions 命令行参数覆盖配置
func applyOptions(cfg *config.Config, opts options) error {
	switch opts.profile {
	case "":
	case "core", "extended":
		cfg.Scoring.Profile = opts.profile
		cfg.Scoring.ProfilePath = ""
	default:
		cfg.Scoring.ProfilePath = opts.profile
	}
	if opts.weights != "" {
		w, err := parseWeights(opts.weights)
		if err != nil {
			return err
		}
		cfg.Scoring.Weights = w
	}
	if opts.workers > 0 {
		cfg.Scoring.Workers = opts.workers
	}
	if cfg.Scoring.Weights.Sum() > 0 && !cfg.Scoring.Weights.Valid() {
		return processor.ErrInvalidWeights
	}
	return nil
}

