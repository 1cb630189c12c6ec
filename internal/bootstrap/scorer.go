package bootstrap // 服务与命令行共用的组件装配

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resume-matcher/internal/config"
	"resume-matcher/internal/constants"
	"resume-matcher/internal/parser"
	"resume-matcher/internal/processor"
	"resume-matcher/internal/scoring"
	"resume-matcher/internal/similarity"
)

// NewExtractor 按提取引擎构造文本提取器，tika 引擎同时处理 PDF 与 DOCX
func NewExtractor(ctx context.Context, cfg config.ExtractionConfig) (*parser.MultiExtractor, error) {
	if strings.ToLower(cfg.Engine) != parser.EngineTika {
		return parser.NewDefaultExtractor(ctx, cfg.Engine)
	}
	if cfg.TikaServerURL == "" {
		return nil, fmt.Errorf("tika 引擎需要配置 tika_server_url")
	}
	var opts []parser.TikaOption
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, parser.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	tika := parser.NewTikaExtractor(cfg.TikaServerURL, opts...)
	m := parser.NewMultiExtractor(tika)
	m.Register(".docx", tika)
	return m, nil
}

// NewEngine 按配置加载规则集并构造评分引擎
func NewEngine(cfg *config.Config) (*scoring.Engine, error) {
	profile, err := cfg.LoadScoringProfile()
	if err != nil {
		return nil, err
	}
	w := cfg.Scoring.Weights
	if w.Sum() == 0 {
		w = scoring.DefaultWeights()
	}
	if !w.Valid() {
		return nil, fmt.Errorf("%w: %+v", processor.ErrInvalidWeights, w)
	}
	return scoring.NewEngine(profile,
		scoring.WithWeights(w),
		scoring.WithTextualDurationFallback(cfg.Scoring.TextualFallback),
	), nil
}

// NewScorer 装配批量评分器；cache 为 nil 时不缓存
func NewScorer(ctx context.Context, cfg *config.Config, cache processor.ResultCache, opts ...processor.Option) (*processor.BatchScorer, error) {
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	sim, err := similarity.New(cfg.Scoring.Similarity)
	if err != nil {
		return nil, err
	}
	extractor, err := NewExtractor(ctx, cfg.Extraction)
	if err != nil {
		return nil, err
	}

	base := []processor.Option{
		processor.WithWorkers(cfg.Scoring.Workers),
		processor.WithExtractor(extractor),
	}
	if cache != nil {
		base = append(base, processor.WithCache(cache, config.GetDuration(cfg.Scoring.CacheTTL, constants.DefaultScoreCacheTTL)))
	}
	return processor.NewBatchScorer(engine, sim, append(base, opts...)...), nil
}
