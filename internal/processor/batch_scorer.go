package processor // 批量评分：提取、清洗、相关度、并发打分、排名

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	uuidv7 "github.com/gofrs/uuid/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"resume-matcher/internal/logger"
	"resume-matcher/internal/metrics"
	"resume-matcher/internal/scoring"
	"resume-matcher/internal/similarity"
	"resume-matcher/internal/tracing"
)

var tracer = otel.Tracer("resume-matcher/processor")

// BatchScorer 对同一 JD 下的一组简历评分。并发安全
type BatchScorer struct {
	engine     *scoring.Engine
	similarity SimilarityScorer
	extractor  TextExtractor
	cache      ResultCache
	cacheTTL   time.Duration
	store      ResultStore
	workers    int
	source     string
	log        zerolog.Logger
}

// NewBatchScorer 创建批量评分器
func NewBatchScorer(engine *scoring.Engine, sim SimilarityScorer, opts ...Option) *BatchScorer {
	b := &BatchScorer{
		engine:     engine,
		similarity: sim,
		workers:    4,
		source:     metrics.SourceSync,
		log:        logger.Component("processor"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Engine 返回评分引擎
func (b *BatchScorer) Engine() *scoring.Engine { return b.engine }

// SimilarityName 相关度算法名称
func (b *BatchScorer) SimilarityName() string { return b.similarity.Name() }

// WithOptions 复制一份评分器并应用额外配置
func (b *BatchScorer) WithOptions(opts ...Option) *BatchScorer {
	cp := *b
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

type docState struct {
	doc   ResumeDocument
	text  string
	err   error
	score ResumeScore
}

// ScoreBatch 对一个批次评分。单份简历失败只记录在结果中；
// 请求无效、相关度计算失败、持久化失败或 ctx 取消时返回错误
func (b *BatchScorer) ScoreBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	started := time.Now()

	if err := b.validate(&req); err != nil {
		return nil, err
	}
	if req.BatchID == "" {
		id, err := uuidv7.NewV7()
		if err != nil {
			return nil, fmt.Errorf("生成批次ID失败: %w", err)
		}
		req.BatchID = id.String()
	}
	weights := b.engine.Weights()
	if req.Weights != nil {
		weights = *req.Weights
	}

	ctx, span := tracer.Start(ctx, "BatchScorer.ScoreBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("batch.id", req.BatchID),
		attribute.Int("batch.size", len(req.Resumes)),
		attribute.String("batch.job_description", tracing.SafeJobDescription(req.JobDescription)),
	)
	log := b.log.With().Str("batch_id", req.BatchID).Logger()

	states := make([]*docState, len(req.Resumes))
	for i, doc := range req.Resumes {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		states[i] = &docState{doc: doc}
	}

	// 1. 提取文本
	err := b.forEach(ctx, states, func(ctx context.Context, st *docState) {
		st.text, st.err = b.resumeText(ctx, st.doc)
		if st.err != nil {
			metrics.ExtractionFailures.WithLabelValues(formatLabel(st.doc.Filename)).Inc()
			log.Warn().Err(st.err).Str("resume_id", st.doc.ID).Str("filename", st.doc.Filename).Msg("简历文本提取失败")
		}
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeScoring)
		return nil, err
	}

	// 2. 相关度在整个批次上计算一次
	jd := similarity.CleanText(req.JobDescription)
	var valid []*docState
	var texts []string
	for _, st := range states {
		if st.err == nil {
			valid = append(valid, st)
			texts = append(texts, st.text)
		}
	}
	relevance := make([]float64, len(valid))
	if len(valid) > 0 {
		relevance, err = b.similarity.Score(ctx, jd, texts)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrSimilarityFailed, err)
			tracing.RecordError(span, err, tracing.ErrorTypeScoring)
			return nil, err
		}
		if len(relevance) != len(valid) {
			err = fmt.Errorf("%w: 期望%d个结果，实际%d个", ErrSimilarityFailed, len(valid), len(relevance))
			tracing.RecordError(span, err, tracing.ErrorTypeScoring)
			return nil, err
		}
	}
	relevanceOf := make(map[*docState]float64, len(valid))
	for i, st := range valid {
		relevanceOf[st] = relevance[i]
	}

	// 3. 并发打分
	jobSkills := b.engine.ExtractSkills(jd)
	profileVersion := b.engine.Profile().Version
	err = b.forEach(ctx, states, func(ctx context.Context, st *docState) {
		if st.err != nil {
			st.score = ResumeScore{ResumeID: st.doc.ID, Filename: st.doc.Filename, ObjectKey: st.doc.ObjectKey, Error: st.err.Error(),
				MatchedSkills: []string{}, MissingSkills: nonNil(b.engine.DisplaySkills(jobSkills))}
			return
		}
		rel := relevanceOf[st]
		fp := ""
		if b.cache != nil {
			fp = Fingerprint(profileVersion, weights, req.EvaluatedAt, jd, st.text, rel)
			var cached ResumeScore
			hit, cerr := b.cache.GetScore(ctx, fp, &cached)
			switch {
			case cerr != nil:
				metrics.CacheLookups.WithLabelValues(metrics.CacheError).Inc()
				log.Warn().Err(cerr).Str("resume_id", st.doc.ID).Msg("读取评分缓存失败")
			case hit:
				metrics.CacheLookups.WithLabelValues(metrics.CacheHit).Inc()
				cached.ResumeID, cached.Filename, cached.ObjectKey = st.doc.ID, st.doc.Filename, st.doc.ObjectKey
				cached.Cached = true
				st.score = cached
				return
			default:
				metrics.CacheLookups.WithLabelValues(metrics.CacheMiss).Inc()
			}
		}

		st.score = b.assess(st.doc, jobSkills, st.text, rel, req.EvaluatedAt, weights)
		if b.cache != nil {
			if serr := b.cache.SetScore(ctx, fp, st.score, b.cacheTTL); serr != nil {
				log.Warn().Err(serr).Str("resume_id", st.doc.ID).Msg("写入评分缓存失败")
			}
		}
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeScoring)
		return nil, err
	}

	// 4. 排名，分数相同时保持输入顺序，失败的简历排在最后
	result := &BatchResult{
		BatchID:        req.BatchID,
		JobID:          req.JobID,
		JobDescription: req.JobDescription,
		ProfileVersion: profileVersion,
		Similarity:     b.similarity.Name(),
		Weights:        weights,
		EvaluatedAt:    req.EvaluatedAt,
		JobSkills:      nonNil(b.engine.DisplaySkills(jobSkills)),
		Results:        make([]ResumeScore, len(states)),
	}
	for i, st := range states {
		result.Results[i] = st.score
		if st.score.Failed() {
			result.Failed++
		}
	}
	RankScores(result.Results)
	result.Duration = time.Since(started)

	scored := len(states) - result.Failed
	metrics.ResumesScored.WithLabelValues(b.source).Add(float64(scored))
	metrics.BatchDuration.WithLabelValues(b.source).Observe(result.Duration.Seconds())
	metrics.BatchSize.Observe(float64(len(states)))

	if b.store != nil {
		if err := b.store.SaveBatchResult(ctx, result.ToModel()); err != nil {
			err = fmt.Errorf("%w: %v", ErrPersistFailed, err)
			tracing.RecordError(span, err, tracing.ErrorTypeDB)
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("batch.failed", result.Failed))
	span.SetStatus(codes.Ok, "")
	log.Info().
		Int("resumes", len(states)).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("批次评分完成")
	return result, nil
}

// RankScores 按总分降序稳定排序并写入名次
func RankScores(scores []ResumeScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Failed() != scores[j].Failed() {
			return !scores[i].Failed()
		}
		return scores[i].FinalScore > scores[j].FinalScore
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
}

func (b *BatchScorer) validate(req *BatchRequest) error {
	switch {
	case strings.TrimSpace(req.JobDescription) == "":
		return ErrEmptyJobDescription
	case len(req.Resumes) == 0:
		return ErrNoResumes
	case req.EvaluatedAt.IsZero():
		return ErrMissingEvaluationTime
	case req.Weights != nil && !req.Weights.Finite():
		return ErrInvalidWeights
	}
	return nil
}

func (b *BatchScorer) resumeText(ctx context.Context, doc ResumeDocument) (string, error) {
	if doc.Err != nil {
		return "", doc.Err
	}
	if doc.Text != "" || len(doc.Data) == 0 {
		return similarity.CleanText(doc.Text), nil
	}
	if b.extractor == nil {
		return "", NewExtractionError(doc.ID, errors.New("未配置文本提取器"))
	}
	text, err := b.extractor.ExtractText(ctx, doc.Data, doc.Filename)
	if err != nil {
		return "", NewExtractionError(doc.ID, err)
	}
	return similarity.CleanText(text), nil
}

func (b *BatchScorer) assess(doc ResumeDocument, jobSkills scoring.SkillSet, text string, relevance float64, at time.Time, w scoring.Weights) ResumeScore {
	a := b.engine.Assess(jobSkills, text, relevance, at, w)
	return ResumeScore{
		ResumeID:          doc.ID,
		Filename:          doc.Filename,
		ObjectKey:         doc.ObjectKey,
		FinalScore:        a.Scores.Final,
		SkillsScore:       a.Scores.SkillsPercent(),
		ExperienceScore:   a.Scores.ExperiencePercent(),
		EducationScore:    a.Scores.EducationPercent(),
		RelevanceScore:    a.Scores.RelevancePercent(),
		YearsOfExperience: float64(a.Experience.Years),
		ExperienceSource:  string(a.Experience.Source),
		Degree:            a.Degree.String(),
		ATSScore:          a.ATS.Score,
		MatchedSkills:     nonNil(a.Matched),
		MissingSkills:     nonNil(a.Missing),
	}
}

// forEach 以 b.workers 个协程处理所有简历，ctx 取消后不再领取新任务
func (b *BatchScorer) forEach(ctx context.Context, states []*docState, fn func(context.Context, *docState)) error {
	workers := b.workers
	if workers > len(states) {
		workers = len(states)
	}
	jobs := make(chan *docState)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for st := range jobs {
				fn(ctx, st)
			}
		}()
	}

feed:
	for _, st := range states {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- st:
		}
	}
	close(jobs)
	wg.Wait()
	return ctx.Err()
}

func formatLabel(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch ext {
	case "pdf", "docx", "txt", "md":
		return ext
	case "":
		return "unknown"
	default:
		return "other"
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
