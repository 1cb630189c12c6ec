package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	uuidv7 "github.com/gofrs/uuid/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"resume-matcher/internal/config"
	"resume-matcher/internal/constants"
	"resume-matcher/internal/logger"
	"resume-matcher/internal/metrics"
	"resume-matcher/internal/processor"
	"resume-matcher/internal/scoring"
	"resume-matcher/internal/similarity"
	"resume-matcher/internal/storage"
	"resume-matcher/internal/storage/models"
	"resume-matcher/internal/tracing"
)

// BatchStore 异步批次的持久化
type BatchStore interface {
	processor.ResultStore
	CreatePendingBatch(ctx context.Context, batch *models.ScoringBatch, msg *models.OutboxMessage) error
	UpdateBatchStatus(ctx context.Context, batchID, status string) error
	MarkBatchFailed(ctx context.Context, batchID, reason string) error
	GetBatch(ctx context.Context, batchID string) (*models.ScoringBatch, error)
}

// BatchLocker 防止同一批次被并发处理
type BatchLocker interface {
	AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error)
	ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error)
}

// JobQueue 评分任务队列的消费端
type JobQueue interface {
	StartConsumer(ctx context.Context, queueName string, prefetchCount int, handler storage.DeliveryHandler) error
}

// Dependencies 异步评分依赖，任一为 nil 时异步接口不可用
type Dependencies struct {
	Batches BatchStore
	Objects storage.ObjectStorage
	Locker  BatchLocker
	Queue   JobQueue
}

// DependenciesFromStorage 从已初始化的存储组件组装依赖
func DependenciesFromStorage(s *storage.Storage) Dependencies {
	var deps Dependencies
	if s == nil {
		return deps
	}
	if s.MySQL != nil {
		deps.Batches = s.MySQL
	}
	if s.MinIO != nil {
		deps.Objects = s.MinIO
	}
	if s.Redis != nil {
		deps.Locker = s.Redis
	}
	if s.RabbitMQ != nil {
		deps.Queue = s.RabbitMQ
	}
	return deps
}

// ScoreHandler 评分相关接口
type ScoreHandler struct {
	cfg    *config.Config
	scorer *processor.BatchScorer
	deps   Dependencies
	log    zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewScoreHandler 创建评分处理器
func NewScoreHandler(cfg *config.Config, scorer *processor.BatchScorer, deps Dependencies) *ScoreHandler {
	return &ScoreHandler{
		cfg:    cfg,
		scorer: scorer,
		deps:   deps,
		log:    logger.Component("score_handler"),
		tracer: otel.Tracer("resume-matcher/handler"),
		now:    time.Now,
	}
}

// AsyncEnabled 对象存储、数据库、消息队列均可用时启用异步评分
func (h *ScoreHandler) AsyncEnabled() bool {
	return h.deps.Batches != nil && h.deps.Objects != nil && h.deps.Queue != nil
}

type scoreRequest struct {
	JobID          string           `json:"job_id"`
	JobDescription string           `json:"job_description"`
	Resumes        []resumeInput    `json:"resumes"`
	Weights        *scoring.Weights `json:"weights"`
	EvaluatedAt    string           `json:"evaluated_at"`
}

type resumeInput struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type analyzeRequest struct {
	Text        string `json:"text"`
	EvaluatedAt string `json:"evaluated_at"`
}

// AnalyzeResponse 单份简历的解析结果
type AnalyzeResponse struct {
	Skills            []string             `json:"skills"`
	YearsOfExperience float64              `json:"years_of_experience"`
	ExperienceSource  string               `json:"experience_source"`
	Degree            string               `json:"degree"`
	ATS               scoring.ATSBreakdown `json:"ats"`
}

// ScoreJobAccepted 异步评分受理结果
type ScoreJobAccepted struct {
	BatchID string           `json:"batch_id"`
	Status  string           `json:"status"`
	Resumes []AcceptedResume `json:"resumes"`
}

// AcceptedResume 已受理的简历
type AcceptedResume struct {
	ResumeID string `json:"resume_id"`
	Filename string `json:"filename"`
}

// BatchStatusResponse 异步批次的状态与结果
type BatchStatusResponse struct {
	BatchID        string                  `json:"batch_id"`
	JobID          string                  `json:"job_id,omitempty"`
	Status         string                  `json:"status"`
	ProfileVersion string                  `json:"profile_version,omitempty"`
	Similarity     string                  `json:"similarity,omitempty"`
	Weights        json.RawMessage         `json:"weights,omitempty"`
	EvaluatedAt    time.Time               `json:"evaluated_at"`
	TotalResumes   int                     `json:"total_resumes"`
	FailedResumes  int                     `json:"failed_resumes"`
	ErrorMessage   string                  `json:"error_message,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	CompletedAt    *time.Time              `json:"completed_at,omitempty"`
	Results        []processor.ResumeScore `json:"results"`
}

// Score POST /score：JSON 文本简历的同步评分
func (h *ScoreHandler) Score(c context.Context, ctx *app.RequestContext) {
	body := ctx.GetRawData()
	if errs := validateJSON(scoreSchema, body); len(errs) > 0 {
		h.reject(c, ctx, "请求参数校验失败", errs)
		return
	}

	var req scoreRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.reject(c, ctx, "请求体解析失败", []string{err.Error()})
		return
	}
	if len(req.Resumes) > h.cfg.Server.MaxResumes {
		h.reject(c, ctx, fmt.Sprintf("单批最多 %d 份简历", h.cfg.Server.MaxResumes), nil)
		return
	}
	at, err := parseEvaluatedAt(req.EvaluatedAt, h.now())
	if err != nil {
		h.reject(c, ctx, err.Error(), nil)
		return
	}

	docs := make([]processor.ResumeDocument, 0, len(req.Resumes))
	for _, r := range req.Resumes {
		docs = append(docs, processor.ResumeDocument{ID: r.ID, Filename: r.Filename, Text: r.Text})
	}
	h.scoreSync(c, ctx, processor.BatchRequest{
		JobID:          req.JobID,
		JobDescription: req.JobDescription,
		Resumes:        docs,
		Weights:        req.Weights,
		EvaluatedAt:    at,
	})
}

// ScoreUpload POST /score/upload：multipart 上传文件的同步评分
func (h *ScoreHandler) ScoreUpload(c context.Context, ctx *app.RequestContext) {
	form, ok := h.parseUploadForm(c, ctx)
	if !ok {
		return
	}

	docs := make([]processor.ResumeDocument, 0, len(form.files))
	for _, fh := range form.files {
		data, err := readFormFile(fh)
		docs = append(docs, processor.ResumeDocument{
			ID:       uuid.NewString(),
			Filename: fh.Filename,
			Data:     data,
			Err:      wrapReadError(err),
		})
	}
	h.scoreSync(c, ctx, processor.BatchRequest{
		JobID:          form.jobID,
		JobDescription: form.jobDescription,
		Resumes:        docs,
		Weights:        form.weights,
		EvaluatedAt:    form.evaluatedAt,
	})
}

// SubmitScoreJob POST /score/jobs：上传文件并异步评分
func (h *ScoreHandler) SubmitScoreJob(c context.Context, ctx *app.RequestContext) {
	if !h.AsyncEnabled() {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "异步评分未启用"})
		return
	}
	form, ok := h.parseUploadForm(c, ctx)
	if !ok {
		return
	}

	id, err := uuidv7.NewV7()
	if err != nil {
		h.internalError(c, ctx, "生成批次ID失败", err)
		return
	}
	batchID := id.String()
	log := h.log.With().Str("batch_id", batchID).Logger()

	msg := storage.ScoreJobMessage{
		BatchID:        batchID,
		JobID:          form.jobID,
		JobDescription: form.jobDescription,
		Weights:        form.weights,
		EvaluatedAt:    form.evaluatedAt,
		SubmittedAt:    h.now(),
	}
	accepted := ScoreJobAccepted{BatchID: batchID, Status: constants.BatchStatusPending}

	var uploaded []string
	cleanup := func() {
		for _, key := range uploaded {
			if err := h.deps.Objects.DeleteFile(context.Background(), key); err != nil {
				log.Warn().Err(err).Str("object_key", key).Msg("清理已上传简历失败")
			}
		}
	}

	for _, fh := range form.files {
		data, err := readFormFile(fh)
		if err != nil {
			cleanup()
			h.reject(c, ctx, fmt.Sprintf("读取文件 %s 失败", fh.Filename), []string{err.Error()})
			return
		}
		resumeID := uuid.NewString()
		key, err := h.deps.Objects.UploadResume(c, batchID, resumeID, fh.Filename, data)
		if err != nil {
			cleanup()
			h.internalError(c, ctx, "上传简历失败", err)
			return
		}
		uploaded = append(uploaded, key)
		msg.Resumes = append(msg.Resumes, storage.ScoreJobResume{ResumeID: resumeID, Filename: fh.Filename, ObjectKey: key})
		accepted.Resumes = append(accepted.Resumes, AcceptedResume{ResumeID: resumeID, Filename: fh.Filename})
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		cleanup()
		h.internalError(c, ctx, "序列化评分任务失败", err)
		return
	}
	weights := h.scorer.Engine().Weights()
	if form.weights != nil {
		weights = *form.weights
	}
	weightsJSON, _ := json.Marshal(weights)

	batch := &models.ScoringBatch{
		BatchID:        batchID,
		JobID:          form.jobID,
		JobDescription: form.jobDescription,
		ProfileVersion: h.scorer.Engine().Profile().Version,
		Similarity:     h.scorer.SimilarityName(),
		Weights:        datatypes.JSON(weightsJSON),
		EvaluatedAt:    form.evaluatedAt,
		TotalResumes:   len(msg.Resumes),
	}
	outboxMsg := &models.OutboxMessage{
		EventType:        storage.ScoreJobRequestedEvent,
		Payload:          string(payload),
		TargetExchange:   h.cfg.RabbitMQ.ScoreExchange,
		TargetRoutingKey: h.cfg.RabbitMQ.ScoreRoutingKey,
	}
	if err := h.deps.Batches.CreatePendingBatch(c, batch, outboxMsg); err != nil {
		cleanup()
		h.internalError(c, ctx, "创建评分批次失败", err)
		return
	}

	log.Info().Int("resumes", len(msg.Resumes)).Msg("异步评分任务已受理")
	ctx.JSON(consts.StatusAccepted, accepted)
}

// GetScoreJob GET /score/jobs/:batch_id
func (h *ScoreHandler) GetScoreJob(c context.Context, ctx *app.RequestContext) {
	if h.deps.Batches == nil {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "异步评分未启用"})
		return
	}
	batchID := ctx.Param("batch_id")
	batch, err := h.deps.Batches.GetBatch(c, batchID)
	if errors.Is(err, storage.ErrBatchNotFound) {
		ctx.JSON(consts.StatusNotFound, utils.H{"error": "评分批次不存在", "batch_id": batchID})
		return
	}
	if err != nil {
		h.internalError(c, ctx, "查询评分批次失败", err)
		return
	}

	resp := BatchStatusResponse{
		BatchID:        batch.BatchID,
		JobID:          batch.JobID,
		Status:         batch.Status,
		ProfileVersion: batch.ProfileVersion,
		Similarity:     batch.Similarity,
		EvaluatedAt:    batch.EvaluatedAt,
		TotalResumes:   batch.TotalResumes,
		FailedResumes:  batch.FailedResumes,
		ErrorMessage:   batch.ErrorMessage,
		CreatedAt:      batch.CreatedAt,
		CompletedAt:    batch.CompletedAt,
		Results:        processor.ScoresFromModel(batch.Scores),
	}
	if len(batch.Weights) > 0 {
		resp.Weights = json.RawMessage(batch.Weights)
	}
	ctx.JSON(consts.StatusOK, resp)
}

// Analyze POST /analyze：单份简历的技能、年限、学历与 ATS
func (h *ScoreHandler) Analyze(c context.Context, ctx *app.RequestContext) {
	body := ctx.GetRawData()
	if errs := validateJSON(analyzeSchema, body); len(errs) > 0 {
		h.reject(c, ctx, "请求参数校验失败", errs)
		return
	}
	var req analyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.reject(c, ctx, "请求体解析失败", []string{err.Error()})
		return
	}
	at, err := parseEvaluatedAt(req.EvaluatedAt, h.now())
	if err != nil {
		h.reject(c, ctx, err.Error(), nil)
		return
	}

	engine := h.scorer.Engine()
	text := similarity.CleanText(req.Text)
	exp := engine.EstimateExperienceDetail(text, at)
	ctx.JSON(consts.StatusOK, AnalyzeResponse{
		Skills:            engine.DisplaySkills(engine.ExtractSkills(text)),
		YearsOfExperience: float64(exp.Years),
		ExperienceSource:  string(exp.Source),
		Degree:            engine.EstimateEducation(text).String(),
		ATS:               engine.ATS(text, at),
	})
}

func (h *ScoreHandler) scoreSync(c context.Context, ctx *app.RequestContext, req processor.BatchRequest) {
	timeout := config.GetDuration(h.cfg.Server.RequestTimeout, 60*time.Second)
	c, cancel := context.WithTimeout(c, timeout)
	defer cancel()

	result, err := h.scorer.ScoreBatch(c, req)
	switch {
	case isRequestError(err):
		h.reject(c, ctx, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		tracing.RecordHTTPError(trace.SpanFromContext(c), err, consts.StatusGatewayTimeout)
		ctx.JSON(consts.StatusGatewayTimeout, utils.H{"error": "评分超时"})
	case err != nil:
		h.internalError(c, ctx, "评分失败", err)
	default:
		ctx.JSON(consts.StatusOK, result)
	}
}

type uploadForm struct {
	jobID          string
	jobDescription string
	weights        *scoring.Weights
	evaluatedAt    time.Time
	files          []*multipart.FileHeader
}

func (h *ScoreHandler) parseUploadForm(c context.Context, ctx *app.RequestContext) (*uploadForm, bool) {
	mf, err := ctx.MultipartForm()
	if err != nil {
		h.reject(c, ctx, "需要 multipart/form-data 请求", []string{err.Error()})
		return nil, false
	}

	form := &uploadForm{
		jobID:          strings.TrimSpace(string(ctx.FormValue("job_id"))),
		jobDescription: string(ctx.FormValue("job_description")),
		files:          mf.File["files"],
	}
	if strings.TrimSpace(form.jobDescription) == "" {
		h.reject(c, ctx, processor.ErrEmptyJobDescription.Error(), nil)
		return nil, false
	}
	if len(form.files) == 0 {
		h.reject(c, ctx, "缺少简历文件(files)", nil)
		return nil, false
	}
	if len(form.files) > h.cfg.Server.MaxResumes {
		h.reject(c, ctx, fmt.Sprintf("单批最多 %d 份简历", h.cfg.Server.MaxResumes), nil)
		return nil, false
	}
	if raw := strings.TrimSpace(string(ctx.FormValue("weights"))); raw != "" {
		if errs := validateJSON(weightSchema, []byte(raw)); len(errs) > 0 {
			h.reject(c, ctx, "weights 格式错误", errs)
			return nil, false
		}
		var w scoring.Weights
		if err := json.Unmarshal([]byte(raw), &w); err != nil {
			h.reject(c, ctx, "weights 格式错误", []string{err.Error()})
			return nil, false
		}
		if !w.Finite() {
			h.reject(c, ctx, processor.ErrInvalidWeights.Error(), nil)
			return nil, false
		}
		form.weights = &w
	}
	form.evaluatedAt, err = parseEvaluatedAt(string(ctx.FormValue("evaluated_at")), h.now())
	if err != nil {
		h.reject(c, ctx, err.Error(), nil)
		return nil, false
	}
	return form, true
}

func (h *ScoreHandler) reject(c context.Context, ctx *app.RequestContext, msg string, details []string) {
	metrics.HTTPRequestsRejected.WithLabelValues(metrics.ReasonInvalid).Inc()
	tracing.RecordHTTPError(trace.SpanFromContext(c), errors.New(msg), consts.StatusBadRequest)
	resp := utils.H{"error": msg}
	if len(details) > 0 {
		resp["details"] = details
	}
	ctx.JSON(consts.StatusBadRequest, resp)
}

func (h *ScoreHandler) internalError(c context.Context, ctx *app.RequestContext, msg string, err error) {
	h.log.Error().Err(err).Msg(msg)
	tracing.RecordHTTPError(trace.SpanFromContext(c), err, consts.StatusInternalServerError)
	ctx.JSON(consts.StatusInternalServerError, utils.H{"error": msg})
}

func isRequestError(err error) bool {
	return errors.Is(err, processor.ErrEmptyJobDescription) ||
		errors.Is(err, processor.ErrNoResumes) ||
		errors.Is(err, processor.ErrMissingEvaluationTime) ||
		errors.Is(err, processor.ErrInvalidWeights)
}

// parseEvaluatedAt 支持 RFC3339、2006-01-02、2006-01，空值取当前时间
func parseEvaluatedAt(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("evaluated_at 格式错误: %q", s)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func wrapReadError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("读取上传文件失败: %w", err)
}
