package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-matcher/internal/config"
	"resume-matcher/internal/parser"
	"resume-matcher/internal/processor"
	"resume-matcher/internal/scoring"
	"resume-matcher/internal/similarity"
	"resume-matcher/internal/storage"
)

func TestNewEngine(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scoring.Profile = "extended"
	cfg.Scoring.Weights = scoring.Weights{Skills: 2, Relevance: 1}

	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, "2024.1-extended", engine.Profile().Version)
	assert.Equal(t, scoring.Weights{Skills: 2, Relevance: 1}, engine.Weights())

	cfg.Scoring.Weights = scoring.Weights{}
	engine, err = NewEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, scoring.DefaultWeights(), engine.Weights())

	cfg.Scoring.Weights = scoring.Weights{Skills: -1, Education: 2}
	_, err = NewEngine(cfg)
	assert.ErrorIs(t, err, processor.ErrInvalidWeights)

	cfg.Scoring.Weights = scoring.DefaultWeights()
	cfg.Scoring.Profile = "unknown"
	_, err = NewEngine(cfg)
	assert.Error(t, err)
}

func TestNewExtractor(t *testing.T) {
	m, err := NewExtractor(context.Background(), config.ExtractionConfig{Engine: parser.EnginePlain})
	require.NoError(t, err)
	assert.True(t, m.Supports("cv.pdf"))
	assert.True(t, m.Supports("cv.docx"))

	_, err = NewExtractor(context.Background(), config.ExtractionConfig{Engine: parser.EngineTika})
	assert.Error(t, err)

	m, err = NewExtractor(context.Background(), config.ExtractionConfig{Engine: "TIKA", TikaServerURL: "http://localhost:9998", TimeoutSeconds: 5})
	require.NoError(t, err)
	assert.True(t, m.Supports("cv.docx"))

	_, err = NewExtractor(context.Background(), config.ExtractionConfig{Engine: "ocr"})
	assert.Error(t, err)
}

func TestNewScorer(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := storage.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)

	cfg := config.DefaultConfig()
	cfg.Scoring.Similarity = similarity.MethodJaccard
	scorer, err := NewScorer(context.Background(), cfg, cache)
	require.NoError(t, err)
	assert.Equal(t, similarity.MethodJaccard, scorer.SimilarityName())

	cfg.Scoring.Similarity = "bm25"
	_, err = NewScorer(context.Background(), cfg, nil)
	assert.Error(t, err)
}
