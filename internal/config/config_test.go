package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-matcher/internal/scoring"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644), "无法写入临时配置文件")
	return path
}

// TestLoadConfigFromFile 验证文件内容覆盖默认值，未填写的字段保持默认
func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9090"
  api_keys: ["k1", "k2"]
scoring:
  workers: 8
  textual_fallback: true
  weights:
    skills: 0.4
    experience: 0.3
    education: 0.1
    relevance: 0.2
rabbitmq:
  prefetch_count: 10
`)
	cfg, err := LoadConfigFromFileOnly(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, 8, cfg.Scoring.Workers)
	assert.True(t, cfg.Scoring.TextualFallback)
	assert.Equal(t, scoring.Weights{Skills: 0.4, Experience: 0.3, Education: 0.1, Relevance: 0.2}, cfg.Scoring.Weights)
	assert.Equal(t, 10, cfg.RabbitMQ.PrefetchCount)

	// 默认值
	assert.Equal(t, "tfidf", cfg.Scoring.Similarity)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "q.score_jobs", cfg.RabbitMQ.ScoreJobQueue)
	assert.False(t, cfg.MySQL.Enabled)
}

// TestLoadConfigZeroedFieldsRestored 显式置零的关键字段恢复默认
func TestLoadConfigZeroedFieldsRestored(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ""
scoring:
  workers: 0
  weights:
    skills: 0
`)
	cfg, err := LoadConfigFromFileOnly(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 4, cfg.Scoring.Workers)
	assert.Equal(t, scoring.DefaultWeights(), cfg.Scoring.Weights)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfigFromFileOnly("")
	assert.Error(t, err)

	_, err = LoadConfigFromFileOnly(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfigFromFileOnly(writeConfig(t, "server: [broken"))
	assert.Error(t, err)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, "redis:\n  address: \"file:6379\"\n")
	t.Setenv("REDIS_ADDR", "env:6379")
	t.Setenv("RESUME_MATCHER_API_KEYS", "a, b ,,c")
	t.Setenv("RESUME_MATCHER_REDIS_ENABLED", "true")
	t.Setenv("MYSQL_PORT", "3307")
	t.Setenv("RESUME_MATCHER_WORKERS", "not-a-number")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env:6379", cfg.Redis.Address)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Server.APIKeys)
	assert.Equal(t, 3307, cfg.MySQL.Port)
	assert.Equal(t, 4, cfg.Scoring.Workers, "非法数字忽略")
}

func TestMySQLDSN(t *testing.T) {
	m := DefaultConfig().MySQL
	m.Password = "secret"
	assert.Equal(t,
		"root:secret@tcp(localhost:3306)/resume_matcher?charset=utf8mb4&parseTime=True&loc=Local&timeout=10s&readTimeout=30s&writeTimeout=30s",
		m.DSN())
}

func TestLoadScoringProfile(t *testing.T) {
	cfg := DefaultConfig()
	p, err := cfg.LoadScoringProfile()
	require.NoError(t, err)
	assert.Equal(t, scoring.DefaultProfileVersion, p.Version)

	cfg.Scoring.Profile = "extended"
	p, err = cfg.LoadScoringProfile()
	require.NoError(t, err)
	assert.Equal(t, scoring.ExtendedProfile().Version, p.Version)

	cfg.Scoring.Profile = "unknown"
	_, err = cfg.LoadScoringProfile()
	assert.Error(t, err)

	profilePath := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(profilePath, []byte("version: v9\nskills: [Go]\n"), 0644))
	cfg.Scoring.ProfilePath = profilePath
	p, err = cfg.LoadScoringProfile()
	require.NoError(t, err)
	assert.Equal(t, "v9", p.Version)
}

func TestCreateSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.yaml")
	require.NoError(t, CreateSampleConfig(path))
	assert.Error(t, CreateSampleConfig(path), "已存在的文件不应被覆盖")

	cfg, err := LoadConfigFromFileOnly(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Scoring, cfg.Scoring)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, GetDuration("", 5*time.Second))
	assert.Equal(t, 2*time.Minute, GetDuration("2m", 5*time.Second))
	assert.Equal(t, 5*time.Second, GetDuration("soon", 5*time.Second))
}
