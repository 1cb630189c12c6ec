package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfile_FillsDefaults(t *testing.T) {
	data := []byte(`
version: "acme-2025"
skills: ["Go", "Rust", "gRPC"]
experience:
  strong_headers: ["career history"]
`)
	p, err := ParseProfile(data)
	require.NoError(t, err)

	def := DefaultProfile()
	assert.Equal(t, "acme-2025", p.Version)
	assert.Equal(t, []string{"Go", "Rust", "gRPC"}, p.Skills)
	assert.Equal(t, []string{"career history"}, p.Experience.StrongHeaders)
	assert.Empty(t, p.Experience.WeakHeaders, "只填写强标题时不补弱标题")
	assert.Equal(t, def.Experience.StopHeaders, p.Experience.StopHeaders)
	assert.Equal(t, def.Education.Headers, p.Education.Headers)

	e := NewEngine(p)
	text := "Career History\nPlatform Engineer\n2019 - 2023\nEducation\nMSc"
	assert.Equal(t, Years(4), e.EstimateExperience(text, evalJan2024))
	assert.True(t, e.ExtractSkills("built grpc services in go").Has("grpc"))
}

func TestParseProfile_Invalid(t *testing.T) {
	_, err := ParseProfile([]byte("skills: [\"\", \"Go\"]"))
	assert.Error(t, err)

	_, err = ParseProfile([]byte("skills: [unclosed"))
	assert.Error(t, err)
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("skills: [\"Haskell\"]\n"), 0o644))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", p.Version)
	assert.Equal(t, []string{"Haskell"}, p.Skills)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExtendedProfile(t *testing.T) {
	ext := ExtendedProfile()
	assert.Greater(t, len(ext.Skills), len(DefaultProfile().Skills))
	assert.NotEqual(t, DefaultProfileVersion, ext.Version)
	assert.NoError(t, ext.Validate())
}
