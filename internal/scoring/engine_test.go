package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `Jane Doe
Summary
Backend developer.
Work Experience
Software Engineer, Acme
Jan 2018 - Jan 2022
Built services in Python and Docker on AWS.
Education
B.S. Computer Science
Skills
Python, Docker, AWS, SQL`

func TestEngine_ScoreResume(t *testing.T) {
	e := NewEngine(DefaultProfile())
	jd := e.ExtractSkills("We need Python, Docker, Kubernetes and AWS")
	require.Equal(t, 4, jd.Len())

	got := e.ScoreResume(jd, sampleResume, 0.5, evalJan2024)
	assert.Equal(t, 0.75, got.Skills)
	assert.InDelta(t, 0.4, got.Experience, 1e-9)
	assert.Equal(t, 0.6, got.Education)
	assert.Equal(t, 0.5, got.Relevance)
	// (0.75 + 0.4 + 0.6 + 0.5) / 4 = 0.5625
	assert.Equal(t, 56.25, got.Final)
}

func TestEngine_Assess(t *testing.T) {
	e := NewEngine(DefaultProfile())
	jd := e.ExtractSkills("python kubernetes docker")

	a := e.Assess(jd, sampleResume, 0.2, evalJan2024, Weights{Skills: 1})
	assert.Equal(t, []string{"Docker", "Python"}, a.Matched)
	assert.Equal(t, []string{"Kubernetes"}, a.Missing)
	assert.Equal(t, Years(4), a.Experience.Years)
	assert.Equal(t, DegreeBachelor, a.Degree)
	assert.InDelta(t, 66.67, a.Scores.Final, 1e-9)
	assert.Greater(t, a.ATS.Score, 0.0)
}

func TestEngine_WithWeights(t *testing.T) {
	e := NewEngine(DefaultProfile(), WithWeights(Weights{Education: 1}))
	got := e.ScoreResume(NewSkillSet(), sampleResume, 0, evalJan2024)
	assert.Equal(t, 60.0, got.Final)
}

func TestEngine_ExtendedProfile(t *testing.T) {
	core := NewEngine(DefaultProfile())
	ext := NewEngine(ExtendedProfile())
	text := "Worked with GraphQL, Jenkins and Python"
	assert.False(t, core.ExtractSkills(text).Has("graphql"))
	assert.True(t, ext.ExtractSkills(text).Has("graphql"))
	assert.True(t, ext.ExtractSkills(text).Has("python"))
}

func TestComputeATS(t *testing.T) {
	empty := ComputeATS(0, 0, "")
	assert.Equal(t, 13.5, empty.Score)

	long := strings.Repeat("word ", 320) + " experience education skills projects summary"
	full := ComputeATS(10, 7, long)
	// 四项权重之和为0.9，满分即90
	assert.Equal(t, 90.0, full.Score)

	mid := ComputeATS(4, 3, strings.Repeat("word ", 100)+"experience skills")
	// 0.4*0.5 + 0.2*0.4 + 0.15*0.85 + 0.15*0.6 = 0.4975
	assert.Equal(t, 49.75, mid.Score)
}

func TestEngine_ATSScore(t *testing.T) {
	e := NewEngine(DefaultProfile())
	score := e.ATSScore(sampleResume, evalJan2024)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
	assert.Equal(t, e.ATS(sampleResume, evalJan2024).Score, score)
}
