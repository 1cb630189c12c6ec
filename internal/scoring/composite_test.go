package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_EqualWeights(t *testing.T) {
	got := Compose(Signals{0.5, 0.5, 0.5, 0.5}, DefaultWeights())
	assert.Equal(t, 50.0, got.Final)
	assert.Equal(t, 50.0, got.SkillsPercent())
}

func TestCompose_InvalidWeights(t *testing.T) {
	s := Signals{1, 1, 1, 1}
	tests := []struct {
		name string
		w    Weights
	}{
		{"全零", Weights{}},
		{"负数", Weights{Skills: 1, Experience: -0.5}},
		{"NaN", Weights{Skills: math.NaN(), Experience: 1}},
		{"Inf", Weights{Skills: math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 0.0, Compose(s, tt.w).Final)
		})
	}
}

func TestCompose_WeightsNeedNotSumToOne(t *testing.T) {
	s := Signals{Skills: 1, Experience: 0, Education: 0.6, Relevance: 0.2}
	a := Compose(s, Weights{Skills: 1, Experience: 1, Education: 1, Relevance: 1})
	b := Compose(s, Weights{Skills: 3, Experience: 3, Education: 3, Relevance: 3})
	assert.Equal(t, a.Final, b.Final)
	assert.Equal(t, 45.0, a.Final)
}

func TestCompose_WeightMonotonicity(t *testing.T) {
	s := Signals{Skills: 0.9, Experience: 0.2, Education: 0.6, Relevance: 0.4}
	base := Compose(s, DefaultWeights()).Final

	// 提高最高分项的权重，总分不下降
	w := DefaultWeights()
	w.Skills = 0.6
	assert.GreaterOrEqual(t, Compose(s, w).Final, base)

	// 提高最低分项的权重，总分不上升
	w = DefaultWeights()
	w.Experience = 0.6
	assert.LessOrEqual(t, Compose(s, w).Final, base)
}

func TestCompose_ClampsSignals(t *testing.T) {
	got := Compose(Signals{Skills: 1.5, Experience: -1, Education: math.NaN(), Relevance: 1}, DefaultWeights())
	assert.Equal(t, 1.0, got.Skills)
	assert.Equal(t, 0.0, got.Experience)
	assert.Equal(t, 0.0, got.Education)
	assert.Equal(t, 50.0, got.Final)
}

func TestSkillsSignal(t *testing.T) {
	jd := NewSkillSet("python", "docker", "aws", "go")
	resume := NewSkillSet("python", "go", "rust")
	assert.Equal(t, 0.5, SkillsSignal(jd, resume))

	// JD 无技能时按简历技能数 / 8
	assert.Equal(t, 3.0/8, SkillsSignal(NewSkillSet(), resume))
	many := NewSkillSet("a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9")
	assert.Equal(t, 1.0, SkillsSignal(nil, many))
}

func TestExperienceSignal(t *testing.T) {
	assert.Equal(t, 0.0, ExperienceSignal(0))
	assert.InDelta(t, 0.42, ExperienceSignal(4.2), 1e-9)
	assert.Equal(t, 1.0, ExperienceSignal(15))
}

func TestWeightsFromMap(t *testing.T) {
	w, err := WeightsFromMap(map[string]float64{"skills": 0.4, "Experience": 0.3, "edu": 0.1, "relevance": 0.2})
	require.NoError(t, err)
	assert.Equal(t, Weights{Skills: 0.4, Experience: 0.3, Education: 0.1, Relevance: 0.2}, w)
	assert.True(t, w.Valid())

	_, err = WeightsFromMap(map[string]float64{"salary": 1})
	assert.Error(t, err)
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 2.2, roundTo(26.0/12, 1))
	assert.Equal(t, 33.33, roundTo(100.0/3, 2))
	assert.Equal(t, 0.0, roundTo(0, 2))
}

func TestWeights_FiniteAllowsZero(t *testing.T) {
	assert.True(t, Weights{}.Finite())
	assert.False(t, Weights{}.Valid())
	assert.False(t, Weights{Skills: math.Inf(1)}.Finite())
	assert.Equal(t, 0.0, Compose(Signals{Skills: 1, Experience: 1, Education: 1, Relevance: 1}, Weights{}).Final)
}
