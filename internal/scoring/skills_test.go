package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkillExtractor_ShortTermsRequireFlanks(t *testing.T) {
	e := NewSkillExtractor([]string{"R", "Go", "C", "C++", "C#"})

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"r 不匹配 director", "Director of engineering", []string{}},
		{"go 不匹配 good", "a good engineer", []string{}},
		{"行首行尾", "r", []string{"r"}},
		{"逗号分隔", "Languages: Go, C++, C#", []string{"c#", "c++", "go"}},
		{"斜杠只作右侧边界", "c/c++ developer", []string{"c"}},
		{"右侧冒号不接受", "go: fast", []string{}},
		{"左侧括号不接受", "(go)", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text).Sorted()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSkillExtractor_LongTermsUseWordBoundary(t *testing.T) {
	e := NewSkillExtractor([]string{"Java", "JavaScript", "Node.js", "CI/CD", "Machine Learning"})

	got := e.Extract("Built CI/CD pipelines in JavaScript and Node.js; machine learning hobbyist")
	assert.True(t, got.Has("javascript"))
	assert.True(t, got.Has("node.js"))
	assert.True(t, got.Has("ci/cd"))
	assert.True(t, got.Has("machine learning"))
	assert.False(t, got.Has("java"), "java 不应在 javascript 内部命中")
}

func TestSkillExtractor_DisplayAndDedup(t *testing.T) {
	e := NewSkillExtractor([]string{"Python", "python", " Docker ", ""})
	require.Equal(t, 2, e.Size(), "重复和空词条应被忽略")

	got := e.Extract("PYTHON and docker")
	assert.Equal(t, []string{"Docker", "Python"}, e.Display(got))
}

func TestSkillSet_Operations(t *testing.T) {
	a := NewSkillSet("Python", "Go", "SQL")
	b := NewSkillSet("go", "docker")

	assert.Equal(t, []string{"go"}, a.Intersect(b).Sorted())
	assert.Equal(t, []string{"python", "sql"}, a.Difference(b).Sorted())
	assert.Equal(t, 3, a.Len())
	assert.True(t, a.Has("PYTHON"))
}

func TestExtractSkills_DefaultVocabulary(t *testing.T) {
	got := ExtractSkills("Experienced with Python, Docker and Kubernetes. Director of R&D.")
	assert.True(t, got.Has("python"))
	assert.True(t, got.Has("docker"))
	assert.True(t, got.Has("kubernetes"))
	assert.False(t, got.Has("r"))
}
