package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocator_AnchoredWithStop(t *testing.T) {
	l := NewLocator(SectionEducation,
		Headers(HeaderAnchored, "education"),
		Headers(HeaderAnchored, "skills", "experience"))

	text := "summary\nfoo\neducation:\nb.s. cs\nexperience\nacme\nskills\ngo"
	sec, ok := l.Locate(text)
	require.True(t, ok)
	assert.Equal(t, SectionEducation, sec.Kind())
	assert.Equal(t, "\nb.s. cs", sec.Text(text))
}

func TestLocator_EarliestStopWins(t *testing.T) {
	// 停止标题按出现位置而不是列表顺序截断
	l := NewLocator(SectionExperience,
		Headers(HeaderAnchored, "experience"),
		Headers(HeaderStandalone, "skills", "education"))

	text := "experience\nacme 2019 - 2020\neducation\nmit\nskills\ngo"
	got, ok := l.Extract(text)
	require.True(t, ok)
	assert.Equal(t, "acme 2019 - 2020", got)
}

func TestLocator_Absent(t *testing.T) {
	l := NewLocator(SectionEducation, Headers(HeaderAnchored, "education"), nil)
	_, ok := l.Locate("no headers here at all")
	assert.False(t, ok)
}

func TestLocator_TrailingMatchesGluedHeader(t *testing.T) {
	l := NewLocator(SectionExperience, Headers(HeaderTrailing, "work experience"), nil)
	text := "junit work experience\nengineer at acme"
	got, ok := l.Extract(text)
	require.True(t, ok)
	assert.Equal(t, "engineer at acme", got)
}

func TestLocator_GuardedSkipsLongLines(t *testing.T) {
	l := NewLocator(SectionExperience, Headers(HeaderGuarded, "experience"), nil)

	text := "plenty of hands-on experience\nold stuff\nexperience\nnew stuff"
	got, ok := l.Extract(text)
	require.True(t, ok)
	assert.Equal(t, "new stuff", got, "过长的行应被跳过，继续尝试后续行")

	_, ok = l.Locate("lots of relevant industry experience")
	assert.False(t, ok)
}

func TestLocator_GuardedWithColonKeepsLineRest(t *testing.T) {
	l := NewLocator(SectionExperience, Headers(HeaderGuarded, "experience"), nil)
	text := "1. experience: acme 2018 - 2020"
	got, ok := l.Extract(text)
	require.True(t, ok)
	assert.Equal(t, " acme 2018 - 2020", got)
}

func TestRepairHeaders(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"粘连大写标题", "worked at acme.EDUCATION\nB.S.", "worked at acme. \neducation\nb.s."},
		{"拆散字母", "E D U C A T I O N\nMIT", "education\nmit"},
		{"e du 修复", "E du\nMIT", "edu\nmit"},
		{"w ork experience", "W ORK EXPERIENCE\nacme", "work experience\nacme"},
		{"e xperience", "E xperience\nacme", "experience\nacme"},
		{"粘连且拆散的工作经历", "JUnitW ORK E XPERIENCE\nacme", "junitwork experience\nacme"},
		{"s k i l l s", "S K I L L S\ngo", "skills\ngo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RepairHeaders(tt.raw))
		})
	}
}

func TestRepairHeaders_Idempotent(t *testing.T) {
	inputs := []string{
		"JUnitW ORK EXPERIENCE\nEngineer",
		"JUnitW ORK E XPERIENCE\nEngineer",
		"w ork e xperience\ne du",
		"summaryEDUCATION\nE D U C A T I O N\nP R O J E C T S",
		"Plain text with nothing special",
		"e du e xperience w ork",
	}
	for _, in := range inputs {
		once := RepairHeaders(in)
		assert.Equal(t, once, RepairHeaders(once), "输入: %q", in)
	}
}

func TestLocator_GuardedRejectsProsePrefix(t *testing.T) {
	l := NewLocator(SectionExperience, Headers(HeaderGuarded, "experience"), nil)
	for _, text := range []string{"about\nmy experience\n2020 - 2022", "no experience\n2020 - 2022"} {
		_, ok := l.Locate(text)
		assert.False(t, ok, "输入: %q", text)
	}

	got, ok := l.Extract("about\n- experience\nacme")
	require.True(t, ok)
	assert.Equal(t, "acme", got)
}
