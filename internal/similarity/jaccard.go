package similarity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

const (
	MethodTFIDF   = "tfidf"
	MethodJaccard = "jaccard"
)

// Scorer 相似度算法
type Scorer interface {
	Name() string
	Score(ctx context.Context, jobDescription string, resumes []string) ([]float64, error)
}

// New 按名称创建相似度算法，空名称使用 TF-IDF
func New(method string) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "", MethodTFIDF:
		return NewTFIDFScorer(), nil
	case MethodJaccard:
		return NewJaccardScorer(), nil
	default:
		return nil, fmt.Errorf("不支持的相似度算法: %s", method)
	}
}

// Keywords 把文本切分为小写关键词集合（至少3个字符），
// + # . 视为词内字符，c++、c#、node.js 不会被拆开
func Keywords(text string) map[string]bool {
	kw := make(map[string]bool)
	var word strings.Builder
	flush := func() {
		w := strings.TrimRight(word.String(), ".")
		word.Reset()
		if len([]rune(w)) >= 3 && !englishStopWords[w] && !keywordStopWords[w] {
			kw[w] = true
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return kw
}

// Overlap 两组关键词的交集与 JD 中缺失的关键词（均已排序）
func Overlap(resumeKW, jobKW map[string]bool) (matching, missing []string) {
	for k := range resumeKW {
		if jobKW[k] {
			matching = append(matching, k)
		}
	}
	for k := range jobKW {
		if !resumeKW[k] {
			missing = append(missing, k)
		}
	}
	sort.Strings(matching)
	sort.Strings(missing)
	return matching, missing
}

// Jaccard 关键词集合的 Jaccard 系数，[0,1]
func Jaccard(a, b map[string]bool) float64 {
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// JaccardScorer 关键词重合度算法，不依赖语料统计
type JaccardScorer struct{}

// NewJaccardScorer 创建关键词重合度计算器
func NewJaccardScorer() *JaccardScorer { return &JaccardScorer{} }

// Name 算法名
func (s *JaccardScorer) Name() string { return MethodJaccard }

// Score 与 TFIDF 相同的空输入约定
func (s *JaccardScorer) Score(ctx context.Context, jobDescription string, resumes []string) ([]float64, error) {
	if strings.TrimSpace(jobDescription) == "" || len(resumes) == 0 {
		return []float64{}, nil
	}
	jobKW := Keywords(jobDescription)
	scores := make([]float64, len(resumes))
	for i, r := range resumes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores[i] = Jaccard(Keywords(r), jobKW)
	}
	return scores, nil
}
