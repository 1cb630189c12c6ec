package similarity

import (
	"context"
	"math"
	"regexp"
	"strings"
)

// 两个及以上的字母/数字/下划线构成一个词
var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

func tokenize(text string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if !englishStopWords[t] {
			out = append(out, t)
		}
	}
	return out
}

// TFIDFScorer 以 JD 与简历共同建立 TF-IDF 语料，返回 JD 与每份简历的余弦相似度
type TFIDFScorer struct{}

// NewTFIDFScorer 创建 TF-IDF 相似度计算器
func NewTFIDFScorer() *TFIDFScorer { return &TFIDFScorer{} }

// Name 算法名
func (s *TFIDFScorer) Name() string { return MethodTFIDF }

// Score 实现 processor.SimilarityScorer
func (s *TFIDFScorer) Score(ctx context.Context, jobDescription string, resumes []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return TFIDF(jobDescription, resumes), nil
}

// TFIDF JD 为空或没有简历时返回空切片。
// idf 使用平滑公式 ln((1+n)/(1+df))+1，向量做 L2 归一化
func TFIDF(jobDescription string, resumes []string) []float64 {
	if strings.TrimSpace(jobDescription) == "" || len(resumes) == 0 {
		return []float64{}
	}

	docs := make([]map[string]float64, 0, len(resumes)+1)
	df := make(map[string]int)
	for _, text := range append([]string{jobDescription}, resumes...) {
		tf := make(map[string]float64)
		for _, tok := range tokenize(text) {
			tf[tok]++
		}
		for term := range tf {
			df[term]++
		}
		docs = append(docs, tf)
	}

	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for term, d := range df {
		idf[term] = math.Log((1+n)/(1+float64(d))) + 1
	}

	vectors := make([]map[string]float64, len(docs))
	for i, tf := range docs {
		vectors[i] = normalize(tf, idf)
	}

	jd := vectors[0]
	scores := make([]float64, len(resumes))
	for i, v := range vectors[1:] {
		scores[i] = dot(jd, v)
	}
	return scores
}

func normalize(tf, idf map[string]float64) map[string]float64 {
	v := make(map[string]float64, len(tf))
	var norm float64
	for term, count := range tf {
		w := count * idf[term]
		v[term] = w
		norm += w * w
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for term := range v {
		v[term] /= norm
	}
	return v
}

func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for term, w := range a {
		sum += w * b[term]
	}
	// 浮点误差可能略超过1
	return math.Min(1, sum)
}
