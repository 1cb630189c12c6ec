package processor

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"time"

	"resume-matcher/internal/scoring"
)

// Fingerprint 单份简历评分结果的缓存键。
// TF-IDF 的 idf 依赖整个批次，因此相关度也参与计算
func Fingerprint(profileVersion string, w scoring.Weights, at time.Time, jobDescription, resumeText string, relevance float64) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

	write(profileVersion)
	write(f(w.Skills))
	write(f(w.Experience))
	write(f(w.Education))
	write(f(w.Relevance))
	write(at.Format("2006-01"))
	write(jobDescription)
	write(resumeText)
	write(strconv.FormatFloat(math.Round(relevance*1e4)/1e4, 'f', 4, 64))
	return hex.EncodeToString(h.Sum(nil))
}
