package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"resume-matcher/internal/processor"
	"resume-matcher/internal/scoring"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// parseWeights 解析 "skills=0.4,experience=0.3" 形式的权重
func parseWeights(s string) (scoring.Weights, error) {
	m := make(map[string]float64)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return scoring.Weights{}, fmt.Errorf("权重格式错误: %q", part)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return scoring.Weights{}, fmt.Errorf("权重 %q 不是数字: %w", k, err)
		}
		m[k] = f
	}
	w, err := scoring.WeightsFromMap(m)
	if err != nil {
		return scoring.Weights{}, err
	}
	if !w.Valid() {
		return scoring.Weights{}, fmt.Errorf("权重无效: %s", s)
	}
	return w, nil
}

// parseMonth 评估时间，空值取 now 所在月份的第一天
func parseMonth(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	for _, layout := range []string{"2006-01", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("评估时间格式错误: %q", s)
}

func render(w io.Writer, format string, result *processor.BatchResult) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(w, "岗位技能: %s\n", joinOrDash(result.JobSkills))
	fmt.Fprintf(w, "规则集: %s  相关度: %s  评估时间: %s\n\n",
		result.ProfileVersion, result.Similarity, result.EvaluatedAt.Format("2006-01"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "名次\t文件\t总分\t技能\t经验\t学历\t相关度\t年限\t学位\tATS\t匹配技能")
	for _, s := range result.Results {
		if s.Failed() {
			fmt.Fprintf(tw, "%d\t%s\t-\t-\t-\t-\t-\t-\t-\t-\t错误: %s\n", s.Rank, s.Filename, s.Error)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%s\t%.2f\t%s\n",
			s.Rank, s.Filename, s.FinalScore,
			s.SkillsScore, s.ExperienceScore, s.EducationScore, s.RelevanceScore,
			s.YearsOfExperience, s.Degree, s.ATSScore, joinOrDash(s.MatchedSkills))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if result.Failed > 0 {
		fmt.Fprintf(w, "\n%d 份简历处理失败\n", result.Failed)
	}
	return nil
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
