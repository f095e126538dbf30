// ABOUTME: Biomarker recognition in extracted lab report text.
// ABOUTME: Line-oriented keyword match followed by the first number on the line.
package reports

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/harperreed/healthdash/internal/models"
)

// Biomarker keys stored on a Report.
const (
	Hemoglobin       = "hemoglobin"
	Glucose          = "glucose"
	TotalCholesterol = "totalCholesterol"
	LDL              = "ldl"
	HDL              = "hdl"
	Triglycerides    = "triglycerides"
	VitaminD         = "vitaminD"
)

// biomarkerMetrics maps the biomarkers that feed alerts to their metrics.
var biomarkerMetrics = map[string]models.MetricName{
	Hemoglobin:       models.MetricHemoglobin,
	Glucose:          models.MetricGlucose,
	TotalCholesterol: models.MetricCholesterol,
	VitaminD:         models.MetricVitaminD,
}

type matcher struct {
	key      string
	keywords []string
	exclude  []string
}

// Order matters: HDL/LDL lines also mention cholesterol.
var matchers = []matcher{
	{key: HDL, keywords: []string{"hdl"}},
	{key: LDL, keywords: []string{"ldl"}},
	{key: Triglycerides, keywords: []string{"triglyceride"}},
	{key: TotalCholesterol, keywords: []string{"total cholesterol", "cholesterol"}},
	{key: VitaminD, keywords: []string{"vitamin d", "25-oh", "25(oh)"}},
	{key: Hemoglobin, keywords: []string{"hemoglobin", "haemoglobin", "hgb"}, exclude: []string{"a1c", "mean corpuscular"}},
	{key: Glucose, keywords: []string{"glucose"}},
}

var (
	numberRe   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	hydroxyRe  = regexp.MustCompile(`(?i)25\s*-?\s*\(?oh\)?\s*d?`)
	vitaminDRe = regexp.MustCompile(`(?i)vitamin\s+d[23]?\b`)
)

// ParseBiomarkers finds known biomarkers in text. The first value per
// biomarker wins.
func ParseBiomarkers(text string) map[string]float64 {
	found := make(map[string]float64)
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		for _, m := range matchers {
			if _, done := found[m.key]; done {
				continue
			}
			start, end := keywordIndex(lower, m)
			if start < 0 {
				continue
			}
			rest := lower[end:]
			if m.key == VitaminD {
				// "Vitamin D3" and "25-OH" carry digits that are not the value.
				rest = vitaminDRe.ReplaceAllString(hydroxyRe.ReplaceAllString(lower[start:], " "), " ")
			}
			num := numberRe.FindString(rest)
			if num == "" {
				continue
			}
			if v, err := strconv.ParseFloat(num, 64); err == nil {
				found[m.key] = v
			}
			break
		}
	}
	return found
}

// keywordIndex returns the byte span of the first matching keyword, or -1.
func keywordIndex(lower string, m matcher) (int, int) {
	for _, ex := range m.exclude {
		if strings.Contains(lower, ex) {
			return -1, -1
		}
	}
	for _, kw := range m.keywords {
		if i := strings.Index(lower, kw); i >= 0 {
			return i, i + len(kw)
		}
	}
	return -1, -1
}
