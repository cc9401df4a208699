// Package trend labels a time-ordered series of symptom severities as
// improving, worsening or stable by comparing the mean of its early half
// with the mean of its recent half.
package trend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

type Trend string

const (
	Improving Trend = "improving"
	Worsening Trend = "worsening"
	Stable    Trend = "stable"
)

// Tolerance is the minimum difference between half means, on the 1-3 scale,
// that counts as a change.
const Tolerance = 0.3

type Summary struct {
	Trend           Trend   `json:"trend"`
	EarlyMean       float64 `json:"early_mean"`
	RecentMean      float64 `json:"recent_mean"`
	AverageSeverity float64 `json:"average_severity"`
	Count           int     `json:"count"`
}

// Classify expects scores oldest first. The early half is the first
// len/2 entries; an empty half takes the mean of the whole series.
func Classify(scores []int) Trend {
	return summarize(scores).Trend
}

func summarize(scores []int) Summary {
	mid := len(scores) / 2
	global := mean(scores, 0)
	early := mean(scores[:mid], global)
	recent := mean(scores[mid:], global)

	t := Stable
	switch {
	case recent < early-Tolerance:
		t = Improving
	case recent > early+Tolerance:
		t = Worsening
	}

	return Summary{
		Trend:           t,
		EarlyMean:       early,
		RecentMean:      recent,
		AverageSeverity: global,
		Count:           len(scores),
	}
}

// Analyze orders logs by time and summarizes their severity trend.
func Analyze(logs []domain.HealthLog) (Summary, error) {
	ordered := slices.Clone(logs)
	slices.SortStableFunc(ordered, func(a, b domain.HealthLog) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	scores := make([]int, 0, len(ordered))
	for i, l := range ordered {
		s, err := SeverityScore(l.Severity)
		if err != nil {
			return Summary{}, fmt.Errorf("Analyze: log %d: %w", i, err)
		}
		scores = append(scores, s)
	}
	return summarize(scores), nil
}

// SeverityScore maps a severity label onto the ordinal 1-3 scale.
func SeverityScore(label string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "mild", "low", "1":
		return 1, nil
	case "moderate", "medium", "2":
		return 2, nil
	case "severe", "high", "3":
		return 3, nil
	default:
		return 0, fmt.Errorf("unknown severity %q: %w", label, domain.ErrInvalidInput)
	}
}

func mean(xs []int, empty float64) float64 {
	if len(xs) == 0 {
		return empty
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}
