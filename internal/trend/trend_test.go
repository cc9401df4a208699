package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   Trend
	}{
		{"getting worse", []int{1, 1, 1, 3, 3, 3}, Worsening},
		{"getting better", []int{3, 3, 3, 1, 1, 1}, Improving},
		{"flat", []int{2, 2, 2, 2}, Stable},
		{"empty", nil, Stable},
		{"single observation", []int{3}, Stable},
		{"odd length puts middle in recent half", []int{1, 2, 3}, Worsening},
		{"change within tolerance", []int{2, 2, 2, 2, 2, 3, 2, 2}, Stable},
		{"half point rise", []int{1, 2, 2, 2}, Worsening},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.scores))
		})
	}
}

func TestAnalyze_SortsByTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	logs := []domain.HealthLog{
		{CreatedAt: base.Add(72 * time.Hour), Severity: "mild"},
		{CreatedAt: base, Severity: "severe"},
		{CreatedAt: base.Add(96 * time.Hour), Severity: "Mild"},
		{CreatedAt: base.Add(24 * time.Hour), Severity: "severe"},
	}

	s, err := Analyze(logs)
	require.NoError(t, err)
	assert.Equal(t, Improving, s.Trend)
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 3.0, s.EarlyMean, 1e-9)
	assert.InDelta(t, 1.0, s.RecentMean, 1e-9)
	assert.InDelta(t, 2.0, s.AverageSeverity, 1e-9)
}

func TestAnalyze_UnknownSeverity(t *testing.T) {
	_, err := Analyze([]domain.HealthLog{{Severity: "catastrophic"}})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSeverityScore(t *testing.T) {
	tests := map[string]int{"mild": 1, " Moderate ": 2, "SEVERE": 3, "2": 2, "high": 3}
	for label, want := range tests {
		got, err := SeverityScore(label)
		require.NoError(t, err, label)
		assert.Equal(t, want, got, label)
	}
}
