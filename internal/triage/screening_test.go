package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyScreeningSelfHarmOverride(t *testing.T) {
	// Endorsed self-harm item is critical even with a near-zero total.
	level, err := ClassifyScreening(ScreeningResponse{0, 0, 0, 0, 0, 0, 0, 0, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, RiskCritical, level)

	level, err = ClassifyScreening(ScreeningResponse{3, 3, 3, 3, 3, 3, 3, 3, 3, 3})
	require.NoError(t, err)
	assert.Equal(t, RiskCritical, level)
}

func TestClassifyScreeningThresholds(t *testing.T) {
	cases := []struct {
		name    string
		answers ScreeningResponse
		want    RiskLevel
	}{
		{"total 13 is elevated", ScreeningResponse{2, 2, 2, 2, 2, 1, 1, 1, 0, 0}, RiskElevated},
		{"total 20 is elevated", ScreeningResponse{3, 3, 3, 3, 3, 2, 2, 0, 0, 1}, RiskElevated},
		{"total 9 is moderate", ScreeningResponse{1, 1, 1, 1, 1, 1, 1, 1, 1, 0}, RiskModerate},
		{"total 12 is moderate", ScreeningResponse{2, 2, 2, 2, 2, 1, 1, 0, 0, 0}, RiskModerate},
		{"total 8 is none", ScreeningResponse{1, 1, 1, 1, 1, 1, 1, 1, 0, 0}, RiskNone},
		{"all zeros is none", ScreeningResponse{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, RiskNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			level, err := ClassifyScreening(tc.answers)
			require.NoError(t, err)
			assert.Equal(t, tc.want, level, "answers=%v total=%d", tc.answers, tc.answers.Total())
		})
	}
}

func TestClassifyScreeningValidation(t *testing.T) {
	cases := []struct {
		name    string
		answers ScreeningResponse
	}{
		{"too few answers", ScreeningResponse{1, 2, 3}},
		{"too many answers", ScreeningResponse{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"negative answer", ScreeningResponse{0, 0, 0, -1, 0, 0, 0, 0, 0, 0}},
		{"answer above max", ScreeningResponse{0, 0, 0, 4, 0, 0, 0, 0, 0, 0}},
		{"nil answers", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ClassifyScreening(tc.answers)
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestConcernAreas(t *testing.T) {
	got := ConcernAreas(ScreeningResponse{0, 0, 2, 3, 0, 0, 2, 0, 0, 0})
	assert.Equal(t, "self-blame, anxiety, sleep difficulty", got)

	assert.Equal(t, "general elevated scores", ConcernAreas(ScreeningResponse{1, 1, 1, 1, 1, 1, 1, 1, 1, 0}))
}

func TestClassifyPHQ2(t *testing.T) {
	positive, err := ClassifyPHQ2([]int{2, 1})
	require.NoError(t, err)
	assert.True(t, positive)

	positive, err = ClassifyPHQ2([]int{1, 1})
	require.NoError(t, err)
	assert.False(t, positive)

	_, err = ClassifyPHQ2([]int{1})
	require.Error(t, err)
	_, err = ClassifyPHQ2([]int{4, 0})
	require.Error(t, err)
}
