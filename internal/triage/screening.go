package triage

import (
	"fmt"
	"strings"
)

// EPDS (Edinburgh Postnatal Depression Scale) scoring constants.
const (
	epdsItemCount     = 10
	epdsItemMax       = 3
	epdsSelfHarmIndex = 9

	epdsElevatedThreshold = 13
	epdsModerateThreshold = 9

	// A self-harm item scored 2 or higher is actionable regardless of
	// the aggregate, mirroring clinical practice.
	epdsSelfHarmThreshold = 2
)

// PHQ-2 quick screen: total >= 3 indicates a full EPDS should follow.
const (
	phq2ItemCount = 2
	phq2Threshold = 3
)

// ScreeningResponse is one completed EPDS questionnaire: exactly 10 integer
// answers, each in [0,3].
type ScreeningResponse []int

// ValidationError reports a caller contract breach on screening input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "triage: invalid screening response: " + e.Reason
}

// Validate checks the EPDS shape constraints. Violations are rejected,
// never clamped.
func (s ScreeningResponse) Validate() error {
	if len(s) != epdsItemCount {
		return &ValidationError{Reason: fmt.Sprintf("expected %d answers, got %d", epdsItemCount, len(s))}
	}
	for i, v := range s {
		if v < 0 || v > epdsItemMax {
			return &ValidationError{Reason: fmt.Sprintf("answer %d out of range [0,%d]: %d", i+1, epdsItemMax, v)}
		}
	}
	return nil
}

// Total returns the sum of all answers, range [0,30] for valid input.
func (s ScreeningResponse) Total() int {
	total := 0
	for _, v := range s {
		total += v
	}
	return total
}

// SelfHarmScore returns the answer to item 10, the self-harm item.
func (s ScreeningResponse) SelfHarmScore() int {
	if len(s) != epdsItemCount {
		return 0
	}
	return s[epdsSelfHarmIndex]
}

// ClassifyScreening maps a completed EPDS response to a RiskLevel.
// The self-harm item overrides the total: an endorsed item 10 is critical
// even when the overall score is low.
func ClassifyScreening(s ScreeningResponse) (RiskLevel, error) {
	if err := s.Validate(); err != nil {
		return RiskNone, err
	}
	if s.SelfHarmScore() >= epdsSelfHarmThreshold {
		return RiskCritical, nil
	}
	switch total := s.Total(); {
	case total >= epdsElevatedThreshold:
		return RiskElevated, nil
	case total >= epdsModerateThreshold:
		return RiskModerate, nil
	default:
		return RiskNone, nil
	}
}

// epdsItemLabels names the ten EPDS items for concern summaries.
var epdsItemLabels = [epdsItemCount]string{
	"laughing/humor",
	"enjoyment/anticipation",
	"self-blame",
	"anxiety",
	"panic/fear",
	"things piling up",
	"sleep difficulty",
	"sadness",
	"crying",
	"self-harm thoughts",
}

// ConcernAreas names the items scored 2 or higher, for the clinical-flag
// memory written alongside elevated screenings.
func ConcernAreas(s ScreeningResponse) string {
	var areas []string
	for i, v := range s {
		if i < epdsItemCount && v >= 2 {
			areas = append(areas, epdsItemLabels[i])
		}
	}
	if len(areas) == 0 {
		return "general elevated scores"
	}
	return strings.Join(areas, ", ")
}

// ClassifyPHQ2 evaluates the two-item quick screen. It returns true when the
// total meets the clinical cutoff and a full EPDS is recommended.
func ClassifyPHQ2(answers []int) (bool, error) {
	if len(answers) != phq2ItemCount {
		return false, &ValidationError{Reason: fmt.Sprintf("expected %d answers, got %d", phq2ItemCount, len(answers))}
	}
	total := 0
	for i, v := range answers {
		if v < 0 || v > epdsItemMax {
			return false, &ValidationError{Reason: fmt.Sprintf("answer %d out of range [0,%d]: %d", i+1, epdsItemMax, v)}
		}
		total += v
	}
	return total >= phq2Threshold, nil
}
