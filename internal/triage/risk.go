package triage

import "fmt"

// RiskLevel classifies how urgently a turn needs intervention.
// Levels are totally ordered: RiskNone < RiskModerate < RiskElevated < RiskCritical.
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskModerate
	RiskElevated
	RiskCritical
)

// String returns the internal level name.
func (l RiskLevel) String() string {
	switch l {
	case RiskNone:
		return "none"
	case RiskModerate:
		return "moderate"
	case RiskElevated:
		return "elevated"
	case RiskCritical:
		return "critical"
	default:
		return fmt.Sprintf("risklevel(%d)", int(l))
	}
}

// Code returns the wire code used by the client app (traffic-light scheme).
func (l RiskLevel) Code() string {
	switch l {
	case RiskModerate:
		return "yellow"
	case RiskElevated:
		return "orange"
	case RiskCritical:
		return "red"
	default:
		return "green"
	}
}

// ParseCode maps a wire code back to a RiskLevel. Unknown codes map to
// RiskNone; client-supplied levels are advisory only and always recomputed.
func ParseCode(code string) RiskLevel {
	switch code {
	case "yellow":
		return RiskModerate
	case "orange":
		return RiskElevated
	case "red":
		return RiskCritical
	default:
		return RiskNone
	}
}

// MarshalJSON emits the wire code so API payloads stay compatible with the
// existing client.
func (l RiskLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.Code() + `"`), nil
}

// UnmarshalJSON accepts a wire code.
func (l *RiskLevel) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	*l = ParseCode(s)
	return nil
}
