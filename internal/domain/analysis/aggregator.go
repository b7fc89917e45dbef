package analysis

import (
	"github.com/studykit/session-integrity/internal/domain"
)

// Assessment is the aggregated outcome of one flag set
type Assessment struct {
	RiskLevel  domain.RiskLevel
	IsFraud    bool
	Confidence float64
}

// Aggregate merges the flags from all analyzers into a single risk level,
// fraud verdict, and confidence score.
//
// Classification is a tie-break ladder on severity counts, evaluated top to
// bottom; the first matching bucket wins. The function is pure and
// order-independent in its input: the flags form a set, not a sequence, and
// adding a flag can never lower the resulting level.
func Aggregate(flags []domain.RiskFlag) Assessment {
	var critical, high, medium int
	for _, f := range flags {
		switch f.Severity {
		case domain.SeverityCritical:
			critical++
		case domain.SeverityHigh:
			high++
		case domain.SeverityMedium:
			medium++
		}
	}

	switch {
	case critical > 0 || high >= 2:
		return Assessment{RiskLevel: domain.RiskCritical, IsFraud: true, Confidence: 0.9}
	case high > 0 || medium >= 3:
		return Assessment{RiskLevel: domain.RiskHigh, IsFraud: true, Confidence: 0.7}
	case medium >= 2:
		return Assessment{RiskLevel: domain.RiskMedium, IsFraud: true, Confidence: 0.5}
	default:
		return Assessment{RiskLevel: domain.RiskLow, IsFraud: false, Confidence: 0.2}
	}
}
