package scoring

// RiskLevel is the discrete tier derived from the numeric score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Classify maps a score to its risk tier: 75-100 low, 40-74 medium, 0-39
// high. No hysteresis; recalculation may move a debtor between tiers
// abruptly and that is accepted behavior.
func Classify(score int) RiskLevel {
	switch {
	case score >= 75:
		return RiskLow
	case score >= 40:
		return RiskMedium
	}

	return RiskHigh
}
