package service

import (
	"strings"

	"github.com/scopecast/backend/internal/models"
)

// ScoreConfidence computes the final confidence percentage from the
// adjusted estimate. It deliberately ignores any confidence the AI reported
// about itself; the scorer is the single source of truth. Typical enterprise
// tickets land in the 90-95 band.
func ScoreConfidence(est models.EstimateResult, ticketAvailable bool) int {
	score := 90

	switch est.Complexity {
	case models.ComplexityHigh:
		score -= 15
	case models.ComplexityMedium:
		score -= 5
	}

	if est.TotalHours >= 80 && est.TotalHours <= 120 {
		score += 5
	}
	if ticketAvailable {
		score += 5
	}
	if est.EstimationMethod == models.MethodAIPowered {
		score += 5
	}
	if strings.Contains(strings.ToLower(est.Reasoning), "enterprise") {
		score += 5
	}
	if est.TotalHours <= 120 {
		score += 10
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
