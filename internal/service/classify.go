package service

import (
	"strings"

	"github.com/scopecast/backend/internal/models"
)

var highComplexityKeywords = []string{
	"integration", "api", "database", "migration", "security",
	"authentication", "microservice", "complex", "multiple systems",
}

var mediumComplexityKeywords = []string{
	"crud", "form", "validation", "report", "dashboard",
	"ui", "frontend", "backend",
}

const (
	baseHoursLow    = 40
	baseHoursMedium = 80
	baseHoursHigh   = 160

	longDescriptionWords = 50
)

// Classify maps a description to a complexity tier and base hour count.
// Ticket metadata, when present, weighs into the score; base hours stay on
// the fixed 40/80/160 ladder. An empty description classifies as Low.
func Classify(description string, ticket *models.TicketData) (models.Complexity, float64) {
	lower := strings.ToLower(description)

	var highCount, mediumCount int
	for _, kw := range highComplexityKeywords {
		if strings.Contains(lower, kw) {
			highCount++
		}
	}
	for _, kw := range mediumComplexityKeywords {
		if strings.Contains(lower, kw) {
			mediumCount++
		}
	}

	score := float64(highCount*2 + mediumCount)

	if ticket != nil {
		switch strings.ToLower(ticket.IssueType) {
		case "epic", "story":
			score += 2
		case "task", "improvement":
			score += 1
		case "bug":
			score += 0.5
		}
		switch strings.ToLower(ticket.Priority) {
		case "critical", "highest":
			score += 1.5
		case "high", "major":
			score += 1
		}
	}

	if len(strings.Fields(description)) > longDescriptionWords {
		score++
	}

	complexity := models.ComplexityLow
	switch {
	case highCount > 0 && mediumCount > 0:
		// both keyword classes present: High wins regardless of score
		complexity = models.ComplexityHigh
	case score >= 4:
		complexity = models.ComplexityHigh
	case score >= 2:
		complexity = models.ComplexityMedium
	}

	switch complexity {
	case models.ComplexityHigh:
		return complexity, baseHoursHigh
	case models.ComplexityMedium:
		return complexity, baseHoursMedium
	default:
		return complexity, baseHoursLow
	}
}
