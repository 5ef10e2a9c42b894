package service

import (
	"strings"

	"github.com/scopecast/backend/internal/models"
)

const (
	categoryAnalysis    = "analysis"
	categoryDevelopment = "development"
	categoryTesting     = "testing"
)

// Fixed status-name → phase-category lookup. Statuses not listed here are
// ignored by the analyzer.
var statusCategories = map[string]string{
	"open":              categoryAnalysis,
	"to do":             categoryAnalysis,
	"backlog":           categoryAnalysis,
	"analysis":          categoryAnalysis,
	"in analysis":       categoryAnalysis,
	"refinement":        categoryAnalysis,
	"in progress":       categoryDevelopment,
	"development":       categoryDevelopment,
	"in development":    categoryDevelopment,
	"coding":            categoryDevelopment,
	"in review":         categoryDevelopment,
	"code review":       categoryDevelopment,
	"qa":                categoryTesting,
	"sit":               categoryTesting,
	"uat":               categoryTesting,
	"testing":           categoryTesting,
	"in testing":        categoryTesting,
	"ready for testing": categoryTesting,
}

func statusCategory(status string) (string, bool) {
	c, ok := statusCategories[strings.ToLower(strings.TrimSpace(status))]
	return c, ok
}

// analysisHours sums the hours the ticket spent in analysis-category
// statuses. Shared with the historical-pattern adjustment stage.
func analysisHours(t *models.TicketData) float64 {
	var total float64
	for status, hours := range t.TimeInStatus {
		if c, ok := statusCategory(status); ok && c == categoryAnalysis {
			total += hours
		}
	}
	return total
}

// AnalyzeHistory reduces a ticket's status history and logged time into
// phase durations and qualitative pattern flags. The analysis is attached
// for side-by-side display only and never mutates the estimate.
func AnalyzeHistory(t *models.TicketData) models.HistoricalAnalysis {
	out := models.HistoricalAnalysis{Patterns: []string{}}
	if t == nil {
		return out
	}

	for status, hours := range t.TimeInStatus {
		category, ok := statusCategory(status)
		if !ok {
			continue
		}
		switch category {
		case categoryAnalysis:
			out.TimeInAnalysis += hours
		case categoryDevelopment:
			out.TimeInDevelopment += hours
		case categoryTesting:
			out.TimeInTesting += hours
		}
	}

	out.StatusTransitions = len(t.StatusHistory)
	out.ActualTimeSpent = t.LoggedHours
	for _, hours := range t.TimeInStatus {
		out.TotalCycleTime += hours
	}

	if out.StatusTransitions > reworkTransitionThreshold {
		out.Patterns = append(out.Patterns, "High rework: ticket bounced between statuses")
	}
	if out.TimeInAnalysis > out.TimeInDevelopment {
		out.Patterns = append(out.Patterns, "Requirements took longer than development")
	}

	out.HasData = len(t.StatusHistory) > 0 || len(t.TimeInStatus) > 0 || t.LoggedHours > 0
	return out
}
