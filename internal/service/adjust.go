package service

import (
	"fmt"
	"strings"

	"github.com/scopecast/backend/internal/models"
)

// Business-tunable thresholds. The 104/120/150 figures track a competing
// estimation product, they are not structural invariants.
const (
	securityFixHours = 32

	enterpriseFloorHours      = 104
	coordinationOverheadHours = 8

	blocksLinkSurcharge  = 8
	dependsLinkSurcharge = 5
	maxLinkSurcharge     = 20

	reworkTransitionThreshold  = 5
	reworkMultiplier           = 1.15
	longAnalysisHoursThreshold = 40
	longAnalysisMultiplier     = 1.10

	competitiveCapThreshold = 150
	competitiveCapHours     = 120
)

var securityFixIndicators = []string{
	"blackduck", "cve-", "security vulnerability", "security fix",
	"security patch", "vulnerability remediation",
}

var enterpriseSystemKeywords = []string{
	"iib", "integration bus", "sap", "mainframe", "erp", "tibco", "mq series",
}

// Per-phase efficiency multipliers when the team works with AI coding tools.
var aiToolingMultipliers = map[string]float64{
	"requirements": 0.85,
	"design":       0.75,
	"development":  0.70,
	"testing":      0.80,
	"deployment":   0.90,
}

// AdjustmentInput is the read-only context the stages consult. Stages never
// write to it.
type AdjustmentInput struct {
	Description string
	UsesAITools bool
	Ticket      *models.TicketData
}

// AdjustmentStage is one named rule of the pipeline. Apply takes the
// cumulative estimate and returns the rewritten one; each stage leaves
// sum(phases) equal to total_hours.
type AdjustmentStage struct {
	Name  string
	Apply func(models.EstimateResult, AdjustmentInput) models.EstimateResult
}

// AdjustmentStages returns the pipeline in its fixed order. The order is
// load-bearing: stages act on the cumulative output of their predecessors,
// so reordering changes the final numbers.
func AdjustmentStages() []AdjustmentStage {
	return []AdjustmentStage{
		{Name: "security_fix_cap", Apply: applySecurityFixCap},
		{Name: "enterprise_integration_floor", Apply: applyEnterpriseFloor},
		{Name: "cross_dependency_surcharge", Apply: applyCrossDependencySurcharge},
		{Name: "historical_pattern_multiplier", Apply: applyHistoricalMultiplier},
		{Name: "ai_tooling_discount", Apply: applyAIToolingDiscount},
		{Name: "competitive_cap", Apply: applyCompetitiveCap},
	}
}

// ApplyAdjustments runs every stage once, in order.
func ApplyAdjustments(est models.EstimateResult, in AdjustmentInput) models.EstimateResult {
	for _, stage := range AdjustmentStages() {
		est = stage.Apply(est, in)
	}
	return est
}

// rescaleToTotal rewrites phases proportionally so they sum to total. A zero
// current sum short-circuits to zeroed phases rather than dividing by zero.
func rescaleToTotal(phases models.Phases, total float64) models.Phases {
	current := phases.Total()
	if current <= 0 {
		return phases.Scale(0)
	}
	return phases.Scale(total / current)
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// applySecurityFixCap forces security-scan remediation work to the fixed
// 32-hour envelope: no design phase, remaining phases rescaled to fit.
func applySecurityFixCap(est models.EstimateResult, in AdjustmentInput) models.EstimateResult {
	if !containsAny(in.Description, securityFixIndicators) &&
		!containsAny(est.Reasoning, securityFixIndicators) {
		return est
	}

	phases := est.Phases.Clone()
	phases.Set("design", 0)
	if phases.Total() <= 0 {
		// nothing left to carry the hours: book them all as development
		phases.Set("development", securityFixHours)
	}
	est.Phases = rescaleToTotal(phases, securityFixHours)
	est.TotalHours = securityFixHours
	est.RiskFactors = append(est.RiskFactors, "Security remediation scope capped at 32 hours")
	return est
}

// applyEnterpriseFloor raises estimates touching enterprise systems to at
// least 104 hours and books a small coordination overhead phase.
func applyEnterpriseFloor(est models.EstimateResult, in AdjustmentInput) models.EstimateResult {
	if !containsAny(in.Description, enterpriseSystemKeywords) &&
		!containsAny(est.Reasoning, enterpriseSystemKeywords) {
		return est
	}

	if est.TotalHours < enterpriseFloorHours {
		if est.Phases.Total() <= 0 {
			// nothing to scale: book the whole floor as coordination work
			est.Phases.Set("coordination", enterpriseFloorHours)
		} else {
			est.Phases = rescaleToTotal(est.Phases, enterpriseFloorHours)
		}
		est.TotalHours = enterpriseFloorHours
	}
	if _, ok := est.Phases.Get("coordination"); !ok {
		est.Phases.Set("coordination", coordinationOverheadHours)
		est.TotalHours += coordinationOverheadHours
	}
	est.RiskFactors = append(est.RiskFactors, "Enterprise system integration requires cross-team coordination")
	return est
}

// applyCrossDependencySurcharge adds fixed hours per linked ticket, capped
// at 20 cumulative hours no matter how many links exist.
func applyCrossDependencySurcharge(est models.EstimateResult, in AdjustmentInput) models.EstimateResult {
	if in.Ticket == nil || len(in.Ticket.LinkedIssues) == 0 {
		return est
	}

	var surcharge float64
	for _, link := range in.Ticket.LinkedIssues {
		linkType := strings.ToLower(link.Type)
		switch {
		case strings.Contains(linkType, "block"):
			surcharge += blocksLinkSurcharge
		case strings.Contains(linkType, "depend"):
			surcharge += dependsLinkSurcharge
		}
	}
	if surcharge == 0 {
		return est
	}
	if surcharge > maxLinkSurcharge {
		surcharge = maxLinkSurcharge
	}

	newTotal := est.TotalHours + surcharge
	if est.Phases.Total() <= 0 {
		// nothing to scale: book the surcharge as coordination work
		est.Phases.Set("coordination", newTotal)
	} else {
		est.Phases = rescaleToTotal(est.Phases, newTotal)
	}
	est.TotalHours = newTotal
	est.RiskFactors = append(est.RiskFactors,
		fmt.Sprintf("%d linked tickets add %.0fh coordination surcharge", len(in.Ticket.LinkedIssues), surcharge))
	return est
}

// applyHistoricalMultiplier compounds multiplicative factors derived from
// the ticket's lived history: churn across many statuses and long analysis
// time both predict overruns.
func applyHistoricalMultiplier(est models.EstimateResult, in AdjustmentInput) models.EstimateResult {
	if in.Ticket == nil {
		return est
	}

	factor := 1.0
	if len(in.Ticket.StatusHistory) > reworkTransitionThreshold {
		factor *= reworkMultiplier
		est.RiskFactors = append(est.RiskFactors, "High status churn suggests rework risk")
	}
	if analysisHours(in.Ticket) > longAnalysisHoursThreshold {
		factor *= longAnalysisMultiplier
		est.RiskFactors = append(est.RiskFactors, "Extended analysis time indicates unclear requirements")
	}
	if factor == 1.0 {
		return est
	}

	newTotal := est.TotalHours * factor
	est.Phases = rescaleToTotal(est.Phases, newTotal)
	est.TotalHours = newTotal
	return est
}

// applyAIToolingDiscount reduces each standard phase by its efficiency
// multiplier and resums the total. Custom phases carry no multiplier and
// keep their hours.
func applyAIToolingDiscount(est models.EstimateResult, in AdjustmentInput) models.EstimateResult {
	if !in.UsesAITools {
		return est
	}

	phases := est.Phases.Clone()
	for i, ph := range phases {
		if mult, ok := aiToolingMultipliers[ph.Key]; ok {
			phases[i].Hours = ph.Hours * mult
		}
	}
	est.Phases = phases
	est.TotalHours = phases.Total()
	return est
}

// applyCompetitiveCap clamps runaway totals to the competitive band.
func applyCompetitiveCap(est models.EstimateResult, in AdjustmentInput) models.EstimateResult {
	if est.TotalHours <= competitiveCapThreshold {
		return est
	}
	est.Phases = rescaleToTotal(est.Phases, competitiveCapHours)
	est.TotalHours = competitiveCapHours
	est.RiskFactors = append(est.RiskFactors, "Estimate capped to stay competitive, scope risk remains")
	return est
}
