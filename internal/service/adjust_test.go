package service

import (
	"math"
	"reflect"
	"testing"

	"github.com/scopecast/backend/internal/models"
)

const hoursEpsilon = 1e-6

func defaultPhasesFor(total float64) models.Phases {
	return models.Phases{
		{Key: "requirements", Hours: round1(total * 0.15)},
		{Key: "design", Hours: round1(total * 0.20)},
		{Key: "development", Hours: round1(total * 0.48)},
		{Key: "testing", Hours: round1(total * 0.15)},
		{Key: "deployment", Hours: round1(total * 0.02)},
	}
}

func assertPhasesSumToTotal(t *testing.T, est models.EstimateResult) {
	t.Helper()
	if math.Abs(est.Phases.Total()-est.TotalHours) > hoursEpsilon {
		t.Fatalf("phases sum %.6f != total %.6f", est.Phases.Total(), est.TotalHours)
	}
}

func TestSecurityFixCap(t *testing.T) {
	est := models.EstimateResult{
		TotalHours: 160,
		Complexity: models.ComplexityHigh,
		Phases:     defaultPhasesFor(160),
	}
	out := ApplyAdjustments(est, AdjustmentInput{Description: "BlackDuck scan found CVE-2024-1234 in the parser"})

	if out.TotalHours != securityFixHours {
		t.Fatalf("expected %.0fh cap, got %.1f", float64(securityFixHours), out.TotalHours)
	}
	if h, _ := out.Phases.Get("design"); h != 0 {
		t.Fatalf("security fixes carry no design phase, got %.1f", h)
	}
	assertPhasesSumToTotal(t, out)
}

func TestSecurityFixCapOnlyDesignSelected(t *testing.T) {
	est := models.EstimateResult{
		TotalHours: 32,
		Phases:     models.Phases{{Key: "design", Hours: 32}},
	}
	out := ApplyAdjustments(est, AdjustmentInput{Description: "security patch for libssl"})

	if h, _ := out.Phases.Get("development"); h != securityFixHours {
		t.Fatalf("expected all hours booked as development, got %.1f", h)
	}
	assertPhasesSumToTotal(t, out)
}

func TestEnterpriseFloorAndCoordinationPhase(t *testing.T) {
	est := models.EstimateResult{
		TotalHours: 40,
		Phases:     defaultPhasesFor(40),
	}
	out := ApplyAdjustments(est, AdjustmentInput{Description: "Change the SAP invoice interface"})

	if out.TotalHours != enterpriseFloorHours+coordinationOverheadHours {
		t.Fatalf("expected %.0fh, got %.1f", float64(enterpriseFloorHours+coordinationOverheadHours), out.TotalHours)
	}
	if h, ok := out.Phases.Get("coordination"); !ok || h != coordinationOverheadHours {
		t.Fatalf("expected coordination phase of %dh, got %.1f (present=%v)", coordinationOverheadHours, h, ok)
	}
	assertPhasesSumToTotal(t, out)
}

func TestEnterpriseFloorAllPhasesDeselected(t *testing.T) {
	est := models.EstimateResult{TotalHours: 0, Phases: models.Phases{}}
	out := ApplyAdjustments(est, AdjustmentInput{Description: "SAP interface rework"})

	if out.TotalHours != enterpriseFloorHours {
		t.Fatalf("expected the %.0fh floor, got %.1f", float64(enterpriseFloorHours), out.TotalHours)
	}
	if h, ok := out.Phases.Get("coordination"); !ok || h != enterpriseFloorHours {
		t.Fatalf("floor hours must land in coordination, got %.1f (present=%v)", h, ok)
	}
	assertPhasesSumToTotal(t, out)
}

func TestCrossDependencySurchargeAllPhasesDeselected(t *testing.T) {
	est := models.EstimateResult{TotalHours: 0, Phases: models.Phases{}}
	out := ApplyAdjustments(est, AdjustmentInput{
		Description: "routine change",
		Ticket:      &models.TicketData{LinkedIssues: []models.LinkedIssue{{Key: "DEP-1", Type: "Blocks"}}},
	})

	if out.TotalHours != blocksLinkSurcharge {
		t.Fatalf("expected %.0fh surcharge, got %.1f", float64(blocksLinkSurcharge), out.TotalHours)
	}
	if h, ok := out.Phases.Get("coordination"); !ok || h != blocksLinkSurcharge {
		t.Fatalf("surcharge hours must land in coordination, got %.1f (present=%v)", h, ok)
	}
	assertPhasesSumToTotal(t, out)
}

func TestCrossDependencySurchargeCapped(t *testing.T) {
	links := make([]models.LinkedIssue, 10)
	for i := range links {
		links[i] = models.LinkedIssue{Key: "DEP-1", Type: "Blocks"}
	}
	est := models.EstimateResult{TotalHours: 80, Phases: defaultPhasesFor(80)}
	out := ApplyAdjustments(est, AdjustmentInput{
		Description: "routine change",
		Ticket:      &models.TicketData{LinkedIssues: links},
	})

	// 10 blocking links would add 80h; the surcharge caps at 20
	if out.TotalHours != 100 {
		t.Fatalf("expected 100h after capped surcharge, got %.1f", out.TotalHours)
	}
	assertPhasesSumToTotal(t, out)
}

func TestCrossDependencyIgnoresOtherLinkTypes(t *testing.T) {
	est := models.EstimateResult{TotalHours: 80, Phases: defaultPhasesFor(80)}
	out := ApplyAdjustments(est, AdjustmentInput{
		Description: "routine change",
		Ticket: &models.TicketData{LinkedIssues: []models.LinkedIssue{
			{Key: "REL-1", Type: "Relates"},
			{Key: "DUP-1", Type: "Duplicates"},
		}},
	})
	if out.TotalHours != 80 {
		t.Fatalf("relates/duplicates links must not add hours, got %.1f", out.TotalHours)
	}
}

func TestHistoricalMultipliersCompound(t *testing.T) {
	history := make([]models.StatusChange, 6)
	ticket := &models.TicketData{
		StatusHistory: history,
		TimeInStatus:  map[string]float64{"analysis": 50},
	}
	est := models.EstimateResult{TotalHours: 100, Phases: defaultPhasesFor(100)}
	out := ApplyAdjustments(est, AdjustmentInput{Description: "routine change", Ticket: ticket})

	want := 100 * reworkMultiplier * longAnalysisMultiplier
	if math.Abs(out.TotalHours-want) > hoursEpsilon {
		t.Fatalf("expected %.2fh, got %.2f", want, out.TotalHours)
	}
	assertPhasesSumToTotal(t, out)
}

func TestAIToolingDiscountExactValues(t *testing.T) {
	est := models.EstimateResult{TotalHours: 100, Phases: defaultPhasesFor(100)}
	out := ApplyAdjustments(est, AdjustmentInput{Description: "routine change", UsesAITools: true})

	want := map[string]float64{
		"requirements": 12.75,
		"design":       15,
		"development":  33.6,
		"testing":      12,
		"deployment":   1.8,
	}
	for key, hours := range want {
		got, _ := out.Phases.Get(key)
		if math.Abs(got-hours) > hoursEpsilon {
			t.Fatalf("phase %s: expected %.2f, got %.4f", key, hours, got)
		}
	}
	if math.Abs(out.TotalHours-75.15) > hoursEpsilon {
		t.Fatalf("expected total 75.15, got %.4f", out.TotalHours)
	}
	assertPhasesSumToTotal(t, out)
}

func TestAIToolingDiscountLeavesCustomPhases(t *testing.T) {
	phases := defaultPhasesFor(100)
	phases.Set("security_review", 10)
	est := models.EstimateResult{TotalHours: 110, Phases: phases}
	out := ApplyAdjustments(est, AdjustmentInput{Description: "routine change", UsesAITools: true})

	if h, _ := out.Phases.Get("security_review"); h != 10 {
		t.Fatalf("custom phase must keep its hours, got %.2f", h)
	}
	assertPhasesSumToTotal(t, out)
}

func TestCompetitiveCapPreservesRatios(t *testing.T) {
	est := models.EstimateResult{TotalHours: 200, Phases: defaultPhasesFor(200)}
	out := ApplyAdjustments(est, AdjustmentInput{Description: "routine change"})

	if out.TotalHours != competitiveCapHours {
		t.Fatalf("expected cap at %.0f, got %.1f", float64(competitiveCapHours), out.TotalHours)
	}
	reqH, _ := out.Phases.Get("requirements")
	devH, _ := out.Phases.Get("development")
	if math.Abs(reqH/devH-0.15/0.48) > 1e-9 {
		t.Fatalf("phase ratios must survive rescaling: req=%.4f dev=%.4f", reqH, devH)
	}
	assertPhasesSumToTotal(t, out)
}

func TestCompetitiveCapNotAppliedAtThreshold(t *testing.T) {
	est := models.EstimateResult{TotalHours: 150, Phases: defaultPhasesFor(150)}
	out := ApplyAdjustments(est, AdjustmentInput{Description: "routine change"})
	if out.TotalHours != 150 {
		t.Fatalf("150h is within the band, got %.1f", out.TotalHours)
	}
}

func TestAdjustmentsSinglePassDeterministic(t *testing.T) {
	in := AdjustmentInput{
		Description: "SAP integration with blocked dependencies",
		UsesAITools: true,
		Ticket: &models.TicketData{
			LinkedIssues:  []models.LinkedIssue{{Key: "DEP-1", Type: "Blocks"}},
			StatusHistory: make([]models.StatusChange, 7),
		},
	}
	est := models.EstimateResult{TotalHours: 90, Phases: defaultPhasesFor(90)}

	first := ApplyAdjustments(est, in)
	second := ApplyAdjustments(est, in)
	if first.TotalHours != second.TotalHours || !reflect.DeepEqual(first.Phases, second.Phases) {
		t.Fatalf("pipeline must be deterministic for identical input")
	}
	assertPhasesSumToTotal(t, first)
}

func TestStageOrderIsFixed(t *testing.T) {
	want := []string{
		"security_fix_cap",
		"enterprise_integration_floor",
		"cross_dependency_surcharge",
		"historical_pattern_multiplier",
		"ai_tooling_discount",
		"competitive_cap",
	}
	stages := AdjustmentStages()
	if len(stages) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(stages))
	}
	for i, stage := range stages {
		if stage.Name != want[i] {
			t.Fatalf("stage %d: expected %s, got %s", i, want[i], stage.Name)
		}
	}
}
