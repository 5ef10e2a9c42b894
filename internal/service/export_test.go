package service

import (
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/scopecast/backend/internal/models"
)

func TestExportEstimate(t *testing.T) {
	result := &models.EstimateResult{
		JiraNumber:       "PROJ-3",
		TotalHours:       100,
		Complexity:       models.ComplexityMedium,
		Confidence:       90,
		EstimationMethod: models.MethodRuleBased,
		Reasoning:        "Rule-based estimate",
		Phases:           defaultPhasesFor(100),
		RiskFactors:      []string{"unknown schema"},
	}

	buf, err := ExportEstimate(result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("output is not a readable workbook: %v", err)
	}
	defer f.Close()

	if got, _ := f.GetCellValue("Estimate", "B1"); got != "PROJ-3" {
		t.Fatalf("expected ticket key in B1, got %q", got)
	}
	if got, _ := f.GetCellValue("Estimate", "B2"); got != "100" {
		t.Fatalf("expected total hours in B2, got %q", got)
	}
	// first phase row follows the summary block and header
	if got, _ := f.GetCellValue("Estimate", "A9"); got != "requirements" {
		t.Fatalf("expected first phase row at A9, got %q", got)
	}
}
