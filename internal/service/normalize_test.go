package service

import (
	"testing"

	"github.com/scopecast/backend/internal/models"
)

func draftEstimate() models.EstimateResult {
	return models.EstimateResult{
		TotalHours:       80,
		Complexity:       models.ComplexityMedium,
		Phases:           defaultPhasesFor(80),
		Confidence:       85,
		EstimationMethod: models.MethodRuleBased,
		Reasoning:        "Rule-based estimate",
		RiskFactors:      []string{},
	}
}

func TestNormalizeWellFormedCompletion(t *testing.T) {
	raw := `Here is my estimate:
{"total_hours": 96, "complexity": "High", "confidence": 75,
 "reasoning": "Touches three services", "risk_factors": ["unknown schema"],
 "phases": {"development": 60, "testing": 36}}`

	out, fallbacks := NormalizeAIResponse(raw, draftEstimate())
	if len(fallbacks) != 0 {
		t.Fatalf("expected no fallbacks, got %v", fallbacks)
	}
	if out.TotalHours != 96 || out.Complexity != models.ComplexityHigh || out.Confidence != 75 {
		t.Fatalf("unexpected result: %+v", out)
	}
	if out.EstimationMethod != models.MethodAIPowered {
		t.Fatalf("expected ai_powered method")
	}
	if h, _ := out.Phases.Get("development"); h != 60 {
		t.Fatalf("expected development=60, got %.1f", h)
	}
}

func TestNormalizePerFieldFallback(t *testing.T) {
	raw := `{"total_hours": -5, "complexity": "enormous", "confidence": 250,
 "reasoning": "", "risk_factors": [1, 2], "phases": {"development": -1}}`

	out, fallbacks := NormalizeAIResponse(raw, draftEstimate())
	if len(fallbacks) != 6 {
		t.Fatalf("expected all six fields to fall back, got %v", fallbacks)
	}
	draft := draftEstimate()
	if out.TotalHours != draft.TotalHours || out.Complexity != draft.Complexity || out.Confidence != draft.Confidence {
		t.Fatalf("fallback fields must keep draft values: %+v", out)
	}
	if out.EstimationMethod != models.MethodAIPowered {
		t.Fatalf("a parsed JSON object still counts as ai_powered")
	}
}

func TestNormalizeManualExtraction(t *testing.T) {
	raw := "I think the total hours: 130 given the scope of the migration."

	out, fallbacks := NormalizeAIResponse(raw, draftEstimate())
	if len(fallbacks) != 1 {
		t.Fatalf("expected one aggregate fallback, got %v", fallbacks)
	}
	if out.TotalHours != 130 || out.Complexity != models.ComplexityHigh {
		t.Fatalf("expected 130h/High from text extraction, got %+v", out)
	}
	if out.Confidence != 70 {
		t.Fatalf("manual extraction pins confidence at 70, got %d", out.Confidence)
	}
	if h, _ := out.Phases.Get("development"); h != round1(130*0.45) {
		t.Fatalf("manual extraction uses 45%% development, got %.1f", h)
	}
	if out.EstimationMethod != models.MethodAIPowered {
		t.Fatalf("text extraction still counts as ai_powered")
	}
}

func TestNormalizeManualExtractionBands(t *testing.T) {
	cases := []struct {
		raw  string
		want models.Complexity
	}{
		{"total hours: 50", models.ComplexityLow},
		{"total hours: 60", models.ComplexityMedium},
		{"total hours: 120", models.ComplexityHigh},
	}
	for _, c := range cases {
		out, _ := NormalizeAIResponse(c.raw, draftEstimate())
		if out.Complexity != c.want {
			t.Fatalf("%q: expected %s, got %s", c.raw, c.want, out.Complexity)
		}
	}
}

func TestNormalizeUnusableCompletionKeepsDraft(t *testing.T) {
	out, fallbacks := NormalizeAIResponse("I cannot help with that.", draftEstimate())
	if len(fallbacks) != 1 || fallbacks[0].Field != "all" {
		t.Fatalf("expected total fallback, got %v", fallbacks)
	}
	if out.EstimationMethod != models.MethodRuleBased {
		t.Fatalf("a fully unusable completion keeps the rule-based method")
	}
	if out.TotalHours != 80 {
		t.Fatalf("expected draft hours kept, got %.1f", out.TotalHours)
	}
}

func TestNormalizeRiskFactorsSkipsNonStrings(t *testing.T) {
	raw := `{"total_hours": 40, "risk_factors": ["real risk", 5, ""]}`
	out, _ := NormalizeAIResponse(raw, draftEstimate())
	if len(out.RiskFactors) != 1 || out.RiskFactors[0] != "real risk" {
		t.Fatalf("expected only the string entry, got %v", out.RiskFactors)
	}
}
