package ai

import (
	"context"
	"fmt"

	"github.com/scopecast/backend/internal/utils"
)

// MockProvider returns a deterministic estimation payload derived from the
// prompt hash. Used in dev environments and handler tests.
type MockProvider struct {
	ModelVersion string
}

func (m MockProvider) Name() string { return "mock" }

func (m MockProvider) Complete(ctx context.Context, prompt string) (string, error) {
	h := utils.HashStringToUint64(prompt)

	totals := []int{48, 72, 96, 140, 180}
	complexities := []string{"Low", "Medium", "Medium", "High", "High"}
	idx := int(h % uint64(len(totals)))
	total := totals[idx]

	confidence := 70 + int((h/7)%21)

	payload := fmt.Sprintf(`{
  "total_hours": %d,
  "complexity": "%s",
  "confidence": %d,
  "reasoning": "Mock estimation (%s) based on scope keywords and historical throughput",
  "risk_factors": ["Mock provider output", "Unvalidated scope"],
  "phases": {
    "requirements": %.1f,
    "design": %.1f,
    "development": %.1f,
    "testing": %.1f,
    "deployment": %.1f
  }
}`,
		total, complexities[idx], confidence, m.ModelVersion,
		float64(total)*0.15, float64(total)*0.20, float64(total)*0.48,
		float64(total)*0.15, float64(total)*0.02)

	return payload, nil
}
