package service

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/scopecast/backend/internal/models"
)

// FieldFallback records one normalizer field that fell back to the
// rule-based draft, with the reason.
type FieldFallback struct {
	Field  string
	Reason string
}

var hourPatterns = []*regexp.Regexp{
	regexp.MustCompile(`total[_\s]*hours?[:\s]*(\d+)`),
	regexp.MustCompile(`(\d+)[_\s]*hours?\s*total`),
	regexp.MustCompile(`estimate[:\s]*(\d+)[_\s]*hours?`),
}

// NormalizeAIResponse coerces a loosely structured completion into the
// canonical estimate record. Every field that is missing, malformed, or out
// of range keeps the rule-based draft value; a raw parse failure never
// reaches the caller.
func NormalizeAIResponse(raw string, draft models.EstimateResult) (models.EstimateResult, []FieldFallback) {
	result := draft
	result.Phases = draft.Phases.Clone()
	result.EstimationMethod = models.MethodAIPowered

	fields, ok := extractJSONObject(raw)
	if !ok {
		// keep the untouched draft so a dead-end extraction stays rule-based
		return extractManually(raw, draft)
	}

	var fallbacks []FieldFallback
	fallback := func(field, reason string) {
		fallbacks = append(fallbacks, FieldFallback{Field: field, Reason: reason})
	}

	if total, reason := parseTotalHours(fields["total_hours"]); reason == "" {
		result.TotalHours = total
	} else {
		fallback("total_hours", reason)
	}

	if c, reason := parseComplexity(fields["complexity"]); reason == "" {
		result.Complexity = c
	} else {
		fallback("complexity", reason)
	}

	if conf, reason := parseConfidence(fields["confidence"]); reason == "" {
		result.Confidence = conf
	} else {
		fallback("confidence", reason)
	}

	if reasoning, reason := parseReasoning(fields["reasoning"]); reason == "" {
		result.Reasoning = reasoning
	} else {
		fallback("reasoning", reason)
	}

	if risks, reason := parseRiskFactors(fields["risk_factors"]); reason == "" {
		result.RiskFactors = risks
	} else {
		fallback("risk_factors", reason)
	}

	if phases, reason := parsePhases(fields["phases"]); reason == "" {
		result.Phases = phases
	} else {
		fallback("phases", reason)
	}

	return result, fallbacks
}

// extractJSONObject pulls the outermost {...} span out of a completion that
// may carry prose or markdown fencing around it.
func extractJSONObject(raw string) (map[string]json.RawMessage, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func parseTotalHours(raw json.RawMessage) (float64, string) {
	if raw == nil {
		return 0, "missing"
	}
	var total float64
	if err := json.Unmarshal(raw, &total); err != nil {
		return 0, "not a number"
	}
	if math.IsNaN(total) || math.IsInf(total, 0) || total <= 0 {
		return 0, "out of range"
	}
	return total, ""
}

func parseComplexity(raw json.RawMessage) (models.Complexity, string) {
	if raw == nil {
		return "", "missing"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", "not a string"
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return models.ComplexityLow, ""
	case "medium":
		return models.ComplexityMedium, ""
	case "high":
		return models.ComplexityHigh, ""
	}
	return "", "unknown tier"
}

func parseConfidence(raw json.RawMessage) (int, string) {
	if raw == nil {
		return 0, "missing"
	}
	var conf float64
	if err := json.Unmarshal(raw, &conf); err != nil {
		return 0, "not a number"
	}
	if conf < 0 || conf > 100 {
		return 0, "out of range"
	}
	return int(math.Round(conf)), ""
}

func parseReasoning(raw json.RawMessage) (string, string) {
	if raw == nil {
		return "", "missing"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", "not a string"
	}
	if strings.TrimSpace(s) == "" {
		return "", "empty"
	}
	return s, ""
}

func parseRiskFactors(raw json.RawMessage) ([]string, string) {
	if raw == nil {
		return nil, "missing"
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, "not an array"
	}
	risks := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			risks = append(risks, s)
		}
	}
	if len(risks) == 0 {
		return nil, "no usable entries"
	}
	return risks, ""
}

func parsePhases(raw json.RawMessage) (models.Phases, string) {
	if raw == nil {
		return nil, "missing"
	}
	var phases models.Phases
	if err := json.Unmarshal(raw, &phases); err != nil {
		return nil, "not an object of numbers"
	}
	if len(phases) == 0 {
		return nil, "empty"
	}
	for _, ph := range phases {
		if ph.Hours < 0 || math.IsNaN(ph.Hours) || math.IsInf(ph.Hours, 0) {
			return nil, "negative or non-finite hours"
		}
	}
	return phases, ""
}

// extractManually is the last-resort path for completions with no JSON
// object: scan for an hour figure, derive the tier from it, and fall back to
// the draft when even that fails.
func extractManually(raw string, draft models.EstimateResult) (models.EstimateResult, []FieldFallback) {
	lower := strings.ToLower(raw)

	var total float64
	for _, pattern := range hourPatterns {
		if m := pattern.FindStringSubmatch(lower); m != nil {
			parsed, err := strconv.ParseFloat(m[1], 64)
			if err == nil && parsed > 0 {
				total = parsed
				break
			}
		}
	}
	if total == 0 {
		return draft, []FieldFallback{{Field: "all", Reason: "no JSON object and no hour figure in completion"}}
	}

	result := draft
	result.EstimationMethod = models.MethodAIPowered
	result.TotalHours = total
	switch {
	case total >= 120:
		result.Complexity = models.ComplexityHigh
	case total >= 60:
		result.Complexity = models.ComplexityMedium
	default:
		result.Complexity = models.ComplexityLow
	}
	result.Phases = models.Phases{
		{Key: "requirements", Hours: round1(total * 0.15)},
		{Key: "design", Hours: round1(total * 0.20)},
		{Key: "development", Hours: round1(total * 0.45)},
		{Key: "testing", Hours: round1(total * 0.15)},
		{Key: "deployment", Hours: round1(total * 0.05)},
	}
	result.Confidence = 70
	result.Reasoning = "Extracted from AI response text"

	return result, []FieldFallback{{Field: "structured_fields", Reason: "no JSON object, used text extraction"}}
}
