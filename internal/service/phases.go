package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/scopecast/backend/internal/models"
)

// StandardPhases in display order.
var StandardPhases = []string{"requirements", "design", "development", "testing", "deployment"}

// defaultPhasePercentages apply when the request supplies no percentages at
// all. A supplied map replaces the defaults wholesale: phases it omits get 0.
var defaultPhasePercentages = map[string]float64{
	"requirements": 15,
	"design":       20,
	"development":  48,
	"testing":      15,
	"deployment":   2,
}

// ValidateEstimateRequest rejects invalid input before the pipeline runs.
func ValidateEstimateRequest(req models.EstimateRequest) error {
	if strings.TrimSpace(req.Description) == "" && !(req.UseJira && strings.TrimSpace(req.JiraNumber) != "") {
		return models.NewValidationError("description or ticket reference is required")
	}

	var sum float64
	for key, pct := range req.PhasePercentages {
		if pct < 0 {
			return models.NewValidationError(fmt.Sprintf("phase %q has a negative percentage", key))
		}
		if pct > 100 {
			return models.NewValidationError(fmt.Sprintf("phase %q exceeds 100 percent", key))
		}
		sum += pct
	}
	if sum > 100 {
		return models.NewValidationError(fmt.Sprintf("phase percentages sum to %.1f, must not exceed 100", sum))
	}
	return nil
}

// NormalizePhaseKey lower-cases a phase name and replaces spaces with
// underscores, so custom and enterprise phase keys are stable map keys.
func NormalizePhaseKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func phaseSelected(req models.EstimateRequest, key string) bool {
	if req.SelectedPhases == nil {
		return true
	}
	selected, ok := req.SelectedPhases[key]
	if !ok {
		return true
	}
	return selected
}

func phasePercent(req models.EstimateRequest, key string) float64 {
	if req.PhasePercentages == nil {
		return defaultPhasePercentages[key]
	}
	return req.PhasePercentages[key]
}

// AllocatePhases distributes baseHours across the selected standard and
// custom phases. Unselected phases are omitted, which is how they receive
// zero hours. Custom phases follow the standard ones, in sorted key order
// for determinism.
func AllocatePhases(baseHours float64, req models.EstimateRequest) models.Phases {
	phases := models.Phases{}

	for _, key := range StandardPhases {
		if !phaseSelected(req, key) {
			continue
		}
		phases.Set(key, round1(baseHours*phasePercent(req, key)/100))
	}

	customKeys := make([]string, 0, len(req.CustomPhases))
	for key := range req.CustomPhases {
		customKeys = append(customKeys, NormalizePhaseKey(key))
	}
	sort.Strings(customKeys)
	for _, key := range customKeys {
		if !phaseSelected(req, key) {
			continue
		}
		phases.Set(key, round1(baseHours*phasePercent(req, key)/100))
	}

	return phases
}

// NormalizeCustomPhaseNames re-keys the display-name mapping by normalized
// phase key.
func NormalizeCustomPhaseNames(custom map[string]string) map[string]string {
	if len(custom) == 0 {
		return nil
	}
	out := make(map[string]string, len(custom))
	for key, name := range custom {
		out[NormalizePhaseKey(key)] = name
	}
	return out
}

// Standard phases already behind a ticket's current status. Statuses absent
// from the table do not override the requested allocation.
var statusDroppedPhases = map[string][]string{
	"in progress":             {"requirements", "design"},
	"development":             {"requirements", "design"},
	"in development":          {"requirements", "design"},
	"coding":                  {"requirements", "design"},
	"qa":                      {"requirements", "design", "development"},
	"sit":                     {"requirements", "design", "development"},
	"testing":                 {"requirements", "design", "development"},
	"in testing":              {"requirements", "design", "development"},
	"ready for testing":       {"requirements", "design", "development"},
	"uat":                     {"requirements", "design", "development"},
	"user acceptance testing": {"requirements", "design", "development"},
	"ready for deployment":    {"requirements", "design", "development", "testing"},
	"staging":                 {"requirements", "design", "development", "testing"},
	"deployed":                {"requirements", "design", "development", "testing"},
	"production":              {"requirements", "design", "development", "testing"},
	"done":                    {"requirements", "design", "development", "testing"},
	"closed":                  {"requirements", "design", "development", "testing"},
	"resolved":                {"requirements", "design", "development", "testing"},
}

// ApplyStatusFilter drops phases the ticket has already passed through.
// Custom phases are never dropped. Reports whether the status overrode the
// allocation.
func ApplyStatusFilter(phases models.Phases, status string) (models.Phases, bool) {
	dropped, ok := statusDroppedPhases[strings.ToLower(strings.TrimSpace(status))]
	if !ok {
		return phases, false
	}
	droppedSet := make(map[string]bool, len(dropped))
	for _, key := range dropped {
		droppedSet[key] = true
	}
	out := models.Phases{}
	for _, ph := range phases {
		if droppedSet[ph.Key] {
			continue
		}
		out.Set(ph.Key, ph.Hours)
	}
	return out, true
}

// BuildTestingBreakdown splits an allocated testing phase into manual,
// automation, regression, and functional buckets.
func BuildTestingBreakdown(phases models.Phases) *models.TestingBreakdown {
	hours, ok := phases.Get("testing")
	if !ok || hours <= 0 {
		return nil
	}
	return &models.TestingBreakdown{
		Manual:     round1(hours * 0.40),
		Automation: round1(hours * 0.30),
		Regression: round1(hours * 0.20),
		Functional: round1(hours * 0.10),
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
