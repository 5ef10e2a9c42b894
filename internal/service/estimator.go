package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scopecast/backend/internal/ai"
	"github.com/scopecast/backend/internal/models"
)

// TicketProvider fetches ticket details from the issue tracker.
type TicketProvider interface {
	GetTicket(ctx context.Context, key string) (*models.TicketData, error)
}

// Completer is the provider chain surface the estimator needs.
type Completer interface {
	CompleteWithProvider(ctx context.Context, prompt string) (text string, provider string, err error)
}

// TicketFetchError wraps a ticket-provider failure so the HTTP layer can
// tag it as a jira_error; unlike AI failures it is surfaced to the caller.
type TicketFetchError struct {
	Err error
}

func (e *TicketFetchError) Error() string { return e.Err.Error() }
func (e *TicketFetchError) Unwrap() error { return e.Err }

// Estimator runs the full estimation pipeline for one request. It holds no
// per-request state; every call builds a fresh EstimateResult.
type Estimator struct {
	Tickets TicketProvider
	AI      Completer
	Logger  zerolog.Logger
}

// EstimateOutcome bundles the estimate with the collaborator data used to
// produce it.
type EstimateOutcome struct {
	Result  models.EstimateResult
	Ticket  *models.TicketData
	History *models.HistoricalAnalysis
}

const ruleBasedReasoning = "Rule-based estimate from keyword and description analysis"

// Estimate validates the request, produces a draft via the classifier or
// the AI provider chain, runs the adjustment pipeline, and scores
// confidence. Provider failures degrade to the rule-based path; only
// validation and ticket-fetch failures reach the caller.
func (e *Estimator) Estimate(ctx context.Context, req models.EstimateRequest) (*EstimateOutcome, error) {
	if err := ValidateEstimateRequest(req); err != nil {
		return nil, err
	}

	description := req.Description
	jiraNumber := req.JiraNumber

	var ticket *models.TicketData
	if req.UseJira && strings.TrimSpace(req.JiraNumber) != "" {
		if e.Tickets == nil {
			return nil, &TicketFetchError{Err: fmt.Errorf("jira is not configured")}
		}
		fetched, err := e.Tickets.GetTicket(ctx, strings.TrimSpace(req.JiraNumber))
		if err != nil {
			return nil, &TicketFetchError{Err: err}
		}
		ticket = fetched
		jiraNumber = ticket.Key
		description = strings.TrimSpace(ticket.Summary + ". " + ticket.Description)
	}

	if strings.TrimSpace(description) == "" {
		return nil, models.NewValidationError("description is required")
	}

	complexity, baseHours := Classify(description, ticket)

	draft := models.EstimateResult{
		JiraNumber:       jiraNumber,
		Description:      description,
		TotalHours:       baseHours,
		Complexity:       complexity,
		Phases:           AllocatePhases(baseHours, req),
		EstimationMethod: models.MethodRuleBased,
		RiskFactors:      []string{},
		Reasoning:        ruleBasedReasoning,
		CustomPhaseNames: NormalizeCustomPhaseNames(req.CustomPhases),
		EstimatedAt:      time.Now().UTC(),
	}

	result := draft
	if req.UseAI && e.AI != nil {
		result = e.estimateWithAI(ctx, description, ticket, draft)
	}

	// Reconcile the draft onto the requested allocation. A ticket already
	// past the early phases overrides custom percentages; otherwise the
	// request's percentage split is applied to the draft total.
	statusOverridden := false
	if ticket != nil {
		if filtered, ok := ApplyStatusFilter(result.Phases, ticket.Status); ok {
			result.Phases = filtered
			statusOverridden = true
		}
	}
	if !statusOverridden {
		result.Phases = AllocatePhases(result.TotalHours, req)
	}
	result.TotalHours = result.Phases.Total()

	result = ApplyAdjustments(result, AdjustmentInput{
		Description: description,
		UsesAITools: req.UsesAITools,
		Ticket:      ticket,
	})

	result.TestingBreakdown = BuildTestingBreakdown(result.Phases)
	result.Confidence = ScoreConfidence(result, ticket != nil)

	outcome := &EstimateOutcome{Result: result, Ticket: ticket}
	if ticket != nil {
		if analysis := AnalyzeHistory(ticket); analysis.HasData {
			outcome.History = &analysis
		}
	}

	e.Logger.Info().
		Str("jira_number", jiraNumber).
		Str("method", result.EstimationMethod).
		Str("complexity", string(result.Complexity)).
		Float64("total_hours", result.TotalHours).
		Int("confidence", result.Confidence).
		Msg("estimate produced")

	return outcome, nil
}

// estimateWithAI runs the provider chain and normalizes its output onto the
// rule-based draft. Any failure keeps the draft.
func (e *Estimator) estimateWithAI(ctx context.Context, description string, ticket *models.TicketData, draft models.EstimateResult) models.EstimateResult {
	prompt := ai.BuildEstimationPrompt(description, ticket)

	text, provider, err := e.AI.CompleteWithProvider(ctx, prompt)
	if err != nil {
		e.Logger.Warn().Err(err).Msg("all providers failed, using rule-based estimate")
		return draft
	}

	normalized, fallbacks := NormalizeAIResponse(text, draft)
	for _, fb := range fallbacks {
		e.Logger.Debug().
			Str("provider", provider).
			Str("field", fb.Field).
			Str("reason", fb.Reason).
			Msg("ai field fell back to rule-based value")
	}
	return normalized
}
