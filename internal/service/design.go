package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scopecast/backend/internal/ai"
	"github.com/scopecast/backend/internal/models"
)

// DesignService drives the workflow mode: ticket → technical design →
// approval → code snippets. Approvals live in memory only; the workflow is
// a review aid, not a system of record.
type DesignService struct {
	Tickets TicketProvider
	AI      Completer
	Logger  zerolog.Logger

	mu       sync.Mutex
	pending  map[string]*models.DesignApproval
	approved map[string]*models.DesignApproval
}

func NewDesignService(tickets TicketProvider, completer Completer, logger zerolog.Logger) *DesignService {
	return &DesignService{
		Tickets:  tickets,
		AI:       completer,
		Logger:   logger,
		pending:  map[string]*models.DesignApproval{},
		approved: map[string]*models.DesignApproval{},
	}
}

var defaultApprovers = []string{"tech_lead", "architect"}

// GenerateDesign produces a technical design for the ticket and submits it
// for approval. A provider failure falls back to a template design rather
// than failing the request.
func (s *DesignService) GenerateDesign(ctx context.Context, ticketKey string, approvers []string) (*models.DesignApproval, error) {
	if s.Tickets == nil {
		return nil, &TicketFetchError{Err: fmt.Errorf("jira is not configured")}
	}
	ticket, err := s.Tickets.GetTicket(ctx, ticketKey)
	if err != nil {
		return nil, &TicketFetchError{Err: err}
	}

	design := s.generateOrFallback(ctx, ticket)

	if len(approvers) == 0 {
		approvers = defaultApprovers
	}
	approval := &models.DesignApproval{
		ID:          "design_" + ticket.Key + "_" + uuid.NewString(),
		TicketKey:   ticket.Key,
		Design:      design,
		Approvers:   approvers,
		Status:      models.DesignStatusPending,
		Comments:    []models.ApprovalComment{},
		SubmittedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.pending[approval.ID] = approval
	s.mu.Unlock()

	s.Logger.Info().
		Str("approval_id", approval.ID).
		Str("ticket_key", ticket.Key).
		Bool("fallback", design.Fallback).
		Msg("design submitted for approval")

	return cloneApproval(approval), nil
}

// cloneApproval copies an approval so callers never share slices or struct
// memory with the maps guarded by s.mu.
func cloneApproval(a *models.DesignApproval) *models.DesignApproval {
	out := *a
	out.Approvers = append([]string(nil), a.Approvers...)
	out.Comments = append([]models.ApprovalComment(nil), a.Comments...)
	return &out
}

func (s *DesignService) generateOrFallback(ctx context.Context, ticket *models.TicketData) models.SolutionDesign {
	if s.AI != nil {
		text, provider, err := s.AI.CompleteWithProvider(ctx, ai.BuildDesignPrompt(ticket))
		if err == nil {
			if design, ok := parseDesign(text); ok {
				return design
			}
			s.Logger.Warn().Str("provider", provider).Msg("unparseable design completion, using fallback design")
		} else {
			s.Logger.Warn().Err(err).Msg("design generation failed, using fallback design")
		}
	}
	return fallbackDesign(ticket)
}

func parseDesign(raw string) (models.SolutionDesign, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return models.SolutionDesign{}, false
	}
	var design models.SolutionDesign
	if err := json.Unmarshal([]byte(raw[start:end+1]), &design); err != nil {
		return models.SolutionDesign{}, false
	}
	if design.SolutionOverview == "" {
		return models.SolutionDesign{}, false
	}
	return design, true
}

func fallbackDesign(ticket *models.TicketData) models.SolutionDesign {
	return models.SolutionDesign{
		SolutionOverview:      fmt.Sprintf("Implement %s following the existing architecture", ticket.Summary),
		TechnicalArchitecture: "Follow existing architecture patterns in the codebase",
		ImplementationPlan:    "1. Analyze existing code structure\n2. Create necessary components\n3. Implement business logic\n4. Add tests\n5. Update documentation",
		DatabaseChanges:       "TBD - analyze whether schema changes are needed",
		APIDesign:             "Follow existing API patterns",
		TestingStrategy:       "Unit tests, integration tests, manual verification",
		RiskAssessment:        "Medium complexity when following existing patterns",
		AcceptanceCriteria:    ticket.Description,
		Fallback:              true,
	}
}

// AddComment records approval feedback; when approved is set the design
// moves to the approved pool.
func (s *DesignService) AddComment(approvalID, approver, comment string, approved bool) (*models.DesignApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	approval, ok := s.pending[approvalID]
	if !ok {
		return nil, fmt.Errorf("design %s not found or already approved", approvalID)
	}

	approval.Comments = append(approval.Comments, models.ApprovalComment{
		Approver:  approver,
		Comment:   comment,
		Approved:  approved,
		CreatedAt: time.Now().UTC(),
	})

	if approved {
		approval.Status = models.DesignStatusApproved
		approval.ApprovedBy = approver
		s.approved[approvalID] = approval
		delete(s.pending, approvalID)
	}

	return cloneApproval(approval), nil
}

// Pending returns pending approvals, oldest first.
func (s *DesignService) Pending() []*models.DesignApproval {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.DesignApproval, 0, len(s.pending))
	for _, approval := range s.pending {
		out = append(out, cloneApproval(approval))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}

// GenerateCode produces implementation snippets from an approved design.
func (s *DesignService) GenerateCode(ctx context.Context, approvalID string) (*models.GeneratedCode, error) {
	s.mu.Lock()
	stored, ok := s.approved[approvalID]
	var approval *models.DesignApproval
	if ok {
		approval = cloneApproval(stored)
	}
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("design %s not found or not approved", approvalID)
	}

	ticket, err := s.Tickets.GetTicket(ctx, approval.TicketKey)
	if err != nil {
		return nil, &TicketFetchError{Err: err}
	}

	if s.AI != nil {
		text, provider, err := s.AI.CompleteWithProvider(ctx, ai.BuildCodePrompt(approval.Design, ticket))
		if err == nil {
			if code, ok := parseGeneratedCode(text); ok {
				code.TicketKey = ticket.Key
				code.DesignID = approvalID
				return code, nil
			}
			s.Logger.Warn().Str("provider", provider).Msg("unparseable code completion, using fallback scaffold")
		} else {
			s.Logger.Warn().Err(err).Msg("code generation failed, using fallback scaffold")
		}
	}

	return &models.GeneratedCode{
		TicketKey: ticket.Key,
		DesignID:  approvalID,
		Snippets: []models.Snippet{
			{
				Path:     "TODO.md",
				Language: "markdown",
				Content:  "Implementation plan:\n" + approval.Design.ImplementationPlan,
			},
		},
		Notes:    "No provider available; scaffold generated from the approved implementation plan",
		Fallback: true,
	}, nil
}

func parseGeneratedCode(raw string) (*models.GeneratedCode, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, false
	}
	var code models.GeneratedCode
	if err := json.Unmarshal([]byte(raw[start:end+1]), &code); err != nil {
		return nil, false
	}
	if len(code.Snippets) == 0 {
		return nil, false
	}
	return &code, true
}
