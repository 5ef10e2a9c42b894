package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type Complexity string

const (
	ComplexityLow    Complexity = "Low"
	ComplexityMedium Complexity = "Medium"
	ComplexityHigh   Complexity = "High"
)

const (
	MethodRuleBased = "rule_based"
	MethodAIPowered = "ai_powered"
)

// EstimateRequest is the JSON body of POST /api/estimate.
type EstimateRequest struct {
	Description      string             `json:"description"`
	JiraNumber       string             `json:"jira_number"`
	UseJira          bool               `json:"use_jira"`
	UseAI            bool               `json:"use_ai"`
	UsesAITools      bool               `json:"uses_ai_tools"`
	SelectedPhases   map[string]bool    `json:"selected_phases"`
	PhasePercentages map[string]float64 `json:"phase_percentages"`
	CustomPhases     map[string]string  `json:"custom_phases"`
}

type LinkedIssue struct {
	Key     string `json:"key"`
	Summary string `json:"summary,omitempty"`
	Type    string `json:"type"`
}

type FixVersion struct {
	Name     string `json:"name"`
	Released bool   `json:"released"`
}

type Comment struct {
	Author  string    `json:"author"`
	Body    string    `json:"body"`
	Created time.Time `json:"created"`
}

type StatusChange struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
}

// TicketData is the read-only record produced by the ticket provider.
type TicketData struct {
	Key           string             `json:"key"`
	Summary       string             `json:"summary"`
	Description   string             `json:"description"`
	IssueType     string             `json:"issue_type"`
	Priority      string             `json:"priority"`
	Status        string             `json:"status"`
	Labels        []string           `json:"labels,omitempty"`
	Comments      []Comment          `json:"comments,omitempty"`
	LinkedIssues  []LinkedIssue      `json:"linked_issues,omitempty"`
	FixVersions   []FixVersion       `json:"fix_versions,omitempty"`
	StatusHistory []StatusChange     `json:"status_history,omitempty"`
	TimeInStatus  map[string]float64 `json:"time_in_status,omitempty"`
	LoggedHours   float64            `json:"logged_hours,omitempty"`
}

// JiraDetails is the slim ticket view echoed back with an estimate.
type JiraDetails struct {
	IssueType string `json:"issue_type"`
	Priority  string `json:"priority"`
	Status    string `json:"status"`
}

// PhaseHours is one entry of an ordered phase breakdown.
type PhaseHours struct {
	Key   string
	Hours float64
}

// Phases is an insertion-ordered phase → hours breakdown. Insertion order is
// display order, so it marshals as a JSON object with keys in that order
// instead of Go's sorted map order.
type Phases []PhaseHours

func (p Phases) Get(key string) (float64, bool) {
	for _, ph := range p {
		if ph.Key == key {
			return ph.Hours, true
		}
	}
	return 0, false
}

// Set updates an existing phase in place or appends a new one.
func (p *Phases) Set(key string, hours float64) {
	for i, ph := range *p {
		if ph.Key == key {
			(*p)[i].Hours = hours
			return
		}
	}
	*p = append(*p, PhaseHours{Key: key, Hours: hours})
}

func (p Phases) Total() float64 {
	var sum float64
	for _, ph := range p {
		sum += ph.Hours
	}
	return sum
}

// Scale returns a copy with every phase multiplied by factor.
func (p Phases) Scale(factor float64) Phases {
	out := make(Phases, len(p))
	for i, ph := range p {
		out[i] = PhaseHours{Key: ph.Key, Hours: ph.Hours * factor}
	}
	return out
}

func (p Phases) Clone() Phases {
	out := make(Phases, len(p))
	copy(out, p)
	return out
}

func (p Phases) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ph := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ph.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(ph.Hours)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the object token by token so the source key order
// survives the round trip.
func (p *Phases) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("phases: expected JSON object, got %v", tok)
	}

	out := Phases{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("phases: non-string key %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return fmt.Errorf("phases: non-numeric hours for %q", key)
		}
		hours, err := num.Float64()
		if err != nil {
			return err
		}
		out.Set(key, hours)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// TestingBreakdown splits an allocated testing phase into activity buckets.
type TestingBreakdown struct {
	Manual     float64 `json:"manual"`
	Automation float64 `json:"automation"`
	Regression float64 `json:"regression"`
	Functional float64 `json:"functional"`
}

// EstimateResult is the pipeline's output artifact. It is built fresh per
// request, rewritten in place by the adjustment stages, and discarded after
// the response is sent.
type EstimateResult struct {
	JiraNumber       string            `json:"jira_number,omitempty"`
	Description      string            `json:"description"`
	TotalHours       float64           `json:"total_hours"`
	Complexity       Complexity        `json:"complexity"`
	Phases           Phases            `json:"phases"`
	Confidence       int               `json:"confidence"`
	EstimationMethod string            `json:"estimation_method"`
	RiskFactors      []string          `json:"risk_factors"`
	Reasoning        string            `json:"reasoning"`
	TestingBreakdown *TestingBreakdown `json:"testing_breakdown,omitempty"`
	CustomPhaseNames map[string]string `json:"custom_phase_names,omitempty"`
	EstimatedAt      time.Time         `json:"estimated_date"`
}

// HistoricalAnalysis summarizes a ticket's lived history for side-by-side
// display. It never feeds back into EstimateResult.
type HistoricalAnalysis struct {
	TimeInAnalysis    float64  `json:"time_in_analysis"`
	TimeInDevelopment float64  `json:"time_in_development"`
	TimeInTesting     float64  `json:"time_in_testing"`
	StatusTransitions int      `json:"status_transitions"`
	ActualTimeSpent   float64  `json:"actual_time_spent"`
	TotalCycleTime    float64  `json:"total_cycle_time"`
	Patterns          []string `json:"patterns"`
	HasData           bool     `json:"has_data"`
}

// EstimateResponse is the full body returned by POST /api/estimate.
type EstimateResponse struct {
	EstimateResult
	JiraDetails        *JiraDetails        `json:"jira_details,omitempty"`
	HistoricalAnalysis *HistoricalAnalysis `json:"historical_analysis,omitempty"`
}

// SolutionDesign is the AI-generated technical design for a ticket.
type SolutionDesign struct {
	SolutionOverview      string `json:"solution_overview"`
	TechnicalArchitecture string `json:"technical_architecture"`
	ImplementationPlan    string `json:"implementation_plan"`
	DatabaseChanges       string `json:"database_changes"`
	APIDesign             string `json:"api_design"`
	TestingStrategy       string `json:"testing_strategy"`
	RiskAssessment        string `json:"risk_assessment"`
	AcceptanceCriteria    string `json:"acceptance_criteria"`
	Fallback              bool   `json:"fallback,omitempty"`
}

type ApprovalComment struct {
	Approver  string    `json:"approver"`
	Comment   string    `json:"comment"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	DesignStatusPending  = "pending"
	DesignStatusApproved = "approved"
)

// DesignApproval tracks one design through the approval workflow.
type DesignApproval struct {
	ID          string            `json:"approval_id"`
	TicketKey   string            `json:"ticket_key"`
	Design      SolutionDesign    `json:"design"`
	Approvers   []string          `json:"approvers"`
	Status      string            `json:"status"`
	ApprovedBy  string            `json:"approved_by,omitempty"`
	Comments    []ApprovalComment `json:"comments"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// GeneratedCode is the output of the code-snippet step of the workflow.
type GeneratedCode struct {
	TicketKey string    `json:"ticket_key"`
	DesignID  string    `json:"design_id"`
	Snippets  []Snippet `json:"snippets"`
	Notes     string    `json:"notes,omitempty"`
	Fallback  bool      `json:"fallback,omitempty"`
}

type Snippet struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Content  string `json:"content"`
}
