package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scopecast/backend/internal/models"
)

// BuildEstimationPrompt assembles the estimation context sent to a provider.
// The response format block keeps completions parseable by the normalizer.
func BuildEstimationPrompt(description string, ticket *models.TicketData) string {
	var sb strings.Builder

	sb.WriteString("Analyze the following development task and provide a realistic time estimate.\n\n")
	sb.WriteString("**Task Description:**\n")
	sb.WriteString(description)
	sb.WriteString("\n")

	if ticket != nil {
		sb.WriteString("\n**JIRA Details:**\n")
		fmt.Fprintf(&sb, "- Issue Type: %s\n", orUnknown(ticket.IssueType))
		fmt.Fprintf(&sb, "- Priority: %s\n", orUnknown(ticket.Priority))
		fmt.Fprintf(&sb, "- Status: %s\n", orUnknown(ticket.Status))
		fmt.Fprintf(&sb, "- Summary: %s\n", ticket.Summary)

		if len(ticket.LinkedIssues) > 0 {
			links := make([]string, 0, len(ticket.LinkedIssues))
			for _, l := range ticket.LinkedIssues {
				links = append(links, fmt.Sprintf("%s (%s)", l.Key, l.Type))
			}
			fmt.Fprintf(&sb, "- Linked Issues: %s\n", strings.Join(links, ", "))
		}
		if len(ticket.StatusHistory) > 0 {
			fmt.Fprintf(&sb, "- Historical Status Changes: %d transitions\n", len(ticket.StatusHistory))
		}
		if len(ticket.TimeInStatus) > 0 {
			sb.WriteString("- Time Spent in Statuses:\n")
			for _, status := range sortedKeys(ticket.TimeInStatus) {
				fmt.Fprintf(&sb, "  * %s: %.1f hours\n", status, ticket.TimeInStatus[status])
			}
		}
	}

	sb.WriteString(`
**Estimation Guidelines:**
- Enterprise integrations (IIB, SAP, mainframe): 80-120 hours base
- Security vulnerability fixes (BlackDuck, CVE): 32 hours max
- Standard CRUD operations: 40-80 hours
- Complex features: 80-160 hours

**Provide estimation in JSON format:**
{
    "total_hours": <number>,
    "complexity": "<Low|Medium|High>",
    "confidence": <number 50-95>,
    "reasoning": "<detailed explanation>",
    "risk_factors": ["<factor1>", "<factor2>"],
    "phases": {
        "requirements": <hours>,
        "design": <hours>,
        "development": <hours>,
        "testing": <hours>,
        "deployment": <hours>
    }
}
`)

	return sb.String()
}

// BuildDesignPrompt assembles the solution-design request for workflow mode.
func BuildDesignPrompt(ticket *models.TicketData) string {
	var sb strings.Builder

	sb.WriteString("Create a detailed solution design for this ticket:\n\n")
	sb.WriteString("**Ticket Details:**\n")
	fmt.Fprintf(&sb, "- Summary: %s\n", ticket.Summary)
	fmt.Fprintf(&sb, "- Description: %s\n", ticket.Description)
	fmt.Fprintf(&sb, "- Type: %s\n", ticket.IssueType)
	fmt.Fprintf(&sb, "- Priority: %s\n", ticket.Priority)

	sb.WriteString(`
Generate a design as a JSON object with these string fields:
- "solution_overview": high-level approach
- "technical_architecture": components and interactions
- "implementation_plan": step-by-step breakdown
- "database_changes": schema modifications if needed
- "api_design": endpoints and contracts
- "testing_strategy": unit, integration, and E2E tests
- "risk_assessment": potential challenges and mitigation
- "acceptance_criteria": measurable success criteria

Return valid JSON only, no markdown fencing or explanation.
`)

	return sb.String()
}

// BuildCodePrompt asks for code snippets implementing an approved design.
func BuildCodePrompt(design models.SolutionDesign, ticket *models.TicketData) string {
	var sb strings.Builder

	sb.WriteString("Generate implementation code for this approved technical design.\n\n")
	fmt.Fprintf(&sb, "**Ticket:** %s - %s\n\n", ticket.Key, ticket.Summary)
	fmt.Fprintf(&sb, "**Solution Overview:**\n%s\n\n", design.SolutionOverview)
	fmt.Fprintf(&sb, "**Implementation Plan:**\n%s\n\n", design.ImplementationPlan)
	fmt.Fprintf(&sb, "**API Design:**\n%s\n", design.APIDesign)

	sb.WriteString(`
Return a JSON object:
{
    "snippets": [{"path": "<file path>", "language": "<language>", "content": "<code>"}],
    "notes": "<integration notes>"
}
Return valid JSON only, no markdown fencing or explanation.
`)

	return sb.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
