package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/scopecast/backend/internal/models"
)

const (
	// DefaultTimeout bounds a single issue fetch.
	DefaultTimeout = 10 * time.Second

	// RequestsPerMinute stays far under Atlassian's documented limits.
	RequestsPerMinute = 300
)

var ticketKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]+-\d+$`)

// Client talks to the JIRA REST API v2 and maps issues into TicketData.
type Client struct {
	baseURL    string
	email      string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

func NewClient(baseURL, email, token string) *Client {
	return &Client{
		baseURL: trimTrailingSlash(baseURL),
		email:   email,
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/RequestsPerMinute), 10),
		now:     time.Now,
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// GetTicket fetches one issue with its changelog and worklog totals.
func (c *Client) GetTicket(ctx context.Context, key string) (*models.TicketData, error) {
	if !ticketKeyPattern.MatchString(key) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidTicketKey, key)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := fmt.Sprintf("%s/rest/api/2/issue/%s?expand=changelog", c.baseURL, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: request timed out", models.ErrJiraUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrJiraUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", models.ErrTicketNotFound, key)
	case http.StatusUnauthorized:
		return nil, models.ErrUnauthorized
	case http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", models.ErrForbidden, key)
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidTicketKey, key)
	default:
		return nil, fmt.Errorf("%w: status %d", models.ErrJiraUnavailable, resp.StatusCode)
	}

	var issue issuePayload
	if err := json.NewDecoder(resp.Body).Decode(&issue); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}

	return mapIssue(issue, c.now()), nil
}

// --- JIRA wire format ---

type issuePayload struct {
	Key       string `json:"key"`
	Fields    issueFields
	Changelog struct {
		Histories []historyEntry `json:"histories"`
	} `json:"changelog"`
}

type issueFields struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Created     string `json:"created"`
	IssueType   struct {
		Name string `json:"name"`
	} `json:"issuetype"`
	Priority *struct {
		Name string `json:"name"`
	} `json:"priority"`
	Status struct {
		Name string `json:"name"`
	} `json:"status"`
	Labels  []string `json:"labels"`
	Comment struct {
		Comments []commentEntry `json:"comments"`
	} `json:"comment"`
	IssueLinks  []issueLink `json:"issuelinks"`
	FixVersions []struct {
		Name     string `json:"name"`
		Released bool   `json:"released"`
	} `json:"fixVersions"`
	TimeTracking struct {
		TimeSpentSeconds float64 `json:"timeSpentSeconds"`
	} `json:"timetracking"`
}

type commentEntry struct {
	Author struct {
		DisplayName string `json:"displayName"`
	} `json:"author"`
	Body    string `json:"body"`
	Created string `json:"created"`
}

type issueLink struct {
	Type struct {
		Inward  string `json:"inward"`
		Outward string `json:"outward"`
	} `json:"type"`
	InwardIssue  *linkedIssueRef `json:"inwardIssue"`
	OutwardIssue *linkedIssueRef `json:"outwardIssue"`
}

type linkedIssueRef struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
	} `json:"fields"`
}

type historyEntry struct {
	Created string `json:"created"`
	Items   []struct {
		Field      string `json:"field"`
		FromString string `json:"fromString"`
		ToString   string `json:"toString"`
	} `json:"items"`
}

const jiraTimeLayout = "2006-01-02T15:04:05.000-0700"

func parseJiraTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(jiraTimeLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func mapIssue(issue issuePayload, now time.Time) *models.TicketData {
	t := &models.TicketData{
		Key:         issue.Key,
		Summary:     issue.Fields.Summary,
		Description: issue.Fields.Description,
		IssueType:   issue.Fields.IssueType.Name,
		Priority:    "Medium",
		Status:      issue.Fields.Status.Name,
		Labels:      issue.Fields.Labels,
		LoggedHours: issue.Fields.TimeTracking.TimeSpentSeconds / 3600,
	}
	if issue.Fields.Priority != nil && issue.Fields.Priority.Name != "" {
		t.Priority = issue.Fields.Priority.Name
	}

	for _, c := range issue.Fields.Comment.Comments {
		created, _ := parseJiraTime(c.Created)
		t.Comments = append(t.Comments, models.Comment{
			Author:  c.Author.DisplayName,
			Body:    c.Body,
			Created: created,
		})
	}

	for _, link := range issue.Fields.IssueLinks {
		if link.OutwardIssue != nil {
			t.LinkedIssues = append(t.LinkedIssues, models.LinkedIssue{
				Key:     link.OutwardIssue.Key,
				Summary: link.OutwardIssue.Fields.Summary,
				Type:    link.Type.Outward,
			})
		}
		if link.InwardIssue != nil {
			t.LinkedIssues = append(t.LinkedIssues, models.LinkedIssue{
				Key:     link.InwardIssue.Key,
				Summary: link.InwardIssue.Fields.Summary,
				Type:    link.Type.Inward,
			})
		}
	}

	for _, v := range issue.Fields.FixVersions {
		t.FixVersions = append(t.FixVersions, models.FixVersion{
			Name:     v.Name,
			Released: v.Released,
		})
	}

	t.StatusHistory = statusHistory(issue.Changelog.Histories)
	created, _ := parseJiraTime(issue.Fields.Created)
	t.TimeInStatus = timeInStatus(t.StatusHistory, created, t.Status, now)

	return t
}

func statusHistory(histories []historyEntry) []models.StatusChange {
	var out []models.StatusChange
	for _, h := range histories {
		at, ok := parseJiraTime(h.Created)
		if !ok {
			continue
		}
		for _, item := range h.Items {
			if item.Field != "status" {
				continue
			}
			out = append(out, models.StatusChange{
				From:      item.FromString,
				To:        item.ToString,
				ChangedAt: at,
			})
		}
	}
	return out
}

// timeInStatus attributes the interval between consecutive transitions to the
// status the ticket was leaving, and the tail interval to the current status.
func timeInStatus(history []models.StatusChange, created time.Time, current string, now time.Time) map[string]float64 {
	if len(history) == 0 {
		return nil
	}
	out := map[string]float64{}
	prev := created
	for _, change := range history {
		if !prev.IsZero() && change.ChangedAt.After(prev) && change.From != "" {
			out[change.From] += change.ChangedAt.Sub(prev).Hours()
		}
		prev = change.ChangedAt
	}
	if current != "" && !prev.IsZero() && now.After(prev) {
		out[current] += now.Sub(prev).Hours()
	}
	return out
}
