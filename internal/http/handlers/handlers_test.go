package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopecast/backend/internal/ai"
	"github.com/scopecast/backend/internal/models"
	"github.com/scopecast/backend/internal/service"
)

type stubTickets struct {
	ticket *models.TicketData
	err    error
}

func (s *stubTickets) GetTicket(ctx context.Context, key string) (*models.TicketData, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ticket, nil
}

func testHandler(tickets service.TicketProvider, chain ai.Chain) *Handler {
	logger := zerolog.Nop()
	var completer service.Completer
	if len(chain.Providers) > 0 {
		completer = chain
	}
	return &Handler{
		Estimator: &service.Estimator{Tickets: tickets, AI: completer, Logger: logger},
		Designs:   service.NewDesignService(tickets, completer, logger),
		Tickets:   tickets,
		Providers: chain,
		Validator: validator.New(),
		Logger:    logger,
	}
}

func testRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	api := r.Group("/api")
	api.POST("/estimate", h.Estimate)
	api.GET("/tickets/:key", h.TicketDetails)
	api.POST("/estimate/export", h.ExportEstimate)
	api.POST("/designs", h.CreateDesign)
	api.GET("/designs/pending", h.PendingDesigns)
	api.POST("/designs/:id/approve", h.ApproveDesign)
	api.POST("/designs/:id/code", h.GenerateCode)
	api.GET("/providers/check", h.ProvidersCheck)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r := testRouter(testHandler(nil, ai.Chain{}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestEstimateEndpoint(t *testing.T) {
	r := testRouter(testHandler(nil, ai.Chain{}))
	w := postJSON(t, r, "/api/estimate", models.EstimateRequest{
		Description: "Add a validation form to the dashboard",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Medium", resp["complexity"])
	assert.Equal(t, "rule_based", resp["estimation_method"])
	assert.EqualValues(t, 80, resp["total_hours"])

	// phases marshal in display order
	body := w.Body.String()
	assert.Less(t, strings.Index(body, `"requirements"`), strings.Index(body, `"deployment"`))
}

func TestEstimateEndpointValidation(t *testing.T) {
	r := testRouter(testHandler(nil, ai.Chain{}))
	w := postJSON(t, r, "/api/estimate", models.EstimateRequest{})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error.Code)
}

func TestEstimateEndpointWithTicket(t *testing.T) {
	tickets := &stubTickets{ticket: &models.TicketData{
		Key:          "PROJ-5",
		Summary:      "Slow report",
		Description:  "Reports take minutes",
		IssueType:    "Bug",
		Priority:     "High",
		Status:       "Open",
		TimeInStatus: map[string]float64{"Open": 30},
	}}
	r := testRouter(testHandler(tickets, ai.Chain{}))
	w := postJSON(t, r, "/api/estimate", models.EstimateRequest{
		UseJira:    true,
		JiraNumber: "PROJ-5",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp, "jira_details")
	details := resp["jira_details"].(map[string]any)
	assert.Equal(t, "Bug", details["issue_type"])
	require.Contains(t, resp, "historical_analysis")
}

func TestEstimateEndpointTicketNotFound(t *testing.T) {
	r := testRouter(testHandler(&stubTickets{err: models.ErrTicketNotFound}, ai.Chain{}))
	w := postJSON(t, r, "/api/estimate", models.EstimateRequest{
		UseJira:    true,
		JiraNumber: "PROJ-404",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTicketDetailsEndpoint(t *testing.T) {
	tickets := &stubTickets{ticket: &models.TicketData{Key: "PROJ-5", Summary: "Slow report"}}
	r := testRouter(testHandler(tickets, ai.Chain{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tickets/PROJ-5", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var ticket models.TicketData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))
	assert.Equal(t, "PROJ-5", ticket.Key)
}

func TestTicketDetailsJiraUnconfigured(t *testing.T) {
	r := testRouter(testHandler(nil, ai.Chain{}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tickets/PROJ-5", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestExportEndpointReturnsWorkbook(t *testing.T) {
	r := testRouter(testHandler(nil, ai.Chain{}))
	w := postJSON(t, r, "/api/estimate/export", models.EstimateRequest{
		Description: "Add a monthly usage report",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "estimate")
	assert.NotZero(t, w.Body.Len())
}

func TestDesignWorkflowEndpoints(t *testing.T) {
	tickets := &stubTickets{ticket: &models.TicketData{
		Key:         "PROJ-9",
		Summary:     "Paginate audit log",
		Description: "Endpoint returns everything",
		Status:      "Open",
	}}
	r := testRouter(testHandler(tickets, ai.Chain{}))

	w := postJSON(t, r, "/api/designs", CreateDesignRequest{TicketKey: "PROJ-9"})
	require.Equal(t, http.StatusOK, w.Code)
	var approval models.DesignApproval
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &approval))
	assert.Equal(t, models.DesignStatusPending, approval.Status)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/designs/pending", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), approval.ID)

	w = postJSON(t, r, "/api/designs/"+approval.ID+"/approve", ApproveDesignRequest{
		Approver: "tech_lead",
		Comment:  "ok",
		Approved: true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, r, "/api/designs/"+approval.ID+"/code", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var code models.GeneratedCode
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &code))
	assert.NotEmpty(t, code.Snippets)
}

func TestApproveDesignUnknownID(t *testing.T) {
	r := testRouter(testHandler(&stubTickets{}, ai.Chain{}))
	w := postJSON(t, r, "/api/designs/nope/approve", ApproveDesignRequest{Approver: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProvidersCheck(t *testing.T) {
	chain := ai.Chain{Providers: []ai.Provider{ai.MockProvider{}}, Logger: zerolog.Nop()}
	r := testRouter(testHandler(nil, chain))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/providers/check", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Providers []struct {
			Name string `json:"name"`
			OK   bool   `json:"ok"`
		} `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Providers, 1)
	assert.True(t, resp.Providers[0].OK)
}
