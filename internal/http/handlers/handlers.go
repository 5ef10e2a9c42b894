package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/scopecast/backend/internal/ai"
	"github.com/scopecast/backend/internal/models"
	"github.com/scopecast/backend/internal/service"
)

type Handler struct {
	Estimator *service.Estimator
	Designs   *service.DesignService
	Tickets   service.TicketProvider
	Providers ai.Chain
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Estimate a project
// @Description Produce a time estimate from a description and/or a ticket reference
// @Tags estimate
// @Accept json
// @Produce json
// @Param request body models.EstimateRequest true "estimation request"
// @Success 200 {object} models.EstimateResponse
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/estimate [post]
func (h *Handler) Estimate(c *gin.Context) {
	var req models.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_error", "Invalid request body", err.Error())
		return
	}

	outcome, err := h.Estimator.Estimate(c.Request.Context(), req)
	if err != nil {
		writeEstimateError(c, err)
		return
	}

	c.JSON(http.StatusOK, buildEstimateResponse(outcome))
}

// @Summary Fetch ticket details
// @Tags tickets
// @Produce json
// @Param key path string true "ticket key, e.g. PROJ-123"
// @Success 200 {object} models.TicketData
// @Failure 404 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/tickets/{key} [get]
func (h *Handler) TicketDetails(c *gin.Context) {
	if h.Tickets == nil {
		writeError(c, http.StatusServiceUnavailable, "jira_error", "JIRA is not configured", nil)
		return
	}
	ticket, err := h.Tickets.GetTicket(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeTicketError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// @Summary Export an estimate as Excel
// @Description Run the estimation pipeline and return the result as an .xlsx workbook
// @Tags estimate
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param request body models.EstimateRequest true "estimation request"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]any
// @Router /api/estimate/export [post]
func (h *Handler) ExportEstimate(c *gin.Context) {
	var req models.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_error", "Invalid request body", err.Error())
		return
	}

	outcome, err := h.Estimator.Estimate(c.Request.Context(), req)
	if err != nil {
		writeEstimateError(c, err)
		return
	}

	buf, err := service.ExportEstimate(&outcome.Result)
	if err != nil {
		h.Logger.Error().Err(err).Msg("excel export failed")
		writeError(c, http.StatusInternalServerError, "export_error", "Could not render workbook", nil)
		return
	}

	filename := "estimate.xlsx"
	if outcome.Result.JiraNumber != "" {
		filename = fmt.Sprintf("estimate_%s.xlsx", outcome.Result.JiraNumber)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

type CreateDesignRequest struct {
	TicketKey string   `json:"ticket_key" validate:"required"`
	Approvers []string `json:"approvers"`
}

// @Summary Generate a technical design
// @Description Generate an AI technical design for a ticket and queue it for approval
// @Tags designs
// @Accept json
// @Produce json
// @Param request body CreateDesignRequest true "design request"
// @Success 200 {object} models.DesignApproval
// @Failure 400 {object} map[string]any
// @Router /api/designs [post]
func (h *Handler) CreateDesign(c *gin.Context) {
	var req CreateDesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_error", "Invalid request body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_error", "ticket_key is required", err.Error())
		return
	}

	approval, err := h.Designs.GenerateDesign(c.Request.Context(), req.TicketKey, req.Approvers)
	if err != nil {
		writeEstimateError(c, err)
		return
	}
	c.JSON(http.StatusOK, approval)
}

// @Summary List pending design approvals
// @Tags designs
// @Produce json
// @Success 200 {array} models.DesignApproval
// @Router /api/designs/pending [get]
func (h *Handler) PendingDesigns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pending": h.Designs.Pending()})
}

type ApproveDesignRequest struct {
	Approver string `json:"approver" validate:"required"`
	Comment  string `json:"comment"`
	Approved bool   `json:"approved"`
}

// @Summary Approve a design or leave feedback
// @Tags designs
// @Accept json
// @Produce json
// @Param id path string true "approval id"
// @Param request body ApproveDesignRequest true "approval feedback"
// @Success 200 {object} models.DesignApproval
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/designs/{id}/approve [post]
func (h *Handler) ApproveDesign(c *gin.Context) {
	var req ApproveDesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_error", "Invalid request body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_error", "approver is required", err.Error())
		return
	}

	approval, err := h.Designs.AddComment(c.Param("id"), req.Approver, req.Comment, req.Approved)
	if err != nil {
		writeError(c, http.StatusNotFound, "not_found", err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, approval)
}

// @Summary Generate code from an approved design
// @Tags designs
// @Produce json
// @Param id path string true "approval id"
// @Success 200 {object} models.GeneratedCode
// @Failure 404 {object} map[string]any
// @Router /api/designs/{id}/code [post]
func (h *Handler) GenerateCode(c *gin.Context) {
	code, err := h.Designs.GenerateCode(c.Request.Context(), c.Param("id"))
	if err != nil {
		var tferr *service.TicketFetchError
		if errors.As(err, &tferr) {
			writeTicketError(c, tferr.Err)
			return
		}
		writeError(c, http.StatusNotFound, "not_found", err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, code)
}

type providerStatus struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// @Summary Check AI provider availability
// @Description Run a short completion through each configured provider
// @Tags providers
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/providers/check [get]
func (h *Handler) ProvidersCheck(c *gin.Context) {
	statuses := make([]providerStatus, 0, len(h.Providers.Providers))
	for _, p := range h.Providers.Providers {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		_, err := p.Complete(ctx, `Reply with the JSON object {"ok": true}`)
		cancel()

		status := providerStatus{Name: p.Name(), OK: err == nil}
		if err != nil {
			status.Error = err.Error()
		}
		statuses = append(statuses, status)
	}
	c.JSON(http.StatusOK, gin.H{"providers": statuses})
}

func buildEstimateResponse(outcome *service.EstimateOutcome) models.EstimateResponse {
	resp := models.EstimateResponse{
		EstimateResult:     outcome.Result,
		HistoricalAnalysis: outcome.History,
	}
	if outcome.Ticket != nil {
		resp.JiraDetails = &models.JiraDetails{
			IssueType: outcome.Ticket.IssueType,
			Priority:  outcome.Ticket.Priority,
			Status:    outcome.Ticket.Status,
		}
	}
	return resp
}

// writeEstimateError maps pipeline failures to the error envelope: request
// problems are validation_error, collaborator problems are jira_error.
func writeEstimateError(c *gin.Context, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		writeError(c, http.StatusBadRequest, "validation_error", verr.Message, nil)
		return
	}
	var tferr *service.TicketFetchError
	if errors.As(err, &tferr) {
		writeTicketError(c, tferr.Err)
		return
	}
	writeError(c, http.StatusInternalServerError, "internal_error", "Estimation failed", nil)
}

func writeTicketError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrTicketNotFound):
		writeError(c, http.StatusNotFound, "not_found", "Ticket not found", nil)
	case errors.Is(err, models.ErrInvalidTicketKey):
		writeError(c, http.StatusBadRequest, "validation_error", "Invalid ticket key format", nil)
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrForbidden):
		writeError(c, http.StatusBadGateway, "jira_error", "JIRA rejected the credentials", err.Error())
	default:
		writeError(c, http.StatusBadGateway, "jira_error", "Could not fetch ticket", err.Error())
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
