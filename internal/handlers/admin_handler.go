package handlers

import (
	"net/http"
	"strconv"

	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// AdminHandler handles account management, audit and reporting for admins
type AdminHandler struct {
	accounts services.AccountService
	audit    services.AuditService
	reports  services.ReportService
}

func NewAdminHandler(accounts services.AccountService, audit services.AuditService, reports services.ReportService) *AdminHandler {
	return &AdminHandler{accounts: accounts, audit: audit, reports: reports}
}

// CreateAgent handles POST /admin/agents
func (h *AdminHandler) CreateAgent(c *gin.Context) {
	var req models.CreateAgentRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.accounts.CreateAgent(c.Request.Context(), principal(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	okResult(c, http.StatusCreated, res)
}

// ListAgents handles GET /admin/agents
func (h *AdminHandler) ListAgents(c *gin.Context) {
	agents, err := h.accounts.ListAgents(c.Request.Context(), principal(c))
	respondList(c, agents, err)
}

// ListCustomers handles GET /admin/customers
func (h *AdminHandler) ListCustomers(c *gin.Context) {
	customers, err := h.accounts.ListCustomers(c.Request.Context(), principal(c))
	respondList(c, customers, err)
}

// CustomerOverview handles GET /admin/customers/:id/overview
func (h *AdminHandler) CustomerOverview(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	overview, err := h.accounts.CustomerOverview(c.Request.Context(), principal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, overview)
}

// ChangeRole handles PUT /admin/accounts/role
func (h *AdminHandler) ChangeRole(c *gin.Context) {
	var req models.ChangeRoleRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.accounts.ChangeRole(c.Request.Context(), principal(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	okResult(c, http.StatusOK, res)
}

// AuditLogs handles GET /admin/audit-logs?limit=N
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, apperr.Validation("limit must be a number"))
			return
		}
		limit = n
	}
	logs, err := h.audit.Recent(c.Request.Context(), principal(c), limit)
	respondList(c, logs, err)
}

// Summary handles GET /admin/reports/summary
func (h *AdminHandler) Summary(c *gin.Context) {
	summary, err := h.reports.Summary(c.Request.Context(), principal(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, summary)
}
