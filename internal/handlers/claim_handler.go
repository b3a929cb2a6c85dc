package handlers

import (
	"net/http"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// ClaimHandler exposes claims for every role
type ClaimHandler struct {
	claims services.ClaimService
}

func NewClaimHandler(claims services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claims: claims}
}

// Raise handles POST /customer/claims
func (h *ClaimHandler) Raise(c *gin.Context) {
	var req models.RaiseClaimRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.claims.Raise(c.Request.Context(), principal(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	okResult(c, http.StatusCreated, res)
}

// Decide handles POST /{agent,admin}/claims/decision
func (h *ClaimHandler) Decide(c *gin.Context) {
	var req models.DecideClaimRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.claims.Decide(c.Request.Context(), principal(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	okResult(c, http.StatusOK, res)
}

// Update handles PATCH .../claims/:id
func (h *ClaimHandler) Update(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req models.UpdateClaimRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.claims.Update(c.Request.Context(), principal(c), id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	okResult(c, http.StatusOK, res)
}

// Get handles GET .../claims/:id
func (h *ClaimHandler) Get(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	claim, err := h.claims.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, claim)
}

// ListMine handles GET /customer/claims
func (h *ClaimHandler) ListMine(c *gin.Context) {
	claims, err := h.claims.ListMine(c.Request.Context(), principal(c))
	respondList(c, claims, err)
}

// ListAssigned handles GET /agent/claims
func (h *ClaimHandler) ListAssigned(c *gin.Context) {
	claims, err := h.claims.ListAssigned(c.Request.Context(), principal(c))
	respondList(c, claims, err)
}

// ListAll handles GET /admin/claims
func (h *ClaimHandler) ListAll(c *gin.Context) {
	claims, err := h.claims.ListAll(c.Request.Context(), principal(c))
	respondList(c, claims, err)
}
