package handlers

import (
	"context"
	"net/http"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubscriptionHandler exposes the lifecycle of purchased policies
type SubscriptionHandler struct {
	subscriptions services.SubscriptionService
}

func NewSubscriptionHandler(subscriptions services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

type policyAction func(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*services.Result[*models.UserPolicyView], error)

// decide runs an action addressed by the userPolicyId in the request body
func (h *SubscriptionHandler) decide(c *gin.Context, action policyAction) {
	var req models.PolicyIDRequest
	if !bind(c, &req) {
		return
	}
	res, err := action(c.Request.Context(), principal(c), req.UserPolicyID)
	if err != nil {
		fail(c, err)
		return
	}
	okResult(c, http.StatusOK, res)
}

// Purchase handles POST /customer/policies
func (h *SubscriptionHandler) Purchase(c *gin.Context) {
	var req models.PurchaseRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.subscriptions.Purchase(c.Request.Context(), principal(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	okResult(c, http.StatusCreated, res)
}

// Cancel handles POST /customer/policies/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	h.decide(c, h.subscriptions.Cancel)
}

// Approve handles POST /{agent,admin}/policies/approve
func (h *SubscriptionHandler) Approve(c *gin.Context) {
	h.decide(c, h.subscriptions.Approve)
}

// Reject handles POST /{agent,admin}/policies/reject
func (h *SubscriptionHandler) Reject(c *gin.Context) {
	h.decide(c, h.subscriptions.Reject)
}

// ApproveRequest handles POST /{agent,admin}/policy-requests/approve
func (h *SubscriptionHandler) ApproveRequest(c *gin.Context) {
	h.decide(c, h.subscriptions.ApprovePolicyRequest)
}

// RejectRequest handles POST /{agent,admin}/policy-requests/reject
func (h *SubscriptionHandler) RejectRequest(c *gin.Context) {
	h.decide(c, h.subscriptions.RejectPolicyRequest)
}

// Get handles GET .../policies/:id
func (h *SubscriptionHandler) Get(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	policy, err := h.subscriptions.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, policy)
}

// ListMine handles GET /customer/policies
func (h *SubscriptionHandler) ListMine(c *gin.Context) {
	policies, err := h.subscriptions.ListMine(c.Request.Context(), principal(c))
	respondList(c, policies, err)
}

// ListAssigned handles GET /agent/policies
func (h *SubscriptionHandler) ListAssigned(c *gin.Context) {
	policies, err := h.subscriptions.ListAssigned(c.Request.Context(), principal(c))
	respondList(c, policies, err)
}

// ListAll handles GET /admin/policies
func (h *SubscriptionHandler) ListAll(c *gin.Context) {
	policies, err := h.subscriptions.ListAll(c.Request.Context(), principal(c))
	respondList(c, policies, err)
}
