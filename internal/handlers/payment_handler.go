package handlers

import (
	"net/http"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// PaymentHandler exposes premium payments
type PaymentHandler struct {
	payments services.PaymentService
}

func NewPaymentHandler(payments services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Pay handles POST /customer/payments
func (h *PaymentHandler) Pay(c *gin.Context) {
	var req models.PayRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.payments.Pay(c.Request.Context(), principal(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	okResult(c, http.StatusCreated, res)
}

// History handles GET /customer/payments
func (h *PaymentHandler) History(c *gin.Context) {
	payments, err := h.payments.History(c.Request.Context(), principal(c))
	respondList(c, payments, err)
}

// ListAssigned handles GET /agent/payments
func (h *PaymentHandler) ListAssigned(c *gin.Context) {
	payments, err := h.payments.ListAssigned(c.Request.Context(), principal(c))
	respondList(c, payments, err)
}

// ListAll handles GET /admin/payments
func (h *PaymentHandler) ListAll(c *gin.Context) {
	payments, err := h.payments.ListAll(c.Request.Context(), principal(c))
	respondList(c, payments, err)
}
