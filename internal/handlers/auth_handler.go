package handlers

import (
	"net/http"

	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles registration and login
type AuthHandler struct {
	accounts services.AccountService
}

func NewAuthHandler(accounts services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bind(c, &req) {
		return
	}
	account, err := h.accounts.Register(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, account)
}

// Login handles POST /auth/login/:role
func (h *AuthHandler) Login(c *gin.Context) {
	role, err := models.ParseRole(c.Param("role"))
	if err != nil {
		fail(c, apperr.Validation("%v", err))
		return
	}
	var req models.LoginRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.accounts.Login(c.Request.Context(), role, &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// Me handles GET /me
func (h *AuthHandler) Me(c *gin.Context) {
	account, err := h.accounts.Resolve(c.Request.Context(), principal(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, account)
}
