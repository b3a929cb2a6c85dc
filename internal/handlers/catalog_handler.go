package handlers

import (
	"net/http"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// CatalogHandler exposes policy products
type CatalogHandler struct {
	catalog services.CatalogService
}

func NewCatalogHandler(catalog services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// List handles GET /products
func (h *CatalogHandler) List(c *gin.Context) {
	products, err := h.catalog.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, products)
}

// Get handles GET /products/:id
func (h *CatalogHandler) Get(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	product, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, product)
}

// ListAssigned handles GET /agent/products
func (h *CatalogHandler) ListAssigned(c *gin.Context) {
	products, err := h.catalog.ListAssigned(c.Request.Context(), principal(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, products)
}

// Create handles POST /admin/products
func (h *CatalogHandler) Create(c *gin.Context) {
	var req models.CreateProductRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.catalog.Create(c.Request.Context(), principal(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	okResult(c, http.StatusCreated, res)
}

// Update handles PATCH /admin/products/:id
func (h *CatalogHandler) Update(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req models.UpdateProductRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.catalog.Update(c.Request.Context(), principal(c), id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	okResult(c, http.StatusOK, res)
}

// Delete handles DELETE /admin/products/:id
func (h *CatalogHandler) Delete(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	res, err := h.catalog.Delete(c.Request.Context(), principal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	okResult(c, http.StatusOK, res)
}

// AssignAgent handles PUT /admin/products/:id/agent
func (h *CatalogHandler) AssignAgent(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req models.AssignAgentRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.catalog.AssignAgent(c.Request.Context(), principal(c), id, req.AgentID)
	if err != nil {
		fail(c, err)
		return
	}
	okResult(c, http.StatusOK, res)
}

// UnassignAgent handles DELETE /admin/products/:id/agent
func (h *CatalogHandler) UnassignAgent(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	res, err := h.catalog.UnassignAgent(c.Request.Context(), principal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	okResult(c, http.StatusOK, res)
}
