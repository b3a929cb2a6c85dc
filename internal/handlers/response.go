package handlers

import (
	"net/http"

	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/middleware"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ok writes a success envelope
func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// okResult writes a mutation result together with its warnings
func okResult[T any](c *gin.Context, status int, res *services.Result[T]) {
	c.JSON(status, gin.H{"success": true, "data": res.Data, "warnings": res.Warnings})
}

// fail writes an error envelope with the status of the error kind
func fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	message := err.Error()
	if kind == apperr.KindInternal {
		// Recorded for the request logger; the cause is never sent to clients.
		_ = c.Error(err)
		message = "internal server error"
	}
	c.JSON(apperr.HTTPStatus(kind), gin.H{
		"success": false,
		"error":   gin.H{"kind": kind, "message": message},
	})
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, apperr.Validation("invalid request body: %v", err))
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		fail(c, apperr.Validation("invalid %s", name))
		return primitive.NilObjectID, false
	}
	return id, true
}

func principal(c *gin.Context) *models.Principal {
	return middleware.Principal(c)
}

// respondList writes a listing or its error
func respondList[T any](c *gin.Context, items []T, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items, "count": len(items)})
}
