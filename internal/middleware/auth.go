package middleware

import (
	"errors"
	"strings"

	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const principalKey = "principal"

// TokenParser validates a bearer token.
type TokenParser interface {
	Parse(token string) (*jwt.Claims, error)
}

// Authenticate resolves the bearer token into a Principal stored on the context.
func Authenticate(tokens TokenParser, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const bearerSchema = "Bearer "
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, apperr.Unauthenticated("authorization header is required"))
			return
		}
		if !strings.HasPrefix(header, bearerSchema) {
			abort(c, apperr.Unauthenticated("authorization header must start with Bearer"))
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(header[len(bearerSchema):]))
		if err != nil {
			log.Debug("token rejected", "error", err, "path", c.FullPath())
			if errors.Is(err, jwt.ErrExpiredToken) {
				abort(c, apperr.Unauthenticated("token has expired"))
			} else {
				abort(c, apperr.Unauthenticated("invalid token"))
			}
			return
		}

		id, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			abort(c, apperr.Unauthenticated("invalid token subject"))
			return
		}
		role, err := models.ParseRole(claims.Role)
		if err != nil {
			abort(c, apperr.Unauthenticated("invalid token role"))
			return
		}
		c.Set(principalKey, &models.Principal{ID: id, Role: role})
		c.Next()
	}
}

// RequireRoles rejects principals whose role is not listed.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := Principal(c)
		if p == nil {
			abort(c, apperr.Unauthenticated("authentication required"))
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		abort(c, apperr.Forbidden("role %s may not access this resource", p.Role))
	}
}

// Principal returns the authenticated principal, or nil.
func Principal(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}

func abort(c *gin.Context, err *apperr.Error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err.Kind), gin.H{
		"success": false,
		"error":   gin.H{"kind": err.Kind, "message": err.Message},
	})
}

