package routes

import (
	"net/http"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/config"
	"github.com/ArowuTest/insurance-policy-backend/internal/handlers"
	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/ArowuTest/insurance-policy-backend/internal/middleware"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerDependencies holds all handler instances needed by the router
type HandlerDependencies struct {
	AuthHandler         *handlers.AuthHandler
	CatalogHandler      *handlers.CatalogHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	PaymentHandler      *handlers.PaymentHandler
	ClaimHandler        *handlers.ClaimHandler
	AdminHandler        *handlers.AdminHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies, tokens middleware.TokenParser, log *logger.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	auth := middleware.Authenticate(tokens, log)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", deps.AuthHandler.Register)
			authRoutes.POST("/login/:role", deps.AuthHandler.Login)
		}

		public.GET("/products", deps.CatalogHandler.List)
		public.GET("/products/:id", deps.CatalogHandler.Get)
	}

	// Protected routes
	protected := router.Group("/api/v1")
	protected.Use(auth)
	{
		protected.GET("/me", deps.AuthHandler.Me)

		customer := protected.Group("/customer")
		customer.Use(middleware.RequireRoles(models.RoleCustomer))
		{
			customer.GET("/policies", deps.SubscriptionHandler.ListMine)
			customer.GET("/policies/:id", deps.SubscriptionHandler.Get)
			customer.POST("/policies", deps.SubscriptionHandler.Purchase)
			customer.POST("/policies/cancel", deps.SubscriptionHandler.Cancel)

			customer.GET("/payments", deps.PaymentHandler.History)
			customer.POST("/payments", deps.PaymentHandler.Pay)

			customer.GET("/claims", deps.ClaimHandler.ListMine)
			customer.GET("/claims/:id", deps.ClaimHandler.Get)
			customer.POST("/claims", deps.ClaimHandler.Raise)
			customer.PATCH("/claims/:id", deps.ClaimHandler.Update)
		}

		// Agents and admins share the decision endpoints; the services scope agents to their assignments.
		for prefix, role := range map[string]models.Role{"/agent": models.RoleAgent, "/admin": models.RoleAdmin} {
			staff := protected.Group(prefix)
			staff.Use(middleware.RequireRoles(role))
			{
				staff.POST("/policies/approve", deps.SubscriptionHandler.Approve)
				staff.POST("/policies/reject", deps.SubscriptionHandler.Reject)
				staff.POST("/policy-requests/approve", deps.SubscriptionHandler.ApproveRequest)
				staff.POST("/policy-requests/reject", deps.SubscriptionHandler.RejectRequest)
				staff.GET("/policies/:id", deps.SubscriptionHandler.Get)
				staff.GET("/claims/:id", deps.ClaimHandler.Get)
				staff.POST("/claims/decision", deps.ClaimHandler.Decide)
				staff.PATCH("/claims/:id", deps.ClaimHandler.Update)
			}
		}

		agent := protected.Group("/agent")
		agent.Use(middleware.RequireRoles(models.RoleAgent))
		{
			agent.GET("/products", deps.CatalogHandler.ListAssigned)
			agent.GET("/policies", deps.SubscriptionHandler.ListAssigned)
			agent.GET("/payments", deps.PaymentHandler.ListAssigned)
			agent.GET("/claims", deps.ClaimHandler.ListAssigned)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/products", deps.CatalogHandler.Create)
			admin.PATCH("/products/:id", deps.CatalogHandler.Update)
			admin.DELETE("/products/:id", deps.CatalogHandler.Delete)
			admin.PUT("/products/:id/agent", deps.CatalogHandler.AssignAgent)
			admin.DELETE("/products/:id/agent", deps.CatalogHandler.UnassignAgent)

			admin.GET("/policies", deps.SubscriptionHandler.ListAll)
			admin.GET("/payments", deps.PaymentHandler.ListAll)
			admin.GET("/claims", deps.ClaimHandler.ListAll)

			admin.GET("/agents", deps.AdminHandler.ListAgents)
			admin.POST("/agents", deps.AdminHandler.CreateAgent)
			admin.GET("/customers", deps.AdminHandler.ListCustomers)
			admin.GET("/customers/:id/overview", deps.AdminHandler.CustomerOverview)
			admin.PUT("/accounts/role", deps.AdminHandler.ChangeRole)
			admin.GET("/audit-logs", deps.AdminHandler.AuditLogs)
			admin.GET("/reports/summary", deps.AdminHandler.Summary)
		}
	}

	return router
}
