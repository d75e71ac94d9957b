package httpapi

import (
	"net/http"

	"pbx-admin/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Register wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func Register(r *gin.Engine, authMW gin.HandlerFunc, h Handlers) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	v1.POST("/auth/login", h.Login)

	protected := v1.Group("")
	protected.Use(authMW)
	{
		// SWITCH routes. Read-only status endpoints allow agents; anything
		// that mutates switch state is owner/operator, and shutdown is
		// owner-only.
		sw := protected.Group("/switch")
		sw.Use(rbac.RequireAccount())
		{
			view := rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleOperator, rbac.RoleAgent)
			sw.GET("/status", view, h.SwitchStatus)
			sw.GET("/sofia", view, h.SofiaStatus)
			sw.GET("/registrations", view, h.ShowRegistrations)

			manage := rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleOperator)
			sw.POST("/reloadxml", manage, h.ReloadConfiguration)
			sw.POST("/reloadacl", manage, h.ReloadAccessList)
			sw.GET("/events", manage, h.SubscribeEvents)

			sw.POST("/shutdown", rbac.RequireAnyRole(rbac.RoleOwner), h.Shutdown)
		}

		// CALLS routes
		callsGroup := protected.Group("/calls")
		callsGroup.Use(RequireAccountAndAnyRole(rbac.RoleOwner, rbac.RoleOperator, rbac.RoleAgent)...)
		{
			callsGroup.POST("/originate", h.Originate)
		}
	}
}
