package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/parkwise/parking/internal/handler"    // import the handlers that implement business logic
	"github.com/parkwise/parking/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/parkwise/parking/internal/model"      // role constants for route guards
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems use /healthz to verify that
	// the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, while the protected /v1/me endpoint sits behind JWTAuth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Session management does not require an existing session.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// /refresh rotates the refresh token; /refresh-access only issues a
	// new access token.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts either a bearer token (revoke all sessions) or a
	// refresh_token body (revoke one session), so it is not behind the
	// JWT middleware.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleAdmin, model.RoleOperator))
	auth.GET("/me", a.Me)
}

// RegisterTickets wires the ticket lifecycle endpoints.  Both roles may
// operate gates: OPERATOR is the day-to-day gate account, ADMIN is not
// locked out of its own garage.
func RegisterTickets(e *echo.Echo, t *handler.TicketHandler, jwtSecret string) {
	g := e.Group("/v1/tickets")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin, model.RoleOperator))
	// Vehicle entry: allocate a slot and open a ticket.
	g.POST("/enter", t.Enter)
	// Read-only fee preview for an open ticket.
	g.GET("/:id/amount", t.Amount)
	// Charge and close; a declined payment leaves the ticket open.
	g.POST("/:id/exit", t.Exit)
	// Ticket projection, final after a successful exit.
	g.GET("/:id/receipt", t.Receipt)
}

// RegisterAdmin wires garage management endpoints.  Everything here
// changes physical layout or pricing and is restricted to ADMIN.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))

	g.POST("/lots", a.CreateLot)
	g.GET("/lots", a.ListLots)
	g.POST("/lots/:id/gates", a.CreateGate)
	g.GET("/lots/:id/slots", a.ListSlots)

	g.POST("/slots", a.CreateSlot)
	g.DELETE("/slots/:id", a.DeleteSlot)

	g.PUT("/pricing", a.UpsertPricingRule)
	g.GET("/pricing", a.ListPricingRules)
}
