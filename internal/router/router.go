package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/turnos/internal/handler"
    "github.com/iliyamo/turnos/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth, while the protected
// profile endpoint lives under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // Refresh rotates the presented refresh token.
    g.POST("/refresh", a.Refresh)
    // Logout only needs the refresh token in the body, not a JWT.
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole("OPERATOR", "ADMIN"))
    auth.GET("/me", a.Me)
}

// RegisterTickets wires the ticket lifecycle.  Creation and the read
// endpoints are public so kiosks and lobby displays work without
// credentials; assignment and state changes require an operator.
func RegisterTickets(e *echo.Echo, t *handler.TicketHandler, jwtSecret string, rdb *redis.Client, createPerMinute int) {
    // Public kiosk endpoint, guarded only by the rate limiter.
    e.POST("/v1/tickets", t.Create, middleware.RateLimit(rdb, createPerMinute))
    e.GET("/v1/tickets", t.List)
    e.GET("/v1/tickets/waiting", t.Waiting)
    e.GET("/v1/tickets/:id/eventos", t.Events)

    op := e.Group("/v1/tickets")
    op.Use(middleware.JWTAuth(jwtSecret))
    op.Use(middleware.RequireRole("OPERATOR", "ADMIN"))
    // Call the oldest waiting ticket to a window, either by scanning
    // the table or by popping the per-type request queue.
    op.POST("/ventanillas/:ventanillaId/next", t.Next)
    op.POST("/ventanillas/:ventanillaId/tipo/:tipo/next", t.NextFromQueue)
    op.PATCH("/:id/estado", t.ChangeState)
}

// RegisterWindows wires service window management.  Every operator can
// browse windows; only admins may create, update or delete them.
func RegisterWindows(e *echo.Echo, w *handler.WindowHandler, jwtSecret string) {
    g := e.Group("/v1/ventanillas")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("OPERATOR", "ADMIN"))
    g.GET("", w.List)
    g.GET("/:id", w.Get)

    admin := e.Group("/v1/ventanillas")
    admin.Use(middleware.JWTAuth(jwtSecret))
    admin.Use(middleware.RequireRole("ADMIN"))
    admin.POST("", w.Create)
    admin.PUT("/:id", w.Update)
    admin.DELETE("/:id", w.Delete)
}

// RegisterNotifications wires the staff alert relay.  Sending messages
// to customers is an operator action.
func RegisterNotifications(e *echo.Echo, n *handler.NotificationHandler, jwtSecret string) {
    g := e.Group("/v1/notifications")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("OPERATOR", "ADMIN"))
    g.POST("/telegram", n.SendTelegram)
}
