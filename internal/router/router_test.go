package router

import (
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/turnos/internal/handler"
)

// Registering every route group with zero-value handlers must succeed;
// the handlers are never invoked here.  This pins the full route table,
// including the method references the groups take on each handler.
func TestRegisterAllRoutes(t *testing.T) {
    e := echo.New()
    RegisterRoutes(e)
    RegisterAuth(e, &handler.AuthHandler{}, "secret")
    RegisterTickets(e, &handler.TicketHandler{}, "secret", nil, 0)
    RegisterWindows(e, &handler.WindowHandler{}, "secret")
    RegisterNotifications(e, &handler.NotificationHandler{}, "secret")

    want := map[string]bool{
        "GET /healthz":                                            false,
        "POST /v1/auth/register":                                  false,
        "POST /v1/auth/login":                                     false,
        "POST /v1/auth/refresh":                                   false,
        "POST /v1/auth/logout":                                    false,
        "GET /v1/me":                                              false,
        "POST /v1/tickets":                                        false,
        "GET /v1/tickets":                                         false,
        "GET /v1/tickets/waiting":                                 false,
        "GET /v1/tickets/:id/eventos":                             false,
        "POST /v1/tickets/ventanillas/:ventanillaId/next":         false,
        "POST /v1/tickets/ventanillas/:ventanillaId/tipo/:tipo/next": false,
        "PATCH /v1/tickets/:id/estado":                            false,
        "GET /v1/ventanillas":                                     false,
        "GET /v1/ventanillas/:id":                                 false,
        "POST /v1/ventanillas":                                    false,
        "PUT /v1/ventanillas/:id":                                 false,
        "DELETE /v1/ventanillas/:id":                              false,
        "POST /v1/notifications/telegram":                         false,
    }
    for _, r := range e.Routes() {
        key := r.Method + " " + r.Path
        if _, ok := want[key]; ok {
            want[key] = true
        }
    }
    for key, seen := range want {
        if !seen {
            t.Errorf("route %s not registered", key)
        }
    }
}
