package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
)

// RegisterReservations registers the guest-facing endpoints under /v1.
// They are open to anonymous callers; a bearer token, when sent, narrows
// or widens what the caller may touch.  limit guards the write routes and
// purge clears cached stats after each successful write.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limit, purge echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.OptionalJWT(jwtSecret))
	g.POST("/reservations", h.Create, limit, purge)
	g.GET("/reservations/lookup", h.Lookup, limit)
	g.GET("/reservations/:id", h.Get)
	g.PATCH("/reservations/:id", h.Update, limit, purge)
	g.POST("/reservations/:id/cancel", h.Cancel, limit, purge)

	e.GET("/v1/my-reservations", h.Mine,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleGuest),
	)
}

// RegisterStaff registers the dashboard endpoints.  All require a staff
// or admin token; deletion is admin only.  cache wraps the stats route and
// purge the routes that change it.
func RegisterStaff(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, cache, purge echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/staff",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin),
	)
	g.GET("/reservations", h.List)
	g.GET("/reservations/stats", h.Stats, cache)
	g.POST("/reservations/:id/approve", h.Approve, purge)
	g.POST("/reservations/:id/complete", h.Complete, purge)
	g.DELETE("/reservations/:id", h.Delete, middleware.RequireRole(model.RoleAdmin), purge)
}
