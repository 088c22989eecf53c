package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
)

// Deps is everything New needs to assemble the HTTP surface.  Redis may be
// nil, in which case rate limiting and response caching are skipped.
type Deps struct {
	Secret       string
	Log          *logrus.Logger
	Reservations *handler.ReservationHandler
	Auth         *handler.AuthHandler
	Redis        *redis.Client
	RateLimit    config.RateLimitConfig
	Cache        config.CacheConfig
}

// New returns an Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	if d.Log != nil {
		e.Use(middleware.RequestLogger(d.Log))
	}

	purge := middleware.NewCacheInvalidator(d.Cache, d.Redis)
	RegisterRoutes(e, d.Reservations)
	RegisterAuth(e, d.Auth, d.Secret)
	RegisterReservations(e, d.Reservations, d.Secret,
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log), purge)
	RegisterStaff(e, d.Reservations, d.Secret,
		middleware.NewRedisCache(d.Cache, d.Redis), purge)
	return e
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, h *handler.ReservationHandler) {
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers the staff session endpoints.  Login and refresh
// are open; logout accepts either a refresh token in the body or a staff
// bearer token; /v1/me needs a valid access token of any role.  Any
// employee may create further staff accounts.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))

	e.POST("/v1/staff/users", a.Register,
		middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleStaff, model.RoleAdmin))
}
