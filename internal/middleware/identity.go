package middleware

// identity.go maps verified token claims onto the reservation actor and
// exposes helpers for handlers and other middleware to read it back.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// Context keys set by the auth middleware.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxActor  = "actor"
)

// actorFromClaims turns claims into an Actor.  Guest tokens carry the
// guest email as subject; every other role is staff.
func actorFromClaims(cl utils.Claims) model.Actor {
	if cl.Role == model.RoleGuest {
		return model.Guest{Email: cl.Subject}
	}
	return model.Staff{ID: cl.Subject, Role: cl.Role}
}

func setIdentity(c echo.Context, cl utils.Claims) {
	c.Set(CtxUserID, cl.Subject)
	c.Set(CtxRole, cl.Role)
	c.Set(CtxActor, actorFromClaims(cl))
}

// ActorFrom returns the actor attached to the request, Anonymous when none.
func ActorFrom(c echo.Context) model.Actor {
	if a, ok := c.Get(CtxActor).(model.Actor); ok && a != nil {
		return a
	}
	return model.Anonymous{}
}

// StaffFrom returns the staff actor when the request is authenticated as
// staff.
func StaffFrom(c echo.Context) (model.Staff, bool) {
	s, ok := ActorFrom(c).(model.Staff)
	return s, ok
}

// userID extracts the subject for rate-limit keys, "anon" for anonymous
// callers.
func userID(c echo.Context) string {
	if v, ok := c.Get(CtxUserID).(string); ok && v != "" {
		return v
	}
	return "anon"
}
