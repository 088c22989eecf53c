package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/reservation"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// requestTimeout bounds the store work done for one request.
const requestTimeout = 5 * time.Second

// ReservationHandler serves the guest-facing and staff reservation
// endpoints.  Secret and GuestTTLMin are used to mint guest tokens.
type ReservationHandler struct {
	Svc         *reservation.Service
	Log         *logrus.Logger
	Secret      string
	GuestTTLMin int
}

func NewReservationHandler(svc *reservation.Service, log *logrus.Logger, secret string, guestTTLMin int) *ReservationHandler {
	if svc == nil {
		panic("nil reservation service passed to NewReservationHandler")
	}
	if log == nil {
		log = discardLogger()
	}
	return &ReservationHandler{Svc: svc, Log: log, Secret: secret, GuestTTLMin: guestTTLMin}
}

type createResp struct {
	Reservation       model.Reservation `json:"reservation"`
	GuestToken        string            `json:"guestToken,omitempty"`
	GuestTokenExpires *time.Time        `json:"guestTokenExpires,omitempty"`
}

// Create books a table.  Anonymous callers receive a guest token scoped
// to the reservation email so they can manage their bookings later.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req reservation.CreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "request body must be a JSON object")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	r, err := h.Svc.CreateReservation(ctx, middleware.ActorFrom(c), req)
	if err != nil {
		return fail(c, h.Log, err)
	}
	resp := createResp{Reservation: r}
	if _, isStaff := middleware.StaffFrom(c); !isStaff && h.Secret != "" {
		tok, err := utils.NewAccessToken(h.Secret, r.GuestEmail, model.RoleGuest, h.GuestTTLMin)
		if err != nil {
			h.Log.WithError(err).WithField("reservation_id", r.ID).Warn("issue guest token")
		} else {
			resp.GuestToken = tok.Token
			resp.GuestTokenExpires = &tok.Exp
		}
	}
	return c.JSON(http.StatusCreated, resp)
}

// Get returns one reservation.  Guest tokens only see their own.
func (h *ReservationHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	r, err := h.Svc.GetReservation(ctx, middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Update applies a partial update.  Only fields present in the body are
// changed.
func (h *ReservationHandler) Update(c echo.Context) error {
	var req reservation.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "request body must be a JSON object")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	r, err := h.Svc.UpdateReservation(ctx, middleware.ActorFrom(c), c.Param("id"), req)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Cancel cancels a Requested or Approved reservation.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	r, err := h.Svc.CancelReservation(ctx, middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Lookup lists reservations by ?email=.
func (h *ReservationHandler) Lookup(c echo.Context) error {
	email := strings.TrimSpace(c.QueryParam("email"))
	if email == "" {
		return badRequest(c, reservation.CodeMissingField, "email query parameter is required")
	}
	return h.byEmail(c, email)
}

// Mine lists the reservations of the guest named by the bearer token.
func (h *ReservationHandler) Mine(c echo.Context) error {
	g, ok := middleware.ActorFrom(c).(model.Guest)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": reservation.CodeAccessDenied, "message": "guest token required"})
	}
	return h.byEmail(c, g.Email)
}

func (h *ReservationHandler) byEmail(c echo.Context, email string) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Svc.GetReservationsByEmail(ctx, middleware.ActorFrom(c), email)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if list == nil {
		list = []model.Reservation{}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": list, "total": len(list)})
}
