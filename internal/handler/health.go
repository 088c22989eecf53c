package handler // contains HTTP handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe used by load balancers.  It reports the
// configured business hours so operators can confirm the deployment's
// policy at a glance.
func (h *ReservationHandler) Health(c echo.Context) error {
	hours := h.Svc.Hours()
	return c.JSON(http.StatusOK, echo.Map{
		"status":        "ok",
		"businessHours": hours.String() + " " + hours.TimezoneLabel(),
	})
}
