package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/reservation"
)

// statusFor maps an engine error onto an HTTP status.
func statusFor(e *reservation.Error) int {
	switch e.Kind {
	case reservation.KindValidation:
		return http.StatusBadRequest
	case reservation.KindBusinessHours:
		return http.StatusUnprocessableEntity
	case reservation.KindConflict:
		return http.StatusConflict
	case reservation.KindNotFound:
		return http.StatusNotFound
	case reservation.KindIllegalTransition:
		if e.Code == reservation.CodeIllegalFieldUpdate {
			return http.StatusUnprocessableEntity
		}
		return http.StatusConflict
	case reservation.KindAccessDenied:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": code, "message": text}.  Store failures
// are logged with their cause and reported without it.
func fail(c echo.Context, log *logrus.Logger, err error) error {
	e, ok := reservation.AsError(err)
	if !ok {
		if log != nil {
			log.WithError(err).WithField("path", c.Path()).Error("unhandled error")
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error", "message": "internal server error"})
	}
	status := statusFor(e)
	if status >= http.StatusInternalServerError && log != nil {
		log.WithError(err).WithField("path", c.Path()).Error("reservation store failure")
	}
	return c.JSON(status, echo.Map{"error": e.Code, "message": e.Message})
}

func badRequest(c echo.Context, code, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": code, "message": msg})
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
