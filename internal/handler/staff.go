package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/reservation"
)

// maxListLimit caps page sizes requested by the dashboard.
const maxListLimit = 100

const dateLayout = "2006-01-02"

// List returns one page of reservations for the staff dashboard.
//
// Query params: status (comma separated), start_date, end_date (RFC 3339
// or YYYY-MM-DD; a bare end date covers the whole day), guest_name,
// guest_email, table_size, page, limit.
func (h *ReservationHandler) List(c echo.Context) error {
	staff, ok := middleware.StaffFrom(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	f, p, err := parseListQuery(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	page, err := h.Svc.ListReservations(ctx, staff, f, p)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if page.Data == nil {
		page.Data = []model.Reservation{}
	}
	return c.JSON(http.StatusOK, page)
}

// Stats returns the dashboard counters.
func (h *ReservationHandler) Stats(c echo.Context) error {
	staff, ok := middleware.StaffFrom(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.Svc.GetStats(ctx, staff)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Approve confirms a Requested reservation.
func (h *ReservationHandler) Approve(c echo.Context) error {
	return h.staffTransition(c, h.Svc.ApproveReservation)
}

// Complete marks an Approved reservation as served.
func (h *ReservationHandler) Complete(c echo.Context) error {
	return h.staffTransition(c, h.Svc.CompleteReservation)
}

func (h *ReservationHandler) staffTransition(c echo.Context,
	op func(context.Context, model.Staff, string) (model.Reservation, error)) error {
	staff, ok := middleware.StaffFrom(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	r, err := op(ctx, staff, c.Param("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Delete removes a reservation permanently.  Administrators only.
func (h *ReservationHandler) Delete(c echo.Context) error {
	staff, ok := middleware.StaffFrom(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.DeleteReservation(ctx, staff, c.Param("id")); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func parseListQuery(c echo.Context) (reservation.Filter, reservation.Pagination, error) {
	var (
		f reservation.Filter
		p reservation.Pagination
	)
	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, err := model.ParseStatus(strings.TrimSpace(part))
			if err != nil {
				return f, p, &reservation.Error{Kind: reservation.KindValidation, Code: "InvalidStatus", Message: err.Error()}
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	var err error
	if f.StartDate, err = parseDateParam(c.QueryParam("start_date"), false); err != nil {
		return f, p, err
	}
	if f.EndDate, err = parseDateParam(c.QueryParam("end_date"), true); err != nil {
		return f, p, err
	}
	f.GuestName = c.QueryParam("guest_name")
	f.GuestEmail = c.QueryParam("guest_email")
	if f.TableSize, err = intParam(c, "table_size", reservation.CodeInvalidTableSize); err != nil {
		return f, p, err
	}
	if p.Page, err = intParam(c, "page", reservation.CodeInvalidPagination); err != nil {
		return f, p, err
	}
	if p.Limit, err = intParam(c, "limit", reservation.CodeInvalidPagination); err != nil {
		return f, p, err
	}
	if p.Limit > maxListLimit {
		p.Limit = maxListLimit
	}
	return f, p, nil
}

// parseDateParam accepts RFC 3339 or a calendar date in UTC.  With
// endOfDay a calendar date resolves to its last millisecond.
func parseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &t, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, &reservation.Error{Kind: reservation.KindValidation, Code: reservation.CodeInvalidTimeFormat,
			Message: "dates must be RFC 3339 timestamps or YYYY-MM-DD"}
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Millisecond)
	}
	return &d, nil
}

func intParam(c echo.Context, name, code string) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &reservation.Error{Kind: reservation.KindValidation, Code: code, Message: name + " must be an integer"}
	}
	return n, nil
}
