package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/reservation"
	"github.com/iliyamo/table-reservation/internal/utils"
)

const secret = "router-test-secret"

var fixedNow = time.Date(2030, 5, 10, 9, 0, 0, 0, time.UTC)

type app struct {
	e *echo.Echo
}

func newApp(t *testing.T) app {
	t.Helper()
	return newAppWithTokens(t, repository.NewMemoryTokenStore())
}

func newAppWithTokens(t *testing.T, tokens repository.TokenStore) app {
	t.Helper()
	hours, err := reservation.NewBusinessHours(8, 30, 22, 30, "UTC")
	require.NoError(t, err)
	n := 0
	svc, err := reservation.NewService(repository.NewMemoryStore(), reservation.Options{
		Hours:         hours,
		StatsLocation: time.UTC,
		Now:           func() time.Time { return fixedNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("res-%03d", n)
		},
	})
	require.NoError(t, err)

	users := repository.NewMemoryUserStore()
	for _, u := range []struct{ id, name, role string }{
		{"staff-1", "host", model.RoleStaff},
		{"admin-1", "boss", model.RoleAdmin},
	} {
		hash, err := utils.HashPassword("pw-"+u.name, 4)
		require.NoError(t, err)
		require.NoError(t, users.Create(context.Background(), model.StaffUser{
			ID: u.id, Username: u.name, Email: u.name + "@restaurant.test",
			PasswordHash: hash, Role: u.role, IsActive: true,
		}))
	}

	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7}
	e := New(Deps{
		Secret:       secret,
		Reservations: handler.NewReservationHandler(svc, nil, secret, 60),
		Auth:         handler.NewAuthHandler(cfg, users, tokens, nil),
	})
	return app{e: e}
}

func (a app) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(bs))
	} else {
		rd = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func booking(email, arrival string) map[string]interface{} {
	return map[string]interface{}{
		"guestName":           "Ann Lee",
		"guestEmail":          email,
		"guestPhone":          "+86 138 0000 0000",
		"expectedArrivalTime": arrival,
		"tableSize":           4,
	}
}

type created struct {
	Reservation model.Reservation `json:"reservation"`
	GuestToken  string            `json:"guestToken"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a app) login(t *testing.T, user string) (access, refresh string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"username": user, "password": "pw-" + user})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Access  struct{ Token string } `json:"access"`
		Refresh struct{ Token string } `json:"refresh"`
	}
	decode(t, rec, &out)
	return out.Access.Token, out.Refresh.Token
}

func (a app) create(t *testing.T, email, arrival string) created {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/v1/reservations", "", booking(email, arrival))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out created
	decode(t, rec, &out)
	return out
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "8:30 - 22:30")
}

func TestGuestFlow(t *testing.T) {
	a := newApp(t)
	out := a.create(t, "Ann@Example.com", "2030-05-11T12:00:00Z")
	assert.Equal(t, model.StatusRequested, out.Reservation.Status)
	assert.Equal(t, "ann@example.com", out.Reservation.GuestEmail)
	require.NotEmpty(t, out.GuestToken)

	rec := a.do(t, http.MethodGet, "/v1/my-reservations", out.GuestToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var mine struct {
		Data  []model.Reservation `json:"data"`
		Total int                 `json:"total"`
	}
	decode(t, rec, &mine)
	assert.Equal(t, 1, mine.Total)

	rec = a.do(t, http.MethodGet, "/v1/reservations/lookup?email=ann@example.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	notes := "window seat"
	rec = a.do(t, http.MethodPatch, "/v1/reservations/"+out.Reservation.ID, out.GuestToken, map[string]*string{"notes": &notes})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated model.Reservation
	decode(t, rec, &updated)
	assert.Equal(t, "window seat", updated.Notes)
	assert.EqualValues(t, 2, updated.Version)

	rec = a.do(t, http.MethodPost, "/v1/reservations/"+out.Reservation.ID+"/cancel", out.GuestToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled model.Reservation
	decode(t, rec, &cancelled)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	rec = a.do(t, http.MethodPost, "/v1/reservations/"+out.Reservation.ID+"/cancel", out.GuestToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var e apiError
	decode(t, rec, &e)
	assert.Equal(t, reservation.CodeIllegalTransition, e.Error)
}

func TestGuestCannotReadOthers(t *testing.T) {
	a := newApp(t)
	ann := a.create(t, "ann@example.com", "2030-05-11T12:00:00Z")
	bob := a.create(t, "bob@example.com", "2030-05-11T12:00:00Z")

	rec := a.do(t, http.MethodGet, "/v1/reservations/"+ann.Reservation.ID, bob.GuestToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/reservations/"+ann.Reservation.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/reservations/lookup?email=ann@example.com", bob.GuestToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateErrors(t *testing.T) {
	a := newApp(t)
	a.create(t, "ann@example.com", "2030-05-11T12:00:00Z")

	cases := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   string
	}{
		{"bad time", booking("x@example.com", "tomorrow noon"), http.StatusBadRequest, reservation.CodeInvalidTimeFormat},
		{"past", booking("x@example.com", "2030-05-09T12:00:00Z"), http.StatusBadRequest, reservation.CodePastArrivalTime},
		{"closed", booking("x@example.com", "2030-05-11T23:00:00Z"), http.StatusUnprocessableEntity, reservation.CodeOutsideBusinessHours},
		{"duplicate", booking("ann@example.com", "2030-05-11T13:30:00Z"), http.StatusConflict, reservation.CodeConflictingReservation},
		{"bad email", booking("not-an-email", "2030-05-11T12:00:00Z"), http.StatusBadRequest, reservation.CodeInvalidEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/v1/reservations", "", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			var e apiError
			decode(t, rec, &e)
			assert.Equal(t, tc.code, e.Error)
			assert.NotEmpty(t, e.Message)
		})
	}

	rec := a.do(t, http.MethodGet, "/v1/reservations/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaffFlow(t *testing.T) {
	a := newApp(t)
	first := a.create(t, "ann@example.com", "2030-05-11T12:00:00Z")
	a.create(t, "bob@example.com", "2030-05-10T18:00:00Z")
	staff, _ := a.login(t, "host")

	rec := a.do(t, http.MethodGet, "/v1/staff/reservations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(t, http.MethodGet, "/v1/staff/reservations", first.GuestToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/staff/reservations/"+first.Reservation.ID+"/approve", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved model.Reservation
	decode(t, rec, &approved)
	assert.Equal(t, model.StatusApproved, approved.Status)
	assert.Equal(t, "staff-1", approved.ApprovedBy)

	size := 6
	rec = a.do(t, http.MethodPatch, "/v1/reservations/"+first.Reservation.ID, staff, map[string]*int{"tableSize": &size})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/staff/reservations?status=Requested&limit=500", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page reservation.Page
	decode(t, rec, &page)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 100, page.Limit)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "bob@example.com", page.Data[0].GuestEmail)

	rec = a.do(t, http.MethodGet, "/v1/staff/reservations?start_date=2030-05-11&end_date=2030-05-11", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &page)
	assert.Equal(t, 1, page.Total)

	rec = a.do(t, http.MethodGet, "/v1/staff/reservations?status=Bogus", staff, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/staff/reservations/"+first.Reservation.ID+"/complete", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/staff/reservations/stats", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st reservation.Stats
	decode(t, rec, &st)
	assert.Equal(t, reservation.Stats{Total: 2, Pending: 1, Completed: 1, TodayReservations: 1}, st)
}

func TestDeleteIsAdminOnly(t *testing.T) {
	a := newApp(t)
	out := a.create(t, "ann@example.com", "2030-05-11T12:00:00Z")
	staff, _ := a.login(t, "host")
	admin, _ := a.login(t, "boss")

	rec := a.do(t, http.MethodDelete, "/v1/staff/reservations/"+out.Reservation.ID, staff, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodDelete, "/v1/staff/reservations/"+out.Reservation.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/reservations/"+out.Reservation.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthSession(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "host", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "boss@restaurant.test", "password": "pw-boss"})
	assert.Equal(t, http.StatusOK, rec.Code)

	access, refresh := a.login(t, "host")
	rec = a.do(t, http.MethodGet, "/v1/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"host"`)

	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	var rotated struct {
		Refresh struct{ Token string } `json:"refresh"`
	}
	decode(t, rec, &rotated)

	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/logout", access, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": rotated.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListPageOutOfRange(t *testing.T) {
	a := newApp(t)
	a.create(t, "ann@example.com", "2030-05-11T12:00:00Z")
	staff, _ := a.login(t, "host")

	rec := a.do(t, http.MethodGet, "/v1/staff/reservations?page=922337203685477582", staff, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var e apiError
	decode(t, rec, &e)
	assert.Equal(t, reservation.CodeInvalidPagination, e.Error)

	// The process is still serving.
	rec = a.do(t, http.MethodGet, "/v1/staff/reservations", staff, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaffRegistersEmployee(t *testing.T) {
	a := newApp(t)
	staff, _ := a.login(t, "host")
	admin, _ := a.login(t, "boss")

	newcomer := map[string]string{"username": "Waiter", "email": "Waiter@Restaurant.test", "password": "pw-waiter"}
	rec := a.do(t, http.MethodPost, "/v1/staff/users", staff, newcomer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	}
	decode(t, rec, &u)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "waiter", u.Username)
	assert.Equal(t, "waiter@restaurant.test", u.Email)
	assert.Equal(t, model.RoleStaff, u.Role)
	assert.NotContains(t, rec.Body.String(), "pw-waiter")

	a.login(t, "waiter")

	rec = a.do(t, http.MethodPost, "/v1/staff/users", admin, newcomer)
	assert.Equal(t, http.StatusConflict, rec.Code)

	promoted := map[string]string{"username": "chef", "email": "chef@restaurant.test", "password": "pw-chef", "role": "ADMIN"}
	rec = a.do(t, http.MethodPost, "/v1/staff/users", staff, promoted)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/staff/users", admin, promoted)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/v1/staff/users", staff, map[string]string{"username": "x", "email": "nope", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	guest := a.create(t, "ann@example.com", "2030-05-11T12:00:00Z").GuestToken
	other := map[string]string{"username": "intruder", "email": "intruder@x.com", "password": "pw"}
	rec = a.do(t, http.MethodPost, "/v1/staff/users", guest, other)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/staff/users", "", other)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type brokenRevokeStore struct {
	*repository.MemoryTokenStore
}

func (brokenRevokeStore) RevokeByHash(context.Context, string) error {
	return errors.New("connection reset")
}

func TestRevokeFailuresSurface(t *testing.T) {
	a := newAppWithTokens(t, brokenRevokeStore{repository.NewMemoryTokenStore()})
	_, refresh := a.login(t, "host")

	rec := a.do(t, http.MethodPost, "/v1/auth/logout", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
