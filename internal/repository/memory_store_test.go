package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
)

var base = time.Date(2030, 5, 10, 12, 0, 0, 0, time.UTC)

func newReservation(id string, created time.Time, status model.Status) model.Reservation {
	return model.Reservation{
		ID:                  id,
		GuestName:           "Guest " + id,
		GuestEmail:          id + "@example.com",
		GuestPhone:          "555-0100",
		ExpectedArrivalTime: base.Add(24 * time.Hour),
		TableSize:           4,
		Status:              status,
		CreatedAt:           created,
		UpdatedAt:           created,
		Version:             1,
	}
}

func TestMemoryStore_PutGetRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	approved := base.Add(time.Minute)
	r := newReservation("r1", base, model.StatusApproved)
	r.ApprovedBy = "staff-1"
	r.ApprovedAt = &approved

	require.NoError(t, s.Put(ctx, r))
	got, err := s.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.True(t, r.ExpectedArrivalTime.Equal(got.ExpectedArrivalTime))
	assert.Equal(t, "staff-1", got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, approved.Equal(*got.ApprovedAt))
	assert.Nil(t, got.CompletedAt)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	_, err := NewMemoryStore().GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_QueryFilteredOrderAndPaging(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		status := model.StatusRequested
		if i%2 == 1 {
			status = model.StatusApproved
		}
		require.NoError(t, s.Put(ctx, newReservation(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Minute), status)))
	}

	preds := []Predicate{StatusIn{Statuses: []model.Status{model.StatusRequested}}}
	all, err := s.QueryFiltered(ctx, Query{Predicates: preds})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"r4", "r2", "r0"}, []string{all[0].ID, all[1].ID, all[2].ID})

	page, err := s.QueryFiltered(ctx, Query{Predicates: preds, Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "r2", page[0].ID)

	beyond, err := s.QueryFiltered(ctx, Query{Predicates: preds, Offset: 10, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	_, err = s.QueryFiltered(ctx, Query{Predicates: preds, Offset: -20, Limit: 10})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = s.QueryFiltered(ctx, Query{Predicates: preds, Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	n, err := s.Count(ctx, preds)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemoryStore_TieBreakByID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, newReservation("a", base, model.StatusRequested)))
	require.NoError(t, s.Put(ctx, newReservation("b", base, model.StatusRequested)))

	got, err := s.QueryFiltered(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
}

func TestMemoryStore_QueryByEmail(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, newReservation("x", base, model.StatusRequested)))
	require.NoError(t, s.Put(ctx, newReservation("y", base, model.StatusRequested)))

	got, err := s.QueryByEmail(ctx, "x@example.com")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].ID)
}

func TestMemoryStore_PutIfVersion(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := newReservation("v", base, model.StatusRequested)

	require.NoError(t, s.PutIfVersion(ctx, r, 0))
	assert.ErrorIs(t, s.PutIfVersion(ctx, r, 0), ErrVersionMismatch)

	r.Version = 2
	require.NoError(t, s.PutIfVersion(ctx, r, 1))
	r.Version = 3
	assert.ErrorIs(t, s.PutIfVersion(ctx, r, 1), ErrVersionMismatch)

	missing := newReservation("missing", base, model.StatusRequested)
	assert.ErrorIs(t, s.PutIfVersion(ctx, missing, 4), ErrVersionMismatch)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, newReservation("d", base, model.StatusRequested)))
	require.NoError(t, s.Delete(ctx, "d"))
	assert.ErrorIs(t, s.Delete(ctx, "d"), ErrNotFound)
}

func TestMatch(t *testing.T) {
	r := newReservation("m", base, model.StatusRequested)
	r.GuestName = "Ada Lovelace"

	cases := []struct {
		name  string
		preds []Predicate
		want  bool
	}{
		{"no predicates", nil, true},
		{"status hit", []Predicate{StatusIn{Statuses: []model.Status{model.StatusApproved, model.StatusRequested}}}, true},
		{"status miss", []Predicate{StatusIn{Statuses: []model.Status{model.StatusApproved}}}, false},
		{"empty status set", []Predicate{StatusIn{}}, false},
		{"arrival from inclusive", []Predicate{ArrivalFrom{At: r.ExpectedArrivalTime}}, true},
		{"arrival until inclusive", []Predicate{ArrivalUntil{At: r.ExpectedArrivalTime}}, true},
		{"arrival from after", []Predicate{ArrivalFrom{At: r.ExpectedArrivalTime.Add(time.Millisecond)}}, false},
		{"name case-insensitive", []Predicate{NameContains{Substr: "LOVE"}}, true},
		{"email substring", []Predicate{EmailContains{Substr: "EXAMPLE"}}, true},
		{"table size", []Predicate{TableSizeEq{Size: 5}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Match(tc.preds, r))
		})
	}
}
