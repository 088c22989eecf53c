package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// ReservationStore is the narrow CRUD + query contract the reservation core
// calls through.  Implementations persist model.Document values and must
// return ErrNotFound from GetByID and Delete when the id is unknown.
type ReservationStore interface {
	// Put creates or overwrites the document for r.ID.
	Put(ctx context.Context, r model.Reservation) error
	GetByID(ctx context.Context, id string) (model.Reservation, error)
	// QueryByEmail returns every reservation whose email equals the given
	// (already normalized) address, most recently created first.
	QueryByEmail(ctx context.Context, email string) ([]model.Reservation, error)
	QueryFiltered(ctx context.Context, q Query) ([]model.Reservation, error)
	Count(ctx context.Context, preds []Predicate) (int, error)
	// Delete physically removes a reservation.  It is an administrative
	// escape hatch outside the lifecycle.
	Delete(ctx context.Context, id string) error
}

// VersionedStore is implemented by stores able to perform a conditional
// write.  PutIfVersion stores r only when the persisted version equals
// expected (0 meaning "must not exist yet") and returns ErrVersionMismatch
// otherwise.
type VersionedStore interface {
	PutIfVersion(ctx context.Context, r model.Reservation, expected int64) error
}

// Order selects the sort order of QueryFiltered.  Only one order exists;
// the type keeps the contract explicit for adapters.
type Order int

const (
	// OrderCreatedDesc sorts by createdAt descending, ties broken by id
	// descending.
	OrderCreatedDesc Order = iota
)

// Query is a filtered, ordered, paged read.  A zero Limit means no limit.
type Query struct {
	Predicates []Predicate
	Order      Order
	Offset     int
	Limit      int
}

// Validate rejects negative paging values.
func (q Query) Validate() error {
	if q.Offset < 0 || q.Limit < 0 {
		return ErrInvalidQuery
	}
	return nil
}

// Predicate is one conjunctive filter term.  The set of implementations is
// closed; adapters compile each variant into their native query language.
type Predicate interface {
	isPredicate()
}

// StatusIn matches reservations whose status is one of Statuses.
type StatusIn struct{ Statuses []model.Status }

// ArrivalFrom matches expectedArrivalTime >= At.
type ArrivalFrom struct{ At time.Time }

// ArrivalUntil matches expectedArrivalTime <= At.
type ArrivalUntil struct{ At time.Time }

// NameContains is a case-insensitive substring match on guestName.
type NameContains struct{ Substr string }

// EmailContains is a case-insensitive substring match on guestEmail.
type EmailContains struct{ Substr string }

// TableSizeEq matches an exact party size.
type TableSizeEq struct{ Size int }

func (StatusIn) isPredicate()      {}
func (ArrivalFrom) isPredicate()   {}
func (ArrivalUntil) isPredicate()  {}
func (NameContains) isPredicate()  {}
func (EmailContains) isPredicate() {}
func (TableSizeEq) isPredicate()   {}

// Match evaluates preds against r in memory.  It is the reference semantics
// the SQL compilers must agree with.
func Match(preds []Predicate, r model.Reservation) bool {
	for _, p := range preds {
		switch p := p.(type) {
		case StatusIn:
			ok := false
			for _, s := range p.Statuses {
				if r.Status == s {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		case ArrivalFrom:
			if r.ExpectedArrivalTime.Before(p.At) {
				return false
			}
		case ArrivalUntil:
			if r.ExpectedArrivalTime.After(p.At) {
				return false
			}
		case NameContains:
			if !strings.Contains(strings.ToLower(r.GuestName), strings.ToLower(p.Substr)) {
				return false
			}
		case EmailContains:
			if !strings.Contains(strings.ToLower(r.GuestEmail), strings.ToLower(p.Substr)) {
				return false
			}
		case TableSizeEq:
			if r.TableSize != p.Size {
				return false
			}
		}
	}
	return true
}

// less reports whether a sorts before b under OrderCreatedDesc.
func less(a, b model.Reservation) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
