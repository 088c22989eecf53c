package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// ConflictWindow is the half-width of the symmetric interval around an
// existing booking inside which the same guest may not book again.
const ConflictWindow = 2 * time.Hour

// ConflictDetector rejects near-duplicate bookings by the same guest email.
// Seating capacity is not considered: two different guests never conflict.
type ConflictDetector struct {
	Store repository.ReservationStore
}

// CheckDuplicate loads every reservation for email and fails when an
// active one other than excludeID arrives less than ConflictWindow away
// from candidate.  The check is read-then-decide; callers wanting
// serialization wrap it in a Locker.
func (d ConflictDetector) CheckDuplicate(ctx context.Context, email string, candidate time.Time, excludeID string) error {
	existing, err := d.Store.QueryByEmail(ctx, email)
	if err != nil {
		return storeError("query reservations by email", err)
	}
	for _, r := range existing {
		if r.Status == model.StatusCancelled || r.ID == excludeID {
			continue
		}
		if absDuration(r.ExpectedArrivalTime.Sub(candidate)) < ConflictWindow {
			return newError(KindConflict, CodeConflictingReservation, fmt.Sprintf(
				"You already have a reservation within 2 hours of this time (existing arrival %s, requested %s)",
				r.ExpectedArrivalTime.UTC().Format(time.RFC3339), candidate.UTC().Format(time.RFC3339)))
		}
	}
	return nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
