package reservation

import (
	"context"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// Event types published after a successful write.
const (
	EventCreated   = "reservation.created"
	EventUpdated   = "reservation.updated"
	EventApproved  = "reservation.approved"
	EventCompleted = "reservation.completed"
	EventCancelled = "reservation.cancelled"
	EventDeleted   = "reservation.deleted"
)

// Event describes a persisted change.
type Event struct {
	Type          string       `json:"type"`
	ReservationID string       `json:"reservation_id"`
	Status        model.Status `json:"status"`
	GuestEmail    string       `json:"guest_email"`
	ArrivalTime   time.Time    `json:"expected_arrival_time"`
	TableSize     int          `json:"table_size"`
	Actor         string       `json:"actor"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

// Publisher receives events.  Publishing happens after the write; a
// failure is logged and never undoes the write.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func newEvent(typ string, r model.Reservation, actor model.Actor, at time.Time) Event {
	return Event{
		Type:          typ,
		ReservationID: r.ID,
		Status:        r.Status,
		GuestEmail:    r.GuestEmail,
		ArrivalTime:   r.ExpectedArrivalTime,
		TableSize:     r.TableSize,
		Actor:         model.ActorString(actor),
		OccurredAt:    at,
	}
}
