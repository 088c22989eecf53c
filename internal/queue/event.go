// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// DefaultQueueName is the durable queue reservation events are routed to.
const DefaultQueueName = "reservation.events"

// ReservationEvent is published after every persisted reservation change.
// It carries enough information for downstream consumers to log, notify
// or feed analytics without querying the store.  Timestamps are ISO-8601
// strings.
type ReservationEvent struct {
	Type          string `json:"type"`
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
	GuestEmail    string `json:"guest_email"`
	ArrivalTime   string `json:"expected_arrival_time"`
	TableSize     int    `json:"table_size"`
	Actor         string `json:"actor"`
	OccurredAt    string `json:"occurred_at"`
}
