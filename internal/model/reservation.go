package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusRequested Status = "Requested"
	StatusApproved  Status = "Approved"
	StatusCancelled Status = "Cancelled"
	StatusCompleted Status = "Completed"
)

// Valid reports whether s is one of the four known states.
func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusApproved, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// ParseStatus accepts the canonical spelling as well as lower/upper case
// variants coming from query strings.
func ParseStatus(raw string) (Status, error) {
	for _, s := range []Status{StatusRequested, StatusApproved, StatusCancelled, StatusCompleted} {
		if strings.EqualFold(string(s), strings.TrimSpace(raw)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown reservation status %q", raw)
}

// Reservation records a guest's request for a table at a given arrival
// time.  It is the only entity the lifecycle engine mutates.
//
// Fields:
//
//	ID                  – opaque identifier assigned at creation.
//	GuestName           – display name of the guest.
//	GuestEmail          – lower-cased email; correlation key for lookups.
//	GuestPhone          – contact phone number.
//	ExpectedArrivalTime – arrival timestamp (UTC, millisecond precision).
//	TableSize           – party size, 1..12.
//	Status              – Requested, Approved, Cancelled or Completed.
//	Notes               – optional free text.
//	CreatedAt/UpdatedAt – creation and last-mutation timestamps.
//	ApprovedBy/At       – staff attribution of the approve transition.
//	CompletedBy/At      – staff attribution of the complete transition.
//	CancelledAt         – timestamp of the cancel transition.
//	Version             – write counter, incremented on every persisted change.
type Reservation struct {
	ID                  string     `json:"id"`
	GuestName           string     `json:"guestName"`
	GuestEmail          string     `json:"guestEmail"`
	GuestPhone          string     `json:"guestPhone"`
	ExpectedArrivalTime time.Time  `json:"expectedArrivalTime"`
	TableSize           int        `json:"tableSize"`
	Status              Status     `json:"status"`
	Notes               string     `json:"notes,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	ApprovedBy          string     `json:"approvedBy,omitempty"`
	ApprovedAt          *time.Time `json:"approvedAt,omitempty"`
	CompletedBy         string     `json:"completedBy,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	CancelledAt         *time.Time `json:"cancelledAt,omitempty"`
	Version             int64      `json:"version"`
}

// Normalize returns t in UTC truncated to milliseconds, the precision of the
// persisted ISO-8601 form.  All timestamps written to a store pass through it
// so a read returns exactly what was written.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
