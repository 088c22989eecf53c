package model

import (
	"fmt"
	"time"
)

// DocumentTypeReservation tags reservation documents so they can share a
// store with other document kinds.
const DocumentTypeReservation = "reservation"

// ISOLayout is the ISO-8601 layout used for every persisted timestamp.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// Document is the persisted shape of a Reservation.  Timestamps are kept as
// ISO-8601 strings and Type carries the discriminator.
type Document struct {
	Type                string `json:"type"`
	ID                  string `json:"id"`
	GuestName           string `json:"guestName"`
	GuestEmail          string `json:"guestEmail"`
	GuestPhone          string `json:"guestPhone"`
	ExpectedArrivalTime string `json:"expectedArrivalTime"`
	TableSize           int    `json:"tableSize"`
	Status              Status `json:"status"`
	Notes               string `json:"notes,omitempty"`
	CreatedAt           string `json:"createdAt"`
	UpdatedAt           string `json:"updatedAt"`
	ApprovedBy          string `json:"approvedBy,omitempty"`
	ApprovedAt          string `json:"approvedAt,omitempty"`
	CompletedBy         string `json:"completedBy,omitempty"`
	CompletedAt         string `json:"completedAt,omitempty"`
	CancelledAt         string `json:"cancelledAt,omitempty"`
	Version             int64  `json:"version"`
}

// ToDocument converts r into its persisted form.
func ToDocument(r Reservation) Document {
	return Document{
		Type:                DocumentTypeReservation,
		ID:                  r.ID,
		GuestName:           r.GuestName,
		GuestEmail:          r.GuestEmail,
		GuestPhone:          r.GuestPhone,
		ExpectedArrivalTime: formatTime(r.ExpectedArrivalTime),
		TableSize:           r.TableSize,
		Status:              r.Status,
		Notes:               r.Notes,
		CreatedAt:           formatTime(r.CreatedAt),
		UpdatedAt:           formatTime(r.UpdatedAt),
		ApprovedBy:          r.ApprovedBy,
		ApprovedAt:          formatOptional(r.ApprovedAt),
		CompletedBy:         r.CompletedBy,
		CompletedAt:         formatOptional(r.CompletedAt),
		CancelledAt:         formatOptional(r.CancelledAt),
		Version:             r.Version,
	}
}

// FromDocument parses a persisted document back into a Reservation.  It
// rejects documents of another type.
func FromDocument(d Document) (Reservation, error) {
	if d.Type != DocumentTypeReservation {
		return Reservation{}, fmt.Errorf("document %s has type %q, want %q", d.ID, d.Type, DocumentTypeReservation)
	}
	r := Reservation{
		ID:          d.ID,
		GuestName:   d.GuestName,
		GuestEmail:  d.GuestEmail,
		GuestPhone:  d.GuestPhone,
		TableSize:   d.TableSize,
		Status:      d.Status,
		Notes:       d.Notes,
		ApprovedBy:  d.ApprovedBy,
		CompletedBy: d.CompletedBy,
		Version:     d.Version,
	}
	var err error
	if r.ExpectedArrivalTime, err = parseTime(d.ExpectedArrivalTime); err != nil {
		return Reservation{}, fmt.Errorf("document %s expectedArrivalTime: %w", d.ID, err)
	}
	if r.CreatedAt, err = parseTime(d.CreatedAt); err != nil {
		return Reservation{}, fmt.Errorf("document %s createdAt: %w", d.ID, err)
	}
	if r.UpdatedAt, err = parseTime(d.UpdatedAt); err != nil {
		return Reservation{}, fmt.Errorf("document %s updatedAt: %w", d.ID, err)
	}
	if r.ApprovedAt, err = parseOptional(d.ApprovedAt); err != nil {
		return Reservation{}, fmt.Errorf("document %s approvedAt: %w", d.ID, err)
	}
	if r.CompletedAt, err = parseOptional(d.CompletedAt); err != nil {
		return Reservation{}, fmt.Errorf("document %s completedAt: %w", d.ID, err)
	}
	if r.CancelledAt, err = parseOptional(d.CancelledAt); err != nil {
		return Reservation{}, fmt.Errorf("document %s cancelledAt: %w", d.ID, err)
	}
	return r, nil
}

func formatTime(t time.Time) string {
	return Normalize(t).Format(ISOLayout)
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return Normalize(t), nil
}

func parseOptional(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
