package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// Transition names an operation of the state machine.
type Transition string

const (
	TransitionUpdate   Transition = "update"
	TransitionApprove  Transition = "approve"
	TransitionComplete Transition = "complete"
	TransitionCancel   Transition = "cancel"
)

// allowedFrom lists the source states of each transition.  Create has no
// source state and is not listed.
var allowedFrom = map[Transition][]model.Status{
	TransitionUpdate:   {model.StatusRequested, model.StatusApproved},
	TransitionApprove:  {model.StatusRequested},
	TransitionComplete: {model.StatusApproved},
	TransitionCancel:   {model.StatusRequested, model.StatusApproved},
}

// CanTransition reports whether tr may leave from.
func CanTransition(tr Transition, from model.Status) bool {
	for _, s := range allowedFrom[tr] {
		if s == from {
			return true
		}
	}
	return false
}

func checkTransition(tr Transition, r model.Reservation) error {
	if CanTransition(tr, r.Status) {
		return nil
	}
	want := allowedFrom[tr]
	names := make([]string, 0, len(want))
	for _, s := range want {
		names = append(names, string(s))
	}
	return newError(KindIllegalTransition, CodeIllegalTransition, fmt.Sprintf(
		"cannot %s a %s reservation; it must be %s", tr, r.Status, strings.Join(names, " or ")))
}

// UpdateRequest carries the fields a caller wants to change.  Nil means
// "leave as is".
type UpdateRequest struct {
	GuestName           *string `json:"guestName,omitempty"`
	GuestEmail          *string `json:"guestEmail,omitempty"`
	GuestPhone          *string `json:"guestPhone,omitempty"`
	ExpectedArrivalTime *string `json:"expectedArrivalTime,omitempty"`
	TableSize           *int    `json:"tableSize,omitempty"`
	Notes               *string `json:"notes,omitempty"`
}

// Empty reports whether no field is set.
func (u UpdateRequest) Empty() bool {
	return u.GuestName == nil && u.GuestEmail == nil && u.GuestPhone == nil &&
		u.ExpectedArrivalTime == nil && u.TableSize == nil && u.Notes == nil
}

// nonNotesFields returns the JSON names of set fields other than notes.
func (u UpdateRequest) nonNotesFields() []string {
	var out []string
	if u.GuestName != nil {
		out = append(out, "guestName")
	}
	if u.GuestEmail != nil {
		out = append(out, "guestEmail")
	}
	if u.GuestPhone != nil {
		out = append(out, "guestPhone")
	}
	if u.ExpectedArrivalTime != nil {
		out = append(out, "expectedArrivalTime")
	}
	if u.TableSize != nil {
		out = append(out, "tableSize")
	}
	return out
}

// checkUpdateFields applies the per-status field rules: Requested accepts
// everything, Approved accepts notes only.
func checkUpdateFields(r model.Reservation, u UpdateRequest) error {
	if r.Status != model.StatusApproved {
		return nil
	}
	if fields := u.nonNotesFields(); len(fields) > 0 {
		return newError(KindIllegalTransition, CodeIllegalFieldUpdate, fmt.Sprintf(
			"an Approved reservation only allows notes to be changed; got %s", strings.Join(fields, ", ")))
	}
	return nil
}

func approve(r *model.Reservation, staff model.Staff, now time.Time) {
	r.Status = model.StatusApproved
	r.ApprovedBy = staff.ID
	r.ApprovedAt = &now
	r.UpdatedAt = now
}

func complete(r *model.Reservation, staff model.Staff, now time.Time) {
	r.Status = model.StatusCompleted
	r.CompletedBy = staff.ID
	r.CompletedAt = &now
	r.UpdatedAt = now
}

func cancel(r *model.Reservation, now time.Time) {
	r.Status = model.StatusCancelled
	r.CancelledAt = &now
	r.UpdatedAt = now
}

// authorize enforces ownership for guest actors: a guest may only touch
// reservations carrying their email.  Anonymous callers act on the id they
// hold and staff are unrestricted.
func authorize(actor model.Actor, r model.Reservation) error {
	g, ok := actor.(model.Guest)
	if !ok {
		return nil
	}
	if NormalizeEmail(g.Email) != r.GuestEmail {
		return newError(KindAccessDenied, CodeAccessDenied, "You can only access your own reservations")
	}
	return nil
}
