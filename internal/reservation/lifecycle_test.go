package reservation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/table-reservation/internal/model"
)

func TestCanTransition(t *testing.T) {
	all := []model.Status{model.StatusRequested, model.StatusApproved, model.StatusCancelled, model.StatusCompleted}
	allowed := map[Transition]map[model.Status]bool{
		TransitionUpdate:   {model.StatusRequested: true, model.StatusApproved: true},
		TransitionApprove:  {model.StatusRequested: true},
		TransitionComplete: {model.StatusApproved: true},
		TransitionCancel:   {model.StatusRequested: true, model.StatusApproved: true},
	}
	for tr, from := range allowed {
		for _, s := range all {
			assert.Equal(t, from[s], CanTransition(tr, s), "%s from %s", tr, s)
		}
	}
}

func TestCheckTransition_Message(t *testing.T) {
	err := checkTransition(TransitionApprove, model.Reservation{Status: model.StatusApproved})
	assertCode(t, err, KindIllegalTransition, CodeIllegalTransition)
	assert.Contains(t, err.Error(), "cannot approve a Approved reservation; it must be Requested")
}

func TestCheckUpdateFields(t *testing.T) {
	notes := "n"
	size := 3
	requested := model.Reservation{Status: model.StatusRequested}
	approved := model.Reservation{Status: model.StatusApproved}

	assert.NoError(t, checkUpdateFields(requested, UpdateRequest{TableSize: &size}))
	assert.NoError(t, checkUpdateFields(approved, UpdateRequest{Notes: &notes}))
	err := checkUpdateFields(approved, UpdateRequest{TableSize: &size, Notes: &notes})
	assertCode(t, err, KindIllegalTransition, CodeIllegalFieldUpdate)
	assert.Contains(t, err.Error(), "tableSize")
}

func TestAuthorize(t *testing.T) {
	r := model.Reservation{GuestEmail: "g@x.com"}
	assert.NoError(t, authorize(model.Anonymous{}, r))
	assert.NoError(t, authorize(model.Staff{ID: "s"}, r))
	assert.NoError(t, authorize(model.Guest{Email: "G@x.com"}, r))
	assert.ErrorIs(t, authorize(model.Guest{Email: "h@x.com"}, r), ErrAccessDenied)
}

func TestFilterPredicates(t *testing.T) {
	assert.Empty(t, Filter{GuestName: "  "}.Predicates())
	assert.Len(t, Filter{
		Statuses:   []model.Status{model.StatusApproved},
		GuestName:  "a",
		GuestEmail: "b",
		TableSize:  2,
	}.Predicates(), 4)
}
