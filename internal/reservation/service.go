package reservation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// Consistency selects how writes guard against concurrent modification.
type Consistency string

const (
	// ConsistencyLastWriteWins overwrites whatever is stored.
	ConsistencyLastWriteWins Consistency = "last_write_wins"
	// ConsistencyOptimistic writes only when the stored version still equals
	// the version that was read.  The store must implement
	// repository.VersionedStore.
	ConsistencyOptimistic Consistency = "optimistic"
)

// ParseConsistency maps a config value onto a Consistency.
func ParseConsistency(raw string) (Consistency, error) {
	switch Consistency(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ConsistencyLastWriteWins:
		return ConsistencyLastWriteWins, nil
	case ConsistencyOptimistic:
		return ConsistencyOptimistic, nil
	}
	return "", fmt.Errorf("unknown reservation consistency %q", raw)
}

// Options configures a Service.  Zero values select the defaults noted on
// each field.
type Options struct {
	Hours       BusinessHours
	Consistency Consistency // last_write_wins
	Locker      Locker      // NoopLocker
	Publisher   Publisher   // NopPublisher
	Logger      *logrus.Logger
	// StatsLocation defines "today" for GetStats (time.Local).
	StatsLocation *time.Location
	Now           func() time.Time // time.Now
	NewID         func() string    // uuid v4
}

// CreateRequest is the input of CreateReservation.  ExpectedArrivalTime is
// the raw RFC 3339 value sent by the client.
type CreateRequest struct {
	GuestName           string `json:"guestName"`
	GuestEmail          string `json:"guestEmail"`
	GuestPhone          string `json:"guestPhone"`
	ExpectedArrivalTime string `json:"expectedArrivalTime"`
	TableSize           int    `json:"tableSize"`
	Notes               string `json:"notes"`
}

// Service is the public API of the lifecycle engine.
type Service struct {
	store     repository.ReservationStore
	versioned repository.VersionedStore
	validator Validator
	conflicts ConflictDetector
	query     QueryEngine
	locker    Locker
	publisher Publisher
	log       *logrus.Logger
	now       func() time.Time
	newID     func() string
}

// NewService wires the engine around store.
func NewService(store repository.ReservationStore, opts Options) (*Service, error) {
	s := &Service{
		store:     store,
		locker:    opts.Locker,
		publisher: opts.Publisher,
		log:       opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if s.locker == nil {
		s.locker = NoopLocker{}
	}
	if s.publisher == nil {
		s.publisher = NopPublisher{}
	}
	if s.log == nil {
		s.log = logrus.New()
		s.log.SetOutput(io.Discard)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	switch opts.Consistency {
	case "", ConsistencyLastWriteWins:
	case ConsistencyOptimistic:
		vs, ok := store.(repository.VersionedStore)
		if !ok {
			return nil, fmt.Errorf("reservation: store %T does not support optimistic writes", store)
		}
		s.versioned = vs
	default:
		return nil, fmt.Errorf("reservation: unknown consistency %q", opts.Consistency)
	}
	s.validator = Validator{Hours: opts.Hours, Now: s.now}
	s.conflicts = ConflictDetector{Store: store}
	s.query = QueryEngine{Store: store, Location: opts.StatsLocation, Now: s.now}
	return s, nil
}

// Hours returns the configured business hours.
func (s *Service) Hours() BusinessHours { return s.validator.Hours }

// CreateReservation validates req, rejects duplicates for the same guest
// and stores a new Requested reservation.
func (s *Service) CreateReservation(ctx context.Context, actor model.Actor, req CreateRequest) (model.Reservation, error) {
	if err := s.validator.ValidateContact(req.GuestName, req.GuestPhone); err != nil {
		return model.Reservation{}, err
	}
	if err := s.validator.ValidateEmail(req.GuestEmail); err != nil {
		return model.Reservation{}, err
	}
	arrival, err := ParseArrivalTime(req.ExpectedArrivalTime)
	if err != nil {
		return model.Reservation{}, err
	}
	if err := s.validator.ValidateArrivalTime(arrival); err != nil {
		return model.Reservation{}, err
	}
	if err := s.validator.ValidateTableSize(req.TableSize); err != nil {
		return model.Reservation{}, err
	}

	now := model.Normalize(s.now())
	r := model.Reservation{
		ID:                  s.newID(),
		GuestName:           strings.TrimSpace(req.GuestName),
		GuestEmail:          NormalizeEmail(req.GuestEmail),
		GuestPhone:          strings.TrimSpace(req.GuestPhone),
		ExpectedArrivalTime: model.Normalize(arrival),
		TableSize:           req.TableSize,
		Status:              model.StatusRequested,
		Notes:               strings.TrimSpace(req.Notes),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := authorize(actor, r); err != nil {
		return model.Reservation{}, err
	}

	unlock, err := s.lock(ctx, r.GuestEmail)
	if err != nil {
		return model.Reservation{}, err
	}
	defer unlock()

	if err := s.conflicts.CheckDuplicate(ctx, r.GuestEmail, r.ExpectedArrivalTime, ""); err != nil {
		return model.Reservation{}, err
	}
	if err := s.write(ctx, &r, 0); err != nil {
		return model.Reservation{}, err
	}
	s.emit(ctx, EventCreated, r, actor, now)
	return r, nil
}

// GetReservation returns the stored reservation.  Guests only see their
// own.
func (s *Service) GetReservation(ctx context.Context, actor model.Actor, id string) (model.Reservation, error) {
	r, err := s.current(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if err := authorize(actor, r); err != nil {
		return model.Reservation{}, err
	}
	return r, nil
}

// ListReservations returns one page of reservations matching f.
func (s *Service) ListReservations(ctx context.Context, _ model.Staff, f Filter, p Pagination) (Page, error) {
	return s.query.Find(ctx, f, p)
}

// GetStats returns the dashboard snapshot.
func (s *Service) GetStats(ctx context.Context, _ model.Staff) (Stats, error) {
	return s.query.Stats(ctx)
}

// GetReservationsByEmail lists every reservation booked under email, newest
// first.
func (s *Service) GetReservationsByEmail(ctx context.Context, actor model.Actor, email string) ([]model.Reservation, error) {
	if err := s.validator.ValidateEmail(email); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	if g, ok := actor.(model.Guest); ok && NormalizeEmail(g.Email) != email {
		return nil, newError(KindAccessDenied, CodeAccessDenied, "You can only access your own reservations")
	}
	out, err := s.store.QueryByEmail(ctx, email)
	if err != nil {
		return nil, storeError("query reservations by email", err)
	}
	return out, nil
}

// UpdateReservation changes the fields set in req.  Requested reservations
// accept any field; Approved ones accept notes only; terminal ones nothing.
func (s *Service) UpdateReservation(ctx context.Context, actor model.Actor, id string, req UpdateRequest) (model.Reservation, error) {
	if req.Empty() {
		return model.Reservation{}, validationError(CodeMissingField, "No fields to update")
	}
	r, err := s.current(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	key := r.GuestEmail
	if req.GuestEmail != nil {
		key = NormalizeEmail(*req.GuestEmail)
	}
	unlock, err := s.lock(ctx, key)
	if err != nil {
		return model.Reservation{}, err
	}
	defer unlock()

	if r, err = s.current(ctx, id); err != nil {
		return model.Reservation{}, err
	}
	if err := authorize(actor, r); err != nil {
		return model.Reservation{}, err
	}
	if err := checkTransition(TransitionUpdate, r); err != nil {
		return model.Reservation{}, err
	}
	if err := checkUpdateFields(r, req); err != nil {
		return model.Reservation{}, err
	}

	prev := r
	if err := s.applyUpdate(&r, req); err != nil {
		return model.Reservation{}, err
	}
	// A guest may not move the booking out of their own reach.
	if err := authorize(actor, r); err != nil {
		return model.Reservation{}, err
	}
	if !r.ExpectedArrivalTime.Equal(prev.ExpectedArrivalTime) || r.GuestEmail != prev.GuestEmail {
		if err := s.conflicts.CheckDuplicate(ctx, r.GuestEmail, r.ExpectedArrivalTime, r.ID); err != nil {
			return model.Reservation{}, err
		}
	}
	now := model.Normalize(s.now())
	r.UpdatedAt = now
	if err := s.write(ctx, &r, prev.Version); err != nil {
		return model.Reservation{}, err
	}
	s.emit(ctx, EventUpdated, r, actor, now)
	return r, nil
}

func (s *Service) applyUpdate(r *model.Reservation, req UpdateRequest) error {
	if req.GuestName != nil || req.GuestPhone != nil {
		name, phone := r.GuestName, r.GuestPhone
		if req.GuestName != nil {
			name = strings.TrimSpace(*req.GuestName)
		}
		if req.GuestPhone != nil {
			phone = strings.TrimSpace(*req.GuestPhone)
		}
		if err := s.validator.ValidateContact(name, phone); err != nil {
			return err
		}
		r.GuestName, r.GuestPhone = name, phone
	}
	if req.GuestEmail != nil {
		if err := s.validator.ValidateEmail(*req.GuestEmail); err != nil {
			return err
		}
		r.GuestEmail = NormalizeEmail(*req.GuestEmail)
	}
	if req.ExpectedArrivalTime != nil {
		t, err := ParseArrivalTime(*req.ExpectedArrivalTime)
		if err != nil {
			return err
		}
		if err := s.validator.ValidateArrivalTime(t); err != nil {
			return err
		}
		r.ExpectedArrivalTime = model.Normalize(t)
	}
	if req.TableSize != nil {
		if err := s.validator.ValidateTableSize(*req.TableSize); err != nil {
			return err
		}
		r.TableSize = *req.TableSize
	}
	if req.Notes != nil {
		r.Notes = strings.TrimSpace(*req.Notes)
	}
	return nil
}

// CancelReservation moves a Requested or Approved reservation to Cancelled.
func (s *Service) CancelReservation(ctx context.Context, actor model.Actor, id string) (model.Reservation, error) {
	return s.transition(ctx, actor, id, TransitionCancel, EventCancelled, func(r *model.Reservation, now time.Time) {
		cancel(r, now)
	})
}

// ApproveReservation moves a Requested reservation to Approved and records
// the staff member.
func (s *Service) ApproveReservation(ctx context.Context, staff model.Staff, id string) (model.Reservation, error) {
	return s.transition(ctx, staff, id, TransitionApprove, EventApproved, func(r *model.Reservation, now time.Time) {
		approve(r, staff, now)
	})
}

// CompleteReservation moves an Approved reservation to Completed and
// records the staff member.
func (s *Service) CompleteReservation(ctx context.Context, staff model.Staff, id string) (model.Reservation, error) {
	return s.transition(ctx, staff, id, TransitionComplete, EventCompleted, func(r *model.Reservation, now time.Time) {
		complete(r, staff, now)
	})
}

// DeleteReservation physically removes a reservation.  It sits outside the
// lifecycle and is reserved to administrators.
func (s *Service) DeleteReservation(ctx context.Context, staff model.Staff, id string) error {
	if !staff.IsAdmin() {
		return newError(KindAccessDenied, CodeAccessDenied, "Only administrators can delete reservations")
	}
	r, err := s.current(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(id)
		}
		return storeError("delete reservation", err)
	}
	s.log.WithFields(logrus.Fields{"reservation_id": id, "actor": model.ActorString(staff)}).Warn("reservation deleted")
	s.emit(ctx, EventDeleted, r, staff, model.Normalize(s.now()))
	return nil
}

func (s *Service) transition(ctx context.Context, actor model.Actor, id string, tr Transition, evType string,
	mutate func(*model.Reservation, time.Time)) (model.Reservation, error) {
	r, err := s.current(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if err := authorize(actor, r); err != nil {
		return model.Reservation{}, err
	}
	if err := checkTransition(tr, r); err != nil {
		return model.Reservation{}, err
	}
	prev := r.Version
	now := model.Normalize(s.now())
	mutate(&r, now)
	if err := s.write(ctx, &r, prev); err != nil {
		return model.Reservation{}, err
	}
	s.emit(ctx, evType, r, actor, now)
	return r, nil
}

func (s *Service) current(ctx context.Context, id string) (model.Reservation, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Reservation{}, notFound(id)
		}
		return model.Reservation{}, storeError("get reservation", err)
	}
	return r, nil
}

// write bumps the version and persists r.  In optimistic mode the write
// only lands if the stored version is still prev.
func (s *Service) write(ctx context.Context, r *model.Reservation, prev int64) error {
	r.Version = prev + 1
	if s.versioned != nil {
		err := s.versioned.PutIfVersion(ctx, *r, prev)
		if errors.Is(err, repository.ErrVersionMismatch) {
			return newError(KindConflict, CodeConcurrentModification,
				fmt.Sprintf("Reservation %s was modified concurrently; reload and retry", r.ID))
		}
		if err != nil {
			return storeError("save reservation", err)
		}
		return nil
	}
	if err := s.store.Put(ctx, *r); err != nil {
		return storeError("save reservation", err)
	}
	return nil
}

func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, storeError("acquire reservation lock", err)
	}
	return unlock, nil
}

func (s *Service) emit(ctx context.Context, typ string, r model.Reservation, actor model.Actor, at time.Time) {
	s.log.WithFields(logrus.Fields{
		"reservation_id": r.ID,
		"status":         r.Status,
		"actor":          model.ActorString(actor),
		"event":          typ,
	}).Info("reservation changed")
	if err := s.publisher.Publish(ctx, newEvent(typ, r, actor, at)); err != nil {
		s.log.WithError(err).WithField("reservation_id", r.ID).Warn("publish reservation event")
	}
}

func notFound(id string) *Error {
	return newError(KindNotFound, CodeNotFound, fmt.Sprintf("Reservation %s not found", id))
}
