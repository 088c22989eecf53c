package reservation

import (
	"context"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Filter narrows a listing.  Zero values mean "no constraint"; all set
// fields are combined with AND.
type Filter struct {
	Statuses   []model.Status
	StartDate  *time.Time
	EndDate    *time.Time
	GuestName  string
	GuestEmail string
	TableSize  int
}

// Predicates compiles the filter into store predicates.
func (f Filter) Predicates() []repository.Predicate {
	var preds []repository.Predicate
	if len(f.Statuses) > 0 {
		preds = append(preds, repository.StatusIn{Statuses: f.Statuses})
	}
	if f.StartDate != nil {
		preds = append(preds, repository.ArrivalFrom{At: *f.StartDate})
	}
	if f.EndDate != nil {
		preds = append(preds, repository.ArrivalUntil{At: *f.EndDate})
	}
	if s := strings.TrimSpace(f.GuestName); s != "" {
		preds = append(preds, repository.NameContains{Substr: s})
	}
	if s := strings.TrimSpace(f.GuestEmail); s != "" {
		preds = append(preds, repository.EmailContains{Substr: s})
	}
	if f.TableSize != 0 {
		preds = append(preds, repository.TableSizeEq{Size: f.TableSize})
	}
	return preds
}

// Pagination selects a 1-based page.  Zero values take the defaults.
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) normalize() (Pagination, error) {
	if p.Page < 0 || p.Limit < 0 {
		return p, validationError(CodeInvalidPagination, "page and limit must be positive")
	}
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	// Page*Limit bounds both Offset and Offset+Limit.
	if p.Page > math.MaxInt/p.Limit {
		return p, validationError(CodeInvalidPagination, "page is out of range")
	}
	return p, nil
}

// Offset is (Page-1)*Limit.
func (p Pagination) Offset() int { return (p.Page - 1) * p.Limit }

// Page is one page of a listing together with the total match count.
type Page struct {
	Data    []model.Reservation `json:"data"`
	Total   int                 `json:"total"`
	Page    int                 `json:"page"`
	Limit   int                 `json:"limit"`
	HasNext bool                `json:"hasNext"`
	HasPrev bool                `json:"hasPrev"`
}

// Stats is the dashboard snapshot.
type Stats struct {
	Total             int `json:"total"`
	Pending           int `json:"pending"`
	Confirmed         int `json:"confirmed"`
	Cancelled         int `json:"cancelled"`
	Completed         int `json:"completed"`
	TodayReservations int `json:"todayReservations"`
}

// QueryEngine runs listings and statistics against the store.
type QueryEngine struct {
	Store repository.ReservationStore
	// Location defines "today" for Stats; nil means time.Local.
	Location *time.Location
	Now      func() time.Time
}

// Find returns the requested page ordered by creation time, newest first.
// The page and the total are fetched concurrently with identical
// predicates.
func (q QueryEngine) Find(ctx context.Context, f Filter, p Pagination) (Page, error) {
	p, err := p.normalize()
	if err != nil {
		return Page{}, err
	}
	preds := f.Predicates()

	var (
		data  []model.Reservation
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = q.Store.QueryFiltered(gctx, repository.Query{
			Predicates: preds,
			Order:      repository.OrderCreatedDesc,
			Offset:     p.Offset(),
			Limit:      p.Limit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = q.Store.Count(gctx, preds)
		return err
	})
	if err := g.Wait(); err != nil {
		return Page{}, storeError("list reservations", err)
	}
	if data == nil {
		data = []model.Reservation{}
	}
	return Page{
		Data:    data,
		Total:   total,
		Page:    p.Page,
		Limit:   p.Limit,
		HasNext: p.Offset()+p.Limit < total,
		HasPrev: p.Page > 1,
	}, nil
}

// Stats scans every reservation once.
func (q QueryEngine) Stats(ctx context.Context) (Stats, error) {
	all, err := q.Store.QueryFiltered(ctx, repository.Query{Order: repository.OrderCreatedDesc})
	if err != nil {
		return Stats{}, storeError("scan reservations", err)
	}
	loc := q.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now
	if q.Now != nil {
		now = q.Now
	}
	local := now().In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	var s Stats
	for _, r := range all {
		s.Total++
		switch r.Status {
		case model.StatusRequested:
			s.Pending++
		case model.StatusApproved:
			s.Confirmed++
		case model.StatusCancelled:
			s.Cancelled++
		case model.StatusCompleted:
			s.Completed++
		}
		if !r.ExpectedArrivalTime.Before(start) && r.ExpectedArrivalTime.Before(end) {
			s.TodayReservations++
		}
	}
	return s, nil
}
