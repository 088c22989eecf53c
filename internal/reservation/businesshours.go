package reservation

import (
	"fmt"
	"time"
)

// BusinessHours is the local wall-clock window during which arrivals are
// accepted.  Both bounds are inclusive at minute granularity.
type BusinessHours struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
	Timezone    string

	loc *time.Location
}

// NewBusinessHours validates the window and loads the IANA zone.
func NewBusinessHours(openHour, openMinute, closeHour, closeMinute int, timezone string) (BusinessHours, error) {
	for _, v := range []struct {
		name     string
		val, max int
	}{
		{"open hour", openHour, 23},
		{"open minute", openMinute, 59},
		{"close hour", closeHour, 23},
		{"close minute", closeMinute, 59},
	} {
		if v.val < 0 || v.val > v.max {
			return BusinessHours{}, fmt.Errorf("business hours: %s %d out of range 0..%d", v.name, v.val, v.max)
		}
	}
	if openHour*60+openMinute > closeHour*60+closeMinute {
		return BusinessHours{}, fmt.Errorf("business hours: opening %d:%02d is after closing %d:%02d",
			openHour, openMinute, closeHour, closeMinute)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("business hours: load timezone %q: %w", timezone, err)
	}
	return BusinessHours{
		OpenHour:    openHour,
		OpenMinute:  openMinute,
		CloseHour:   closeHour,
		CloseMinute: closeMinute,
		Timezone:    timezone,
		loc:         loc,
	}, nil
}

// DefaultBusinessHours is 8:30 - 22:30 in Asia/Shanghai.
func DefaultBusinessHours() (BusinessHours, error) {
	return NewBusinessHours(8, 30, 22, 30, "Asia/Shanghai")
}

// Location returns the configured zone, UTC for a zero value.
func (b BusinessHours) Location() *time.Location {
	if b.loc == nil {
		return time.UTC
	}
	return b.loc
}

// Contains reports whether t falls inside the window in the configured zone.
func (b BusinessHours) Contains(t time.Time) bool {
	local := t.In(b.Location())
	minutes := local.Hour()*60 + local.Minute()
	return b.OpenHour*60+b.OpenMinute <= minutes && minutes <= b.CloseHour*60+b.CloseMinute
}

// String renders the window as "8:30 - 22:30".
func (b BusinessHours) String() string {
	return fmt.Sprintf("%d:%02d - %d:%02d", b.OpenHour, b.OpenMinute, b.CloseHour, b.CloseMinute)
}

// TimezoneLabel renders the zone for display, e.g. "(Asia/Shanghai)".
func (b BusinessHours) TimezoneLabel() string {
	return "(" + b.Location().String() + ")"
}
