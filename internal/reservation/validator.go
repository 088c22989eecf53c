package reservation

import (
	"regexp"
	"strings"
	"time"
)

// Table size bounds.
const (
	MinTableSize = 1
	MaxTableSize = 12
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ParseArrivalTime parses an RFC 3339 timestamp as sent by clients.
func ParseArrivalTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, validationError(CodeInvalidTimeFormat, "Invalid arrival time format")
	}
	return t, nil
}

// Validator holds the precondition checks run before any mutation.  It
// never touches the store.
type Validator struct {
	Hours BusinessHours
	// Now is read on every call; nil means time.Now.
	Now func() time.Time
}

func (v Validator) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}

// ValidateArrivalTime checks that t is a real, future instant inside
// business hours.
func (v Validator) ValidateArrivalTime(t time.Time) error {
	if t.IsZero() {
		return validationError(CodeInvalidTimeFormat, "Invalid arrival time format")
	}
	if !t.After(v.now()) {
		return validationError(CodePastArrivalTime, "Arrival time must be in the future")
	}
	if !v.Hours.Contains(t) {
		return newError(KindBusinessHours, CodeOutsideBusinessHours,
			"Reservations are only accepted during business hours: "+v.Hours.String()+" "+v.Hours.TimezoneLabel())
	}
	return nil
}

// ValidateTableSize enforces MinTableSize <= n <= MaxTableSize.
func (v Validator) ValidateTableSize(n int) error {
	if n < MinTableSize || n > MaxTableSize {
		return validationError(CodeInvalidTableSize, "Table size must be between 1 and 12 people")
	}
	return nil
}

// ValidateEmail checks the shape of an address used for lookups and
// bookings.
func (v Validator) ValidateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return validationError(CodeInvalidEmail, "Invalid email format")
	}
	return nil
}

// ValidateContact requires a guest name and phone.
func (v Validator) ValidateContact(name, phone string) error {
	if strings.TrimSpace(name) == "" {
		return validationError(CodeMissingField, "Guest name is required")
	}
	if strings.TrimSpace(phone) == "" {
		return validationError(CodeMissingField, "Guest phone is required")
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
