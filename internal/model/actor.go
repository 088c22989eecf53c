package model

import "fmt"

// Staff roles carried in access tokens.
const (
	RoleStaff = "STAFF"
	RoleAdmin = "ADMIN"
	RoleGuest = "GUEST"
)

// Actor identifies who triggers a reservation operation.  The set of
// implementations is closed: Anonymous, Guest and Staff.
type Actor interface {
	// Kind returns "anonymous", "guest" or "staff".
	Kind() string
	// Ref is the identifier recorded in logs and events.
	Ref() string
	isActor()
}

// Anonymous is an unauthenticated caller.
type Anonymous struct{}

func (Anonymous) Kind() string { return "anonymous" }
func (Anonymous) Ref() string { return "anonymous" }
func (Anonymous) isActor() {}

// Guest is a caller identified only by the email on their reservations.
type Guest struct {
	Email string
}

func (Guest) Kind() string { return "guest" }
func (g Guest) Ref() string { return g.Email }
func (Guest) isActor() {}

// Staff is an authenticated employee.  Operations restricted to staff take
// a Staff value instead of an Actor.
type Staff struct {
	ID   string
	Role string
}

func (Staff) Kind() string { return "staff" }
func (s Staff) Ref() string { return s.ID }
func (Staff) isActor() {}

// IsAdmin reports whether the staff member may use administrative
// operations such as physical deletion.
func (s Staff) IsAdmin() bool { return s.Role == RoleAdmin }

// ActorString renders the actor for log lines.
func ActorString(a Actor) string {
	if a == nil {
		return "anonymous"
	}
	return fmt.Sprintf("%s:%s", a.Kind(), a.Ref())
}
