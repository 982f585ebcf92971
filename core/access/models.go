package access

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Grant permits a user to view a course, optionally time-bounded.
// A null AccessUntil means perpetual access. Unique per (UserID, CourseID).
type Grant struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CourseID    string    `json:"course_id"`
	GrantedAt   time.Time `json:"granted_at"` // UTC
	AccessUntil null.Time `json:"access_until"`
}

// ActiveAt reports whether the grant permits access at instant t.
// Expiry is evaluated at read time; expired rows are kept (soft expiry).
func (g Grant) ActiveAt(t time.Time) bool {
	return !g.AccessUntil.Valid || g.AccessUntil.Time.After(t)
}

// Access is the result of an access check.
type Access struct {
	Active      bool      `json:"active"`
	AccessUntil null.Time `json:"access_until"`
}
