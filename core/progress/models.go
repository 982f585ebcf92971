package progress

import (
	"github.com/volatiletech/null/v8"
)

// ModuleProgress records a user's completion state for one module.
// Unique per (UserID, ModuleID).
type ModuleProgress struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ModuleID    string    `json:"module_id"`
	Completed   bool      `json:"completed"`
	CompletedAt null.Time `json:"completed_at"`
}

// Completion is a course-wide completion ratio.
type Completion struct {
	CompletedCount int `json:"completed_count"`
	TotalCount     int `json:"total_count"`
}

// Complete reports whether every module of the course has been completed.
// A course with no modules is never complete.
func (c Completion) Complete() bool {
	return c.TotalCount > 0 && c.CompletedCount == c.TotalCount
}
