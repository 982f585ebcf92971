package progress

import (
	"context"
	"errors"

	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/course"
	"github.com/mwalimu/elimika/core/notification"
)

var (
	// errors
	ErrNotFound = errors.New("module progress not found")
)

type (
	Repository interface {
		// UpsertProgress creates or overwrites the row for (UserID, ModuleID).
		UpsertProgress(ctx context.Context, prog ModuleProgress) (ModuleProgress, error)
		GetProgress(ctx context.Context, userID, moduleID string) (ModuleProgress, error)
		// CountCompletedModules counts the user's completed modules among the course's modules.
		CountCompletedModules(ctx context.Context, userID, courseID string) (int, error)
	}

	Service interface {
		// SetModuleCompletion upserts the completion flag for (userID, moduleID).
		// Re-marking an already-completed module is a no-op upsert, not a duplicate.
		// Course access is the caller's responsibility; the tracker does not
		// re-derive course ownership from the module.
		SetModuleCompletion(ctx context.Context, userID, moduleID string, completed bool) (ModuleProgress, error)
		// CourseCompletion returns the user's completion ratio over the course's modules.
		CourseCompletion(ctx context.Context, userID, courseID string) (Completion, error)
	}

	service struct {
		repo      Repository
		courseSvc course.Service
		notifier  notification.Notifier
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service, notifier notification.Notifier) Service {
	return &service{
		repo:      repo,
		courseSvc: courseSvc,
		notifier:  notifier,
	}
}

func (svc *service) SetModuleCompletion(ctx context.Context, userID, moduleID string, completed bool) (ModuleProgress, error) {
	mod, err := svc.courseSvc.GetModule(ctx, moduleID)
	if err != nil {
		return ModuleProgress{}, err
	}

	// a re-mark is not a transition; remember the prior state so the
	// notification only fires on the unmarked -> marked edge
	wasCompleted := false
	if prior, err := svc.repo.GetProgress(ctx, userID, mod.ID); err == nil {
		wasCompleted = prior.Completed
	} else if err != ErrNotFound {
		return ModuleProgress{}, err
	}

	prog := ModuleProgress{
		UserID:    userID,
		ModuleID:  mod.ID,
		Completed: completed,
	}
	if completed {
		prog.CompletedAt = null.TimeFrom(core.NowFunc())
	}

	prog, err = svc.repo.UpsertProgress(ctx, prog)
	if err != nil {
		return ModuleProgress{}, err
	}

	if completed && !wasCompleted {
		svc.notifier.Notify(notification.Event{
			Type:          notification.ModuleCompleted,
			SubjectUserID: userID,
			Payload: map[string]interface{}{
				"module_id": mod.ID,
				"course_id": mod.CourseID,
			},
		})
	}
	return prog, nil
}

func (svc *service) CourseCompletion(ctx context.Context, userID, courseID string) (Completion, error) {
	mods, err := svc.courseSvc.QueryModules(ctx, courseID)
	if err != nil {
		return Completion{}, err
	}
	completed, err := svc.repo.CountCompletedModules(ctx, userID, courseID)
	if err != nil {
		return Completion{}, err
	}
	return Completion{
		CompletedCount: completed,
		TotalCount:     len(mods),
	}, nil
}
