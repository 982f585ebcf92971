package progress_test

import (
	"context"
	"testing"

	"github.com/mwalimu/elimika/core/course"
	"github.com/mwalimu/elimika/core/notification"
	"github.com/mwalimu/elimika/core/progress"
	notifysvc "github.com/mwalimu/elimika/services/notify"
	dummydb "github.com/mwalimu/elimika/storage/database/dummy"
)

func setup(t *testing.T, moduleCount int) (progress.Service, []course.Module, *notifysvc.CaptureNotifier) {
	t.Helper()
	ctx := context.Background()

	db := dummydb.Open()
	courseSvc := course.NewService(dummydb.NewCourseRepository(db))
	notifier := &notifysvc.CaptureNotifier{}
	svc := progress.NewService(dummydb.NewProgressRepository(db), courseSvc, notifier)

	crs, err := courseSvc.Create(ctx, course.NewCourse{Title: "Intro to Go"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	mods := make([]course.Module, 0, moduleCount)
	for i := 0; i < moduleCount; i++ {
		mod, err := courseSvc.AddModule(ctx, crs.ID, course.NewModule{Title: "Module", Position: i})
		if err != nil {
			t.Fatalf("AddModule() failed, %v", err)
		}
		mods = append(mods, mod)
	}
	return svc, mods, notifier
}

func TestService_SetModuleCompletion(t *testing.T) {
	svc, mods, notifier := setup(t, 2)
	ctx := context.Background()

	t.Run("unknown module", func(t *testing.T) {
		if _, err := svc.SetModuleCompletion(ctx, "usr", "lol", true); err != course.ErrModuleNotFound {
			t.Errorf("SetModuleCompletion() error = %v, want %v", err, course.ErrModuleNotFound)
		}
	})

	t.Run("marks complete", func(t *testing.T) {
		prog, err := svc.SetModuleCompletion(ctx, "usr", mods[0].ID, true)
		if err != nil {
			t.Fatalf("SetModuleCompletion() failed, %v", err)
		}
		if !prog.Completed {
			t.Error("expected completed progress")
		}
		if !prog.CompletedAt.Valid {
			t.Error("expected CompletedAt to be set")
		}
		events := notifier.Events()
		if len(events) != 1 || events[0].Type != notification.ModuleCompleted {
			t.Errorf("expected a single MODULE_COMPLETED event, got %+v", events)
		}
	})

	t.Run("re-marking is idempotent", func(t *testing.T) {
		first, err := svc.SetModuleCompletion(ctx, "usr", mods[0].ID, true)
		if err != nil {
			t.Fatalf("SetModuleCompletion() failed, %v", err)
		}
		again, err := svc.SetModuleCompletion(ctx, "usr", mods[0].ID, true)
		if err != nil {
			t.Fatalf("SetModuleCompletion() retry failed, %v", err)
		}
		if again.ID != first.ID {
			t.Errorf("expected the same progress row, got %s and %s", first.ID, again.ID)
		}
		events := notifier.Events()
		if len(events) != 1 {
			t.Errorf("re-marking must not fire another MODULE_COMPLETED event, got %+v", events)
		}

		compl, err := svc.CourseCompletion(ctx, "usr", mods[0].CourseID)
		if err != nil {
			t.Fatalf("CourseCompletion() failed, %v", err)
		}
		if compl.CompletedCount != 1 {
			t.Errorf("expected 1 completed module, got %d", compl.CompletedCount)
		}
	})

	t.Run("unmarks complete", func(t *testing.T) {
		prog, err := svc.SetModuleCompletion(ctx, "usr", mods[0].ID, false)
		if err != nil {
			t.Fatalf("SetModuleCompletion() failed, %v", err)
		}
		if prog.Completed {
			t.Error("expected incomplete progress")
		}
		if prog.CompletedAt.Valid {
			t.Error("expected CompletedAt to be cleared")
		}
	})

	t.Run("marking again after unmark is a new transition", func(t *testing.T) {
		if _, err := svc.SetModuleCompletion(ctx, "usr", mods[0].ID, true); err != nil {
			t.Fatalf("SetModuleCompletion() failed, %v", err)
		}
		events := notifier.Events()
		if len(events) != 2 {
			t.Errorf("expected a second MODULE_COMPLETED event, got %+v", events)
		}
	})
}

func TestService_CourseCompletion(t *testing.T) {
	svc, mods, _ := setup(t, 3)
	ctx := context.Background()
	courseID := mods[0].CourseID

	compl, err := svc.CourseCompletion(ctx, "usr", courseID)
	if err != nil {
		t.Fatalf("CourseCompletion() failed, %v", err)
	}
	if compl.CompletedCount != 0 || compl.TotalCount != 3 {
		t.Errorf("CourseCompletion() = %+v, want 0/3", compl)
	}
	if compl.Complete() {
		t.Error("expected incomplete course")
	}

	for _, mod := range mods[:2] {
		if _, err := svc.SetModuleCompletion(ctx, "usr", mod.ID, true); err != nil {
			t.Fatalf("SetModuleCompletion() failed, %v", err)
		}
	}
	// another user's progress must not leak in
	if _, err := svc.SetModuleCompletion(ctx, "other", mods[2].ID, true); err != nil {
		t.Fatalf("SetModuleCompletion() failed, %v", err)
	}

	compl, err = svc.CourseCompletion(ctx, "usr", courseID)
	if err != nil {
		t.Fatalf("CourseCompletion() failed, %v", err)
	}
	if compl.CompletedCount != 2 || compl.TotalCount != 3 {
		t.Errorf("CourseCompletion() = %+v, want 2/3", compl)
	}

	if _, err := svc.SetModuleCompletion(ctx, "usr", mods[2].ID, true); err != nil {
		t.Fatalf("SetModuleCompletion() failed, %v", err)
	}
	compl, err = svc.CourseCompletion(ctx, "usr", courseID)
	if err != nil {
		t.Fatalf("CourseCompletion() failed, %v", err)
	}
	if !compl.Complete() {
		t.Errorf("expected complete course, got %+v", compl)
	}
}

func TestCompletion_emptyCourseIsNeverComplete(t *testing.T) {
	ctx := context.Background()

	db := dummydb.Open()
	courseSvc := course.NewService(dummydb.NewCourseRepository(db))
	crs, err := courseSvc.Create(ctx, course.NewCourse{Title: "Empty"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	svc := progress.NewService(dummydb.NewProgressRepository(db), courseSvc, notification.NopNotifier{})
	compl, err := svc.CourseCompletion(ctx, "usr", crs.ID)
	if err != nil {
		t.Fatalf("CourseCompletion() failed, %v", err)
	}
	if compl.TotalCount != 0 || compl.Complete() {
		t.Errorf("expected 0/0 incomplete, got %+v", compl)
	}
}
