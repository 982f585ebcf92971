package assessment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/access"
	"github.com/mwalimu/elimika/core/assessment"
	"github.com/mwalimu/elimika/core/course"
	"github.com/mwalimu/elimika/core/notification"
	"github.com/mwalimu/elimika/core/progress"
	notifysvc "github.com/mwalimu/elimika/services/notify"
	dummydb "github.com/mwalimu/elimika/storage/database/dummy"
)

type fixture struct {
	svc         assessment.Service
	repo        assessment.Repository
	courseSvc   course.Service
	progressSvc progress.Service
	notifier    *notifysvc.CaptureNotifier
	course      course.Course
	modules     []course.Module
}

// setup seeds a course with moduleCount modules. repoWrap, when non-nil,
// wraps the dummy repository before the service sees it.
func setup(t *testing.T, moduleCount int, repoWrap func(assessment.Repository) assessment.Repository) *fixture {
	t.Helper()
	ctx := context.Background()

	db := dummydb.Open()
	courseSvc := course.NewService(dummydb.NewCourseRepository(db))
	progressSvc := progress.NewService(dummydb.NewProgressRepository(db), courseSvc, notification.NopNotifier{})

	repo := dummydb.NewAssessmentRepository(db)
	if repoWrap != nil {
		repo = repoWrap(repo)
	}
	notifier := &notifysvc.CaptureNotifier{}
	svc := assessment.NewService(repo, progressSvc, notifier)

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
	return &fixture{
		svc:         svc,
		repo:        repo,
		courseSvc:   courseSvc,
		progressSvc: progressSvc,
		notifier:    notifier,
		course:      crs,
		modules:     mods,
	}
}

func (f *fixture) completeAllModules(t *testing.T, userID string) {
	t.Helper()
	for _, mod := range f.modules {
		if _, err := f.progressSvc.SetModuleCompletion(context.Background(), userID, mod.ID, true); err != nil {
			t.Fatalf("SetModuleCompletion() failed, %v", err)
		}
	}
}

func (f *fixture) createTest(t *testing.T, nt assessment.NewTest) assessment.Test {
	t.Helper()
	test, err := f.svc.CreateTest(context.Background(), f.course.ID, nt)
	if err != nil {
		t.Fatalf("CreateTest() failed, %v", err)
	}
	return test
}

func activeCtx(userID string) assessment.AccessContext {
	return assessment.AccessContext{UserID: userID, Access: access.Access{Active: true}}
}

func mcNewQuestion(prompt, correct string) assessment.NewQuestion {
	return assessment.NewQuestion{
		Type:          assessment.QuestionMultipleChoice,
		Prompt:        prompt,
		Choices:       []string{"A", "B", "C"},
		CorrectChoice: correct,
	}
}

func answerAll(t *testing.T, test assessment.Test, values ...string) []assessment.AnswerInput {
	t.Helper()
	if len(values) != len(test.Questions) {
		t.Fatalf("answerAll: %d values for %d questions", len(values), len(test.Questions))
	}
	answers := make([]assessment.AnswerInput, len(values))
	for i, q := range test.Questions {
		answers[i] = assessment.AnswerInput{QuestionID: q.ID, Value: values[i]}
	}
	return answers
}

func TestService_ListQuestions(t *testing.T) {
	f := setup(t, 1, nil)
	ctx := context.Background()

	test := f.createTest(t, assessment.NewTest{
		Title:        "Final",
		PassingScore: 70,
		Questions:    []assessment.NewQuestion{mcNewQuestion("pick", "A")},
	})
	f.completeAllModules(t, "student")

	t.Run("unknown test", func(t *testing.T) {
		if _, err := f.svc.ListQuestions(ctx, activeCtx("student"), "lol"); err != assessment.ErrTestNotFound {
			t.Errorf("ListQuestions() error = %v, want %v", err, assessment.ErrTestNotFound)
		}
	})

	t.Run("no active access", func(t *testing.T) {
		_, err := f.svc.ListQuestions(ctx, assessment.AccessContext{UserID: "student"}, test.ID)
		var forbidden *core.ForbiddenError
		if !errors.As(err, &forbidden) || !errors.Is(err, assessment.ErrAccessRequired) {
			t.Errorf("ListQuestions() error = %v, want forbidden %v", err, assessment.ErrAccessRequired)
		}
	})

	t.Run("answer key stripped for learners", func(t *testing.T) {
		questions, err := f.svc.ListQuestions(ctx, activeCtx("student"), test.ID)
		if err != nil {
			t.Fatalf("ListQuestions() failed, %v", err)
		}
		cfg, ok := questions[0].Config.(assessment.MultipleChoiceConfig)
		if !ok {
			t.Fatalf("unexpected config type %T", questions[0].Config)
		}
		if cfg.CorrectChoice != "" {
			t.Error("expected CorrectChoice to be stripped")
		}
		if len(cfg.Choices) != 3 {
			t.Errorf("expected choices to survive sanitization, got %v", cfg.Choices)
		}
	})

	t.Run("answer key kept for admins", func(t *testing.T) {
		questions, err := f.svc.ListQuestions(ctx, assessment.AccessContext{UserID: "boss", IsAdmin: true}, test.ID)
		if err != nil {
			t.Fatalf("ListQuestions() failed, %v", err)
		}
		cfg := questions[0].Config.(assessment.MultipleChoiceConfig)
		if cfg.CorrectChoice != "A" {
			t.Errorf("expected answer key for admin, got %q", cfg.CorrectChoice)
		}
	})

	t.Run("stored test is untouched by sanitization", func(t *testing.T) {
		stored, err := f.svc.GetTest(ctx, test.ID)
		if err != nil {
			t.Fatalf("GetTest() failed, %v", err)
		}
		cfg := stored.Questions[0].Config.(assessment.MultipleChoiceConfig)
		if cfg.CorrectChoice != "A" {
			t.Error("sanitization must not mutate the stored config")
		}
	})

	t.Run("course listing carries no questions", func(t *testing.T) {
		tests, err := f.svc.QueryCourseTests(ctx, f.course.ID)
		if err != nil {
			t.Fatalf("QueryCourseTests() failed, %v", err)
		}
		if len(tests) != 1 {
			t.Fatalf("expected 1 test, got %d", len(tests))
		}
		if tests[0].Questions != nil {
			t.Errorf("listing must not carry questions, got %+v", tests[0].Questions)
		}
	})
}

func TestService_Submit_preconditionOrder(t *testing.T) {
	f := setup(t, 1, nil)
	ctx := context.Background()

	test := f.createTest(t, assessment.NewTest{
		Title:        "Final",
		MaxAttempts:  1,
		PassingScore: 70,
		Questions:    []assessment.NewQuestion{mcNewQuestion("pick", "A")},
	})

	t.Run("access checked first", func(t *testing.T) {
		// modules incomplete AND no access: access error must win
		_, err := f.svc.Submit(ctx, assessment.AccessContext{UserID: "student"}, test.ID, nil)
		if !errors.Is(err, assessment.ErrAccessRequired) {
			t.Errorf("Submit() error = %v, want %v", err, assessment.ErrAccessRequired)
		}
	})

	t.Run("module completion checked second", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, activeCtx("student"), test.ID, nil)
		var precondition *core.PreconditionError
		if !errors.As(err, &precondition) || !errors.Is(err, assessment.ErrModulesIncomplete) {
			t.Errorf("Submit() error = %v, want precondition %v", err, assessment.ErrModulesIncomplete)
		}
	})

	f.completeAllModules(t, "student")

	t.Run("answer shape checked last", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, activeCtx("student"), test.ID, nil)
		var validation *core.ValidationError
		if !errors.As(err, &validation) {
			t.Errorf("Submit() error = %v, want validation error", err)
		}
	})

	t.Run("already passed beats attempt budget", func(t *testing.T) {
		sub, err := f.svc.Submit(ctx, activeCtx("student"), test.ID, answerAll(t, test, "A"))
		if err != nil {
			t.Fatalf("Submit() failed, %v", err)
		}
		if !sub.IsPassed.Bool {
			t.Fatalf("expected passing submission, got %+v", sub)
		}
		// budget is also exhausted (1/1); the pass must win
		_, err = f.svc.Submit(ctx, activeCtx("student"), test.ID, answerAll(t, test, "A"))
		if !errors.Is(err, assessment.ErrAlreadyPassed) {
			t.Errorf("Submit() error = %v, want %v", err, assessment.ErrAlreadyPassed)
		}
	})
}

func TestService_Submit_grading(t *testing.T) {
	f := setup(t, 1, nil)
	ctx := context.Background()
	f.completeAllModules(t, "student")

	test := f.createTest(t, assessment.NewTest{
		Title:        "Final",
		PassingScore: 70,
		Questions: []assessment.NewQuestion{
			mcNewQuestion("q1", "A"),
			mcNewQuestion("q2", "B"),
			mcNewQuestion("q3", "C"),
			mcNewQuestion("q4", "A"),
		},
	})

	sub, err := f.svc.Submit(ctx, activeCtx("student"), test.ID, answerAll(t, test, "A", "B", "C", "B"))
	if err != nil {
		t.Fatalf("Submit() failed, %v", err)
	}
	if sub.Status != assessment.StatusGraded {
		t.Errorf("Submit() status = %v, want %v", sub.Status, assessment.StatusGraded)
	}
	if !sub.Score.Valid || sub.Score.Int != 75 {
		t.Errorf("Submit() score = %v, want 75", sub.Score)
	}
	if !sub.IsPassed.Valid || !sub.IsPassed.Bool {
		t.Error("expected 75 to pass at 70")
	}
	if sub.AttemptNumber != 1 {
		t.Errorf("AttemptNumber = %d, want 1", sub.AttemptNumber)
	}
	if len(sub.Answers) != 4 {
		t.Errorf("expected 4 persisted answers, got %d", len(sub.Answers))
	}

	events := f.notifier.Events()
	if len(events) != 1 || events[0].Type != notification.TestPassed {
		t.Errorf("expected a single TEST_PASSED event, got %+v", events)
	}
}

func TestService_Submit_pendingReview(t *testing.T) {
	f := setup(t, 0, nil)
	ctx := context.Background()

	test := f.createTest(t, assessment.NewTest{
		Title:        "Essay",
		ModuleID:     "skip-module-gate",
		PassingScore: 70,
		Questions: []assessment.NewQuestion{
			mcNewQuestion("q1", "A"),
			{Type: assessment.QuestionWritten, Prompt: "explain", MaxLength: 2000},
		},
	})

	sub, err := f.svc.Submit(ctx, activeCtx("student"), test.ID, answerAll(t, test, "A", "because"))
	if err != nil {
		t.Fatalf("Submit() failed, %v", err)
	}
	if sub.Status != assessment.StatusPendingReview {
		t.Errorf("Submit() status = %v, want %v", sub.Status, assessment.StatusPendingReview)
	}
	if sub.Score.Valid || sub.IsPassed.Valid {
		t.Errorf("expected null score and verdict, got %+v", sub)
	}
	if events := f.notifier.Events(); len(events) != 0 {
		t.Errorf("expected no events for a pending submission, got %+v", events)
	}
}

func TestService_Submit_attemptBudget(t *testing.T) {
	f := setup(t, 0, nil)
	ctx := context.Background()

	test := f.createTest(t, assessment.NewTest{
		Title:        "Quiz",
		ModuleID:     "m1",
		MaxAttempts:  2,
		PassingScore: 100,
		Questions:    []assessment.NewQuestion{mcNewQuestion("q1", "A")},
	})

	for want := 1; want <= 2; want++ {
		sub, err := f.svc.Submit(ctx, activeCtx("student"), test.ID, answerAll(t, test, "B"))
		if err != nil {
			t.Fatalf("Submit() attempt %d failed, %v", want, err)
		}
		if sub.AttemptNumber != want {
			t.Errorf("AttemptNumber = %d, want %d", sub.AttemptNumber, want)
		}
	}

	_, err := f.svc.Submit(ctx, activeCtx("student"), test.ID, answerAll(t, test, "A"))
	if !errors.Is(err, assessment.ErrAttemptsExhausted) {
		t.Errorf("Submit() error = %v, want %v", err, assessment.ErrAttemptsExhausted)
	}

	status, err := f.svc.AttemptStatus(ctx, test.ID, "student")
	if err != nil {
		t.Fatalf("AttemptStatus() failed, %v", err)
	}
	if status.AttemptsUsed != 2 {
		t.Errorf("AttemptsUsed = %d, want 2", status.AttemptsUsed)
	}
	if !status.AttemptsRemaining.Valid || status.AttemptsRemaining.Int != 0 {
		t.Errorf("AttemptsRemaining = %v, want 0", status.AttemptsRemaining)
	}
	if status.AlreadyPassed {
		t.Error("expected AlreadyPassed to be false")
	}
}

// flakyRepo fails the first CreateSubmission with ErrDuplicateAttempt to
// simulate losing a concurrent race on the attempt number.
type flakyRepo struct {
	assessment.Repository
	failures int
}

func (r *flakyRepo) CreateSubmission(ctx context.Context, sub assessment.Submission) (assessment.Submission, error) {
	if r.failures > 0 {
		r.failures--
		return assessment.Submission{}, assessment.ErrDuplicateAttempt
	}
	return r.Repository.CreateSubmission(ctx, sub)
}

func TestService_Submit_retriesAttemptNumberConflictOnce(t *testing.T) {
	flaky := &flakyRepo{failures: 1}
	f := setup(t, 0, func(repo assessment.Repository) assessment.Repository {
		flaky.Repository = repo
		return flaky
	})
	ctx := context.Background()

	test := f.createTest(t, assessment.NewTest{
		Title:        "Quiz",
		ModuleID:     "m1",
		PassingScore: 100,
		Questions:    []assessment.NewQuestion{mcNewQuestion("q1", "A")},
	})

	sub, err := f.svc.Submit(ctx, activeCtx("student"), test.ID, answerAll(t, test, "A"))
	if err != nil {
		t.Fatalf("Submit() failed after one conflict, %v", err)
	}
	if sub.AttemptNumber != 1 {
		t.Errorf("AttemptNumber = %d, want 1", sub.AttemptNumber)
	}

	// a second consecutive conflict is surfaced, not retried forever
	flaky.failures = 2
	_, err = f.svc.Submit(ctx, activeCtx("other"), test.ID, answerAll(t, test, "B"))
	if err != assessment.ErrDuplicateAttempt {
		t.Errorf("Submit() error = %v, want %v", err, assessment.ErrDuplicateAttempt)
	}
}

func TestService_FinalizeManualGrade(t *testing.T) {
	f := setup(t, 0, nil)
	ctx := context.Background()

	test := f.createTest(t, assessment.NewTest{
		Title:        "Essay",
		ModuleID:     "m1",
		PassingScore: 70,
		Questions:    []assessment.NewQuestion{{Type: assessment.QuestionWritten, Prompt: "explain"}},
	})
	sub, err := f.svc.Submit(ctx, activeCtx("student"), test.ID, answerAll(t, test, "because"))
	if err != nil {
		t.Fatalf("Submit() failed, %v", err)
	}

	t.Run("rejects out-of-range score", func(t *testing.T) {
		var validation *core.ValidationError
		if _, err := f.svc.FinalizeManualGrade(ctx, sub.ID, 101); !errors.As(err, &validation) {
			t.Errorf("FinalizeManualGrade() error = %v, want validation error", err)
		}
	})

	t.Run("unknown submission", func(t *testing.T) {
		if _, err := f.svc.FinalizeManualGrade(ctx, "lol", 80); err != assessment.ErrSubmissionNotFound {
			t.Errorf("FinalizeManualGrade() error = %v, want %v", err, assessment.ErrSubmissionNotFound)
		}
	})

	t.Run("grades and notifies on pass", func(t *testing.T) {
		graded, err := f.svc.FinalizeManualGrade(ctx, sub.ID, 85)
		if err != nil {
			t.Fatalf("FinalizeManualGrade() failed, %v", err)
		}
		if graded.Status != assessment.StatusGraded {
			t.Errorf("status = %v, want %v", graded.Status, assessment.StatusGraded)
		}
		if !graded.IsPassed.Valid || !graded.IsPassed.Bool {
			t.Error("expected 85 to pass at 70")
		}
		events := f.notifier.Events()
		if len(events) != 1 || events[0].Type != notification.TestPassed {
			t.Errorf("expected a single TEST_PASSED event, got %+v", events)
		}
	})

	t.Run("same score is a no-op", func(t *testing.T) {
		before := len(f.notifier.Events())
		if _, err := f.svc.FinalizeManualGrade(ctx, sub.ID, 85); err != nil {
			t.Fatalf("FinalizeManualGrade() failed, %v", err)
		}
		if got := len(f.notifier.Events()); got != before {
			t.Errorf("expected no new events, got %d", got-before)
		}
	})

	t.Run("different score is an override", func(t *testing.T) {
		graded, err := f.svc.FinalizeManualGrade(ctx, sub.ID, 60)
		if err != nil {
			t.Fatalf("FinalizeManualGrade() failed, %v", err)
		}
		if graded.Score.Int != 60 || graded.IsPassed.Bool {
			t.Errorf("expected failing override, got %+v", graded)
		}
	})
}

func TestService_CoursePassed(t *testing.T) {
	f := setup(t, 0, nil)
	ctx := context.Background()

	t.Run("no required tests", func(t *testing.T) {
		passed, err := f.svc.CoursePassed(ctx, "student", f.course.ID)
		if err != nil {
			t.Fatalf("CoursePassed() failed, %v", err)
		}
		if passed {
			t.Error("expected false when no test is required")
		}
	})

	required := f.createTest(t, assessment.NewTest{
		Title:        "Required quiz",
		ModuleID:     "m1",
		IsRequired:   true,
		PassingScore: 100,
		Questions:    []assessment.NewQuestion{mcNewQuestion("q1", "A")},
	})
	final := f.createTest(t, assessment.NewTest{
		Title:        "Final exam",
		ModuleID:     "m1",
		IsFinalExam:  true,
		PassingScore: 100,
		Questions:    []assessment.NewQuestion{mcNewQuestion("q1", "B")},
	})
	// optional practice; never passed, must not count
	f.createTest(t, assessment.NewTest{
		Title:        "Practice",
		ModuleID:     "m1",
		PassingScore: 100,
		Questions:    []assessment.NewQuestion{mcNewQuestion("q1", "C")},
	})

	if _, err := f.svc.Submit(ctx, activeCtx("student"), required.ID, answerAll(t, required, "A")); err != nil {
		t.Fatalf("Submit() failed, %v", err)
	}

	t.Run("one required test unpassed", func(t *testing.T) {
		passed, err := f.svc.CoursePassed(ctx, "student", f.course.ID)
		if err != nil {
			t.Fatalf("CoursePassed() failed, %v", err)
		}
		if passed {
			t.Error("expected false while the final exam is unpassed")
		}
	})

	if _, err := f.svc.Submit(ctx, activeCtx("student"), final.ID, answerAll(t, final, "B")); err != nil {
		t.Fatalf("Submit() failed, %v", err)
	}

	t.Run("all required tests passed", func(t *testing.T) {
		passed, err := f.svc.CoursePassed(ctx, "student", f.course.ID)
		if err != nil {
			t.Fatalf("CoursePassed() failed, %v", err)
		}
		if !passed {
			t.Error("expected true once every required test is passed")
		}
	})
}
