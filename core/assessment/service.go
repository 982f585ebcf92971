package assessment

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/access"
	"github.com/mwalimu/elimika/core/notification"
	"github.com/mwalimu/elimika/core/progress"
)

var (
	// errors
	ErrTestNotFound       = errors.New("test not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAccessRequired     = errors.New("active course access required")
	ErrModulesIncomplete  = errors.New("all course modules must be completed first")
	ErrAlreadyPassed      = errors.New("test already passed")
	ErrAttemptsExhausted  = errors.New("no attempts remaining")
	// ErrDuplicateAttempt is returned by repositories when an insert
	// races on (test, user, attempt number). The service resolves it by
	// recomputing the attempt number once.
	ErrDuplicateAttempt = errors.New("attempt number already taken")
)

// AccessContext carries the caller's verified standing so the engine does
// not re-query the Access Ledger on every call.
type AccessContext struct {
	UserID  string
	Access  access.Access
	IsAdmin bool
}

type (
	Repository interface {
		CreateTest(ctx context.Context, t Test) (Test, error)
		// GetTest returns the test with its questions ordered by position.
		GetTest(ctx context.Context, id string) (Test, error)
		QueryCourseTests(ctx context.Context, courseID string) ([]Test, error)
		// CreateSubmission atomically persists the submission and all its
		// answers; either the full set lands or none of it. Returns
		// ErrDuplicateAttempt when (TestID, UserID, AttemptNumber) exists.
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		QuerySubmissions(ctx context.Context, testID, userID string) ([]Submission, error)
		UpdateSubmissionGrade(ctx context.Context, sub Submission) (Submission, error)
	}

	Service interface {
		CreateTest(ctx context.Context, courseID string, nt NewTest) (Test, error)
		GetTest(ctx context.Context, id string) (Test, error)
		QueryCourseTests(ctx context.Context, courseID string) ([]Test, error)
		// ListQuestions returns the test's questions ordered by position.
		// For non-admin callers the answer key is stripped from every
		// multiple choice config, and the eligibility preconditions that
		// gate Submit gate viewing too.
		ListQuestions(ctx context.Context, actx AccessContext, testID string) ([]Question, error)
		AttemptStatus(ctx context.Context, testID, userID string) (AttemptStatus, error)
		// Submit validates preconditions in order (access, module
		// completion, not already passed, attempt budget, answer shape),
		// assigns the next attempt number and persists the graded
		// submission atomically. First failing precondition wins and no
		// partial state is written.
		Submit(ctx context.Context, actx AccessContext, testID string, answers []AnswerInput) (Submission, error)
		// FinalizeManualGrade sets the score of a pending submission.
		// Calling it again with the same score is a no-op; a different
		// score is applied as an administrative override.
		FinalizeManualGrade(ctx context.Context, submissionID string, score int) (Submission, error)
		// CoursePassed reports whether the user passed every required or
		// final-exam test of the course. False when the course has none.
		CoursePassed(ctx context.Context, userID, courseID string) (bool, error)
	}

	service struct {
		repo        Repository
		progressSvc progress.Service
		notifier    notification.Notifier
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, progressSvc progress.Service, notifier notification.Notifier) Service {
	return &service{
		repo:        repo,
		progressSvc: progressSvc,
		notifier:    notifier,
	}
}

func (svc *service) CreateTest(ctx context.Context, courseID string, nt NewTest) (Test, error) {
	now := core.NowFunc()
	t := Test{
		CourseID:     courseID,
		ModuleID:     null.NewString(nt.ModuleID, nt.ModuleID != ""),
		Title:        nt.Title,
		MaxAttempts:  nt.MaxAttempts,
		PassingScore: nt.PassingScore,
		IsRequired:   nt.IsRequired,
		IsFinalExam:  nt.IsFinalExam,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for i, nq := range nt.Questions {
		t.Questions = append(t.Questions, Question{
			Type:     nq.Type,
			Position: i + 1,
			Config:   nq.config(),
		})
	}
	return svc.repo.CreateTest(ctx, t)
}

func (svc *service) GetTest(ctx context.Context, id string) (Test, error) {
	return svc.repo.GetTest(ctx, id)
}

// QueryCourseTests returns a course's tests as metadata only; questions
// never ride along. They are served by ListQuestions, which sanitizes
// answer keys for non-admins.
func (svc *service) QueryCourseTests(ctx context.Context, courseID string) ([]Test, error) {
	tests, err := svc.repo.QueryCourseTests(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for i := range tests {
		tests[i].Questions = nil
	}
	return tests, nil
}

// checkEligibility enforces the read/submit gate: active access, and full
// module completion for course-level tests. Admins bypass both.
func (svc *service) checkEligibility(ctx context.Context, actx AccessContext, t Test) error {
	if actx.IsAdmin {
		return nil
	}
	if !actx.Access.Active {
		return core.NewForbiddenError(ErrAccessRequired)
	}
	if t.CourseLevel() {
		completion, err := svc.progressSvc.CourseCompletion(ctx, actx.UserID, t.CourseID)
		if err != nil {
			return pkgerrors.Wrap(err, "getting course completion")
		}
		if !completion.Complete() {
			return core.NewPreconditionError(ErrModulesIncomplete)
		}
	}
	return nil
}

func (svc *service) ListQuestions(ctx context.Context, actx AccessContext, testID string) ([]Question, error) {
	t, err := svc.repo.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if err = svc.checkEligibility(ctx, actx, t); err != nil {
		return nil, err
	}

	questions := make([]Question, len(t.Questions))
	copy(questions, t.Questions)
	if !actx.IsAdmin {
		for i := range questions {
			questions[i].Config = questions[i].Config.Sanitized()
		}
	}
	return questions, nil
}

func (svc *service) AttemptStatus(ctx context.Context, testID, userID string) (AttemptStatus, error) {
	t, err := svc.repo.GetTest(ctx, testID)
	if err != nil {
		return AttemptStatus{}, err
	}
	subs, err := svc.repo.QuerySubmissions(ctx, testID, userID)
	if err != nil {
		return AttemptStatus{}, err
	}
	return attemptStatus(t, subs), nil
}

func attemptStatus(t Test, subs []Submission) AttemptStatus {
	status := AttemptStatus{AttemptsUsed: len(subs)}

	if t.MaxAttempts > 0 {
		remaining := t.MaxAttempts - status.AttemptsUsed
		if remaining < 0 {
			remaining = 0
		}
		status.AttemptsRemaining = null.IntFrom(remaining)
	}

	if best, ok := bestSubmission(subs); ok {
		status.BestScore = best.Score
	}
	for _, sub := range subs {
		if sub.IsPassed.Valid && sub.IsPassed.Bool {
			status.AlreadyPassed = true
			break
		}
	}
	return status
}

func (svc *service) Submit(ctx context.Context, actx AccessContext, testID string, answers []AnswerInput) (Submission, error) {
	t, err := svc.repo.GetTest(ctx, testID)
	if err != nil {
		return Submission{}, err
	}

	// preconditions 1 & 2: active access, module completion
	if err = svc.checkEligibility(ctx, actx, t); err != nil {
		return Submission{}, err
	}

	subs, err := svc.repo.QuerySubmissions(ctx, testID, actx.UserID)
	if err != nil {
		return Submission{}, err
	}
	// preconditions 3 & 4: success is idempotent, attempt budget
	if err = checkAttemptBudget(t, subs); err != nil {
		return Submission{}, err
	}

	// precondition 5: exactly one answer per question
	values, err := validateAnswers(t, answers)
	if err != nil {
		return Submission{}, err
	}

	sub, err := svc.createSubmission(ctx, t, actx.UserID, len(subs)+1, values, answers)
	if err == ErrDuplicateAttempt {
		// lost a race on the attempt number: recompute once, then fail
		subs, err = svc.repo.QuerySubmissions(ctx, testID, actx.UserID)
		if err != nil {
			return Submission{}, err
		}
		if err = checkAttemptBudget(t, subs); err != nil {
			return Submission{}, err
		}
		sub, err = svc.createSubmission(ctx, t, actx.UserID, len(subs)+1, values, answers)
	}
	if err != nil {
		return Submission{}, err
	}

	if sub.IsPassed.Valid && sub.IsPassed.Bool {
		svc.notifier.Notify(notification.Event{
			Type:          notification.TestPassed,
			SubjectUserID: sub.UserID,
			Payload: map[string]interface{}{
				"test_id":   t.ID,
				"course_id": t.CourseID,
				"score":     sub.Score.Int,
			},
		})
	}
	return sub, nil
}

// checkAttemptBudget enforces preconditions 3 and 4, in that order.
func checkAttemptBudget(t Test, subs []Submission) error {
	for _, sub := range subs {
		if sub.IsPassed.Valid && sub.IsPassed.Bool {
			return core.NewPreconditionError(ErrAlreadyPassed)
		}
	}
	if t.MaxAttempts > 0 && len(subs) >= t.MaxAttempts {
		return core.NewPreconditionError(ErrAttemptsExhausted)
	}
	return nil
}

// validateAnswers checks that exactly one answer is supplied per question
// belonging to the test; extra, missing and duplicate answers are rejected.
func validateAnswers(t Test, answers []AnswerInput) (map[string]string, error) {
	questions := make(map[string]bool, len(t.Questions))
	for _, q := range t.Questions {
		questions[q.ID] = true
	}

	values := make(map[string]string, len(answers))
	for _, ans := range answers {
		if !questions[ans.QuestionID] {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: "answers", Error: "answer for unknown question " + ans.QuestionID,
			})
		}
		if _, dup := values[ans.QuestionID]; dup {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: "answers", Error: "duplicate answer for question " + ans.QuestionID,
			})
		}
		values[ans.QuestionID] = ans.Value
	}
	if len(values) != len(t.Questions) {
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: "answers", Error: "exactly one answer per question is required",
		})
	}
	return values, nil
}

func (svc *service) createSubmission(
	ctx context.Context,
	t Test,
	userID string,
	attemptNumber int,
	values map[string]string,
	answers []AnswerInput,
) (Submission, error) {
	score, isPassed, status := grade(t, values)

	sub := Submission{
		TestID:        t.ID,
		UserID:        userID,
		AttemptNumber: attemptNumber,
		Status:        status,
		Score:         score,
		IsPassed:      isPassed,
		SubmittedAt:   core.NowFunc(),
	}
	for _, ans := range answers {
		sub.Answers = append(sub.Answers, Answer{
			QuestionID: ans.QuestionID,
			Value:      ans.Value,
		})
	}
	return svc.repo.CreateSubmission(ctx, sub)
}

func (svc *service) FinalizeManualGrade(ctx context.Context, submissionID string, score int) (Submission, error) {
	if score < 0 || score > 100 {
		return Submission{}, core.NewValidationError(nil, core.FieldError{
			Field: "score", Error: "score must be between 0 and 100",
		})
	}

	sub, err := svc.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	// idempotent when re-finalized with the same score
	if sub.Status == StatusGraded && sub.Score.Valid && sub.Score.Int == score {
		return sub, nil
	}

	t, err := svc.repo.GetTest(ctx, sub.TestID)
	if err != nil {
		return Submission{}, err
	}

	wasPassed := sub.IsPassed.Valid && sub.IsPassed.Bool
	sub.Score = null.IntFrom(score)
	sub.IsPassed = null.BoolFrom(score >= t.PassingScore)
	sub.Status = StatusGraded

	sub, err = svc.repo.UpdateSubmissionGrade(ctx, sub)
	if err != nil {
		return Submission{}, err
	}

	if !wasPassed && sub.IsPassed.Bool {
		svc.notifier.Notify(notification.Event{
			Type:          notification.TestPassed,
			SubjectUserID: sub.UserID,
			Payload: map[string]interface{}{
				"test_id":   t.ID,
				"course_id": t.CourseID,
				"score":     sub.Score.Int,
			},
		})
	}
	return sub, nil
}

func (svc *service) CoursePassed(ctx context.Context, userID, courseID string) (bool, error) {
	tests, err := svc.repo.QueryCourseTests(ctx, courseID)
	if err != nil {
		return false, err
	}

	var required int
	for _, t := range tests {
		if !(t.IsRequired || t.IsFinalExam) {
			continue
		}
		required++

		subs, err := svc.repo.QuerySubmissions(ctx, t.ID, userID)
		if err != nil {
			return false, err
		}
		var passed bool
		for _, sub := range subs {
			if sub.IsPassed.Valid && sub.IsPassed.Bool {
				passed = true
				break
			}
		}
		if !passed {
			return false, nil
		}
	}
	return required > 0, nil
}
