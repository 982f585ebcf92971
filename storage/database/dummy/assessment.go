package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/mwalimu/elimika/core/assessment"
)

type assessmentRepository struct {
	db *assessmentTable
}

var _ assessment.Repository = (*assessmentRepository)(nil)

func NewAssessmentRepository(db *DB) assessment.Repository {
	return &assessmentRepository{db: db.assessment}
}

func (repo *assessmentRepository) CreateTest(ctx context.Context, t assessment.Test) (assessment.Test, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = uuid.New().String()
	for i := range t.Questions {
		t.Questions[i].ID = uuid.New().String()
		t.Questions[i].TestID = t.ID
	}
	repo.db.tests[t.ID] = &t
	return t, nil
}

func (repo *assessmentRepository) GetTest(ctx context.Context, id string) (assessment.Test, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	t, ok := repo.db.tests[id]
	if !ok {
		return assessment.Test{}, assessment.ErrTestNotFound
	}
	out := *t
	out.Questions = make([]assessment.Question, len(t.Questions))
	copy(out.Questions, t.Questions)
	sort.Slice(out.Questions, func(i, j int) bool { return out.Questions[i].Position < out.Questions[j].Position })
	return out, nil
}

func (repo *assessmentRepository) QueryCourseTests(ctx context.Context, courseID string) ([]assessment.Test, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var tests []assessment.Test
	for _, t := range repo.db.tests {
		if t.CourseID == courseID {
			// metadata only, matching the SQL repository
			out := *t
			out.Questions = nil
			tests = append(tests, out)
		}
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].CreatedAt.Before(tests[j].CreatedAt) })
	return tests, nil
}

func (repo *assessmentRepository) CreateSubmission(ctx context.Context, sub assessment.Submission) (assessment.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// UNIQUE (test_id, user_id, attempt_number)
	for _, existing := range repo.db.submissions {
		if existing.TestID == sub.TestID && existing.UserID == sub.UserID &&
			existing.AttemptNumber == sub.AttemptNumber {
			return assessment.Submission{}, assessment.ErrDuplicateAttempt
		}
	}

	sub.ID = uuid.New().String()
	for i := range sub.Answers {
		sub.Answers[i].ID = uuid.New().String()
		sub.Answers[i].SubmissionID = sub.ID
	}
	repo.db.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *assessmentRepository) GetSubmission(ctx context.Context, id string) (assessment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub, ok := repo.db.submissions[id]; ok {
		return *sub, nil
	}
	return assessment.Submission{}, assessment.ErrSubmissionNotFound
}

func (repo *assessmentRepository) QuerySubmissions(ctx context.Context, testID, userID string) ([]assessment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var subs []assessment.Submission
	for _, sub := range repo.db.submissions {
		if sub.TestID == testID && sub.UserID == userID {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].AttemptNumber < subs[j].AttemptNumber })
	return subs, nil
}

func (repo *assessmentRepository) UpdateSubmissionGrade(ctx context.Context, sub assessment.Submission) (assessment.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, ok := repo.db.submissions[sub.ID]
	if !ok {
		return assessment.Submission{}, assessment.ErrSubmissionNotFound
	}
	existing.Status = sub.Status
	existing.Score = sub.Score
	existing.IsPassed = sub.IsPassed
	return *existing, nil
}
