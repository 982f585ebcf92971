package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/elimika/core/assessment"
)

type assessmentRepository struct {
	db *sqlx.DB
}

var _ assessment.Repository = (*assessmentRepository)(nil)

func NewAssessmentRepository(db *sqlx.DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

type testRow struct {
	ID           string      `db:"id"`
	CourseID     string      `db:"course_id"`
	ModuleID     null.String `db:"module_id"`
	Title        string      `db:"title"`
	MaxAttempts  int         `db:"max_attempts"`
	PassingScore int         `db:"passing_score"`
	IsRequired   bool        `db:"is_required"`
	IsFinalExam  bool        `db:"is_final_exam"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (r testRow) unrow() assessment.Test {
	return assessment.Test{
		ID:           r.ID,
		CourseID:     r.CourseID,
		ModuleID:     r.ModuleID,
		Title:        r.Title,
		MaxAttempts:  r.MaxAttempts,
		PassingScore: r.PassingScore,
		IsRequired:   r.IsRequired,
		IsFinalExam:  r.IsFinalExam,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type questionRow struct {
	ID       string `db:"id"`
	TestID   string `db:"test_id"`
	Type     string `db:"type"`
	Position int    `db:"position"`
	Config   []byte `db:"config"`
}

func (r questionRow) unrow() (assessment.Question, error) {
	cfg, err := assessment.UnmarshalConfig(assessment.QuestionType(r.Type), r.Config)
	if err != nil {
		return assessment.Question{}, err
	}
	return assessment.Question{
		ID:       r.ID,
		TestID:   r.TestID,
		Type:     assessment.QuestionType(r.Type),
		Position: r.Position,
		Config:   cfg,
	}, nil
}

type submissionRow struct {
	ID            string    `db:"id"`
	TestID        string    `db:"test_id"`
	UserID        string    `db:"user_id"`
	AttemptNumber int       `db:"attempt_number"`
	Status        string    `db:"status"`
	Score         null.Int  `db:"score"`
	IsPassed      null.Bool `db:"is_passed"`
	SubmittedAt   time.Time `db:"submitted_at"`
}

func (r submissionRow) unrow() assessment.Submission {
	return assessment.Submission{
		ID:            r.ID,
		TestID:        r.TestID,
		UserID:        r.UserID,
		AttemptNumber: r.AttemptNumber,
		Status:        assessment.SubmissionStatus(r.Status),
		Score:         r.Score,
		IsPassed:      r.IsPassed,
		SubmittedAt:   r.SubmittedAt,
	}
}

type answerRow struct {
	ID           string `db:"id"`
	SubmissionID string `db:"submission_id"`
	QuestionID   string `db:"question_id"`
	Value        string `db:"value"`
}

func (repo assessmentRepository) CreateTest(ctx context.Context, t assessment.Test) (assessment.Test, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return assessment.Test{}, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	t.ID = uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO test (id, course_id, module_id, title, max_attempts, passing_score, is_required, is_final_exam, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.CourseID, t.ModuleID, t.Title, t.MaxAttempts, t.PassingScore,
		t.IsRequired, t.IsFinalExam, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	if err != nil {
		return assessment.Test{}, errors.Wrap(err, "inserting test")
	}

	for i := range t.Questions {
		q := &t.Questions[i]
		q.ID = uuid.New().String()
		q.TestID = t.ID
		config, err := json.Marshal(q.Config)
		if err != nil {
			return assessment.Test{}, errors.Wrap(err, "marshalling question config")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO question (id, test_id, type, position, config)
			VALUES ($1, $2, $3, $4, $5)`,
			q.ID, q.TestID, q.Type, q.Position, config,
		)
		if err != nil {
			return assessment.Test{}, errors.Wrap(err, "inserting question")
		}
	}

	if err = tx.Commit(); err != nil {
		return assessment.Test{}, errors.Wrap(err, "committing test")
	}
	return t, nil
}

func (repo assessmentRepository) GetTest(ctx context.Context, id string) (assessment.Test, error) {
	var row testRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT id, course_id, module_id, title, max_attempts, passing_score, is_required, is_final_exam, created_at, updated_at
		FROM test WHERE id = $1`, id)
	if err != nil {
		return assessment.Test{}, trapNoRowsErr(err, assessment.ErrTestNotFound, "getting test by ID")
	}
	t := row.unrow()

	var qRows []questionRow
	err = repo.db.SelectContext(ctx, &qRows, `
		SELECT id, test_id, type, position, config FROM question WHERE test_id = $1 ORDER BY position`, id)
	if err != nil {
		return assessment.Test{}, errors.Wrap(err, "querying test questions")
	}
	for _, qr := range qRows {
		q, err := qr.unrow()
		if err != nil {
			return assessment.Test{}, err
		}
		t.Questions = append(t.Questions, q)
	}
	return t, nil
}

func (repo assessmentRepository) QueryCourseTests(ctx context.Context, courseID string) ([]assessment.Test, error) {
	var rows []testRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, course_id, module_id, title, max_attempts, passing_score, is_required, is_final_exam, created_at, updated_at
		FROM test WHERE course_id = $1 ORDER BY created_at`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course tests")
	}
	tests := make([]assessment.Test, 0, len(rows))
	for _, r := range rows {
		tests = append(tests, r.unrow())
	}
	return tests, nil
}

func (repo assessmentRepository) CreateSubmission(ctx context.Context, sub assessment.Submission) (assessment.Submission, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return assessment.Submission{}, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	sub.ID = uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO submission (id, test_id, user_id, attempt_number, status, score, is_passed, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.ID, sub.TestID, sub.UserID, sub.AttemptNumber, sub.Status, sub.Score, sub.IsPassed, sub.SubmittedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err, "submission_attempt_key") {
			return assessment.Submission{}, assessment.ErrDuplicateAttempt
		}
		return assessment.Submission{}, errors.Wrap(err, "inserting submission")
	}

	for i := range sub.Answers {
		ans := &sub.Answers[i]
		ans.ID = uuid.New().String()
		ans.SubmissionID = sub.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO answer (id, submission_id, question_id, value)
			VALUES ($1, $2, $3, $4)`,
			ans.ID, ans.SubmissionID, ans.QuestionID, ans.Value,
		)
		if err != nil {
			return assessment.Submission{}, errors.Wrap(err, "inserting answer")
		}
	}

	if err = tx.Commit(); err != nil {
		return assessment.Submission{}, errors.Wrap(err, "committing submission")
	}
	return sub, nil
}

func (repo assessmentRepository) GetSubmission(ctx context.Context, id string) (assessment.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT id, test_id, user_id, attempt_number, status, score, is_passed, submitted_at
		FROM submission WHERE id = $1`, id)
	if err != nil {
		return assessment.Submission{}, trapNoRowsErr(err, assessment.ErrSubmissionNotFound, "getting submission by ID")
	}
	sub := row.unrow()

	var aRows []answerRow
	err = repo.db.SelectContext(ctx, &aRows, `
		SELECT id, submission_id, question_id, value FROM answer WHERE submission_id = $1`, id)
	if err != nil {
		return assessment.Submission{}, errors.Wrap(err, "querying submission answers")
	}
	for _, ar := range aRows {
		sub.Answers = append(sub.Answers, assessment.Answer(ar))
	}
	return sub, nil
}

func (repo assessmentRepository) QuerySubmissions(ctx context.Context, testID, userID string) ([]assessment.Submission, error) {
	var rows []submissionRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, test_id, user_id, attempt_number, status, score, is_passed, submitted_at
		FROM submission WHERE test_id = $1 AND user_id = $2 ORDER BY attempt_number`, testID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]assessment.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.unrow())
	}
	return subs, nil
}

func (repo assessmentRepository) UpdateSubmissionGrade(ctx context.Context, sub assessment.Submission) (assessment.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE submission SET status = $2, score = $3, is_passed = $4
		WHERE id = $1
		RETURNING id, test_id, user_id, attempt_number, status, score, is_passed, submitted_at`,
		sub.ID, sub.Status, sub.Score, sub.IsPassed,
	)
	if err != nil {
		return assessment.Submission{}, trapNoRowsErr(err, assessment.ErrSubmissionNotFound, "updating submission grade")
	}
	return row.unrow(), nil
}
