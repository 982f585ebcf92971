package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mwalimu/elimika/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r courseRow) unrow() course.Course {
	return course.Course(r)
}

type moduleRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Title     string    `db:"title"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r moduleRow) unrow() course.Module {
	return course.Module(r)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO course (id, title, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		crs.ID, crs.Title, crs.Description, crs.CreatedAt.UTC(), crs.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	var rows []courseRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, title, description, created_at, updated_at FROM course ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unrow())
	}
	return courses, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT id, title, description, created_at, updated_at FROM course WHERE id = $1`, id)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course by ID")
	}
	return row.unrow(), nil
}

func (repo courseRepository) CreateModule(ctx context.Context, mod course.Module) (course.Module, error) {
	mod.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO module (id, course_id, title, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		mod.ID, mod.CourseID, mod.Title, mod.Position, mod.CreatedAt.UTC(), mod.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Module{}, errors.Wrap(err, "inserting module")
	}
	return mod, nil
}

func (repo courseRepository) GetModuleByID(ctx context.Context, id string) (course.Module, error) {
	var row moduleRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT id, course_id, title, position, created_at, updated_at FROM module WHERE id = $1`, id)
	if err != nil {
		return course.Module{}, trapNoRowsErr(err, course.ErrModuleNotFound, "getting module by ID")
	}
	return row.unrow(), nil
}

func (repo courseRepository) QueryCourseModules(ctx context.Context, courseID string) ([]course.Module, error) {
	var rows []moduleRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, course_id, title, position, created_at, updated_at
		FROM module WHERE course_id = $1 ORDER BY position, created_at`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course modules")
	}
	mods := make([]course.Module, 0, len(rows))
	for _, r := range rows {
		mods = append(mods, r.unrow())
	}
	return mods, nil
}
