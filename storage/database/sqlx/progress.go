package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/elimika/core/progress"
)

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *sqlx.DB) *progressRepository {
	return &progressRepository{db: db}
}

type progressRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	ModuleID    string    `db:"module_id"`
	Completed   bool      `db:"completed"`
	CompletedAt null.Time `db:"completed_at"`
}

func (r progressRow) unrow() progress.ModuleProgress {
	return progress.ModuleProgress(r)
}

func (repo progressRepository) UpsertProgress(ctx context.Context, prog progress.ModuleProgress) (progress.ModuleProgress, error) {
	var row progressRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO module_progress (id, user_id, module_id, completed, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT module_progress_user_module_key
		DO UPDATE SET completed = EXCLUDED.completed, completed_at = EXCLUDED.completed_at
		RETURNING id, user_id, module_id, completed, completed_at`,
		uuid.New().String(), prog.UserID, prog.ModuleID, prog.Completed, prog.CompletedAt,
	)
	if err != nil {
		return progress.ModuleProgress{}, errors.Wrap(err, "upserting module progress")
	}
	return row.unrow(), nil
}

func (repo progressRepository) GetProgress(ctx context.Context, userID, moduleID string) (progress.ModuleProgress, error) {
	var row progressRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT id, user_id, module_id, completed, completed_at
		FROM module_progress WHERE user_id = $1 AND module_id = $2`, userID, moduleID)
	if err != nil {
		return progress.ModuleProgress{}, trapNoRowsErr(err, progress.ErrNotFound, "getting module progress")
	}
	return row.unrow(), nil
}

func (repo progressRepository) CountCompletedModules(ctx context.Context, userID, courseID string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM module_progress mp
		JOIN module m ON m.id = mp.module_id
		WHERE mp.user_id = $1 AND m.course_id = $2 AND mp.completed`, userID, courseID)
	if err != nil {
		return 0, errors.Wrap(err, "counting completed modules")
	}
	return count, nil
}
