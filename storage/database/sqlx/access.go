package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/elimika/core/access"
)

type accessRepository struct {
	db *sqlx.DB
}

var _ access.Repository = (*accessRepository)(nil)

func NewAccessRepository(db *sqlx.DB) *accessRepository {
	return &accessRepository{db: db}
}

type grantRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	CourseID    string    `db:"course_id"`
	GrantedAt   time.Time `db:"granted_at"`
	AccessUntil null.Time `db:"access_until"`
}

func (r grantRow) unrow() access.Grant {
	return access.Grant(r)
}

func (repo accessRepository) GetGrant(ctx context.Context, userID, courseID string) (access.Grant, error) {
	var row grantRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT id, user_id, course_id, granted_at, access_until
		FROM access_grant WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		return access.Grant{}, trapNoRowsErr(err, access.ErrNotFound, "getting access grant")
	}
	return row.unrow(), nil
}

func (repo accessRepository) UpsertGrant(ctx context.Context, grant access.Grant) (access.Grant, error) {
	var row grantRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO access_grant (id, user_id, course_id, granted_at, access_until)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT access_grant_user_course_key
		DO UPDATE SET granted_at = EXCLUDED.granted_at, access_until = EXCLUDED.access_until
		RETURNING id, user_id, course_id, granted_at, access_until`,
		uuid.New().String(), grant.UserID, grant.CourseID, grant.GrantedAt.UTC(), grant.AccessUntil,
	)
	if err != nil {
		return access.Grant{}, errors.Wrap(err, "upserting access grant")
	}
	return row.unrow(), nil
}

func (repo accessRepository) QueryUserGrants(ctx context.Context, userID string) ([]access.Grant, error) {
	var rows []grantRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, course_id, granted_at, access_until
		FROM access_grant WHERE user_id = $1 ORDER BY granted_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying user grants")
	}
	grants := make([]access.Grant, 0, len(rows))
	for _, r := range rows {
		grants = append(grants, r.unrow())
	}
	return grants, nil
}
