package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/elimika/core/certificate"
)

type certificateRepository struct {
	db *sqlx.DB
}

var _ certificate.Repository = (*certificateRepository)(nil)

func NewCertificateRepository(db *sqlx.DB) *certificateRepository {
	return &certificateRepository{db: db}
}

type certificateRow struct {
	ID       string      `db:"id"`
	Code     string      `db:"code"`
	UserID   string      `db:"user_id"`
	CourseID string      `db:"course_id"`
	IssuedAt time.Time   `db:"issued_at"`
	PDFURL   null.String `db:"pdf_url"`
	Valid    bool        `db:"valid"`
}

func (r certificateRow) unrow() certificate.Certificate {
	return certificate.Certificate(r)
}

const selectCertificate = `SELECT id, code, user_id, course_id, issued_at, pdf_url, valid FROM certificate`

func (repo certificateRepository) CreateCertificate(ctx context.Context, cert certificate.Certificate) (certificate.Certificate, error) {
	cert.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO certificate (id, code, user_id, course_id, issued_at, pdf_url, valid)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cert.ID, cert.Code, cert.UserID, cert.CourseID, cert.IssuedAt.UTC(), cert.PDFURL, cert.Valid,
	)
	if err != nil {
		if isUniqueViolation(err, "certificate_valid_user_course_key") {
			return certificate.Certificate{}, certificate.ErrDuplicateValid
		}
		return certificate.Certificate{}, errors.Wrap(err, "inserting certificate")
	}
	return cert, nil
}

func (repo certificateRepository) GetCertificateByID(ctx context.Context, id string) (certificate.Certificate, error) {
	var row certificateRow
	if err := repo.db.GetContext(ctx, &row, selectCertificate+` WHERE id = $1`, id); err != nil {
		return certificate.Certificate{}, trapNoRowsErr(err, certificate.ErrNotFound, "getting certificate by ID")
	}
	return row.unrow(), nil
}

func (repo certificateRepository) GetCertificateByCode(ctx context.Context, code string) (certificate.Certificate, error) {
	var row certificateRow
	if err := repo.db.GetContext(ctx, &row, selectCertificate+` WHERE code = $1`, code); err != nil {
		return certificate.Certificate{}, trapNoRowsErr(err, certificate.ErrNotFound, "getting certificate by code")
	}
	return row.unrow(), nil
}

func (repo certificateRepository) GetValidCertificate(ctx context.Context, userID, courseID string) (certificate.Certificate, error) {
	var row certificateRow
	err := repo.db.GetContext(ctx, &row, selectCertificate+` WHERE user_id = $1 AND course_id = $2 AND valid`, userID, courseID)
	if err != nil {
		return certificate.Certificate{}, trapNoRowsErr(err, certificate.ErrNotFound, "getting valid certificate")
	}
	return row.unrow(), nil
}

func (repo certificateRepository) SetCertificateValidity(ctx context.Context, id string, valid bool) (certificate.Certificate, error) {
	var row certificateRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE certificate SET valid = $2 WHERE id = $1
		RETURNING id, code, user_id, course_id, issued_at, pdf_url, valid`,
		id, valid,
	)
	if err != nil {
		if isUniqueViolation(err, "certificate_valid_user_course_key") {
			return certificate.Certificate{}, certificate.ErrDuplicateValid
		}
		return certificate.Certificate{}, trapNoRowsErr(err, certificate.ErrNotFound, "setting certificate validity")
	}
	return row.unrow(), nil
}

func (repo certificateRepository) DeleteCertificate(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM certificate WHERE id = $1`, id)
	return errors.Wrap(err, "deleting certificate")
}

func (repo certificateRepository) QueryUserCertificates(ctx context.Context, userID string) ([]certificate.Certificate, error) {
	var rows []certificateRow
	err := repo.db.SelectContext(ctx, &rows, selectCertificate+` WHERE user_id = $1 ORDER BY issued_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying user certificates")
	}
	certs := make([]certificate.Certificate, 0, len(rows))
	for _, r := range rows {
		certs = append(certs, r.unrow())
	}
	return certs, nil
}
