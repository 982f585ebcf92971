package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/mwalimu/elimika/core/certificate"
)

type certificateRepository struct {
	db *certificateTable
}

var _ certificate.Repository = (*certificateRepository)(nil)

func NewCertificateRepository(db *DB) certificate.Repository {
	return &certificateRepository{db: db.certificate}
}

func (repo *certificateRepository) CreateCertificate(ctx context.Context, cert certificate.Certificate) (certificate.Certificate, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// partial UNIQUE (user_id, course_id) WHERE valid
	if cert.Valid {
		for _, existing := range repo.db.table {
			if existing.Valid && existing.UserID == cert.UserID && existing.CourseID == cert.CourseID {
				return certificate.Certificate{}, certificate.ErrDuplicateValid
			}
		}
	}

	cert.ID = uuid.New().String()
	repo.db.table[cert.ID] = &cert
	return cert, nil
}

func (repo *certificateRepository) GetCertificateByID(ctx context.Context, id string) (certificate.Certificate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cert, ok := repo.db.table[id]; ok {
		return *cert, nil
	}
	return certificate.Certificate{}, certificate.ErrNotFound
}

func (repo *certificateRepository) GetCertificateByCode(ctx context.Context, code string) (certificate.Certificate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cert := range repo.db.table {
		if cert.Code == code {
			return *cert, nil
		}
	}
	return certificate.Certificate{}, certificate.ErrNotFound
}

func (repo *certificateRepository) GetValidCertificate(ctx context.Context, userID, courseID string) (certificate.Certificate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cert := range repo.db.table {
		if cert.Valid && cert.UserID == userID && cert.CourseID == courseID {
			return *cert, nil
		}
	}
	return certificate.Certificate{}, certificate.ErrNotFound
}

func (repo *certificateRepository) SetCertificateValidity(ctx context.Context, id string, valid bool) (certificate.Certificate, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cert, ok := repo.db.table[id]
	if !ok {
		return certificate.Certificate{}, certificate.ErrNotFound
	}
	if valid && !cert.Valid {
		for _, existing := range repo.db.table {
			if existing.Valid && existing.UserID == cert.UserID && existing.CourseID == cert.CourseID {
				return certificate.Certificate{}, certificate.ErrDuplicateValid
			}
		}
	}
	cert.Valid = valid
	return *cert, nil
}

func (repo *certificateRepository) DeleteCertificate(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}

func (repo *certificateRepository) QueryUserCertificates(ctx context.Context, userID string) ([]certificate.Certificate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var certs []certificate.Certificate
	for _, cert := range repo.db.table {
		if cert.UserID == userID {
			certs = append(certs, *cert)
		}
	}
	sort.Slice(certs, func(i, j int) bool { return certs[i].IssuedAt.After(certs[j].IssuedAt) })
	return certs, nil
}
