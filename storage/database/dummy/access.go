package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/mwalimu/elimika/core/access"
)

type accessRepository struct {
	db *accessTable
}

var _ access.Repository = (*accessRepository)(nil)

func NewAccessRepository(db *DB) access.Repository {
	return &accessRepository{db: db.access}
}

func (repo *accessRepository) GetGrant(ctx context.Context, userID, courseID string) (access.Grant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, grant := range repo.db.table {
		if grant.UserID == userID && grant.CourseID == courseID {
			return *grant, nil
		}
	}
	return access.Grant{}, access.ErrNotFound
}

func (repo *accessRepository) UpsertGrant(ctx context.Context, grant access.Grant) (access.Grant, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.UserID == grant.UserID && existing.CourseID == grant.CourseID {
			existing.GrantedAt = grant.GrantedAt
			existing.AccessUntil = grant.AccessUntil
			return *existing, nil
		}
	}
	grant.ID = uuid.New().String()
	repo.db.table[grant.ID] = &grant
	return grant, nil
}

func (repo *accessRepository) QueryUserGrants(ctx context.Context, userID string) ([]access.Grant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var grants []access.Grant
	for _, grant := range repo.db.table {
		if grant.UserID == userID {
			grants = append(grants, *grant)
		}
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].GrantedAt.After(grants[j].GrantedAt) })
	return grants, nil
}
