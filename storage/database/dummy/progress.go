package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/mwalimu/elimika/core/progress"
)

type progressRepository struct {
	db       *progressTable
	courseDB *courseTable
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db.progress, courseDB: db.course}
}

func (repo *progressRepository) UpsertProgress(ctx context.Context, prog progress.ModuleProgress) (progress.ModuleProgress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.UserID == prog.UserID && existing.ModuleID == prog.ModuleID {
			existing.Completed = prog.Completed
			existing.CompletedAt = prog.CompletedAt
			return *existing, nil
		}
	}
	prog.ID = uuid.New().String()
	repo.db.table[prog.ID] = &prog
	return prog, nil
}

func (repo *progressRepository) GetProgress(ctx context.Context, userID, moduleID string) (progress.ModuleProgress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, prog := range repo.db.table {
		if prog.UserID == userID && prog.ModuleID == moduleID {
			return *prog, nil
		}
	}
	return progress.ModuleProgress{}, progress.ErrNotFound
}

func (repo *progressRepository) CountCompletedModules(ctx context.Context, userID, courseID string) (int, error) {
	mods := repo.courseModules(courseID)

	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, prog := range repo.db.table {
		if prog.UserID == userID && prog.Completed && mods[prog.ModuleID] {
			count++
		}
	}
	return count, nil
}

func (repo *progressRepository) courseModules(courseID string) map[string]bool {
	repo.courseDB.RLock()
	defer repo.courseDB.RUnlock()

	mods := make(map[string]bool)
	for _, mod := range repo.courseDB.modules {
		if mod.CourseID == courseID {
			mods[mod.ID] = true
		}
	}
	return mods
}
