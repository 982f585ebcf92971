package access

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/elimika/core"
)

var (
	// errors
	ErrNotFound = errors.New("access grant not found")
)

type (
	Repository interface {
		GetGrant(ctx context.Context, userID, courseID string) (Grant, error)
		// UpsertGrant creates the grant or, if one exists for the same
		// (userID, courseID), overwrites its expiry.
		UpsertGrant(ctx context.Context, grant Grant) (Grant, error)
		QueryUserGrants(ctx context.Context, userID string) ([]Grant, error)
	}

	Service interface {
		// HasAccess reports whether userID holds an active grant on courseID.
		// A missing grant and an expired grant both report inactive.
		HasAccess(ctx context.Context, userID, courseID string) (Access, error)
		// GrantAccess upserts a grant; a nil until means perpetual access.
		GrantAccess(ctx context.Context, userID, courseID string, until *time.Time) (Grant, error)
		QueryUserGrants(ctx context.Context, userID string) ([]Grant, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) HasAccess(ctx context.Context, userID, courseID string) (Access, error) {
	grant, err := svc.repo.GetGrant(ctx, userID, courseID)
	if err != nil {
		if err == ErrNotFound {
			return Access{}, nil
		}
		return Access{}, err
	}
	return Access{
		Active:      grant.ActiveAt(core.NowFunc()),
		AccessUntil: grant.AccessUntil,
	}, nil
}

func (svc *service) GrantAccess(ctx context.Context, userID, courseID string, until *time.Time) (Grant, error) {
	grant := Grant{
		UserID:      userID,
		CourseID:    courseID,
		GrantedAt:   core.NowFunc(),
		AccessUntil: null.TimeFromPtr(until),
	}
	return svc.repo.UpsertGrant(ctx, grant)
}

func (svc *service) QueryUserGrants(ctx context.Context, userID string) ([]Grant, error) {
	return svc.repo.QueryUserGrants(ctx, userID)
}
