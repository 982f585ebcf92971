package main

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/access"
)

func (cli *commandLine) grantAccess(uname, courseID string, until *time.Time) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}

	grant, err := cli.accessRepo.UpsertGrant(ctx, access.Grant{
		UserID:      usr.ID,
		CourseID:    courseID,
		GrantedAt:   time.Now().UTC(),
		AccessUntil: null.TimeFromPtr(until),
	})
	if err != nil {
		return err
	}

	if grant.AccessUntil.Valid {
		logger.Printf("granted %s access to course %s until %s\n", usr.Username, courseID, grant.AccessUntil.Time.Format("2006-01-02"))
	} else {
		logger.Printf("granted %s perpetual access to course %s\n", usr.Username, courseID)
	}
	return nil
}
