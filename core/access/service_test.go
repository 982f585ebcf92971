package access_test

import (
	"context"
	"testing"
	"time"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/access"
	dummydb "github.com/mwalimu/elimika/storage/database/dummy"
)

func TestService_HasAccess(t *testing.T) {
	svc := access.NewService(dummydb.NewAccessRepository(dummydb.Open()))
	ctx := context.Background()

	now := time.Now().UTC()
	core.NowFunc = func() time.Time { return now }
	defer func() { core.NowFunc = func() time.Time { return time.Now().UTC() } }()

	future := now.Add(30 * 24 * time.Hour)
	past := now.Add(-time.Minute)

	seed := func(t *testing.T, userID string, until *time.Time) {
		t.Helper()
		if _, err := svc.GrantAccess(ctx, userID, "crs1", until); err != nil {
			t.Fatalf("GrantAccess() failed, %v", err)
		}
	}
	seed(t, "u-perpetual", nil)
	seed(t, "u-future", &future)
	seed(t, "u-expired", &past)

	tests := []struct {
		name       string
		userID     string
		courseID   string
		wantActive bool
	}{
		{name: "no grant", userID: "u-none", courseID: "crs1"},
		{name: "grant on another course", userID: "u-perpetual", courseID: "crs2"},
		{name: "perpetual grant", userID: "u-perpetual", courseID: "crs1", wantActive: true},
		{name: "bounded grant in the future", userID: "u-future", courseID: "crs1", wantActive: true},
		{name: "expired grant", userID: "u-expired", courseID: "crs1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := svc.HasAccess(ctx, tt.userID, tt.courseID)
			if err != nil {
				t.Fatalf("HasAccess() failed, %v", err)
			}
			if acc.Active != tt.wantActive {
				t.Errorf("HasAccess() active = %v, want %v", acc.Active, tt.wantActive)
			}
		})
	}
}

func TestService_HasAccess_expiryIsEvaluatedAtReadTime(t *testing.T) {
	svc := access.NewService(dummydb.NewAccessRepository(dummydb.Open()))
	ctx := context.Background()

	defer func() { core.NowFunc = func() time.Time { return time.Now().UTC() } }()

	now := time.Now().UTC()
	core.NowFunc = func() time.Time { return now }

	until := now.Add(time.Hour)
	if _, err := svc.GrantAccess(ctx, "usr", "crs", &until); err != nil {
		t.Fatalf("GrantAccess() failed, %v", err)
	}

	acc, err := svc.HasAccess(ctx, "usr", "crs")
	if err != nil {
		t.Fatalf("HasAccess() failed, %v", err)
	}
	if !acc.Active {
		t.Error("expected access to be active before expiry")
	}

	// the clock passes the expiry; the row is untouched
	core.NowFunc = func() time.Time { return now.Add(2 * time.Hour) }

	acc, err = svc.HasAccess(ctx, "usr", "crs")
	if err != nil {
		t.Fatalf("HasAccess() failed, %v", err)
	}
	if acc.Active {
		t.Error("expected access to be inactive after expiry")
	}
	if !acc.AccessUntil.Valid || !acc.AccessUntil.Time.Equal(until) {
		t.Errorf("expected expired grant row to be kept, got %+v", acc.AccessUntil)
	}
}

func TestService_GrantAccess_overwritesExpiry(t *testing.T) {
	repo := dummydb.NewAccessRepository(dummydb.Open())
	svc := access.NewService(repo)
	ctx := context.Background()

	until := time.Now().UTC().Add(time.Hour)
	if _, err := svc.GrantAccess(ctx, "usr", "crs", &until); err != nil {
		t.Fatalf("GrantAccess() failed, %v", err)
	}
	// re-grant as perpetual
	if _, err := svc.GrantAccess(ctx, "usr", "crs", nil); err != nil {
		t.Fatalf("GrantAccess() failed, %v", err)
	}

	grants, err := svc.QueryUserGrants(ctx, "usr")
	if err != nil {
		t.Fatalf("QueryUserGrants() failed, %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("expected a single grant per (user, course), got %d", len(grants))
	}
	if grants[0].AccessUntil.Valid {
		t.Errorf("expected perpetual grant, got until %v", grants[0].AccessUntil.Time)
	}
}
