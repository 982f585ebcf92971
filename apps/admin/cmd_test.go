package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/mwalimu/elimika/core/access"
	"github.com/mwalimu/elimika/core/certificate"
	"github.com/mwalimu/elimika/core/user"
	dummydb "github.com/mwalimu/elimika/storage/database/dummy"
)

var (
	usrRepo    user.Repository
	accessRepo access.Repository
	certRepo   certificate.Repository
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	db := dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)
	accessRepo = dummydb.NewAccessRepository(db)
	certRepo = dummydb.NewCertificateRepository(db)

	return &commandLine{
		db:         &sqlx.DB{},
		usrRepo:    usrRepo,
		accessRepo: accessRepo,
		certRepo:   certRepo,
	}
}

func createUser(t *testing.T, uname, email, pwd string) user.User {
	t.Helper()

	isActive := true
	usr := user.User{
		Username: uname,
		Email:    email,
		IsActive: &isActive,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed, %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed, %v", err)
	}
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	migrateRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires VERSION", command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create requires NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create requires NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to requires VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := createUser(t, "awe", "awe@test.cd", "mdr")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_createAdmin(t *testing.T) {
	cli := setup(t)

	existing := createUser(t, "kitoko", "kitoko@test.cd", "mdr")

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cr3t"), nil }

	t.Run("missing flags", func(t *testing.T) {
		if err := cli.run([]string{"admin", "createadmin", "-username", "boss"}); err != errHelp {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
		}
	})

	t.Run("creates new admin", func(t *testing.T) {
		if err := cli.run([]string{"admin", "createadmin", "-username", "boss", "-email", "boss@test.cd"}); err != nil {
			t.Fatalf("cli.run() failed, %v", err)
		}
		usr, err := usrRepo.GetUserByUsername(context.Background(), "boss")
		if err != nil {
			t.Fatalf("GetUserByUsername() failed, %v", err)
		}
		if !usr.IsAdmin() {
			t.Errorf("expected admin roles, got %v", usr.Roles)
		}
		if usr.IsActive == nil || !*usr.IsActive {
			t.Error("expected created admin to be active")
		}
	})

	t.Run("promotes existing user", func(t *testing.T) {
		if err := cli.run([]string{"admin", "createadmin", "-username", existing.Username, "-email", existing.Email}); err != nil {
			t.Fatalf("cli.run() failed, %v", err)
		}
		usr, err := usrRepo.GetUserByID(context.Background(), existing.ID)
		if err != nil {
			t.Fatalf("GetUserByID() failed, %v", err)
		}
		if !usr.IsAdmin() {
			t.Errorf("expected admin roles, got %v", usr.Roles)
		}
		if bytes.Equal(usr.PasswordHash, existing.PasswordHash) {
			t.Error("failed to update password")
		}
	})
}

func Test_commandLine_grantAccess(t *testing.T) {
	cli := setup(t)

	usr := createUser(t, "eleve", "eleve@test.cd", "mdr")
	courseID := "7e57ed-c0ffee"

	tests := []cliTest{
		{name: "no args", args: []string{"grantaccess"}, wantErr: errHelp},
		{name: "missing course", args: []string{"grantaccess", "-username", usr.Username}, wantErr: errHelp},
		{name: "user not found", args: []string{"grantaccess", "-username", "lol", "-course", courseID}, wantErr: user.ErrNotFound},
		{name: "bad until date", args: []string{"grantaccess", "-username", usr.Username, "-course", courseID, "-until", "lol"}, wantErrStr: `parsing time "lol" as "2006-01-02": cannot parse "lol" as "2006"`},
		{name: "perpetual grant", args: []string{"grantaccess", "-username", usr.Username, "-course", courseID}},
		{name: "bounded grant overwrites", args: []string{"grantaccess", "-username", usr.Username, "-course", courseID, "-until", "2030-01-01"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				grant, err := accessRepo.GetGrant(context.Background(), usr.ID, courseID)
				if err != nil {
					t.Fatalf("GetGrant() failed, %v", err)
				}
				if grant.UserID != usr.ID || grant.CourseID != courseID {
					t.Errorf("unexpected grant %+v", grant)
				}
			} else if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			} else if tt.wantErrStr != "" {
				if err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
				}
			} else {
				t.Errorf("cli.run() unexpected error = %v", err)
			}
		})
	}

	// overwrites keep a single grant per (user, course)
	grants, err := accessRepo.QueryUserGrants(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("QueryUserGrants() failed, %v", err)
	}
	if len(grants) != 1 {
		t.Errorf("expected 1 grant, got %d", len(grants))
	}
	if !grants[0].AccessUntil.Valid {
		t.Error("expected bounded grant after overwrite")
	}
}

func Test_commandLine_revokeCertificate(t *testing.T) {
	cli := setup(t)

	cert, err := certRepo.CreateCertificate(context.Background(), certificate.Certificate{
		Code:     "AB12-CD34-EF56",
		UserID:   "u1",
		CourseID: "c1",
		Valid:    true,
	})
	if err != nil {
		t.Fatalf("CreateCertificate() failed, %v", err)
	}

	tests := []cliTest{
		{name: "no args", args: []string{"revokecert"}, wantErr: errHelp},
		{name: "not found", args: []string{"revokecert", "-id", "lol"}, wantErr: certificate.ErrNotFound},
		{name: "revokes", args: []string{"revokecert", "-id", cert.ID}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := certRepo.GetCertificateByID(context.Background(), cert.ID)
				if err != nil {
					t.Fatalf("GetCertificateByID() failed, %v", err)
				}
				if refreshed.Valid {
					t.Error("expected certificate to be invalid after revoke")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
