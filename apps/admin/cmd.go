package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/mwalimu/elimika/core/access"
	"github.com/mwalimu/elimika/core/certificate"
	"github.com/mwalimu/elimika/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	usrRepo    user.Repository
	accessRepo access.Repository
	certRepo   certificate.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createadmin -username USERNAME -email EMAIL           - create or promote an admin user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL                - reset user's password")
	fmt.Println("  grantaccess -username USERNAME|EMAIL -course COURSE_ID [-until YYYY-MM-DD] - grant course access")
	fmt.Println("  revokecert -id CERTIFICATE_ID                         - revoke a certificate")
	fmt.Println("  migrate COMMAND [ARGS...]                             - run a database migration command")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ExitOnError)
	createAdminUname := createAdminCmd.String("username", "", "The admin's username.")
	createAdminEmail := createAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	grantAccessCmd := flag.NewFlagSet("grantaccess", flag.ExitOnError)
	grantAccessUname := grantAccessCmd.String("username", "", "The user's username or email.")
	grantAccessCourse := grantAccessCmd.String("course", "", "The course ID.")
	grantAccessUntil := grantAccessCmd.String("until", "", "Access expiry date (YYYY-MM-DD). Perpetual when omitted.")

	revokeCertCmd := flag.NewFlagSet("revokecert", flag.ExitOnError)
	revokeCertID := revokeCertCmd.String("id", "", "The certificate ID.")

	switch args[1] {
	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminUname == "" || *createAdminEmail == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(*createAdminUname, *createAdminEmail, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "grantaccess":
		if err := grantAccessCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *grantAccessUname == "" || *grantAccessCourse == "" {
			grantAccessCmd.Usage()
			return errHelp
		}
		var until *time.Time
		if *grantAccessUntil != "" {
			t, err := time.Parse("2006-01-02", *grantAccessUntil)
			if err != nil {
				return err
			}
			until = &t
		}
		return cli.grantAccess(*grantAccessUname, *grantAccessCourse, until)
	case "revokecert":
		if err := revokeCertCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *revokeCertID == "" {
			revokeCertCmd.Usage()
			return errHelp
		}
		return cli.revokeCertificate(*revokeCertID)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
