package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/mwalimu/elimika/apps/api/echo"
	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/access"
	"github.com/mwalimu/elimika/core/assessment"
	"github.com/mwalimu/elimika/core/certificate"
	"github.com/mwalimu/elimika/core/course"
	"github.com/mwalimu/elimika/core/progress"
	"github.com/mwalimu/elimika/core/user"
	emailsvc "github.com/mwalimu/elimika/services/email"
	logsvc "github.com/mwalimu/elimika/services/logger"
	notifysvc "github.com/mwalimu/elimika/services/notify"
	rendersvc "github.com/mwalimu/elimika/services/render"
	storesvc "github.com/mwalimu/elimika/services/store"
	"github.com/mwalimu/elimika/storage/database"
	sqlxrepos "github.com/mwalimu/elimika/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(db))
	accessSvc := access.NewService(sqlxrepos.NewAccessRepository(db))

	notifier := notifysvc.NewEmailNotifier(usrSvc, mailSvc, logger)
	progressSvc := progress.NewService(sqlxrepos.NewProgressRepository(db), courseSvc, notifier)
	assessmentSvc := assessment.NewService(sqlxrepos.NewAssessmentRepository(db), progressSvc, notifier)

	renderer, err := rendersvc.NewCertificateRenderer(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up certificate renderer: %v", err), err)
	}

	var storage certificate.Storage
	if conf.Storage.Provider == "gcs" {
		gcs, err := storesvc.NewGCSStorage(context.Background(), conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up GCS storage: %v", err), err)
		}
		defer func() { _ = gcs.Close() }()
		storage = gcs
	} else {
		storage = storesvc.NewLocalStorage(conf)
	}

	certSvc := certificate.NewService(
		sqlxrepos.NewCertificateRepository(db),
		renderer,
		storage,
		usrSvc,
		courseSvc,
		notifier,
		conf,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			UserSvc:       usrSvc,
			CourseSvc:     courseSvc,
			AccessSvc:     accessSvc,
			ProgressSvc:   progressSvc,
			AssessmentSvc: assessmentSvc,
			CertSvc:       certSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
