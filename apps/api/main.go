package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers the /debug/pprof handlers
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	echoapi "github.com/sonalink/sonalink/apps/api/echo"
	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/course"
	"github.com/sonalink/sonalink/core/forum"
	"github.com/sonalink/sonalink/core/material"
	"github.com/sonalink/sonalink/core/notification"
	"github.com/sonalink/sonalink/core/quiz"
	"github.com/sonalink/sonalink/core/search"
	"github.com/sonalink/sonalink/core/user"
	"github.com/sonalink/sonalink/services/cache"
	emailsvc "github.com/sonalink/sonalink/services/email"
	"github.com/sonalink/sonalink/services/filestore"
	logsvc "github.com/sonalink/sonalink/services/logger"
	"github.com/sonalink/sonalink/storage/database"
	sqlxrepos "github.com/sonalink/sonalink/storage/database/sqlx"
)

func newLogger(prefix string, conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	return logger
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	logger := newLogger("API", conf)
	dbLogger := newLogger("DB", conf)
	jobsLogger := newLogger("JOBS", conf)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up file store & cache
	var files core.FileStore
	if conf.Storage.Endpoint == "" {
		logger.Warn("no storage endpoint configured: files are kept in memory")
		files = filestore.NewMemoryStore(conf.FrontendBaseURL + "/files")
	} else if files, err = filestore.NewMinioStore(ctx, conf.Storage); err != nil {
		logger.Fatal(fmt.Sprintf("setting up file store: %v", err), err)
	}

	var suggestionCache core.Cache
	var redisClient *redis.Client
	if conf.Cache.Addr == "" {
		suggestionCache = cache.NewMemoryCache()
	} else if suggestionCache, redisClient, err = cache.NewRedisCache(ctx, conf.Cache); err != nil {
		logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
	}
	if redisClient != nil {
		defer func() {
			if err = redisClient.Close(); err != nil {
				logger.Error("closing redis client", err)
			}
		}()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	tx := database.NewTransactor(db)
	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(db))
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db))
	quizSvc := quiz.NewService(tx, sqlxrepos.NewQuizRepository(db), courseSvc, logger)
	forumSvc := forum.NewService(tx, sqlxrepos.NewForumRepository(db), courseSvc, notifSvc, logger)
	materialSvc := material.NewService(tx, sqlxrepos.NewMaterialRepository(db), files, courseSvc, conf, logger)
	userSvc := user.NewService(tx, sqlxrepos.NewUserRepository(db), mailSvc, files, conf, logger)
	searchSvc := search.NewService(sqlxrepos.NewSearchRepository(db), suggestionCache, conf, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator, conf.Auth.EmailDomain)
	quiz.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Jobs

	scheduler, err := startJobs(conf, quizSvc, notifSvc, jobsLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("scheduling jobs: %v", err), err)
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			UserSvc:         userSvc,
			CourseSvc:       courseSvc,
			MaterialSvc:     materialSvc,
			ForumSvc:        forumSvc,
			QuizSvc:         quizSvc,
			NotificationSvc: notifSvc,
			SearchSvc:       searchSvc,
			Validate:        validate,
			Translator:      translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	}

	// let running jobs finish
	<-scheduler.Stop().Done()

	// give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
	defer cancel()

	// asking listener to shutdown and shed load
	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

		if err = server.Close(); err != nil {
			logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
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

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
