package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/course"
	"github.com/sonalink/sonalink/core/user"
	emailsvc "github.com/sonalink/sonalink/services/email"
	"github.com/sonalink/sonalink/services/filestore"
	logsvc "github.com/sonalink/sonalink/services/logger"
	"github.com/sonalink/sonalink/storage/database"
	sqlxrepos "github.com/sonalink/sonalink/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(false)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		std.Fatal(err)
	}
	db, err := database.Open(conf)
	if err != nil {
		std.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	// the CLI never uploads nor emails
	userSvc := user.NewService(
		database.NewTransactor(db),
		sqlxrepos.NewUserRepository(db),
		emailsvc.NewConsoleService(conf, logger),
		filestore.NewMemoryStore(conf.FrontendBaseURL),
		conf,
		logger,
	)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:         db.DB,
		usrSvc:     userSvc,
		courseSvc:  course.NewService(sqlxrepos.NewCourseRepository(db)),
		validate:   validate,
		translator: translator,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
