package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/course"
	"github.com/sonalink/sonalink/core/user"
	emailsvc "github.com/sonalink/sonalink/services/email"
	"github.com/sonalink/sonalink/services/filestore"
	dummydb "github.com/sonalink/sonalink/storage/database/dummy"
	testutil "github.com/sonalink/sonalink/tests"
)

const strongPwd = "Quantum#Leap42"

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string   // typed at the prompt
	wantErr    error
	wantErrStr string
}

func setup(t *testing.T) (*commandLine, user.Repository) {
	t.Helper()
	conf := core.NewTestConfig()
	logger := new(testutil.Logger)
	user.LoadCommonPasswords(logger)

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	// set up DB & repos
	db := dummydb.Open()
	users := dummydb.NewUserRepository(db)
	userSvc := user.NewService(
		dummydb.NewTransactor(db),
		users,
		emailsvc.NewConsoleServiceMock(conf, logger),
		filestore.NewMemoryStore("http://files.test"),
		conf,
		logger,
	)

	// start CLI
	return &commandLine{
		usrSvc:     userSvc,
		courseSvc:  course.NewService(dummydb.NewCourseRepository(db)),
		validate:   validate,
		translator: translator,
	}, users
}

func (cli *commandLine) runTests(t *testing.T, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd := tt.pwd
			readPasswordFunc = func(fd int) ([]byte, error) {
				return []byte(pwd), nil
			}

			err := cli.run(append([]string{"admin"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	cli.runTests(t, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "quiz_reminders", "sql"}},
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli, users := setup(t)

	cli.runTests(t, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "name missing", args: []string{"adduser", "-email", "admin@sona.ac.in"}, wantErr: errHelp},
		{name: "password missing", args: []string{"adduser", "-email", "admin@sona.ac.in", "-name", "Admin"}, wantErr: errHelp},
		{
			name: "invalid email", args: []string{"adduser", "-email", "admin", "-name", "Admin"}, pwd: strongPwd,
			wantErrStr: `invalid email "admin"`,
		},
		{name: "create", args: []string{"adduser", "-email", " Admin@Sona.ac.in", "-name", "Admin"}, pwd: strongPwd},
		{
			name: "email taken", args: []string{"adduser", "-email", "admin@sona.ac.in", "-name", "Admin"}, pwd: strongPwd,
			wantErr: user.ErrEmailExists,
		},
	})

	usr, err := users.GetUserByEmail(context.Background(), "admin@sona.ac.in")
	require.NoError(t, err)
	assert.True(t, usr.IsVerified)
	assert.NoError(t, usr.CheckPassword(strongPwd))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, users := setup(t)
	usr := testutil.CreateUser(t, users, "Anu", "anu@sona.ac.in", strongPwd, true)
	newPwd := "Another#Pass77"

	cli.runTests(t, []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "anu@sona.ac.in"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@sona.ac.in"}, pwd: newPwd, wantErr: user.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-email", "anu@sona.ac.in"}, pwd: "12345678", wantErrStr: "password cannot be entirely numeric"},
		{name: "reset", args: []string{"resetpassword", "-email", "ANU@sona.ac.in"}, pwd: newPwd},
	})

	refreshed, err := users.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword(newPwd))
}

func Test_commandLine_addCourse(t *testing.T) {
	cli, _ := setup(t)

	cli.runTests(t, []cliTest{
		{name: "no args", args: []string{"addcourse"}, wantErr: errHelp},
		{name: "name missing", args: []string{"addcourse", "-code", "CS101"}, wantErr: errHelp},
		{
			name: "invalid code", args: []string{"addcourse", "-code", "CS 101", "-name", "Programming"},
			wantErrStr: "code: only alphanumeric characters and underscores are allowed",
		},
		{name: "create", args: []string{"addcourse", "-code", "cs101", "-name", "Programming", "-description", "Intro to Go"}},
		{name: "code taken", args: []string{"addcourse", "-code", "CS101", "-name", "Other"}, wantErr: course.ErrCodeExists},
	})

	courses, err := cli.courseSvc.List(context.Background(), 0)
	require.NoError(t, err)
	if assert.Len(t, courses, 1) {
		assert.Equal(t, "CS101", courses[0].Code)
	}
}
