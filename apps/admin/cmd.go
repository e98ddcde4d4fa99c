package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/course"
	"github.com/sonalink/sonalink/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	usrSvc     *user.Service
	courseSvc  *course.Service
	validate   *validator.Validate
	translator ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, create NAME sql, ...)")
	fmt.Println("  adduser -email EMAIL -name NAME - create a verified user (the password will be prompted)")
	fmt.Println("  resetpassword -email EMAIL - reset user's password")
	fmt.Println("  addcourse -code CODE -name NAME [-description DESC] - create a course")
}

// readPassword prompts for a password; an empty one prints the usage of fs.
func readPassword(fs *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

// describe flattens validation errors into a readable message.
func (cli *commandLine) describe(err error) error {
	verrs, ok := pkgerrors.Cause(err).(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := core.TranslateErrors(verrs, cli.translator)
	msgs := make([]string, 0, len(fields))
	for fld, msg := range fields {
		msgs = append(msgs, fld+": "+msg)
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	addCourseCmd := flag.NewFlagSet("addcourse", flag.ContinueOnError)
	addCourseCode := addCourseCmd.String("code", "", "The course code, e.g. CS101.")
	addCourseName := addCourseCmd.String("name", "", "The course name.")
	addCourseDesc := addCourseCmd.String("description", "", "An optional description.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := readPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.describe(cli.addUser(*addUserEmail, *addUserName, pwd))

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := readPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "addcourse":
		if err := addCourseCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addCourseCode == "" || *addCourseName == "" {
			addCourseCmd.Usage()
			return errHelp
		}
		return cli.describe(cli.addCourse(*addCourseCode, *addCourseName, *addCourseDesc))

	default:
		cli.printUsage()
		return errHelp
	}
}
