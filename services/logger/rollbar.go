package logsvc

import (
	"log"
	"strconv"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/user"
)

// RollbarLogger reports to rollbar and mirrors every entry to a standard logger.
// Args may carry an error, a map[string]interface{} of extras and the acting user.User.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

// Enable toggles reporting; local output is unaffected.
func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// splitUser separates the first user.User from the rest of args.
func splitUser(args []interface{}) (*user.User, []interface{}) {
	var who *user.User
	rest := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if usr, ok := arg.(user.User); ok {
			if who == nil {
				who = &usr
			}
			continue
		}
		rest = append(rest, arg)
	}
	return who, rest
}

func (l RollbarLogger) log(level string, report func(...interface{}), msg string, args []interface{}) {
	who, rest := splitUser(args)
	if who != nil {
		rollbar.SetPerson(strconv.FormatInt(who.ID, 10), who.Name, who.Email)
	} else {
		rollbar.ClearPerson()
	}
	report(append([]interface{}{msg}, rest...)...)

	l.std.Printf("[%s] %s", level, msg)
	for _, arg := range rest {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.log("DEBUG", rollbar.Debug, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.log("INFO", rollbar.Info, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log("WARN", rollbar.Warning, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.log("ERROR", rollbar.Error, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log("FATAL", rollbar.Critical, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
