package emailsvc

import (
	"fmt"

	"github.com/sonalink/sonalink/core"
)

// mailer holds what every adapter needs before handing a message to its transport.
type mailer struct {
	subjPrefix      string
	frontendBaseURL string
	logger          core.Logger
}

func newMailer(conf *core.Config, logger core.Logger) mailer {
	return mailer{
		subjPrefix:      "[" + conf.AppName + "] ",
		frontendBaseURL: conf.FrontendBaseURL,
		logger:          logger,
	}
}

// prepare renders msg from its template when needed and reports whether it can be delivered.
func (m mailer) prepare(msg *core.EmailMessage) bool {
	if !msg.HasContent() {
		if err := msg.Render(m.frontendBaseURL); err != nil {
			m.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.Subject, err), err)
			return false
		}
	}
	return msg.HasRecipients() && msg.HasContent()
}
