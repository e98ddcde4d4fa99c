package emailsvc

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
)

var (
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

// ResetSentMessages empties the outbox of the console services.
func ResetSentMessages() {
	mu.Lock()
	SentMessages = SentMessages[:0]
	mu.Unlock()
}

// LastSentMessage returns the newest message of the console outbox.
func LastSentMessage() (core.EmailMessage, bool) {
	mu.Lock()
	defer mu.Unlock()
	if len(SentMessages) == 0 {
		return core.EmailMessage{}, false
	}
	return SentMessages[len(SentMessages)-1], true
}

type consoleService struct {
	mailer
	from   mail.Address
	quiet  bool
	inline bool
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService prints emails to the standard logger instead of sending them.
func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{mailer: newMailer(conf, logger), from: conf.DefaultFromEmail}
}

// NewConsoleServiceMock records emails synchronously without printing them.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{mailer: newMailer(conf, logger), from: conf.DefaultFromEmail, quiet: true, inline: true}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.inline {
			svc.deliver(msg)
		} else {
			go svc.deliver(msg)
		}
	}
}

func (svc consoleService) deliver(msg *core.EmailMessage) {
	if !svc.prepare(msg) {
		return
	}
	if !svc.quiet {
		raw, err := svc.format(*msg)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("%+v", err), err)
			return
		}
		log.Println(raw)
	}
	mu.Lock()
	SentMessages = append(SentMessages, *msg)
	mu.Unlock()
}

// format renders msg as a multipart/alternative MIME message.
func (svc consoleService) format(msg core.EmailMessage) (string, error) {
	to := make([]string, len(msg.To))
	for i, a := range msg.To {
		to[i] = a.String()
	}

	var b strings.Builder
	parts := multipart.NewWriter(&b)
	headers := [][2]string{
		{"From", svc.from.String()},
		{"To", strings.Join(to, ", ")},
		{"Subject", svc.subjPrefix + msg.Subject},
		{"Date", time.Now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + parts.Boundary()},
	}
	for _, h := range headers {
		b.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	b.WriteString("\r\n")

	bodies := [][2]string{{"text/plain", msg.TextContent}, {"text/html", msg.HTMLContent}}
	for _, body := range bodies {
		if body[1] == "" {
			continue
		}
		w, err := parts.CreatePart(textproto.MIMEHeader{"Content-Type": {body[0]}})
		if err != nil {
			return "", errors.Wrapf(err, "creating %s part", body[0])
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", body[1])
	}
	if err := parts.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart body")
	}
	return b.String(), nil
}
