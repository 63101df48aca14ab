package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/academia/core"
)

const sendgridMaxRetries = 4

// sendFunc posts a message to the SendGrid v3 mail endpoint.
type sendFunc func(m *sgmail.SGMailV3) (*rest.Response, error)

// sendgridService delivers mails through SendGrid. Every mail is tagged with the app and its
// template so receipts and password resets can be told apart in the SendGrid activity feed.
type sendgridService struct {
	from       *sgmail.Email
	subjPrefix string
	category   string // app name
	env        string
	logger     core.Logger

	send       sendFunc
	newBackOff func() backoff.BackOff
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	client := sendgrid.NewSendClient(conf.SendgridApiKey)
	return &sendgridService{
		from:       sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		category:   conf.AppName,
		env:        conf.Env,
		logger:     logger,
		send:       client.Send,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			return backoff.WithMaxRetries(b, sendgridMaxRetries)
		},
	}
}

// SendMessages renders and delivers each message in its own goroutine.
func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go svc.deliver(msg)
	}
}

func (svc *sendgridService) deliver(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}
	if err := svc.post(svc.build(*msg)); err != nil {
		svc.logger.Error(fmt.Sprintf("sending email %q: %v", msg.TemplateName, err), err,
			map[string]interface{}{"template": msg.TemplateName, "recipients": len(msg.To) + len(msg.Cc) + len(msg.Bcc)})
	}
}

func sgEmails(addrs []mail.Address) []*sgmail.Email {
	emails := make([]*sgmail.Email, 0, len(addrs))
	for _, addr := range addrs {
		emails = append(emails, sgmail.NewEmail(addr.Name, addr.Address))
	}
	return emails
}

func (svc *sendgridService) build(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	p.AddTos(sgEmails(msg.To)...)
	p.AddCCs(sgEmails(msg.Cc)...)
	p.AddBCCs(sgEmails(msg.Bcc)...)
	p.SetCustomArg("env", svc.env)

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddCategories(svc.category)
	if msg.TemplateName != "" {
		m.AddCategories(msg.TemplateName)
	}

	// SendGrid wants text/plain before text/html
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	for _, at := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     at.Content.String(),
			Type:        at.ContentType,
			Filename:    at.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

// post sends m, retrying network errors, rate limits and 5xx answers.
func (svc *sendgridService) post(m *sgmail.SGMailV3) error {
	return backoff.Retry(func() error {
		res, err := svc.send(m)
		if err != nil {
			return errors.Wrap(err, "calling sendgrid")
		}
		switch {
		case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
			return errors.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
		case res.StatusCode >= http.StatusBadRequest:
			return backoff.Permanent(errors.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body))
		}
		return nil
	}, svc.newBackOff())
}
