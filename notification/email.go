package notification

import (
	"context"

	"careplatform/outbox-relay/config"

	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"
)

type mailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailSender delivers EMAIL notifications over SMTP, one connection per
// message.
type EmailSender struct {
	client mailClient
	from   string
}

func NewEmailSender(cfg *config.Config) (*EmailSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPass),
		)
	}

	c, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "notification: unable to create SMTP client")
	}

	return NewEmailSenderWithClient(c, cfg.SMTPFrom), nil
}

func NewEmailSenderWithClient(c mailClient, from string) *EmailSender {
	return &EmailSender{client: c, from: from}
}

func (s *EmailSender) Send(ctx context.Context, n *Notification) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return errors.Wrapf(err, "invalid sender address %q", s.from)
	}
	if err := m.To(n.Recipient); err != nil {
		return errors.Wrapf(err, "invalid recipient address %q", n.Recipient)
	}
	m.Subject(n.Subject)
	m.SetBodyString(mail.TypeTextPlain, n.Body)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return errors.Wrap(err, "smtp delivery failed")
	}

	return nil
}
