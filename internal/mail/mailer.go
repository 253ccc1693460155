package mail

import (
	"context"
	"log"

	gomail "github.com/wneessen/go-mail"

	"github.com/quizdeck/quizdeck/internal/config"
)

type Message struct {
	To      []string
	Subject string
	Body    string
	HTML    bool
}

// Sender delivers outbound mail. The service treats it as a fire-and-forget
// sink: callers go through Dispatch and never see delivery errors.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatch sends in the background and swallows failures with a log line. A
// lost reminder or reset mail must never fail the request that triggered it.
func Dispatch(s Sender, msg Message) {
	go func() {
		if err := s.Send(context.Background(), msg); err != nil {
			log.Printf("mail delivery failed (subject=%q): %v", msg.Subject, err)
		}
	}()
}

type SMTPSender struct {
	cfg config.Config
}

func NewSMTPSender(cfg config.Config) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.MailFrom); err != nil {
		return err
	}
	if err := m.To(msg.To...); err != nil {
		return err
	}
	m.Subject(msg.Subject)
	if msg.HTML {
		m.SetBodyString(gomail.TypeTextHTML, msg.Body)
	} else {
		m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	}

	client, err := gomail.NewClient(s.cfg.SMTPHost,
		gomail.WithPort(s.cfg.SMTPPort),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.SMTPUser),
		gomail.WithPassword(s.cfg.SMTPPass),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, m)
}

// NoopSender drops mail on the floor; used when SMTP is not configured and
// in tests.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) error {
	return nil
}
