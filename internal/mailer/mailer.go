package mailer

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"cyberlab/internal/logs"
)

// Options — параметры SMTP. Пустой Host означает «доставка отключена»,
// New тогда возвращает nil.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTP — почтовый транспорт поверх go-mail. Соединение открывается на
// каждую отправку, сервис не держит долгоживущих сессий.
type SMTP struct {
	opts Options
}

func New(opts Options) *SMTP {
	if opts.Host == "" {
		return nil
	}
	if opts.Port == 0 {
		opts.Port = 587
	}
	if opts.From == "" {
		opts.From = opts.User
	}
	return &SMTP{opts: opts}
}

func (s *SMTP) client() (*gomail.Client, error) {
	copts := []gomail.Option{
		gomail.WithPort(s.opts.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if s.opts.User != "" {
		copts = append(copts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.opts.User),
			gomail.WithPassword(s.opts.Password),
		)
	}
	return gomail.NewClient(s.opts.Host, copts...)
}

// Send отправляет простое текстовое письмо.
func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.opts.From); err != nil {
		return fmt.Errorf("mailer: from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mailer: to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	c, err := s.client()
	if err != nil {
		return fmt.Errorf("mailer: client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	logs.Component("mailer").WithField("to", to).Debug("mail sent")
	return nil
}

// SendCode — письмо с одноразовым кодом входа.
func (s *SMTP) SendCode(ctx context.Context, email, code string) error {
	body := fmt.Sprintf(
		"Your verification code is: %s\n\nThe code expires in 5 minutes. "+
			"If you did not request it, ignore this message.\n", code)
	return s.Send(ctx, email, "Your login verification code", body)
}
