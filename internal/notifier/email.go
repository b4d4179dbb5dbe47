package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailChannel delivers notifications over SMTP. Used by branches
// where customers register an email instead of a messaging app.
type EmailChannel struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailChannel(cfg EmailConfig) *EmailChannel {
	return &EmailChannel{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (e *EmailChannel) Send(ctx context.Context, recipient, text string) (string, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", "Queue update")
	m.SetBody("text/plain", text)

	done := make(chan error, 1)
	go func() {
		done <- e.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return "", &ChannelError{Channel: "email", Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			return "", &ChannelError{Channel: "email", Err: err}
		}
	}

	// SMTP has no delivery id, so synthesize one for the send record.
	return fmt.Sprintf("email-%s-%d", uuid.New().String()[:8], time.Now().Unix()), nil
}
