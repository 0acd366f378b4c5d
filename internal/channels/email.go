package channels

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// EmailAdapter delivers notifications over SMTP.
type EmailAdapter struct {
	Host     string
	Port     int
	From     string
	Password string

	// sendFn is an injectable mail sender (for testing).
	sendFn func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailAdapter creates an SMTP email adapter.
func NewEmailAdapter(host string, port int, from, password string) *EmailAdapter {
	return &EmailAdapter{
		Host:     host,
		Port:     port,
		From:     from,
		Password: password,
		sendFn:   smtp.SendMail,
	}
}

func (e *EmailAdapter) Name() string { return "email" }

// Send delivers one message to the notification's address. smtp.SendMail
// has no context hook, so the dispatcher's timeout is enforced by racing
// the send against ctx.
func (e *EmailAdapter) Send(ctx context.Context, n *model.Notification) Result {
	if n.Address == "" {
		return Result{Error: "recipient has no email address"}
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		e.From, n.Address, n.Title, n.Body))
	auth := smtp.PlainAuth("", e.From, e.Password, e.Host)
	addr := fmt.Sprintf("%s:%d", e.Host, e.Port)

	done := make(chan error, 1)
	go func() {
		done <- e.sendFn(addr, auth, e.From, []string{n.Address}, msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true}
	case <-ctx.Done():
		return Result{Error: ctx.Err().Error()}
	}
}
