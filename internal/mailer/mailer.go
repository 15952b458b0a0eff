// Package mailer delivers plain-text notification emails.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// ErrNoRecipient is returned when a message has no address.
var ErrNoRecipient = errors.New("message has no recipient")

// Message is one outgoing email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	// Kind labels the message in metrics and logs, e.g. "approval".
	Kind string `json:"kind"`
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// BuildRaw renders msg as an RFC 2822 message.
func BuildRaw(from string, msg Message) []byte {
	var buf bytes.Buffer
	if from != "" {
		fmt.Fprintf(&buf, "From: %s\r\n", from)
	}
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	buf.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")

	encoded := base64.StdEncoding.EncodeToString([]byte(msg.Body))
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76] + "\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded + "\r\n")
	return buf.Bytes()
}

// GmailConfig configures the Gmail sender.
type GmailConfig struct {
	From    string
	Timeout time.Duration
	Limiter *rate.Limiter
}

// Gmail sends through the Gmail API as the authorized account.
type Gmail struct {
	messages *gmail.UsersMessagesService
	cfg      GmailConfig
}

// NewGmail builds the sender from client options carrying credentials.
func NewGmail(ctx context.Context, cfg GmailConfig, opts ...option.ClientOption) (*Gmail, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Gmail{messages: svc.Users.Messages, cfg: cfg}, nil
}

func (g *Gmail) Send(ctx context.Context, msg Message) (err error) {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	ctx, span := observability.StartClientSpan(ctx, "gmail", "send", attribute.String("mail.kind", msg.Kind))
	done := observability.ObserveCollaborator("gmail", "send")
	defer func() {
		done()
		observability.EndSpan(span, err)
	}()

	if g.cfg.Limiter != nil {
		if err = g.cfg.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	raw := base64.URLEncoding.EncodeToString(BuildRaw(g.cfg.From, msg))
	if _, err = g.messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	return nil
}

// Log writes messages to the application log instead of sending them.
type Log struct{}

func (Log) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	middleware.Logger.InfoContext(ctx, "email (log provider)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("kind", msg.Kind),
		slog.Int("body_bytes", len(msg.Body)),
	)
	return nil
}
