// Package mail renders and delivers the notifications produced by job
// application submissions.
package mail

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Message is a rendered plain-text email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Transport delivers a rendered message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// LogTransport writes messages to the logger instead of sending them. It is
// the default for development.
type LogTransport struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	t.mu.Lock()
	t.sent = append(t.sent, msg)
	t.mu.Unlock()

	t.logger.Info("mail",
		slog.String("to", RedactEmail(msg.To)),
		slog.String("subject", msg.Subject),
		slog.Int("body_bytes", len(msg.Body)),
	)
	return nil
}

// Sent returns a copy of the messages handed to Send.
func (t *LogTransport) Sent() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.sent))
	copy(out, t.sent)
	return out
}

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}
