package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Message is a single outbound notification.
type Message struct {
	To      string
	Subject string // ignored by SMS senders
	Body    string
}

// Sender delivers messages through one vendor and returns the vendor's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// LogSender writes messages to the log instead of delivering them. It is
// meant for local development.
type LogSender struct {
	Channel string
	log     logrus.FieldLogger
}

// NewLogSender creates a LogSender for a channel.
func NewLogSender(channel string, log logrus.FieldLogger) *LogSender {
	return &LogSender{Channel: channel, log: log}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, msg Message) (string, error) {
	id := fmt.Sprintf("log-%s", uuid.New().String())
	s.log.WithFields(logrus.Fields{
		"channel":   s.Channel,
		"to":        msg.To,
		"subject":   msg.Subject,
		"messageId": id,
	}).Info(msg.Body)
	return id, nil
}
