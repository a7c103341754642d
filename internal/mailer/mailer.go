// Package mailer 负责邮件投递：发送器、队列以及后台投递 worker。
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	BackendLog  = "log"
	BackendSMTP = "smtp"
)

// Message is a single plain-text email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate checks the minimum fields needed for delivery.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("message recipient is empty")
	}
	if strings.TrimSpace(m.From) == "" {
		return errors.New("message sender is empty")
	}
	return nil
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger logrus.FieldLogger
}

// NewLogSender creates a sender that logs every message.
func NewLogSender(logger logrus.FieldLogger) *LogSender {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogSender{logger: logger}
}

// Send 将邮件内容输出到日志。
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"from":    msg.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Body,
	}).Info("mail delivered to log")
	return nil
}

// SenderOptions selects and configures a Sender.
type SenderOptions struct {
	Backend      string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	Logger       logrus.FieldLogger
}

// NewSender builds the sender for the configured backend.
func NewSender(opts SenderOptions) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendLog:
		return NewLogSender(opts.Logger), nil
	case BackendSMTP:
		return NewSMTPSender(opts.SMTPHost, opts.SMTPPort, opts.SMTPUsername, opts.SMTPPassword)
	default:
		return nil, fmt.Errorf("unsupported mail backend: %s", opts.Backend)
	}
}
