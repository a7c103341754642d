package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	addr string
	host string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates an SMTP sender. Authentication is skipped when no
// username is configured.
func NewSMTPSender(host string, port int, username, password string) (*SMTPSender, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	if port <= 0 {
		port = 587
	}
	var auth smtp.Auth
	if strings.TrimSpace(username) != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		host: host,
		auth: auth,
		send: smtp.SendMail,
	}, nil
}

// Send 发送邮件，ctx 取消时提前返回。
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	payload := buildMIME(msg, time.Now())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.send(s.addr, s.auth, msg.From, []string{msg.To}, payload)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", s.addr, err)
		}
		return nil
	}
}

func buildMIME(msg Message, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + sanitizeHeader(msg.From) + "\r\n")
	b.WriteString("To: " + sanitizeHeader(msg.To) + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(msg.Subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// 防止头部注入
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}
