package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// sendMail is a seam for tests.
var sendMail = smtp.SendMail

// SMTPSink sends plain-text mail through an SMTP relay.
type SMTPSink struct {
	addr string
	from string
	auth smtp.Auth
	now  func() time.Time
}

// NewSMTPSink uses PLAIN auth when user is set.
func NewSMTPSink(addr, from, user, password string) *SMTPSink {
	s := &SMTPSink{addr: addr, from: from, now: time.Now}
	if s.from == "" {
		s.from = DefaultFrom
	}
	if user != "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		s.auth = smtp.PlainAuth("", user, password, host)
	}
	return s
}

func (s *SMTPSink) message(to string, downloadCount int64) []byte {
	headers := []string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"Date: " + s.now().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
	}
	body := strings.ReplaceAll(Body(downloadCount), "\n", "\r\n")
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body + "\r\n")
}

func (s *SMTPSink) Notify(ctx context.Context, email, fileRef string, downloadCount int64) error {
	if strings.ContainsAny(email, "\r\n") {
		return errors.New("invalid recipient address")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sendMail(s.addr, s.auth, s.from, []string{email}, s.message(email, downloadCount)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
