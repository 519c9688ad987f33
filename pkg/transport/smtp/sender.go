// Package smtp delivers send_email messages through an SMTP relay.
package smtp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

var ErrNoHost = errors.New("smtp host is required")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Addr returns host:port, defaulting the port to 587.
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = 587
	}

	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Sender implements protocol.EmailSender.
type Sender struct {
	config Config
	auth   smtp.Auth
	send   sendFunc
	now    func() time.Time
	logger *slog.Logger
}

func NewSender(config Config, logger *slog.Logger) (*Sender, error) {
	if config.Host == "" {
		return nil, ErrNoHost
	}

	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	return &Sender{
		config: config,
		auth:   auth,
		send:   smtp.SendMail,
		now:    time.Now,
		logger: logger.With("module", "smtp"),
	}, nil
}

func (s *Sender) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := s.message(to, subject, body)

	if err := s.send(s.config.Addr(), s.auth, s.config.From, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	s.logger.DebugContext(ctx, "Email sent", "to", to)

	return nil
}

// message renders an HTML message with CRLF line endings.
func (s *Sender) message(to, subject, body string) []byte {
	headers := []string{
		"From: " + s.config.From,
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"Date: " + s.now().UTC().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	body = strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n")

	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)
}
