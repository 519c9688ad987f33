package smtp

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/dukex/nurture/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender_RequiresHost(t *testing.T) {
	_, err := NewSender(Config{}, log.Discard())
	require.ErrorIs(t, err, ErrNoHost)
}

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, "mail.example.com:587", Config{Host: "mail.example.com"}.Addr())
	assert.Equal(t, "mail.example.com:25", Config{Host: "mail.example.com", Port: 25}.Addr())
}

func TestSender_SendEmail(t *testing.T) {
	sender, err := NewSender(Config{
		Host:     "mail.example.com",
		Port:     2525,
		Username: "user",
		Password: "secret",
		From:     "school@example.com",
	}, log.Discard())
	require.NoError(t, err)

	sender.now = func() time.Time { return time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC) }

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)

	sender.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)

		assert.NotNil(t, auth)
		assert.Equal(t, "school@example.com", from)

		return nil
	}

	require.NoError(t, sender.SendEmail(context.Background(), "maria@example.com", "Bem-vinda, Maria", "line one\nline two"))

	assert.Equal(t, "mail.example.com:2525", gotAddr)
	assert.Equal(t, []string{"maria@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: maria@example.com\r\n")
	assert.Contains(t, gotMsg, "Subject: Bem-vinda, Maria\r\n")
	assert.Contains(t, gotMsg, "Date: Thu, 15 Jan 2026 14:30:00 +0000\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html; charset=UTF-8\r\n\r\nline one\r\nline two")
}

func TestSender_SendEmailWrapsErrors(t *testing.T) {
	sender, err := NewSender(Config{Host: "mail.example.com"}, log.Discard())
	require.NoError(t, err)

	assert.Nil(t, sender.auth)

	refused := errors.New("connection refused")
	sender.send = func(string, smtp.Auth, string, []string, []byte) error { return refused }

	err = sender.SendEmail(context.Background(), "maria@example.com", "Hi", "body")
	require.ErrorIs(t, err, refused)
	assert.Contains(t, err.Error(), "maria@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sender.SendEmail(ctx, "maria@example.com", "Hi", "body"), context.Canceled)
}
