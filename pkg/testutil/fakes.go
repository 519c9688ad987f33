package testutil

import (
	"context"
	"sync"

	"github.com/dukex/nurture/pkg/models"
)

// RecordingEmitter captures emitted trigger events.
type RecordingEmitter struct {
	mu     sync.Mutex
	events []models.TriggerEvent
	Err    error
}

func (e *RecordingEmitter) EmitTrigger(_ context.Context, event models.TriggerEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Err != nil {
		return e.Err
	}

	e.events = append(e.events, event)

	return nil
}

// Events returns a copy of the captured events.
func (e *RecordingEmitter) Events() []models.TriggerEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]models.TriggerEvent(nil), e.events...)
}

// SentEmail is a message captured by RecordingEmailSender.
type SentEmail struct {
	To, Subject, Body string
}

type RecordingEmailSender struct {
	mu   sync.Mutex
	Sent []SentEmail
	Err  error
}

func (s *RecordingEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}

	s.Sent = append(s.Sent, SentEmail{To: to, Subject: subject, Body: body})

	return nil
}

// SentWhatsApp is a message captured by RecordingWhatsAppSender.
type SentWhatsApp struct {
	Phone, Message string
}

type RecordingWhatsAppSender struct {
	mu   sync.Mutex
	Sent []SentWhatsApp
	Err  error
}

func (s *RecordingWhatsAppSender) SendWhatsApp(_ context.Context, phone, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}

	s.Sent = append(s.Sent, SentWhatsApp{Phone: phone, Message: message})

	return nil
}
