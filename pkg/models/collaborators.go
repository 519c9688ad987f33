package models

import "time"

type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag attachment sources.
const (
	TagSourceManual   = "manual"
	TagSourceWorkflow = "workflow"
)

// ContactTag associates a contact with a tag.
type ContactTag struct {
	ContactID string    `json:"contact_id"`
	TagID     string    `json:"tag_id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoreHistory is an append-only record of a lead score change.
type ScoreHistory struct {
	ID            string    `json:"id"`
	ContactID     string    `json:"contact_id"`
	Points        int       `json:"points"`
	PreviousScore int       `json:"previous_score"`
	NewScore      int       `json:"new_score"`
	Reason        string    `json:"reason"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"created_at"`
}

// Template channels.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// MessageTemplate is a stored message body used by the messaging actions.
type MessageTemplate struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Channel string `json:"channel"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

const UserRoleAdmin = "admin"

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Notification is an internal message delivered to a back-office user.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
