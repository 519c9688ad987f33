// Package protocol defines the interfaces and contracts for pluggable action handlers and
// the collaborators the engine talks to.
package protocol

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukex/nurture/pkg/mergetag"
	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
)

// ActionHandler executes one action type. Expected failures (missing config, not-found
// lookups, rejected requests) are reported as ActionResult{Success: false}; only transient
// faults are returned as errors.
type ActionHandler interface {
	Execute(ctx context.Context, contact *models.Contact, config map[string]any, data map[string]any) (models.ActionResult, error)
}

// ActionFactory creates handler instances and describes the action type.
type ActionFactory interface {
	// Create builds the handler with its collaborators
	Create(deps Dependencies) (ActionHandler, error)

	// ID returns the action_type key this factory serves
	ID() string

	Name() string

	Description() string

	// Schema returns the JSON schema of the step config
	Schema() map[string]any
}

// Dependencies carries every collaborator a handler may need. Handlers take what they use.
type Dependencies struct {
	Logger        *slog.Logger
	Contacts      persistence.ContactRepository
	Tags          persistence.TagRepository
	Scores        persistence.ScoreRepository
	Templates     persistence.TemplateRepository
	Users         persistence.UserRepository
	MergeTags     *mergetag.Engine
	Email         EmailSender
	WhatsApp      WhatsAppSender
	HTTPClient    *http.Client
	Events        TriggerEmitter
	DefaultRegion string
}
