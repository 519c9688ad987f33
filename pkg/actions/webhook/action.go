// Package webhook provides the webhook action implementation.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/nurture/pkg/mergetag"
	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/protocol"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseBody = 64 << 10
	defaultEvent    = "workflow.webhook"
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// snapshotFields are the contact attributes included when include_contact is set.
var snapshotFields = []string{"id", "name", "email", "phone", "status", "city", "state", "country", "lead_score"}

// Action calls an external URL with a JSON description of the enrollment.
type Action struct {
	client    *http.Client
	mergeTags *mergetag.Engine
	logger    *slog.Logger
}

func NewAction(deps protocol.Dependencies) *Action {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	mergeTags := deps.MergeTags
	if mergeTags == nil {
		mergeTags = mergetag.NewEngine()
	}

	return &Action{
		client:    client,
		mergeTags: mergeTags,
		logger:    logger.With("module", "action", "action_type", "webhook"),
	}
}

func (a *Action) Execute(ctx context.Context, contact *models.Contact, config map[string]any, data map[string]any) (models.ActionResult, error) {
	target, err := validateURL(a.mergeTags.Resolve(models.ConfigString(config, "url"), data))
	if err != nil {
		return models.Failed("invalid webhook url: %v", err), nil
	}

	method := strings.ToUpper(models.ConfigString(config, "method"))
	if method == "" {
		method = http.MethodPost
	}

	if !allowedMethods[method] {
		return models.Failed("unsupported method %q", method), nil
	}

	payload, err := json.Marshal(a.buildPayload(contact, config, data))
	if err != nil {
		return models.Failed("failed to encode payload: %v", err), nil
	}

	var body io.Reader
	if method != http.MethodGet {
		body = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return models.Failed("failed to build request: %v", err), nil
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	for key, value := range models.ConfigMap(config, "headers") {
		req.Header.Set(key, a.mergeTags.Resolve(models.ValueString(value), data))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			a.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to read webhook response: %w", err)
	}

	a.logger.InfoContext(ctx, "webhook called", "url", target, "method", method, "status_code", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Failed("webhook returned status %d", resp.StatusCode).
			With("status_code", resp.StatusCode).
			With("body", string(respBody)), nil
	}

	return models.Succeeded("webhook returned status %d", resp.StatusCode).
		With("status_code", resp.StatusCode).
		With("body", string(respBody)), nil
}

func (a *Action) buildPayload(contact *models.Contact, config map[string]any, data map[string]any) map[string]any {
	event := models.ConfigString(config, "event")
	if event == "" {
		event = defaultEvent
	}

	payload := map[string]any{
		"event":         event,
		"workflow_id":   data[models.ContextWorkflowID],
		"enrollment_id": data[models.ContextEnrollmentID],
		"step_id":       data[models.ContextStepID],
		"contact_id":    contact.ID,
		"context":       enrollmentContext(data),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}

	if models.ConfigBool(config, "include_contact") {
		all := contact.ToMap()
		snapshot := make(map[string]any, len(snapshotFields))

		for _, field := range snapshotFields {
			snapshot[field] = all[field]
		}

		payload["contact"] = snapshot
	}

	if custom := models.ConfigMap(config, "payload"); custom != nil {
		payload["data"] = a.mergeTags.ResolveMap(custom, data)
	}

	return payload
}

// enrollmentContext is the data bag without the contact snapshot, which has its own opt-in key.
func enrollmentContext(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))

	for key, value := range data {
		if key != models.ContextContact {
			out[key] = value
		}
	}

	return out
}

func validateURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("scheme %q is not http or https", parsed.Scheme)
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("host is required")
	}

	return parsed.String(), nil
}
