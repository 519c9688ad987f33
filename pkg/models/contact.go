package models

import (
	"strings"
	"time"
)

// UpdatableFields is the allow-list of contact attributes workflows may write.
var UpdatableFields = map[string]bool{
	"status":      true,
	"notes":       true,
	"address":     true,
	"city":        true,
	"state":       true,
	"postal_code": true,
	"country":     true,
}

// Contact is the person (student) a workflow runs for.
type Contact struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"                   validate:"omitempty,email"`
	Phone        string         `json:"phone"`
	Status       string         `json:"status"`
	Notes        string         `json:"notes"`
	Address      string         `json:"address"`
	City         string         `json:"city"`
	State        string         `json:"state"`
	PostalCode   string         `json:"postal_code"`
	Country      string         `json:"country"`
	LeadScore    int            `json:"lead_score"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// FirstName returns the first word of the contact name.
func (c *Contact) FirstName() string {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ""
	}

	return strings.Fields(name)[0]
}

// ToMap flattens the contact into the attribute bag used by path lookups, merge tags and
// webhook snapshots. Custom fields are reachable both nested and at the top level when
// they do not shadow a built-in attribute.
func (c *Contact) ToMap() map[string]any {
	values := map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"first_name":  c.FirstName(),
		"email":       c.Email,
		"phone":       c.Phone,
		"status":      c.Status,
		"notes":       c.Notes,
		"address":     c.Address,
		"city":        c.City,
		"state":       c.State,
		"postal_code": c.PostalCode,
		"country":     c.Country,
		"lead_score":  c.LeadScore,
		"score":       c.LeadScore,
	}

	custom := make(map[string]any, len(c.CustomFields))
	for key, value := range c.CustomFields {
		custom[key] = value
		if _, exists := values[key]; !exists {
			values[key] = value
		}
	}

	values["custom_fields"] = custom

	return values
}

// Field looks up an attribute by dotted path, e.g. "custom_fields.plan" or "address".
func (c *Contact) Field(path string) (any, bool) {
	return Lookup(c.ToMap(), path)
}

// SetField writes an allow-listed attribute. It reports false for any other key.
func (c *Contact) SetField(key, value string) bool {
	switch key {
	case "status":
		c.Status = value
	case "notes":
		c.Notes = value
	case "address":
		c.Address = value
	case "city":
		c.City = value
	case "state":
		c.State = value
	case "postal_code":
		c.PostalCode = value
	case "country":
		c.Country = value
	default:
		return false
	}

	return true
}
