package field

import (
	"sort"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/protocol"
)

// ActionFactory creates update_field actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) Create(deps protocol.Dependencies) (protocol.ActionHandler, error) {
	return NewAction(deps), nil
}

func (*ActionFactory) ID() string {
	return "update_field"
}

func (*ActionFactory) Name() string {
	return "Update Field"
}

func (*ActionFactory) Description() string {
	return "Sets, appends to, prepends to or clears a contact field. The value supports merge tags."
}

func (*ActionFactory) Schema() map[string]any {
	fields := make([]string, 0, len(models.UpdatableFields))
	for key := range models.UpdatableFields {
		fields = append(fields, key)
	}

	sort.Strings(fields)

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field": map[string]any{
				"type":        "string",
				"description": "Contact field to write",
				"enum":        fields,
			},
			"operation": map[string]any{
				"type":    "string",
				"default": string(OperationSet),
				"enum": []string{
					string(OperationSet), string(OperationAppend), string(OperationPrepend), string(OperationClear),
				},
			},
			"value": map[string]any{
				"type":        "string",
				"description": "New value. Supports merge tags.",
				"examples":    []string{"customer", "Bought {{order.number}} on {{current_date}}"},
			},
			"separator": map[string]any{
				"type":        "string",
				"description": "Glue for append and prepend",
				"default":     defaultSeparator,
			},
		},
		"required": []string{"field"},
	}
}
