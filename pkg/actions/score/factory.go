package score

import "github.com/dukex/nurture/pkg/protocol"

// ActionFactory creates add_score actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) Create(deps protocol.Dependencies) (protocol.ActionHandler, error) {
	return NewAction(deps), nil
}

func (*ActionFactory) ID() string {
	return "add_score"
}

func (*ActionFactory) Name() string {
	return "Add Score"
}

func (*ActionFactory) Description() string {
	return "Adds (or, with negative points, removes) lead score points and records the change."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"points": map[string]any{
				"type":        "integer",
				"description": "Points to add; negative values subtract",
				"examples":    []int{10, -5},
			},
			"reason": map[string]any{
				"type":    "string",
				"default": defaultReason,
			},
		},
		"required": []string{"points"},
	}
}
