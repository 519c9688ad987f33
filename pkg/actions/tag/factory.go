package tag

import "github.com/dukex/nurture/pkg/protocol"

func tagSchema(description string) map[string]any {
	return map[string]any{
		"type":        "object",
		"description": description,
		"properties": map[string]any{
			"tag_id": map[string]any{
				"type":        "string",
				"description": "Identifier of an existing tag",
			},
			"tag_name": map[string]any{
				"type":        "string",
				"description": "Tag name, used when tag_id is not set",
				"examples":    []string{"customer", "vip"},
			},
		},
		"anyOf": []map[string]any{
			{"required": []string{"tag_id"}},
			{"required": []string{"tag_name"}},
		},
	}
}

// AddActionFactory creates AddAction instances.
type AddActionFactory struct{}

func NewAddActionFactory() *AddActionFactory {
	return &AddActionFactory{}
}

func (*AddActionFactory) Create(deps protocol.Dependencies) (protocol.ActionHandler, error) {
	return NewAddAction(deps), nil
}

func (*AddActionFactory) ID() string {
	return "add_tag"
}

func (*AddActionFactory) Name() string {
	return "Add Tag"
}

func (*AddActionFactory) Description() string {
	return "Adds a tag to the contact. Tags referenced by name are created when missing."
}

func (*AddActionFactory) Schema() map[string]any {
	return tagSchema("Tag to add")
}

// RemoveActionFactory creates RemoveAction instances.
type RemoveActionFactory struct{}

func NewRemoveActionFactory() *RemoveActionFactory {
	return &RemoveActionFactory{}
}

func (*RemoveActionFactory) Create(deps protocol.Dependencies) (protocol.ActionHandler, error) {
	return NewRemoveAction(deps), nil
}

func (*RemoveActionFactory) ID() string {
	return "remove_tag"
}

func (*RemoveActionFactory) Name() string {
	return "Remove Tag"
}

func (*RemoveActionFactory) Description() string {
	return "Removes a tag from the contact."
}

func (*RemoveActionFactory) Schema() map[string]any {
	return tagSchema("Tag to remove")
}
