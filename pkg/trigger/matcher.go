// Package trigger maps domain events to workflow enrollments.
package trigger

import (
	"github.com/dukex/nurture/pkg/models"
)

// MatchesTriggerConditions reports whether an event's conditions satisfy a workflow's
// trigger_config. Only keys present on both sides are compared, with loose equality; blank
// config values match anything.
func MatchesTriggerConditions(config, conditions map[string]any) bool {
	for key, want := range config {
		if want == nil || models.ValueString(want) == "" {
			continue
		}

		got, ok := conditions[key]
		if !ok {
			continue
		}

		if !models.LooseEqual(want, got) {
			return false
		}
	}

	return true
}
