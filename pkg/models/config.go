package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ConfigString reads a config value as a trimmed string. Numbers are rendered without
// trailing zeros.
func ConfigString(config map[string]any, key string) string {
	value, ok := config[key]
	if !ok || value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// ConfigInt reads a config value as an int, accepting JSON numbers and numeric strings.
func ConfigInt(config map[string]any, key string, fallback int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fallback
		}

		return int(parsed)
	default:
		return fallback
	}
}

func ConfigBool(config map[string]any, key string) bool {
	switch v := config[key].(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))

		return err == nil && parsed
	case float64:
		return v != 0
	default:
		return false
	}
}

// ConfigStrings reads a list value. A single scalar becomes a one-element list.
func ConfigStrings(config map[string]any, key string) []string {
	var list []string

	switch v := config[key].(type) {
	case []string:
		list = v
	case []any:
		for _, item := range v {
			list = append(list, ConfigString(map[string]any{"v": item}, "v"))
		}
	case nil:
		return nil
	default:
		list = []string{ConfigString(config, key)}
	}

	values := make([]string, 0, len(list))
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			values = append(values, item)
		}
	}

	return values
}

// ConfigMap reads a nested object.
func ConfigMap(config map[string]any, key string) map[string]any {
	switch v := config[key].(type) {
	case map[string]any:
		return v
	case map[string]string:
		values := make(map[string]any, len(v))
		for k, item := range v {
			values[k] = item
		}

		return values
	default:
		return nil
	}
}

// ConditionConfig is the typed form of a condition step config.
type ConditionConfig struct {
	Field    string
	Operator string
	Value    any
}

func ParseConditionConfig(config map[string]any) ConditionConfig {
	return ConditionConfig{
		Field:    ConfigString(config, "field"),
		Operator: ConfigString(config, "operator"),
		Value:    config["value"],
	}
}

type DelayUnit string

const (
	DelayUnitMinutes DelayUnit = "minutes"
	DelayUnitHours   DelayUnit = "hours"
	DelayUnitDays    DelayUnit = "days"
	DelayUnitWeeks   DelayUnit = "weeks"
)

var unitSeconds = map[DelayUnit]int{
	DelayUnitMinutes: 60,
	DelayUnitHours:   3600,
	DelayUnitDays:    86400,
	DelayUnitWeeks:   604800,
}

// DelayConfig is the typed form of a delay step config.
type DelayConfig struct {
	Delay int
	Unit  DelayUnit
}

// ParseDelayConfig applies the defaults: one unit, hours when the unit is missing or unknown.
func ParseDelayConfig(config map[string]any) DelayConfig {
	unit := DelayUnit(strings.ToLower(ConfigString(config, "unit")))
	if _, ok := unitSeconds[unit]; !ok {
		unit = DelayUnitHours
	}

	return DelayConfig{
		Delay: ConfigInt(config, "delay", 1),
		Unit:  unit,
	}
}

func (c DelayConfig) Seconds() int {
	return c.Delay * unitSeconds[c.Unit]
}

func (c DelayConfig) Duration() time.Duration {
	return time.Duration(c.Seconds()) * time.Second
}
