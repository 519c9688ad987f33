package engine

import (
	"slices"
	"strings"

	"github.com/dukex/nurture/pkg/models"
)

// Operators are the condition operators understood by EvaluateCondition.
var Operators = []string{
	"equals", "=", "not_equals", "!=", "contains", "not_contains", "starts_with", "ends_with",
	"greater_than", ">", "less_than", "<", "greater_or_equal", ">=", "less_or_equal", "<=",
	"is_empty", "is_not_empty", "is_true", "is_false",
}

func IsOperator(operator string) bool {
	return slices.Contains(Operators, operator)
}

// EvaluateCondition reads config.Field from the contact and applies the operator. A missing
// field name and an unknown operator both evaluate to false.
func EvaluateCondition(config models.ConditionConfig, contact *models.Contact) bool {
	if config.Field == "" {
		return false
	}

	actual, _ := contact.Field(config.Field)

	return compare(config.Operator, actual, config.Value)
}

func compare(operator string, actual, expected any) bool {
	switch operator {
	case "equals", "=":
		return models.LooseEqual(actual, expected)
	case "not_equals", "!=":
		return !models.LooseEqual(actual, expected)
	case "contains":
		return contains(actual, expected)
	case "not_contains":
		return !contains(actual, expected)
	case "starts_with":
		return strings.HasPrefix(models.ValueString(actual), models.ValueString(expected))
	case "ends_with":
		return strings.HasSuffix(models.ValueString(actual), models.ValueString(expected))
	case "greater_than", ">":
		return ordered(actual, expected, func(c int) bool { return c > 0 })
	case "less_than", "<":
		return ordered(actual, expected, func(c int) bool { return c < 0 })
	case "greater_or_equal", ">=":
		return ordered(actual, expected, func(c int) bool { return c >= 0 })
	case "less_or_equal", "<=":
		return ordered(actual, expected, func(c int) bool { return c <= 0 })
	case "is_empty":
		return models.IsEmpty(actual)
	case "is_not_empty":
		return !models.IsEmpty(actual)
	case "is_true":
		return models.Truthy(actual)
	case "is_false":
		return !models.Truthy(actual)
	default:
		return false
	}
}

// contains checks membership for lists and substring otherwise.
func contains(actual, expected any) bool {
	if list, ok := actual.([]any); ok {
		for _, item := range list {
			if models.LooseEqual(item, expected) {
				return true
			}
		}

		return false
	}

	if list, ok := actual.([]string); ok {
		for _, item := range list {
			if models.LooseEqual(item, expected) {
				return true
			}
		}

		return false
	}

	if actual == nil {
		return false
	}

	return strings.Contains(models.ValueString(actual), models.ValueString(expected))
}

// ordered compares numerically when both sides are numeric and lexically otherwise. Nothing
// is ordered against an absent value.
func ordered(actual, expected any, test func(int) bool) bool {
	if actual == nil || expected == nil {
		return false
	}

	return test(order(actual, expected))
}

func order(actual, expected any) int {
	if a, ok := models.ToFloat(actual); ok {
		if b, ok := models.ToFloat(expected); ok {
			switch {
			case a > b:
				return 1
			case a < b:
				return -1
			default:
				return 0
			}
		}
	}

	return strings.Compare(models.ValueString(actual), models.ValueString(expected))
}
