// Package mergetag resolves {{category.field|modifier:"arg"}} expressions against a
// context bag through per-category providers.
package mergetag

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/nurture/pkg/models"
)

type Engine struct {
	providers map[string]Provider
	modifiers map[string]ModifierFunc
	registry  *Registry
}

type options struct {
	clock     func() time.Time
	location  *time.Location
	system    map[string]string
	providers map[string]Provider
	registry  *Registry
}

type Option func(*options)

// WithClock overrides the time source for system date variables.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

func WithLocation(location *time.Location) Option {
	return func(o *options) { o.location = location }
}

// WithSystemValues registers static system variables such as site_name.
func WithSystemValues(values map[string]string) Option {
	return func(o *options) { o.system = values }
}

// WithProvider registers or replaces the provider for a category.
func WithProvider(category string, provider Provider) Option {
	return func(o *options) { o.providers[strings.ToLower(category)] = provider }
}

func WithRegistry(registry *Registry) Option {
	return func(o *options) { o.registry = registry }
}

func NewEngine(opts ...Option) *Engine {
	o := &options{
		clock:     time.Now,
		location:  time.UTC,
		providers: make(map[string]Provider),
	}

	for _, opt := range opts {
		opt(o)
	}

	providers := map[string]Provider{
		CategoryContact: contactProvider(),
		CategoryOrder:   orderProvider(),
		CategoryCart:    cartProvider(),
		CategoryFunnel:  recordProvider{category: CategoryFunnel},
		CategoryPayment: recordProvider{category: CategoryPayment},
		CategorySession: recordProvider{category: CategorySession},
		CategorySystem:  systemProvider{clock: o.clock, location: o.location, values: o.system},
	}

	for category, provider := range o.providers {
		providers[category] = provider
	}

	if o.registry == nil {
		o.registry = NewRegistry()
	}

	return &Engine{
		providers: providers,
		modifiers: defaultModifiers(o.location),
		registry:  o.registry,
	}
}

func (e *Engine) Registry() *Registry {
	return e.registry
}

// Resolve replaces every tag in text. Unresolvable paths become empty strings.
func (e *Engine) Resolve(text string, data map[string]any) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	return tagPattern.ReplaceAllStringFunc(text, func(raw string) string {
		tags := Parse(raw)
		if len(tags) == 0 {
			return raw
		}

		return e.apply(e.Value(tags[0].Path, data), tags[0].Modifiers)
	})
}

// ResolveMap resolves every string value of a map, recursing into nested maps and lists.
func (e *Engine) ResolveMap(values map[string]any, data map[string]any) map[string]any {
	resolved := make(map[string]any, len(values))

	for key, value := range values {
		resolved[key] = e.resolveAny(value, data)
	}

	return resolved
}

func (e *Engine) resolveAny(value any, data map[string]any) any {
	switch v := value.(type) {
	case string:
		return e.Resolve(v, data)
	case map[string]any:
		return e.ResolveMap(v, data)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = e.resolveAny(item, data)
		}

		return items
	default:
		return value
	}
}

// Value resolves a single path without modifiers.
func (e *Engine) Value(path string, data map[string]any) string {
	path = models.NormalizePath(path)

	category, field, hasDot := strings.Cut(path, ".")
	if provider, ok := e.providers[strings.ToLower(category)]; ok && hasDot {
		value, _ := provider.Value(field, data)

		return Stringify(value)
	}

	if !hasDot {
		value, _ := e.providers[CategorySystem].Value(path, data)

		return Stringify(value)
	}

	value, _ := models.Lookup(data, path)

	return Stringify(value)
}

func (e *Engine) apply(value string, modifiers []Modifier) string {
	for _, modifier := range modifiers {
		if fn, ok := e.modifiers[modifier.Name]; ok {
			value = fn(value, modifier.Argument)
		}
	}

	return value
}

// ExtractVariables returns the distinct paths referenced in text in order of first use.
func (e *Engine) ExtractVariables(text string) []string {
	return ExtractVariables(text)
}

func ExtractVariables(text string) []string {
	seen := make(map[string]bool)
	variables := make([]string, 0)

	for _, tag := range Parse(text) {
		if seen[tag.Path] {
			continue
		}

		seen[tag.Path] = true
		variables = append(variables, tag.Path)
	}

	return variables
}

// ValidationError reports a variable that cannot resolve for a trigger.
type ValidationError struct {
	Variable string `json:"variable"`
	Message  string `json:"message"`
}

// ValidateForTrigger lists every variable in text the trigger does not provide.
func (e *Engine) ValidateForTrigger(text, triggerType string) []ValidationError {
	errors := make([]ValidationError, 0)

	for _, variable := range ExtractVariables(text) {
		if e.registry.Allowed(triggerType, variable) {
			continue
		}

		errors = append(errors, ValidationError{
			Variable: variable,
			Message:  fmt.Sprintf("variable %q is not available for trigger %q", variable, triggerType),
		})
	}

	return errors
}

// Preview substitutes each tag with the catalog example value, or a bracketed placeholder
// for paths the catalog does not know.
func (e *Engine) Preview(text string) string {
	return tagPattern.ReplaceAllStringFunc(text, func(raw string) string {
		tags := Parse(raw)
		if len(tags) == 0 {
			return raw
		}

		example, ok := e.registry.Example(tags[0].Path)
		if !ok {
			example = "[" + tags[0].Path + "]"
		}

		return e.apply(example, tags[0].Modifiers)
	})
}

// Stringify renders a resolved value the way templates print it.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return v.String()
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(encoded)
	default:
		return fmt.Sprint(v)
	}
}
