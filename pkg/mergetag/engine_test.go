package mergetag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedEngine() *Engine {
	clock := func() time.Time { return time.Date(2026, 5, 4, 9, 5, 0, 0, time.UTC) }

	return NewEngine(WithClock(clock), WithSystemValues(map[string]string{"site_name": "Escola"}))
}

func sampleData() map[string]any {
	return map[string]any{
		"contact": map[string]any{
			"name":  "maria silva",
			"email": "maria@example.com",
		},
		"order": map[string]any{
			"id":         "1001",
			"status":     "paid",
			"total":      float64(1234.5),
			"created_at": "2026-01-15 10:00:00",
			"items": []any{
				map[string]any{"name": "Guitar"},
				map[string]any{"name": "Piano"},
			},
		},
		"order_phone": "5511999990000",
		"course":      map[string]any{"name": "Guitar"},
		"order_id":    "1001",
	}
}

func TestExtractVariables(t *testing.T) {
	text := "Hello {{contact.name}}, your order {{order.number}} is {{order.status|upper}}"

	assert.Equal(t, []string{"contact.name", "order.number", "order.status"}, ExtractVariables(text))
}

func TestExtractVariables_DeduplicatesAndNormalizes(t *testing.T) {
	text := `{{ contact.name }} {{contact.name|default:"x"}} {{order.items[0].name}}`

	assert.Equal(t, []string{"contact.name", "order.items.0.name"}, ExtractVariables(text))
}

func TestResolve_NoTokensIsUnchanged(t *testing.T) {
	engine := fixedEngine()

	for _, text := range []string{"", "plain text", "Hello Maria, order 1001 is PAID", "{single} braces"} {
		assert.Equal(t, text, engine.Resolve(text, sampleData()))
		assert.Equal(t, text, engine.Resolve(engine.Resolve(text, sampleData()), sampleData()))
	}
}

func TestResolve(t *testing.T) {
	engine := fixedEngine()
	data := sampleData()

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"contact field", "{{contact.email}}", "maria@example.com"},
		{"computed first name with ucfirst", "{{contact.first_name|ucfirst}}", "Maria"},
		{"order number falls back to id", "{{order.number}}", "1001"},
		{"chained modifiers", `{{order.status|upper|default:"none"}}`, "PAID"},
		{"array index", "{{order.items[1].name}}", "Piano"},
		{"items count", "{{order.items_count}}", "2"},
		{"flat context key", "{{order.phone}}", "5511999990000"},
		{"missing with default", `{{order.tracking_code|default:"pending"}}`, "pending"},
		{"missing degrades to empty", "[{{payment.method}}]", "[]"},
		{"bare system variable", "{{current_date}}", "2026-05-04"},
		{"system category", "{{system.current_year}} {{system.site_name}}", "2026 Escola"},
		{"bare raw context key", "{{order_id}}", "1001"},
		{"raw context lookup", "{{course.name|lower}}", "guitar"},
		{"date format", `{{order.created_at|format:"d/m/Y H:i"}}`, "15/01/2026 10:00"},
		{"decimal mask", `{{order.total|format:"0.00"}}`, "1234.50"},
		{"thousands mask", `{{order.total|format:"#,##0.00"}}`, "1,234.50"},
		{"format passthrough", `{{contact.email|format:"0.00"}}`, "maria@example.com"},
		{"unknown modifier passthrough", "{{order.status|sparkle}}", "paid"},
		{"trim", `{{contact.name|trim|upper}}`, "MARIA SILVA"},
		{"quoted pipe in argument", `{{order.coupon|default:"a|b"}}`, "a|b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Resolve(tt.template, data))
		})
	}
}

func TestResolveMap(t *testing.T) {
	engine := fixedEngine()

	resolved := engine.ResolveMap(map[string]any{
		"greeting": "Hi {{contact.first_name}}",
		"nested":   map[string]any{"order": "{{order.id}}"},
		"list":     []any{"{{order.status}}", float64(3)},
		"count":    float64(1),
	}, sampleData())

	assert.Equal(t, "Hi maria", resolved["greeting"])
	assert.Equal(t, map[string]any{"order": "1001"}, resolved["nested"])
	assert.Equal(t, []any{"paid", float64(3)}, resolved["list"])
	assert.InDelta(t, 1, resolved["count"], 0)
}

func TestValidateForTrigger(t *testing.T) {
	engine := fixedEngine()

	errors := engine.ValidateForTrigger("{{contact.name}} {{order.items.3.name}} {{order.total}}", "order_paid")
	assert.Empty(t, errors)

	errors = engine.ValidateForTrigger("{{contact.name}} {{order.total}} {{session.date}}", "tag_added")
	require.Len(t, errors, 2)
	assert.Equal(t, "order.total", errors[0].Variable)
	assert.Equal(t, "session.date", errors[1].Variable)
	assert.Contains(t, errors[0].Message, "tag_added")

	assert.Empty(t, engine.ValidateForTrigger("{{contact.custom_fields.plan}}", "unknown_trigger"))
}

func TestPreview(t *testing.T) {
	engine := fixedEngine()

	assert.Equal(t, "Hi Maria, order #1001", engine.Preview("Hi {{contact.first_name}}, order {{order.number}}"))
	assert.Equal(t, "GUITAR COURSE", engine.Preview("{{order.items[0].name|upper}}"))
	assert.Equal(t, "[unknown.path]", engine.Preview("{{unknown.path}}"))
	assert.Equal(t, "[UNKNOWN.PATH]", engine.Preview(`{{unknown.path|default:"fallback"|upper}}`))
	assert.NotPanics(t, func() { engine.Preview("{{}} {{ | }} {{a|format:}}") })
}

func TestWithProvider(t *testing.T) {
	engine := NewEngine(WithProvider("crm", ProviderFunc(func(field string, _ map[string]any) (any, bool) {
		return "crm:" + field, true
	})))

	assert.Equal(t, "crm:owner", engine.Resolve("{{crm.owner}}", nil))
}

func TestFormatDate(t *testing.T) {
	moment := time.Date(2026, 3, 8, 7, 4, 9, 0, time.UTC)

	assert.Equal(t, "08/03/2026", FormatDate(moment, "d/m/Y"))
	assert.Equal(t, "8 March 2026, Sunday", FormatDate(moment, "j F Y, l"))
	assert.Equal(t, "7:04:09 AM", FormatDate(moment, "G:i:s A"))
	assert.Equal(t, "Y=2026", FormatDate(moment, `\Y=Y`))
	assert.Equal(t, "7", FormatDate(moment, "N"))
}
