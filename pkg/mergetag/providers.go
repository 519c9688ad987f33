package mergetag

import (
	"strings"
	"time"

	"github.com/dukex/nurture/pkg/models"
)

// Provider resolves the field part of "category.field" against the context bag.
type Provider interface {
	Value(field string, data map[string]any) (any, bool)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(field string, data map[string]any) (any, bool)

func (f ProviderFunc) Value(field string, data map[string]any) (any, bool) {
	return f(field, data)
}

// Categories with a built-in provider.
const (
	CategoryContact = "contact"
	CategoryOrder   = "order"
	CategoryCart    = "cart"
	CategoryFunnel  = "funnel"
	CategoryPayment = "payment"
	CategorySession = "session"
	CategorySystem  = "system"
)

// recordProvider looks the field up inside data[category] and then as the flat key
// "category_field", which is how trigger contexts usually carry event data.
type recordProvider struct {
	category string
	computed map[string]func(record map[string]any) (any, bool)
}

func (p recordProvider) Value(field string, data map[string]any) (any, bool) {
	record, _ := data[p.category].(map[string]any)

	if value, ok := models.Lookup(record, field); ok {
		return value, true
	}

	if value, ok := data[p.category+"_"+field]; ok {
		return value, true
	}

	if compute, ok := p.computed[field]; ok {
		return compute(record)
	}

	return nil, false
}

func contactProvider() Provider {
	return recordProvider{
		category: CategoryContact,
		computed: map[string]func(map[string]any) (any, bool){
			"first_name": func(record map[string]any) (any, bool) {
				name, _ := record["name"].(string)
				fields := strings.Fields(name)

				if len(fields) == 0 {
					return nil, false
				}

				return fields[0], true
			},
		},
	}
}

func orderProvider() Provider {
	return recordProvider{
		category: CategoryOrder,
		computed: map[string]func(map[string]any) (any, bool){
			"number": func(record map[string]any) (any, bool) {
				id, ok := record["id"]

				return id, ok
			},
			"items_count": countItems,
		},
	}
}

func cartProvider() Provider {
	return recordProvider{
		category: CategoryCart,
		computed: map[string]func(map[string]any) (any, bool){
			"items_count": countItems,
		},
	}
}

func countItems(record map[string]any) (any, bool) {
	items, ok := record["items"].([]any)
	if !ok {
		return nil, false
	}

	return len(items), true
}

// systemProvider serves computed values such as current_date, then static values, then
// the raw context key.
type systemProvider struct {
	clock    func() time.Time
	location *time.Location
	values   map[string]string
}

func (p systemProvider) Value(field string, data map[string]any) (any, bool) {
	now := p.clock().In(p.location)

	switch field {
	case "current_date", "date":
		return now.Format("2006-01-02"), true
	case "current_time", "time":
		return now.Format("15:04"), true
	case "current_datetime", "datetime":
		return now.Format("2006-01-02 15:04:05"), true
	case "current_year", "year":
		return now.Format("2006"), true
	case "current_month":
		return now.Format("01"), true
	case "current_day":
		return now.Format("02"), true
	}

	if value, ok := p.values[field]; ok {
		return value, true
	}

	if value, ok := data[field]; ok {
		return value, true
	}

	return nil, false
}
