package mergetag

import (
	"sort"
	"strings"

	"github.com/dukex/nurture/pkg/models"
)

// Variable is one catalog entry. Keys may contain "*" for array positions.
type Variable struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Example  string `json:"example"`
	Category string `json:"category"`
}

// Registry lists which variables each trigger type makes available. It drives validation
// and previews only; runtime resolution never consults it.
type Registry struct {
	common   []Variable
	triggers map[string][]Variable
}

func variable(key, label, example string) Variable {
	category, _, _ := strings.Cut(key, ".")

	return Variable{Key: key, Label: label, Example: example, Category: category}
}

var (
	contactVariables = []Variable{
		variable("contact.id", "Contact ID", "42"),
		variable("contact.name", "Contact name", "Maria Silva"),
		variable("contact.first_name", "First name", "Maria"),
		variable("contact.email", "Email", "maria@example.com"),
		variable("contact.phone", "Phone", "+55 11 98765-4321"),
		variable("contact.status", "Status", "lead"),
		variable("contact.city", "City", "São Paulo"),
		variable("contact.state", "State", "SP"),
		variable("contact.country", "Country", "BR"),
		variable("contact.lead_score", "Lead score", "75"),
		variable("contact.custom_fields.*", "Custom field", "value"),
	}

	systemVariables = []Variable{
		variable("system.current_date", "Current date", "2026-01-15"),
		variable("system.current_time", "Current time", "14:30"),
		variable("system.current_datetime", "Current date and time", "2026-01-15 14:30:00"),
		variable("system.current_year", "Current year", "2026"),
		variable("system.site_name", "Site name", "My School"),
		variable("system.site_url", "Site URL", "https://example.com"),
		variable("current_date", "Current date", "2026-01-15"),
		variable("current_time", "Current time", "14:30"),
		variable("current_year", "Current year", "2026"),
	}

	orderVariables = []Variable{
		variable("order.id", "Order ID", "1001"),
		variable("order.number", "Order number", "#1001"),
		variable("order.status", "Order status", "paid"),
		variable("order.total", "Order total", "199.90"),
		variable("order.subtotal", "Order subtotal", "189.90"),
		variable("order.discount", "Discount", "10.00"),
		variable("order.created_at", "Order date", "2026-01-15 10:00:00"),
		variable("order.items_count", "Item count", "2"),
		variable("order.tracking_code", "Tracking code", "BR123456789"),
		variable("order.items.*.name", "Item name", "Guitar course"),
		variable("order.items.*.quantity", "Item quantity", "1"),
		variable("order.items.*.price", "Item price", "99.95"),
	}

	cartVariables = []Variable{
		variable("cart.total", "Cart total", "149.90"),
		variable("cart.items_count", "Cart items", "3"),
		variable("cart.recovery_url", "Cart recovery link", "https://example.com/cart/abc"),
		variable("cart.items.*.name", "Cart item name", "Piano course"),
	}

	paymentVariables = []Variable{
		variable("payment.method", "Payment method", "pix"),
		variable("payment.status", "Payment status", "approved"),
		variable("payment.amount", "Amount paid", "199.90"),
		variable("payment.installments", "Installments", "3"),
		variable("payment.paid_at", "Paid at", "2026-01-15 10:05:00"),
	}

	funnelVariables = []Variable{
		variable("funnel.name", "Funnel", "Launch"),
		variable("funnel.step", "Funnel step", "checkout"),
	}

	sessionVariables = []Variable{
		variable("session.date", "Class date", "2026-01-20"),
		variable("session.time", "Class time", "19:00"),
		variable("session.class_name", "Class", "Guitar A1"),
		variable("session.course_name", "Course", "Guitar"),
		variable("session.instructor", "Instructor", "João"),
		variable("session.status", "Attendance status", "present"),
		variable("session.phone", "Session phone", "+55 11 91234-5678"),
	}

	enrollmentVariables = []Variable{
		variable("enrollment.id", "Enrollment ID", "300"),
		variable("enrollment.status", "Enrollment status", "active"),
		variable("enrollment.started_at", "Enrollment date", "2026-01-10"),
		variable("course.id", "Course ID", "12"),
		variable("course.name", "Course name", "Guitar"),
	}

	subscriptionVariables = []Variable{
		variable("subscription.id", "Subscription ID", "77"),
		variable("subscription.plan", "Plan", "Monthly"),
		variable("subscription.status", "Subscription status", "past_due"),
		variable("subscription.next_billing_at", "Next billing", "2026-02-15"),
		variable("subscription.amount", "Amount", "49.90"),
	}

	tagVariables = []Variable{
		variable("tag.id", "Tag ID", "5"),
		variable("tag.name", "Tag name", "vip"),
	}
)

func concat(groups ...[]Variable) []Variable {
	var all []Variable
	for _, group := range groups {
		all = append(all, group...)
	}

	return all
}

func NewRegistry() *Registry {
	order := concat(orderVariables, cartVariables, paymentVariables, funnelVariables)
	attendance := concat(sessionVariables, enrollmentVariables)

	triggers := map[string][]Variable{
		models.TriggerContactCreated:        nil,
		models.TriggerContactUpdated:        nil,
		models.TriggerFieldUpdated:          nil,
		models.TriggerScoreChanged:          nil,
		models.TriggerTagAdded:              tagVariables,
		models.TriggerTagRemoved:            tagVariables,
		models.TriggerOrderCreated:          order,
		models.TriggerOrderPaid:             order,
		models.TriggerOrderCancelled:        order,
		models.TriggerOrderShipped:          order,
		models.TriggerOrderDelivered:        order,
		models.TriggerEnrollmentCreated:     enrollmentVariables,
		models.TriggerEnrollmentCompleted:   enrollmentVariables,
		models.TriggerEnrollmentCancelled:   enrollmentVariables,
		models.TriggerSubscriptionCancelled: subscriptionVariables,
		models.TriggerSubscriptionPastDue:   subscriptionVariables,
		models.TriggerAttendanceMarked:      attendance,
		models.TriggerAttendancePresent:     attendance,
		models.TriggerAttendanceAbsent:      attendance,
		models.TriggerAttendanceLate:        attendance,
		models.TriggerAttendanceExcused:     attendance,
	}

	return &Registry{
		common:   concat(contactVariables, systemVariables),
		triggers: triggers,
	}
}

// TriggerTypes returns every trigger type the catalog knows, sorted.
func (r *Registry) TriggerTypes() []string {
	types := make([]string, 0, len(r.triggers))
	for triggerType := range r.triggers {
		types = append(types, triggerType)
	}

	sort.Strings(types)

	return types
}

// ForTrigger returns the common variables followed by the trigger-specific ones.
func (r *Registry) ForTrigger(triggerType string) []Variable {
	return concat(r.common, r.triggers[triggerType])
}

// Allowed reports whether path resolves for the trigger, honoring "*" positions.
func (r *Registry) Allowed(triggerType, path string) bool {
	path = models.NormalizePath(path)

	for _, v := range r.ForTrigger(triggerType) {
		if matchKey(v.Key, path) {
			return true
		}
	}

	return false
}

// Example returns the example value of the catalog entry matching path, across all triggers.
func (r *Registry) Example(path string) (string, bool) {
	path = models.NormalizePath(path)

	for _, v := range r.common {
		if matchKey(v.Key, path) {
			return v.Example, true
		}
	}

	for _, triggerType := range r.TriggerTypes() {
		for _, v := range r.triggers[triggerType] {
			if matchKey(v.Key, path) {
				return v.Example, true
			}
		}
	}

	return "", false
}

// matchKey compares dotted segments; "*" matches any single segment and a trailing "*"
// matches the rest of the path.
func matchKey(key, path string) bool {
	keyParts := strings.Split(key, ".")
	pathParts := strings.Split(path, ".")

	for i, part := range keyParts {
		if part == "*" && i == len(keyParts)-1 {
			return len(pathParts) >= len(keyParts)
		}

		if i >= len(pathParts) {
			return false
		}

		if part != "*" && part != pathParts[i] {
			return false
		}
	}

	return len(keyParts) == len(pathParts)
}
