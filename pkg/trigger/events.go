package trigger

import (
	"context"
	"fmt"

	"github.com/dukex/nurture/pkg/models"
)

var orderTriggers = map[string]bool{
	models.TriggerOrderCreated:   true,
	models.TriggerOrderPaid:      true,
	models.TriggerOrderCancelled: true,
	models.TriggerOrderShipped:   true,
	models.TriggerOrderDelivered: true,
}

var enrollmentTriggers = map[string]bool{
	models.TriggerEnrollmentCreated:   true,
	models.TriggerEnrollmentCompleted: true,
	models.TriggerEnrollmentCancelled: true,
}

var subscriptionTriggers = map[string]bool{
	models.TriggerSubscriptionCancelled: true,
	models.TriggerSubscriptionPastDue:   true,
}

var attendanceTriggers = map[string]string{
	"present": models.TriggerAttendancePresent,
	"absent":  models.TriggerAttendanceAbsent,
	"late":    models.TriggerAttendanceLate,
	"excused": models.TriggerAttendanceExcused,
}

// Attendance is one attendance mark for a class session.
type Attendance struct {
	ClassID   string
	CourseID  string
	SessionID string
	Status    string
	Phone     string
	Data      map[string]any
}

func (d *Dispatcher) ContactCreated(ctx context.Context, contactID string) error {
	_, err := d.Dispatch(ctx, models.TriggerEvent{TriggerType: models.TriggerContactCreated, ContactID: contactID})

	return err
}

// ContactUpdated fires for edits made outside workflows; changes maps field to new value.
func (d *Dispatcher) ContactUpdated(ctx context.Context, contactID string, changes map[string]any) error {
	_, err := d.Dispatch(ctx, models.TriggerEvent{
		TriggerType: models.TriggerContactUpdated,
		ContactID:   contactID,
		Context:     map[string]any{"changes": changes},
	})

	return err
}

func (d *Dispatcher) TagAdded(ctx context.Context, contactID string, tag *models.Tag, source string) error {
	return d.tagChanged(ctx, models.TriggerTagAdded, contactID, tag, source)
}

func (d *Dispatcher) TagRemoved(ctx context.Context, contactID string, tag *models.Tag, source string) error {
	return d.tagChanged(ctx, models.TriggerTagRemoved, contactID, tag, source)
}

// tagChanged skips associations made by workflows: those never start another workflow.
func (d *Dispatcher) tagChanged(ctx context.Context, triggerType, contactID string, tag *models.Tag, source string) error {
	if source == models.TagSourceWorkflow {
		d.logger.DebugContext(ctx, "Ignoring tag change made by a workflow", "trigger_type", triggerType, "tag_id", tag.ID)

		return nil
	}

	_, err := d.Dispatch(ctx, models.TriggerEvent{
		TriggerType: triggerType,
		ContactID:   contactID,
		Conditions:  map[string]any{"tag_id": tag.ID},
		Context:     map[string]any{"tag": map[string]any{"id": tag.ID, "name": tag.Name}, "tag_source": source},
	})

	return err
}

// Order fires one of the order triggers. The order record is exposed to merge tags as
// order.* and its course_id, product_id and status act as trigger filters.
func (d *Dispatcher) Order(ctx context.Context, triggerType, contactID string, order map[string]any) error {
	if !orderTriggers[triggerType] {
		return fmt.Errorf("%w: %s", ErrUnknownTrigger, triggerType)
	}

	_, err := d.Dispatch(ctx, models.TriggerEvent{
		TriggerType: triggerType,
		ContactID:   contactID,
		Conditions:  pick(order, "course_id", "product_id", "status"),
		Context:     withPhone(map[string]any{"order": order, "order_id": order["id"]}, "order_phone", order["phone"]),
	})

	return err
}

// CourseEnrollment fires an enrollment_* trigger for a course enrollment, not to be confused
// with workflow enrollments.
func (d *Dispatcher) CourseEnrollment(ctx context.Context, triggerType, contactID, courseID string, enrollment map[string]any) error {
	if !enrollmentTriggers[triggerType] {
		return fmt.Errorf("%w: %s", ErrUnknownTrigger, triggerType)
	}

	_, err := d.Dispatch(ctx, models.TriggerEvent{
		TriggerType: triggerType,
		ContactID:   contactID,
		Conditions:  map[string]any{"course_id": courseID},
		Context:     map[string]any{"enrollment": enrollment, "course": map[string]any{"id": courseID}},
	})

	return err
}

func (d *Dispatcher) Subscription(ctx context.Context, triggerType, contactID string, subscription map[string]any) error {
	if !subscriptionTriggers[triggerType] {
		return fmt.Errorf("%w: %s", ErrUnknownTrigger, triggerType)
	}

	_, err := d.Dispatch(ctx, models.TriggerEvent{
		TriggerType: triggerType,
		ContactID:   contactID,
		Conditions:  pick(subscription, "plan_id", "course_id"),
		Context:     map[string]any{"subscription": subscription},
	})

	return err
}

// AttendanceMarked fires attendance_marked and then the per-status trigger, both filtered
// by class and course.
func (d *Dispatcher) AttendanceMarked(ctx context.Context, contactID string, attendance Attendance) error {
	session := map[string]any{
		"id":       attendance.SessionID,
		"class_id": attendance.ClassID,
		"status":   attendance.Status,
		"phone":    attendance.Phone,
	}
	for key, value := range attendance.Data {
		if _, exists := session[key]; !exists {
			session[key] = value
		}
	}

	conditions := map[string]any{"class_id": attendance.ClassID, "course_id": attendance.CourseID}
	data := withPhone(map[string]any{"session": session, "attendance_status": attendance.Status}, "session_phone", attendance.Phone)

	marked := pick(conditions, "class_id", "course_id")
	marked["status"] = attendance.Status

	if _, err := d.Dispatch(ctx, models.TriggerEvent{
		TriggerType: models.TriggerAttendanceMarked,
		ContactID:   contactID,
		Conditions:  marked,
		Context:     data,
	}); err != nil {
		return err
	}

	triggerType, ok := attendanceTriggers[attendance.Status]
	if !ok {
		return nil
	}

	_, err := d.Dispatch(ctx, models.TriggerEvent{
		TriggerType: triggerType,
		ContactID:   contactID,
		Conditions:  conditions,
		Context:     data,
	})

	return err
}

// pick copies the non-empty keys of record.
func pick(record map[string]any, keys ...string) map[string]any {
	picked := make(map[string]any, len(keys))

	for _, key := range keys {
		if value, ok := record[key]; ok && models.ValueString(value) != "" {
			picked[key] = value
		}
	}

	return picked
}

func withPhone(data map[string]any, key string, phone any) map[string]any {
	if models.ValueString(phone) != "" {
		data[key] = phone
	}

	return data
}
