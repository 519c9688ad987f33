package memory

import (
	"maps"
	"sort"
	"time"

	"github.com/dukex/nurture/pkg/models"
)

func cloneWorkflow(w *models.Workflow) *models.Workflow {
	c := *w
	c.TriggerConfig = maps.Clone(w.TriggerConfig)

	c.Steps = make([]*models.WorkflowStep, len(w.Steps))
	for i, step := range w.Steps {
		s := *step
		s.Config = maps.Clone(step.Config)
		c.Steps[i] = &s
	}

	c.Connections = make([]*models.Connection, len(w.Connections))
	for i, connection := range w.Connections {
		conn := *connection
		c.Connections[i] = &conn
	}

	return &c
}

func cloneEnrollment(e *models.Enrollment) *models.Enrollment {
	c := *e
	c.Context = maps.Clone(e.Context)

	return &c
}

func cloneExecution(e *models.StepExecution) *models.StepExecution {
	c := *e
	c.Result = maps.Clone(e.Result)

	return &c
}

func cloneJob(j *models.Job) *models.Job {
	c := *j

	return &c
}

func cloneContact(contact *models.Contact) *models.Contact {
	c := *contact
	c.CustomFields = maps.Clone(contact.CustomFields)

	return &c
}

func cloneTag(t *models.Tag) *models.Tag {
	c := *t

	return &c
}

func cloneContactTag(t *models.ContactTag) *models.ContactTag {
	c := *t

	return &c
}

func cloneScore(h *models.ScoreHistory) *models.ScoreHistory {
	c := *h

	return &c
}

func cloneTemplate(t *models.MessageTemplate) *models.MessageTemplate {
	c := *t

	return &c
}

func cloneUser(u *models.User) *models.User {
	c := *u

	return &c
}

func cloneNotification(n *models.Notification) *models.Notification {
	c := *n
	c.Data = maps.Clone(n.Data)

	return &c
}

func sortByTime[T any](items []*T, at func(*T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return at(items[i]).Before(at(items[j]))
	})
}
