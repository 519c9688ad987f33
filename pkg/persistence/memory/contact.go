package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/google/uuid"
	memdb "github.com/hashicorp/go-memdb"
)

type ContactRepository struct {
	db *memdb.MemDB
}

func (r *ContactRepository) GetByID(_ context.Context, id string) (*models.Contact, error) {
	contact, err := getContact(r.db.Txn(false), id)
	if err != nil {
		return nil, err
	}

	return cloneContact(contact), nil
}

func (r *ContactRepository) Save(_ context.Context, contact *models.Contact) error {
	now := time.Now().UTC()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}

	contact.UpdatedAt = now

	return insert(r.db, tableContacts, cloneContact(contact))
}

func (r *ContactRepository) UpdateField(_ context.Context, id, key, value string) (*models.Contact, error) {
	txn := r.db.Txn(true)
	defer txn.Abort()

	stored, err := getContact(txn, id)
	if err != nil {
		return nil, err
	}

	contact := cloneContact(stored)
	if !contact.SetField(key, value) {
		return nil, fmt.Errorf("field %q is not updatable", key)
	}

	contact.UpdatedAt = time.Now().UTC()

	if err := txn.Insert(tableContacts, contact); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	txn.Commit()

	return cloneContact(contact), nil
}

func getContact(txn *memdb.Txn, id string) (*models.Contact, error) {
	raw, err := txn.First(tableContacts, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	if raw == nil {
		return nil, persistence.NewContactError("GetByID", id, persistence.ErrContactNotFound)
	}

	return raw.(*models.Contact), nil
}

type TagRepository struct {
	db *memdb.MemDB
}

func (r *TagRepository) GetByID(_ context.Context, id string) (*models.Tag, error) {
	return r.first("id", id)
}

func (r *TagRepository) GetByName(_ context.Context, name string) (*models.Tag, error) {
	return r.first("name", strings.ToLower(strings.TrimSpace(name)))
}

func (r *TagRepository) first(index, value string) (*models.Tag, error) {
	raw, err := r.db.Txn(false).First(tableTags, index, value)
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	if raw == nil {
		return nil, fmt.Errorf("tag %s: %w", value, persistence.ErrTagNotFound)
	}

	return cloneTag(raw.(*models.Tag)), nil
}

func (r *TagRepository) Save(_ context.Context, tag *models.Tag) error {
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now().UTC()
	}

	return insert(r.db, tableTags, cloneTag(tag))
}

func (r *TagRepository) HasContactTag(_ context.Context, contactID, tagID string) (bool, error) {
	raw, err := r.db.Txn(false).First(tableContactTags, "id", contactID, tagID)
	if err != nil {
		return false, fmt.Errorf("failed to get contact tag: %w", err)
	}

	return raw != nil, nil
}

func (r *TagRepository) Attach(_ context.Context, contactTag *models.ContactTag) error {
	if contactTag.CreatedAt.IsZero() {
		contactTag.CreatedAt = time.Now().UTC()
	}

	txn := r.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tableContactTags, "id", contactTag.ContactID, contactTag.TagID)
	if err != nil {
		return fmt.Errorf("failed to get contact tag: %w", err)
	}

	if existing != nil {
		return nil
	}

	if err := txn.Insert(tableContactTags, cloneContactTag(contactTag)); err != nil {
		return fmt.Errorf("failed to attach tag: %w", err)
	}

	txn.Commit()

	return nil
}

func (r *TagRepository) Detach(_ context.Context, contactID, tagID string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(tableContactTags, "id", contactID, tagID); err != nil {
		return fmt.Errorf("failed to detach tag: %w", err)
	}

	txn.Commit()

	return nil
}

func (r *TagRepository) ContactTags(_ context.Context, contactID string) ([]*models.ContactTag, error) {
	it, err := r.db.Txn(false).Get(tableContactTags, "contact", contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact tags: %w", err)
	}

	return collect(it, cloneContactTag), nil
}

type ScoreRepository struct {
	db *memdb.MemDB
}

func (r *ScoreRepository) Add(_ context.Context, contactID string, points int, reason, source string) (*models.ScoreHistory, error) {
	txn := r.db.Txn(true)
	defer txn.Abort()

	stored, err := getContact(txn, contactID)
	if err != nil {
		return nil, err
	}

	contact := cloneContact(stored)
	now := time.Now().UTC()

	entry := &models.ScoreHistory{
		ID:            uuid.NewString(),
		ContactID:     contactID,
		Points:        points,
		PreviousScore: contact.LeadScore,
		NewScore:      contact.LeadScore + points,
		Reason:        reason,
		Source:        source,
		CreatedAt:     now,
	}

	contact.LeadScore = entry.NewScore
	contact.UpdatedAt = now

	if err := txn.Insert(tableContacts, contact); err != nil {
		return nil, fmt.Errorf("failed to update score: %w", err)
	}

	if err := txn.Insert(tableScoreHistory, cloneScore(entry)); err != nil {
		return nil, fmt.Errorf("failed to record score history: %w", err)
	}

	txn.Commit()

	return entry, nil
}

func (r *ScoreRepository) History(_ context.Context, contactID string) ([]*models.ScoreHistory, error) {
	it, err := r.db.Txn(false).Get(tableScoreHistory, "contact", contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to list score history: %w", err)
	}

	history := collect(it, cloneScore)
	sortByTime(history, func(h *models.ScoreHistory) time.Time { return h.CreatedAt })

	return history, nil
}

type TemplateRepository struct {
	db *memdb.MemDB
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*models.MessageTemplate, error) {
	raw, err := r.db.Txn(false).First(tableTemplates, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	if raw == nil {
		return nil, fmt.Errorf("template %s: %w", id, persistence.ErrTemplateNotFound)
	}

	return cloneTemplate(raw.(*models.MessageTemplate)), nil
}

func (r *TemplateRepository) Save(_ context.Context, template *models.MessageTemplate) error {
	return insert(r.db, tableTemplates, cloneTemplate(template))
}

type UserRepository struct {
	db *memdb.MemDB
}

func (r *UserRepository) Save(_ context.Context, user *models.User) error {
	return insert(r.db, tableUsers, cloneUser(user))
}

func (r *UserRepository) GetByIDs(_ context.Context, ids []string) ([]*models.User, error) {
	txn := r.db.Txn(false)
	users := make([]*models.User, 0, len(ids))

	for _, id := range ids {
		raw, err := txn.First(tableUsers, "id", id)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}

		if raw != nil {
			users = append(users, cloneUser(raw.(*models.User)))
		}
	}

	return users, nil
}

func (r *UserRepository) ByRole(_ context.Context, role string) ([]*models.User, error) {
	it, err := r.db.Txn(false).Get(tableUsers, "role", role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return collect(it, cloneUser), nil
}

func (r *UserRepository) SaveNotification(_ context.Context, notification *models.Notification) error {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	return insert(r.db, tableNotifications, cloneNotification(notification))
}

func (r *UserRepository) Notifications(_ context.Context, userID string) ([]*models.Notification, error) {
	it, err := r.db.Txn(false).Get(tableNotifications, "user", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return collect(it, cloneNotification), nil
}
