package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
)

const contactColumns = `
	id
  , name
  , email
  , phone
  , status
  , notes
  , address
  , city
  , state
  , postal_code
  , country
  , lead_score
  , custom_fields
  , created_at
  , updated_at
`

// contactFieldColumns maps updatable attributes to their columns.
var contactFieldColumns = map[string]string{
	"status":      "status",
	"notes":       "notes",
	"address":     "address",
	"city":        "city",
	"state":       "state",
	"postal_code": "postal_code",
	"country":     "country",
}

type ContactRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewContactRepository(db *sql.DB, logger *slog.Logger) *ContactRepository {
	return &ContactRepository{db: db, logger: logger}
}

func (r *ContactRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)

	contact, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewContactError("GetByID", id, persistence.ErrContactNotFound)
		}

		return nil, fmt.Errorf("failed to scan contact: %w", err)
	}

	return contact, nil
}

func (r *ContactRepository) Save(ctx context.Context, contact *models.Contact) error {
	now := time.Now().UTC()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}

	contact.UpdatedAt = now

	customFields, err := marshalJSON(contact.CustomFields)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO contacts (`+contactColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , email = EXCLUDED.email
		  , phone = EXCLUDED.phone
		  , status = EXCLUDED.status
		  , notes = EXCLUDED.notes
		  , address = EXCLUDED.address
		  , city = EXCLUDED.city
		  , state = EXCLUDED.state
		  , postal_code = EXCLUDED.postal_code
		  , country = EXCLUDED.country
		  , lead_score = EXCLUDED.lead_score
		  , custom_fields = EXCLUDED.custom_fields
		  , updated_at = EXCLUDED.updated_at
	`, contact.ID, contact.Name, contact.Email, contact.Phone, contact.Status, contact.Notes, contact.Address,
		contact.City, contact.State, contact.PostalCode, contact.Country, contact.LeadScore, customFields,
		contact.CreatedAt, contact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}

	return nil
}

func (r *ContactRepository) UpdateField(ctx context.Context, id, key, value string) (*models.Contact, error) {
	column, ok := contactFieldColumns[key]
	if !ok {
		return nil, fmt.Errorf("field %q is not updatable", key)
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE contacts SET `+column+` = $2, updated_at = $3 WHERE id = $1 RETURNING `+contactColumns,
		id, value, time.Now().UTC(),
	)

	contact, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewContactError("UpdateField", id, persistence.ErrContactNotFound)
		}

		return nil, fmt.Errorf("failed to update contact field: %w", err)
	}

	return contact, nil
}

func scanContact(row scanner) (*models.Contact, error) {
	var (
		contact      models.Contact
		customFields []byte
	)

	err := row.Scan(
		&contact.ID,
		&contact.Name,
		&contact.Email,
		&contact.Phone,
		&contact.Status,
		&contact.Notes,
		&contact.Address,
		&contact.City,
		&contact.State,
		&contact.PostalCode,
		&contact.Country,
		&contact.LeadScore,
		&customFields,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	contact.CustomFields, err = unmarshalJSON(customFields)
	if err != nil {
		return nil, err
	}

	return &contact, nil
}

type TagRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTagRepository(db *sql.DB, logger *slog.Logger) *TagRepository {
	return &TagRepository{db: db, logger: logger}
}

func (r *TagRepository) GetByID(ctx context.Context, id string) (*models.Tag, error) {
	return r.first(ctx, `SELECT id, name, created_at FROM tags WHERE id = $1`, id)
}

func (r *TagRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	return r.first(ctx, `SELECT id, name, created_at FROM tags WHERE LOWER(name) = LOWER($1)`, name)
}

func (r *TagRepository) first(ctx context.Context, query, arg string) (*models.Tag, error) {
	var tag models.Tag

	err := r.db.QueryRowContext(ctx, query, arg).Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tag %s: %w", arg, persistence.ErrTagNotFound)
		}

		return nil, fmt.Errorf("failed to scan tag: %w", err)
	}

	return &tag, nil
}

func (r *TagRepository) Save(ctx context.Context, tag *models.Tag) error {
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, tag.ID, tag.Name, tag.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save tag: %w", err)
	}

	return nil
}

func (r *TagRepository) HasContactTag(ctx context.Context, contactID, tagID string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM contact_tags WHERE contact_id = $1 AND tag_id = $2)`,
		contactID, tagID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check contact tag: %w", err)
	}

	return exists, nil
}

func (r *TagRepository) Attach(ctx context.Context, contactTag *models.ContactTag) error {
	if contactTag.CreatedAt.IsZero() {
		contactTag.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_tags (contact_id, tag_id, source, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (contact_id, tag_id) DO NOTHING
	`, contactTag.ContactID, contactTag.TagID, contactTag.Source, contactTag.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to attach tag: %w", err)
	}

	return nil
}

func (r *TagRepository) Detach(ctx context.Context, contactID, tagID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM contact_tags WHERE contact_id = $1 AND tag_id = $2`, contactID, tagID)
	if err != nil {
		return fmt.Errorf("failed to detach tag: %w", err)
	}

	return nil
}

func (r *TagRepository) ContactTags(ctx context.Context, contactID string) ([]*models.ContactTag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT contact_id, tag_id, source, created_at FROM contact_tags WHERE contact_id = $1 ORDER BY created_at
	`, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact tags: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	contactTags := make([]*models.ContactTag, 0)

	for rows.Next() {
		var contactTag models.ContactTag

		err := rows.Scan(&contactTag.ContactID, &contactTag.TagID, &contactTag.Source, &contactTag.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact tag: %w", err)
		}

		contactTags = append(contactTags, &contactTag)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating contact tags: %w", err)
	}

	return contactTags, nil
}
