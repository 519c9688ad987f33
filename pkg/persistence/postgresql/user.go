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
	"github.com/lib/pq"
)

type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.MessageTemplate, error) {
	var template models.MessageTemplate

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, channel, subject, body FROM message_templates WHERE id = $1`, id,
	).Scan(&template.ID, &template.Name, &template.Channel, &template.Subject, &template.Body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template %s: %w", id, persistence.ErrTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	return &template, nil
}

func (r *TemplateRepository) Save(ctx context.Context, template *models.MessageTemplate) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO message_templates (id, name, channel, subject, body) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , channel = EXCLUDED.channel
		  , subject = EXCLUDED.subject
		  , body = EXCLUDED.body
	`, template.ID, template.Name, template.Channel, template.Subject, template.Body)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}

	return nil
}

type UserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewUserRepository(db *sql.DB, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role
	`, user.ID, user.Name, user.Email, user.Role)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	return r.queryUsers(ctx, `SELECT id, name, email, role FROM users WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
}

func (r *UserRepository) ByRole(ctx context.Context, role string) ([]*models.User, error) {
	return r.queryUsers(ctx, `SELECT id, name, email, role FROM users WHERE role = $1 ORDER BY id`, role)
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, arg any) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	users := make([]*models.User, 0)

	for rows.Next() {
		var user models.User

		err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Role)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		users = append(users, &user)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

func (r *UserRepository) SaveNotification(ctx context.Context, notification *models.Notification) error {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	data, err := marshalJSON(notification.Data)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, body, data, created_at) VALUES ($1, $2, $3, $4, $5, $6)
	`, notification.ID, notification.UserID, notification.Title, notification.Body, data, notification.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	return nil
}

func (r *UserRepository) Notifications(ctx context.Context, userID string) ([]*models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, body, data, created_at FROM notifications WHERE user_id = $1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	notifications := make([]*models.Notification, 0)

	for rows.Next() {
		var (
			notification models.Notification
			data         []byte
		)

		err := rows.Scan(&notification.ID, &notification.UserID, &notification.Title, &notification.Body, &data,
			&notification.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		notification.Data, err = unmarshalJSON(data)
		if err != nil {
			return nil, err
		}

		notifications = append(notifications, &notification)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}
