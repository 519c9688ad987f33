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
	"github.com/google/uuid"
)

type ScoreRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewScoreRepository(db *sql.DB, logger *slog.Logger) *ScoreRepository {
	return &ScoreRepository{db: db, logger: logger}
}

// Add increments the score in place and records the history row in the same transaction.
func (r *ScoreRepository) Add(ctx context.Context, contactID string, points int, reason, source string) (*models.ScoreHistory, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	entry := &models.ScoreHistory{
		ID:        uuid.NewString(),
		ContactID: contactID,
		Points:    points,
		Reason:    reason,
		Source:    source,
		CreatedAt: now,
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE contacts SET lead_score = lead_score + $2, updated_at = $3
		WHERE id = $1
		RETURNING lead_score - $2, lead_score
	`, contactID, points, now).Scan(&entry.PreviousScore, &entry.NewScore)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewContactError("AddScore", contactID, persistence.ErrContactNotFound)
		}

		return nil, fmt.Errorf("failed to update lead score: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO score_history (id, contact_id, points, previous_score, new_score, reason, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.ContactID, entry.Points, entry.PreviousScore, entry.NewScore, entry.Reason, entry.Source,
		entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record score history: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit score change: %w", err)
	}

	return entry, nil
}

func (r *ScoreRepository) History(ctx context.Context, contactID string) ([]*models.ScoreHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, contact_id, points, previous_score, new_score, reason, source, created_at
		FROM score_history
		WHERE contact_id = $1
		ORDER BY created_at
	`, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to query score history: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	history := make([]*models.ScoreHistory, 0)

	for rows.Next() {
		var entry models.ScoreHistory

		err := rows.Scan(&entry.ID, &entry.ContactID, &entry.Points, &entry.PreviousScore, &entry.NewScore,
			&entry.Reason, &entry.Source, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan score history: %w", err)
		}

		history = append(history, &entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating score history: %w", err)
	}

	return history, nil
}
