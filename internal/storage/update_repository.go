package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/loadshedding-tracker/backend/internal/storage/models"
)

// UpdateRepository provides data access for the live updates journal.
type UpdateRepository struct {
	BaseRepository
}

// NewUpdateRepository creates a new live update repository.
func NewUpdateRepository(db *DB) *UpdateRepository {
	return &UpdateRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new live update. ID and Timestamp are assigned when empty.
func (r *UpdateRepository) Create(ctx context.Context, u *models.LiveUpdate) error {
	return r.insert(ctx, r.DB(), u)
}

// Append inserts u and trims the journal to the newest keep updates in one transaction.
func (r *UpdateRepository) Append(ctx context.Context, u *models.LiveUpdate, keep int) error {
	return r.Transaction(func(tx *sql.Tx) error {
		if err := r.insert(ctx, tx, u); err != nil {
			return err
		}
		_, err := trimUpdates(ctx, tx, keep)
		return err
	})
}

func (r *UpdateRepository) insert(ctx context.Context, q Queryable, u *models.LiveUpdate) error {
	if u.ID == "" {
		u.ID = GenerateID()
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = r.Now()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO live_updates (id, created_at, type, message, area_name)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, toMillis(u.Timestamp), string(u.Type), u.Message, u.AreaName)
	if err != nil {
		return fmt.Errorf("inserting live update: %w", err)
	}

	return nil
}

// List returns up to limit updates, newest first. A non-positive limit returns all.
func (r *UpdateRepository) List(ctx context.Context, limit int) ([]models.LiveUpdate, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, created_at, type, message, area_name
		FROM live_updates
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying live updates: %w", err)
	}
	defer rows.Close()

	updates := []models.LiveUpdate{}
	for rows.Next() {
		var (
			u       models.LiveUpdate
			created int64
			kind    string
		)
		if err := rows.Scan(&u.ID, &created, &kind, &u.Message, &u.AreaName); err != nil {
			return nil, fmt.Errorf("scanning live update: %w", err)
		}
		u.Timestamp = fromMillis(created)
		u.Type = models.UpdateType(kind)
		updates = append(updates, u)
	}

	return updates, rows.Err()
}

// Trim deletes everything but the newest keep updates and returns how many rows were removed.
func (r *UpdateRepository) Trim(ctx context.Context, keep int) (int64, error) {
	return trimUpdates(ctx, r.DB(), keep)
}

func trimUpdates(ctx context.Context, q Queryable, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	res, err := q.ExecContext(ctx, `
		DELETE FROM live_updates
		WHERE seq NOT IN (
			SELECT seq FROM live_updates
			ORDER BY created_at DESC, seq DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("trimming live updates: %w", err)
	}

	return res.RowsAffected()
}

// Count returns the number of stored updates.
func (r *UpdateRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM live_updates").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting live updates: %w", err)
	}
	return n, nil
}
