package repositories

import (
	"context"
	"fmt"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/db"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
)

// PostgresIntentStore persists remote write intents to PostgreSQL.
type PostgresIntentStore struct {
	pool db.Pool
}

// NewPostgresIntentStore constructs an intent store backed by PostgreSQL.
func NewPostgresIntentStore(pool db.Pool) *PostgresIntentStore {
	return &PostgresIntentStore{pool: pool}
}

// Create records a new pending intent.
func (s *PostgresIntentStore) Create(ctx context.Context, intent models.Intent) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	status := intent.Status
	if status == "" {
		status = models.IntentPending
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO remote_intents (id, owner_id, kind, remote_id, payload, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, intent.ID, intent.OwnerID, string(intent.Kind), intent.RemoteID, intent.Payload, string(status), intent.CreatedAt)
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert intent: %w", err)
	}
	return nil
}

// AttachRemote stores the identifier the remote provider assigned. The intent is pending
// again afterwards, even if a sync pass abandoned it while the remote write was in flight.
func (s *PostgresIntentStore) AttachRemote(ctx context.Context, intentID, remoteID string) error {
	return s.update(ctx, `UPDATE remote_intents SET remote_id = $2, status = $3 WHERE id = $1`,
		intentID, remoteID, string(models.IntentPending))
}

// SetStatus moves the intent to a new reconciliation status.
func (s *PostgresIntentStore) SetStatus(ctx context.Context, intentID string, status models.IntentStatus) error {
	return s.update(ctx, `UPDATE remote_intents SET status = $2 WHERE id = $1`, intentID, string(status))
}

func (s *PostgresIntentStore) update(ctx context.Context, query string, args ...any) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPending returns the oldest pending intents first.
func (s *PostgresIntentStore) ListPending(ctx context.Context, limit int) ([]models.Intent, error) {
	if limit <= 0 {
		limit = 100
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, owner_id, kind, remote_id, payload, status, created_at
        FROM remote_intents
        WHERE status = $1
        ORDER BY created_at ASC
        LIMIT $2
    `, string(models.IntentPending), limit)
	if err != nil {
		return nil, fmt.Errorf("query intents: %w", err)
	}
	defer rows.Close()

	var intents []models.Intent
	for rows.Next() {
		var (
			intent       models.Intent
			kind, status string
		)
		if err := rows.Scan(&intent.ID, &intent.OwnerID, &kind, &intent.RemoteID, &intent.Payload, &status, &intent.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		intent.Kind = models.IntentKind(kind)
		intent.Status = models.IntentStatus(status)
		intent.CreatedAt = intent.CreatedAt.UTC()
		intents = append(intents, intent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intents: %w", err)
	}
	return intents, nil
}

var _ IntentRepository = (*PostgresIntentStore)(nil)
