package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/database"
	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"

	"github.com/google/uuid"
)

type PostgresPendingUpdateRepository struct {
	db database.DB
}

func NewPostgresPendingUpdateRepository(db database.DB) *PostgresPendingUpdateRepository {
	return &PostgresPendingUpdateRepository{db: db}
}

const pendingColumns = `id, type, data, status, COALESCE(discovery_reason, ''), confidence, discovered_at, reviewed_at, COALESCE(reviewed_by, '')`

// Insert relies on the partial unique index over (type, subject) of pending
// rows, so concurrent proposals of the same subject collapse into one.
func (r *PostgresPendingUpdateRepository) Insert(ctx context.Context, u pending.Update) (bool, error) {
	data, err := json.Marshal(u.Payload)
	if err != nil {
		return false, err
	}
	n, err := r.db.Exec(ctx,
		`INSERT INTO pending_ontology_updates
			(id, type, subject, data, status, discovery_reason, confidence, discovered_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5, NULLIF($6, ''), $7, $8)
		 ON CONFLICT (type, subject) WHERE status = 'pending' DO NOTHING`,
		u.ID, string(u.Kind()), u.Subject(), string(data), string(u.Status), u.DiscoveryReason, u.Confidence, u.DiscoveredAt,
	)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresPendingUpdateRepository) HasPending(ctx context.Context, kind pending.Kind, subject string) (bool, error) {
	var exists bool
	row := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM pending_ontology_updates WHERE type = $1 AND subject = $2 AND status = 'pending')`,
		string(kind), subject,
	)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresPendingUpdateRepository) FindPending(ctx context.Context, id uuid.UUID) (pending.Update, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+pendingColumns+` FROM pending_ontology_updates WHERE id = $1 AND status = 'pending'`,
		id,
	)
	u, err := scanUpdate(row)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return pending.Update{}, ErrNotFound
		}
		return pending.Update{}, err
	}
	return u, nil
}

func (r *PostgresPendingUpdateRepository) ListByStatus(ctx context.Context, status pending.Status) ([]pending.Update, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+pendingColumns+` FROM pending_ontology_updates WHERE status = $1 ORDER BY discovered_at DESC`,
		string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]pending.Update, 0)
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresPendingUpdateRepository) MarkReviewed(ctx context.Context, id uuid.UUID, status pending.Status, reviewer string, at time.Time) error {
	n, err := r.db.Exec(ctx,
		`UPDATE pending_ontology_updates
		 SET status = $2, reviewed_by = $3, reviewed_at = $4
		 WHERE id = $1 AND status = 'pending'`,
		id, string(status), reviewer, at.UTC(),
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUpdate(row database.Row) (pending.Update, error) {
	var (
		u          pending.Update
		kind       string
		status     string
		data       []byte
		confidence *float64
		reviewedAt *time.Time
	)
	if err := row.Scan(&u.ID, &kind, &data, &status, &u.DiscoveryReason, &confidence, &u.DiscoveredAt, &reviewedAt, &u.ReviewedBy); err != nil {
		return pending.Update{}, err
	}
	p, err := pending.DecodePayload(pending.Kind(kind), data)
	if err != nil {
		return pending.Update{}, fmt.Errorf("pending update %s: %w", u.ID, err)
	}
	u.Payload = p
	u.Status = pending.Status(status)
	u.Confidence = confidence
	u.ReviewedAt = reviewedAt
	return u, nil
}
