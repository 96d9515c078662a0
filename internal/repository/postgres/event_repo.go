package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/totp-keeper/internal/errs"
	"github.com/and161185/totp-keeper/internal/model"
	"github.com/and161185/totp-keeper/internal/repository"
)

// EventRepo implements EventRepository using PostgreSQL.
type EventRepo struct{}

// NewEventRepo constructs an event repository. Events are only written inside transactions.
func NewEventRepo() *EventRepo { return &EventRepo{} }

// Create inserts an audit event and fills ID (when unset) and CreatedAt.
func (r *EventRepo) Create(ctx context.Context, tx repository.Tx, e *model.Event) error {
	ptx, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		if e.ID, err = uuid.NewV7(); err != nil {
			return err
		}
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	const q = `
INSERT INTO events (id, type, originator_user_id, originator_ip, metadata)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`
	return ptx.QueryRow(ctx, q, e.ID, string(e.Type), e.OriginatorUserID, e.OriginatorIP, e.Metadata).
		Scan(&e.CreatedAt)
}

// UpdateMetadata replaces the JSON metadata of an existing event.
func (r *EventRepo) UpdateMetadata(ctx context.Context, tx repository.Tx, id uuid.UUID, metadata map[string]any) error {
	ptx, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	const q = `UPDATE events SET metadata = $2 WHERE id = $1`
	tag, err := ptx.Exec(ctx, q, id, metadata)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
