package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/totp-keeper/internal/model"
)

// EventRepository persists audit events.
type EventRepository interface {
	// Create inserts e within tx and fills its ID and CreatedAt.
	Create(ctx context.Context, tx Tx, e *model.Event) error
	// UpdateMetadata replaces the metadata of event id within tx.
	UpdateMetadata(ctx context.Context, tx Tx, id uuid.UUID, metadata map[string]any) error
}
