package connection

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for LLM connections.
// The per-user singleton rule is enforced by Upsert under a unique index on
// user_id, so two concurrent connect calls from the same user cannot race
// into two rows.
type Repository interface {
	// Upsert inserts the connection or replaces the user's existing one
	Upsert(ctx context.Context, conn *LLMConnection) error

	// FindByUserID finds the user's connection, returning ErrNotFound if absent
	FindByUserID(ctx context.Context, userID uuid.UUID) (*LLMConnection, error)

	// DeleteByUserID removes the user's connection. Absent rows are a no-op.
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}
