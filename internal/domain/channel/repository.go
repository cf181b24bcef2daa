package channel

import "context"

// Repository is the persistence port for channel connections
type Repository interface {
	// Save inserts or updates a channel connection
	Save(ctx context.Context, conn *ChannelConnection) error

	// FindVerifiedByChatID finds the active verified connection bound to a
	// Telegram chat, returning ErrNotFound if absent
	FindVerifiedByChatID(ctx context.Context, chatID int64) (*ChannelConnection, error)

	// FindPendingByCode finds an unverified connection whose single-use code
	// matches the normalized text, returning ErrNotFound if absent
	FindPendingByCode(ctx context.Context, normalizedCode string) (*ChannelConnection, error)
}
