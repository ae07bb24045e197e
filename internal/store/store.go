package store

import (
	"context"

	"github.com/Nishant28-sh/TradeTogether/internal/domain"
)

// MessageStore is the durable append-only log of chat messages, keyed by
// canonical room identifier. Persistence is best-effort from the
// coordinator's point of view: an Append failure must never block message
// delivery to subscribers.
type MessageStore interface {
	// Append persists one message.
	Append(ctx context.Context, msg domain.ChatMessage) error

	// RecentHistory returns the most recent limit messages for a room in
	// ascending time order (oldest first). Repeated calls with no new
	// writes return the same result.
	RecentHistory(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)

	Close() error
}
