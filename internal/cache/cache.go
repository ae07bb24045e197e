package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Nishant28-sh/TradeTogether/internal/domain"
)

// ErrCacheMiss is returned by Get when no entry exists for the key.
var ErrCacheMiss = errors.New("cache miss")

// MessageCache is a short-lived cache for a room's recent-history page.
// Entries go stale on every append, so implementations rely on short TTLs
// plus explicit invalidation rather than long-lived entries.
type MessageCache interface {
	Get(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)
	Set(ctx context.Context, roomID string, limit int, messages []domain.ChatMessage, ttl time.Duration) error
	Invalidate(ctx context.Context, roomID string, limit int) error
	Close() error
}
