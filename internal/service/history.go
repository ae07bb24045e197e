package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Nishant28-sh/TradeTogether/internal/cache"
	"github.com/Nishant28-sh/TradeTogether/internal/config"
	"github.com/Nishant28-sh/TradeTogether/internal/domain"
	"github.com/Nishant28-sh/TradeTogether/internal/store"
	"github.com/Nishant28-sh/TradeTogether/pkg/log"
)

// HistoryReader serves a room's recent-history page from the store,
// optionally fronted by a short-TTL cache. Concurrent reads for the same
// page are collapsed with singleflight so a popular room's join storm
// issues one store query, not hundreds.
type HistoryReader struct {
	store    store.MessageStore
	cache    cache.MessageCache // nil disables caching
	limit    int
	cacheTTL time.Duration
	sf       singleflight.Group
}

func NewHistoryReader(st store.MessageStore, msgCache cache.MessageCache, cfg config.HistoryConfig) *HistoryReader {
	return &HistoryReader{
		store:    st,
		cache:    msgCache,
		limit:    cfg.Limit,
		cacheTTL: cfg.CacheTTL,
	}
}

// Limit reports the default replay bound.
func (h *HistoryReader) Limit() int {
	return h.limit
}

// Recent returns the last limit messages of a room, oldest first. A
// limit <= 0 selects the configured default. Only the default page is
// cached; ad-hoc page sizes go straight to the store.
func (h *HistoryReader) Recent(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = h.limit
	}

	if h.cache == nil || limit != h.limit {
		return h.store.RecentHistory(ctx, roomID, limit)
	}

	key := fmt.Sprintf("%s:%d", roomID, limit)
	result, err, _ := h.sf.Do(key, func() (interface{}, error) {
		return h.fetchWithCache(ctx, roomID, limit)
	})
	if err != nil {
		return nil, err
	}

	messages, ok := result.([]domain.ChatMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return messages, nil
}

// Invalidate drops the cached default page for a room. Called after every
// append so joiners never replay a page missing the message that was just
// delivered live.
func (h *HistoryReader) Invalidate(ctx context.Context, roomID string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, roomID, h.limit); err != nil {
		l := log.L()
		l.Warn().Str(log.FieldRoomID, roomID).Err(err).Msg("cache invalidate error")
	}
}

func (h *HistoryReader) fetchWithCache(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	cached, err := h.cache.Get(ctx, roomID, limit)
	if err == nil {
		return cached, nil
	}

	if !errors.Is(err, cache.ErrCacheMiss) {
		// Log and fall through to the store.
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("cache get error")
	}

	messages, err := h.store.RecentHistory(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages from store: %w", err)
	}

	// Store in cache without blocking the response.
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.cache.Set(cacheCtx, roomID, limit, messages, h.cacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Msg("cache set error")
		}
	}()

	return messages, nil
}
