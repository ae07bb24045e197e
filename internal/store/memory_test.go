package store

import (
	"context"
	"testing"
	"time"

	"github.com/Nishant28-sh/TradeTogether/internal/domain"
)

func TestMemoryStoreHistoryOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Now().UTC()
	for i, body := range []string{"first", "second", "third"} {
		msg := domain.NewUserMessage("global", "u1", "alice", body)
		msg.SentAt = base.Add(time.Duration(i) * time.Second)
		if err := s.Append(ctx, msg); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	history, err := s.RecentHistory(ctx, "global", 50)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].SentAt.Before(history[i-1].SentAt) {
			t.Fatalf("history out of order at index %d", i)
		}
	}
	if history[0].Body != "first" || history[2].Body != "third" {
		t.Fatalf("unexpected ordering: %q .. %q", history[0].Body, history[2].Body)
	}
}

func TestMemoryStoreHistoryLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := s.Append(ctx, domain.NewUserMessage("global", "u1", "alice", "msg")); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	history, err := s.RecentHistory(ctx, "global", 4)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(history))
	}
}

func TestMemoryStoreHistoryIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Append(ctx, domain.NewUserMessage("global", "u1", "alice", "hello")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	first, err := s.RecentHistory(ctx, "global", 50)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	second, err := s.RecentHistory(ctx, "global", 50)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("repeated reads differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("repeated reads differ at index %d", i)
		}
	}
}

func TestMemoryStoreRoomIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Append(ctx, domain.NewUserMessage("private_a_b", "a", "alice", "secret")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	history, err := s.RecentHistory(ctx, "global", 50)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty global history, got %d messages", len(history))
	}
}
