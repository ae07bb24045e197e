package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Nishant28-sh/TradeTogether/internal/config"
	"github.com/Nishant28-sh/TradeTogether/internal/domain"
	"github.com/Nishant28-sh/TradeTogether/internal/hub"
	"github.com/Nishant28-sh/TradeTogether/internal/room"
)

type fakeStore struct {
	mu         sync.Mutex
	appended   []domain.ChatMessage
	failAppend bool
	history    []domain.ChatMessage
	historyErr error
}

func (s *fakeStore) Append(_ context.Context, msg domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return errors.New("store unavailable")
	}
	s.appended = append(s.appended, msg)
	return nil
}

func (s *fakeStore) RecentHistory(_ context.Context, roomID string, _ int) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	var out []domain.ChatMessage
	for _, msg := range s.history {
		if msg.Room == roomID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) appendedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appended)
}

type harness struct {
	hub     *hub.Hub
	store   *fakeStore
	service ChatService
}

func newHarness() *harness {
	h := hub.NewHub(config.WebSocketConfig{})
	go h.Run()
	st := &fakeStore{}
	history := NewHistoryReader(st, nil, config.HistoryConfig{Limit: 50})
	return &harness{
		hub:     h,
		store:   st,
		service: NewChatService(h, st, history),
	}
}

func (h *harness) newClient(id string) *hub.Client {
	c := hub.NewClient(id, h.hub, nil, config.WebSocketConfig{})
	h.hub.Register(c)
	return c
}

func recvEvent(t *testing.T, c *hub.Client) (string, []byte) {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		if !ok {
			t.Fatalf("client %s send channel closed", c.ID)
		}
		var base domain.BaseEvent
		if err := json.Unmarshal(data, &base); err != nil {
			t.Fatalf("malformed event: %v", err)
		}
		return base.Type, data
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID)
	}
	return "", nil
}

func expectSilence(t *testing.T, c *hub.Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("client %s unexpectedly received %s", c.ID, data)
	case <-time.After(100 * time.Millisecond):
	}
}

func globalJoin(username, selfID string) domain.JoinEvent {
	return domain.JoinEvent{
		Type:     domain.EventJoin,
		Username: username,
		Context:  room.Context{SelfID: selfID},
	}
}

func TestJoinAnnouncesToOthersOnly(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	bob := h.newClient("bob-conn")
	if err := h.service.HandleJoin(ctx, bob, globalJoin("bob", "u2")); err != nil {
		t.Fatalf("bob join failed: %v", err)
	}
	if typ, _ := recvEvent(t, bob); typ != domain.EventChatHistory {
		t.Fatalf("expected chatHistory for bob, got %s", typ)
	}

	alice := h.newClient("alice-conn")
	if err := h.service.HandleJoin(ctx, alice, globalJoin("alice", "u1")); err != nil {
		t.Fatalf("alice join failed: %v", err)
	}

	// Bob sees the synthetic notice.
	typ, data := recvEvent(t, bob)
	if typ != domain.EventMessage {
		t.Fatalf("expected message event for bob, got %s", typ)
	}
	var notice domain.MessageEvent
	if err := json.Unmarshal(data, &notice); err != nil {
		t.Fatalf("malformed notice: %v", err)
	}
	if notice.Kind != domain.KindSystem || notice.Body != "alice joined the chat." {
		t.Fatalf("unexpected notice: %+v", notice.ChatMessage)
	}

	// Alice gets history only, never her own join notice.
	if typ, _ := recvEvent(t, alice); typ != domain.EventChatHistory {
		t.Fatalf("expected chatHistory for alice, got %s", typ)
	}
	expectSilence(t, alice)
}

func TestJoinReplaysHistory(t *testing.T) {
	h := newHarness()
	h.store.history = []domain.ChatMessage{
		domain.NewUserMessage(room.Global, "u2", "bob", "earlier message"),
	}

	alice := h.newClient("alice-conn")
	if err := h.service.HandleJoin(context.Background(), alice, globalJoin("alice", "u1")); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	typ, data := recvEvent(t, alice)
	if typ != domain.EventChatHistory {
		t.Fatalf("expected chatHistory, got %s", typ)
	}
	var ev domain.ChatHistoryEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("malformed history: %v", err)
	}
	if ev.Room != room.Global || len(ev.Messages) != 1 || ev.Messages[0].Body != "earlier message" {
		t.Fatalf("unexpected history: %+v", ev)
	}
}

func TestJoinMissingIdentityRejected(t *testing.T) {
	h := newHarness()
	alice := h.newClient("alice-conn")

	ev := domain.JoinEvent{
		Type:     domain.EventJoin,
		Username: "alice",
		Context:  room.Context{IsPrivate: true, SelfID: "u1"}, // no OtherID
	}
	if err := h.service.HandleJoin(context.Background(), alice, ev); !errors.Is(err, room.ErrMissingParticipant) {
		t.Fatalf("expected ErrMissingParticipant, got %v", err)
	}

	typ, data := recvEvent(t, alice)
	if typ != domain.EventError {
		t.Fatalf("expected error event, got %s", typ)
	}
	var errEv domain.ErrorEvent
	if err := json.Unmarshal(data, &errEv); err != nil {
		t.Fatalf("malformed error event: %v", err)
	}
	if errEv.Code != domain.ErrCodeBadRequest {
		t.Fatalf("unexpected error code %q", errEv.Code)
	}
	if alice.Session.IsInRoom() {
		t.Fatal("session must stay unsubscribed after a rejected join")
	}
}

func TestSendMessageFanOutIncludesSender(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	alice := h.newClient("alice-conn")
	bob := h.newClient("bob-conn")
	h.service.HandleJoin(ctx, alice, globalJoin("alice", "u1"))
	recvEvent(t, alice) // history
	h.service.HandleJoin(ctx, bob, globalJoin("bob", "u2"))
	recvEvent(t, bob)   // history
	recvEvent(t, alice) // bob's join notice

	send := domain.SendMessageEvent{
		Type:       domain.EventSendMessage,
		SenderID:   "u1",
		SenderName: "alice",
		Body:       "hello",
		Context:    room.Context{SelfID: "u1"},
	}
	if err := h.service.HandleSendMessage(ctx, alice, send); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	// Both sessions receive the broadcast, the sender included: the
	// sender's UI renders the echo.
	for _, c := range []*hub.Client{alice, bob} {
		typ, data := recvEvent(t, c)
		if typ != domain.EventMessage {
			t.Fatalf("client %s: expected message, got %s", c.ID, typ)
		}
		var ev domain.MessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("malformed message: %v", err)
		}
		if ev.Body != "hello" || ev.SenderName != "alice" || ev.Room != room.Global {
			t.Fatalf("client %s: unexpected message %+v", c.ID, ev.ChatMessage)
		}
		expectSilence(t, c)
	}

	// Persistence is asynchronous; wait for it.
	deadline := time.Now().Add(time.Second)
	for h.store.appendedCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("message never persisted")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSendMessagePersistFailureStillDelivers(t *testing.T) {
	h := newHarness()
	h.store.failAppend = true
	ctx := context.Background()

	alice := h.newClient("alice-conn")
	h.service.HandleJoin(ctx, alice, globalJoin("alice", "u1"))
	recvEvent(t, alice) // history

	send := domain.SendMessageEvent{
		Type:       domain.EventSendMessage,
		SenderID:   "u1",
		SenderName: "alice",
		Body:       "hello anyway",
		Context:    room.Context{SelfID: "u1"},
	}
	if err := h.service.HandleSendMessage(ctx, alice, send); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	typ, data := recvEvent(t, alice)
	if typ != domain.EventMessage {
		t.Fatalf("expected message despite store failure, got %s", typ)
	}
	var ev domain.MessageEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("malformed message: %v", err)
	}
	if ev.Body != "hello anyway" {
		t.Fatalf("unexpected message %+v", ev.ChatMessage)
	}
}

func TestSendMessageEmptyBodyRejected(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	alice := h.newClient("alice-conn")
	bob := h.newClient("bob-conn")
	h.service.HandleJoin(ctx, alice, globalJoin("alice", "u1"))
	recvEvent(t, alice)
	h.service.HandleJoin(ctx, bob, globalJoin("bob", "u2"))
	recvEvent(t, bob)
	recvEvent(t, alice)

	send := domain.SendMessageEvent{
		Type:       domain.EventSendMessage,
		SenderID:   "u1",
		SenderName: "alice",
		Body:       "   ",
		Context:    room.Context{SelfID: "u1"},
	}
	if err := h.service.HandleSendMessage(ctx, alice, send); err == nil {
		t.Fatal("expected an error for a blank message")
	}

	// The error is scoped to the sender; nothing reaches the room.
	typ, _ := recvEvent(t, alice)
	if typ != domain.EventError {
		t.Fatalf("expected error event for sender, got %s", typ)
	}
	expectSilence(t, bob)

	if h.store.appendedCount() != 0 {
		t.Fatal("blank message must not be persisted")
	}
}

func TestTradeRoomIsolation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	tradeCtx := room.Context{IsPrivate: true, SelfID: "u1", OtherID: "u2", TradeContextID: "P123"}
	privateCtx := room.Context{IsPrivate: true, SelfID: "u1", OtherID: "u2"}

	alice := h.newClient("alice-conn")
	h.service.HandleJoin(ctx, alice, domain.JoinEvent{Type: domain.EventJoin, Username: "alice", Context: tradeCtx})
	recvEvent(t, alice) // history

	eve := h.newClient("eve-conn")
	h.service.HandleJoin(ctx, eve, domain.JoinEvent{Type: domain.EventJoin, Username: "bob", Context: privateCtx})
	recvEvent(t, eve) // history

	send := domain.SendMessageEvent{
		Type:       domain.EventSendMessage,
		SenderID:   "u1",
		SenderName: "alice",
		Body:       "negotiation detail",
		Context:    tradeCtx,
	}
	if err := h.service.HandleSendMessage(ctx, alice, send); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	// The plain private room between the same pair never sees it.
	typ, _ := recvEvent(t, alice)
	if typ != domain.EventMessage {
		t.Fatalf("expected message for alice, got %s", typ)
	}
	expectSilence(t, eve)
}

func TestTypingForwardedToOthersOnly(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	alice := h.newClient("alice-conn")
	bob := h.newClient("bob-conn")
	h.service.HandleJoin(ctx, alice, globalJoin("alice", "u1"))
	recvEvent(t, alice)
	h.service.HandleJoin(ctx, bob, globalJoin("bob", "u2"))
	recvEvent(t, bob)
	recvEvent(t, alice)

	typing := domain.TypingEvent{
		Type:       domain.EventTyping,
		SenderName: "alice",
		IsTyping:   true,
		Context:    room.Context{SelfID: "u1"},
	}
	if err := h.service.HandleTyping(ctx, alice, typing); err != nil {
		t.Fatalf("typing failed: %v", err)
	}

	typ, data := recvEvent(t, bob)
	if typ != domain.EventUserTyping {
		t.Fatalf("expected userTyping, got %s", typ)
	}
	var ev domain.UserTypingEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("malformed userTyping: %v", err)
	}
	if ev.Username != "alice" || !ev.IsTyping {
		t.Fatalf("unexpected userTyping %+v", ev)
	}

	expectSilence(t, alice)

	if h.store.appendedCount() != 0 {
		t.Fatal("typing hints must never be persisted")
	}
}

func TestDisconnectLeavesRoom(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	alice := h.newClient("alice-conn")
	h.service.HandleJoin(ctx, alice, globalJoin("alice", "u1"))
	recvEvent(t, alice)

	if got := h.hub.RoomSize(room.Global); got != 1 {
		t.Fatalf("expected room size 1, got %d", got)
	}

	if err := h.service.HandleDisconnect(ctx, alice); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	if got := h.hub.RoomSize(room.Global); got != 0 {
		t.Fatalf("expected empty room, got size %d", got)
	}
	if alice.Session.IsInRoom() {
		t.Fatal("session still marked as in a room")
	}
}
