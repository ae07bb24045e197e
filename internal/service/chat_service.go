package service

import (
	"context"
	"strings"
	"time"

	"github.com/Nishant28-sh/TradeTogether/internal/domain"
	"github.com/Nishant28-sh/TradeTogether/internal/hub"
	"github.com/Nishant28-sh/TradeTogether/internal/room"
	"github.com/Nishant28-sh/TradeTogether/internal/store"
	"github.com/Nishant28-sh/TradeTogether/pkg/log"
)

const persistTimeout = 5 * time.Second

type chatService struct {
	hub     *hub.Hub
	store   store.MessageStore
	history *HistoryReader
}

func NewChatService(h *hub.Hub, st store.MessageStore, history *HistoryReader) ChatService {
	return &chatService{
		hub:     h,
		store:   st,
		history: history,
	}
}

// HandleJoin resolves the canonical room from the join context, moves the
// client into it, announces the arrival to the other subscribers and
// replays recent history to the joiner only.
func (s *chatService) HandleJoin(ctx context.Context, c *hub.Client, ev domain.JoinEvent) error {
	username := strings.TrimSpace(ev.Username)
	if username == "" {
		c.SendError(domain.ErrCodeBadRequest, "join requires a username")
		return room.ErrMissingParticipant
	}

	roomID, err := room.Resolve(ev.Context)
	if err != nil {
		// The session stays unsubscribed; nothing else is affected.
		c.SendError(domain.ErrCodeBadRequest, "join requires both participant identities")
		return err
	}

	c.Session.SetIdentity(ev.SelfID, username)

	if prev := c.Session.CurrentRoom(); prev != "" && prev != roomID {
		s.hub.LeaveRoom(c, prev)
	}

	s.hub.JoinRoom(c, roomID)
	c.Session.JoinRoom(roomID)

	notice := domain.NewJoinNotice(roomID, username)
	if err := s.hub.BroadcastToRoom(roomID, domain.NewMessageEvent(notice), c.ID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Str(log.FieldRoomID, roomID).Err(err).Msg("failed to broadcast join notice")
	}

	history, err := s.history.Recent(ctx, roomID, 0)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Str(log.FieldRoomID, roomID).Err(err).Msg("failed to load chat history")
		c.SendError(domain.ErrCodeInternalError, "Failed to load chat history")
		return nil // the join itself succeeded
	}

	return c.SendEvent(domain.NewChatHistoryEvent(roomID, history))
}

// HandleSendMessage persists and fans out one user message. The room is
// re-derived from the event's own privacy context so a client can never
// smuggle a message into a room it did not legitimately address.
// Persistence is decoupled from delivery: a failing or slow store never
// withholds the message from subscribers.
func (s *chatService) HandleSendMessage(ctx context.Context, c *hub.Client, ev domain.SendMessageEvent) error {
	senderID := strings.TrimSpace(ev.SenderID)
	senderName := strings.TrimSpace(ev.SenderName)
	body := strings.TrimSpace(ev.Body)
	if body == "" || senderID == "" || senderName == "" {
		c.SendError(domain.ErrCodeBadRequest, "Invalid message data")
		return room.ErrMissingParticipant
	}

	roomID, err := room.Resolve(ev.Context)
	if err != nil {
		c.SendError(domain.ErrCodeBadRequest, "message requires both participant identities")
		return err
	}

	msg := domain.NewUserMessage(roomID, senderID, senderName, ev.Body)

	go func() {
		persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.store.Append(persistCtx, msg); err != nil {
			l := log.L()
			l.Error().Str(log.FieldRoomID, roomID).Err(err).Msg("failed to persist message, delivering anyway")
			return
		}
		s.history.Invalidate(persistCtx, roomID)
	}()

	// Everyone in the room gets the message, the sender included: the
	// sender's UI renders the broadcast echo, not an optimistic insert.
	return s.hub.BroadcastToRoom(roomID, domain.NewMessageEvent(msg), "")
}

// HandleTyping forwards a presence hint to the other room subscribers.
// Hints are never persisted, and a malformed hint is dropped silently.
func (s *chatService) HandleTyping(ctx context.Context, c *hub.Client, ev domain.TypingEvent) error {
	roomID, err := room.Resolve(ev.Context)
	if err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Msg("dropping typing hint with unresolvable room")
		return nil
	}

	return s.hub.BroadcastToRoom(roomID, &domain.UserTypingEvent{
		Type:     domain.EventUserTyping,
		Username: ev.SenderName,
		IsTyping: ev.IsTyping,
	}, c.ID)
}

// HandleDisconnect removes the session from its room. No system message
// is emitted for departures.
func (s *chatService) HandleDisconnect(_ context.Context, c *hub.Client) error {
	if roomID := c.Session.CurrentRoom(); roomID != "" {
		s.hub.LeaveRoom(c, roomID)
		c.Session.LeaveRoom()
	}
	return nil
}
