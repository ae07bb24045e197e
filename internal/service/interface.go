package service

import (
	"context"

	"github.com/Nishant28-sh/TradeTogether/internal/domain"
	"github.com/Nishant28-sh/TradeTogether/internal/hub"
)

// ChatService coordinates room membership, message fan-out and history
// replay for connected clients. All errors it produces are scoped to the
// originating client; one malformed payload never affects another session.
type ChatService interface {
	HandleJoin(ctx context.Context, client *hub.Client, ev domain.JoinEvent) error
	HandleSendMessage(ctx context.Context, client *hub.Client, ev domain.SendMessageEvent) error
	HandleTyping(ctx context.Context, client *hub.Client, ev domain.TypingEvent) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error
}
