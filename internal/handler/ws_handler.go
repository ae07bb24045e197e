package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Nishant28-sh/TradeTogether/internal/auth"
	"github.com/Nishant28-sh/TradeTogether/internal/config"
	"github.com/Nishant28-sh/TradeTogether/internal/domain"
	"github.com/Nishant28-sh/TradeTogether/internal/hub"
	"github.com/Nishant28-sh/TradeTogether/internal/service"
	"github.com/Nishant28-sh/TradeTogether/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub      *hub.Hub
	service  service.ChatService
	verifier auth.TokenVerifier // nil when auth is not required
	wsCfg    config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, svc service.ChatService, verifier auth.TokenVerifier, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		verifier: verifier,
		wsCfg:    wsCfg,
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/chat/ws", h.HandleWebSocket)
}

func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	var identity *auth.Identity
	if h.verifier != nil {
		var err error
		identity, err = h.verifier.Verify(c.Query("token"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)
	if identity != nil {
		client.Session.SetIdentity(identity.UserID, identity.Username)
	}

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleEvent, h.handleClose)
}

func (h *WSHandler) handleEvent(client *hub.Client, message []byte) {
	var base domain.BaseEvent
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendError(domain.ErrCodeBadRequest, "Invalid event format")
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.EventJoin:
		var ev domain.JoinEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			client.SendError(domain.ErrCodeBadRequest, "Invalid join event")
			return
		}
		if err := h.service.HandleJoin(ctx, client, ev); err != nil {
			l := log.L()
			l.Warn().Str(log.FieldConnID, client.ID).Err(err).Msg("join failed")
		}

	case domain.EventSendMessage:
		var ev domain.SendMessageEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			client.SendError(domain.ErrCodeBadRequest, "Invalid sendMessage event")
			return
		}
		if err := h.service.HandleSendMessage(ctx, client, ev); err != nil {
			l := log.L()
			l.Warn().Str(log.FieldConnID, client.ID).Err(err).Msg("sendMessage failed")
		}

	case domain.EventTyping:
		var ev domain.TypingEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			client.SendError(domain.ErrCodeBadRequest, "Invalid typing event")
			return
		}
		if err := h.service.HandleTyping(ctx, client, ev); err != nil {
			l := log.L()
			l.Debug().Str(log.FieldConnID, client.ID).Err(err).Msg("typing relay failed")
		}

	default:
		client.SendError(domain.ErrCodeBadRequest, "Unknown event type")
	}
}

func (h *WSHandler) handleClose(client *hub.Client) {
	if err := h.service.HandleDisconnect(context.Background(), client); err != nil {
		l := log.L()
		l.Warn().Str(log.FieldConnID, client.ID).Err(err).Msg("disconnect cleanup failed")
	}
}
