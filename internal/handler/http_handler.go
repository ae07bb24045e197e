package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Nishant28-sh/TradeTogether/internal/service"
)

const maxHistoryLimit = 100

// APIResponse is the REST envelope shared by all JSON endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HTTPHandler exposes the read-only history page over REST, for surfaces
// that want a transcript without holding a socket open.
type HTTPHandler struct {
	history *service.HistoryReader
}

func NewHTTPHandler(history *service.HistoryReader) *HTTPHandler {
	return &HTTPHandler{history: history}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/rooms/:room_id/messages", h.GetMessages)
	}

	r.GET("/health", h.HealthCheck)
}

func (h *HTTPHandler) GetMessages(c *gin.Context) {
	roomID := c.Param("room_id")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   "room_id is required",
		})
		return
	}

	limit := 0 // 0 selects the configured default
	if limitStr := c.Query("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit < 1 {
			c.JSON(http.StatusBadRequest, APIResponse{
				Success: false,
				Error:   "limit must be a positive integer",
			})
			return
		}
		limit = parsedLimit
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}
	}

	messages, err := h.history.Recent(c.Request.Context(), roomID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, APIResponse{
			Success: false,
			Error:   "failed to get chat history",
		})
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    messages,
	})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
