package handlers

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/http/response"
	"github.com/yungbote/gonasi-backend/internal/platform/ctxutil"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
	"github.com/yungbote/gonasi-backend/internal/realtime"
	"github.com/yungbote/gonasi-backend/internal/services"
)

type RealtimeHandler struct {
	log      *logger.Logger
	hub      *realtime.SSEHub
	sessions services.LiveSessionService

	mu      sync.RWMutex
	clients map[string]*realtime.SSEClient // key: user id + stream id
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, sessions services.LiveSessionService) *RealtimeHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &RealtimeHandler{
		log:      log.With("handler", "RealtimeHandler"),
		hub:      hub,
		sessions: sessions,
		clients:  make(map[string]*realtime.SSEClient),
	}
}

type channelRequest struct {
	Channel  string `json:"channel" binding:"required"`
	StreamID string `json:"stream_id"`
}

func streamKey(userID uuid.UUID, streamID string) string {
	return userID.String() + "/" + strings.TrimSpace(streamID)
}

// GET /api/sse/stream?stream_id=...
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	userID := ctxutil.UserID(c.Request.Context())
	if userID == uuid.Nil {
		response.Abort(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	key := streamKey(userID, c.Query("stream_id"))

	h.mu.Lock()
	// A reconnect with the same stream id replaces the previous client.
	if existing, ok := h.clients[key]; ok {
		h.hub.CloseClient(existing)
		delete(h.clients, key)
	}
	client := h.hub.NewSSEClient(userID)
	client.Logger = h.log.With("sse_client_id", client.ID.String())
	h.clients[key] = client
	h.mu.Unlock()

	h.log.Info("SSE stream open", "user_id", userID.String(), "client_id", client.ID.String())
	h.hub.AddChannel(client, realtime.UserChannel(userID))
	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[key] == client {
		delete(h.clients, key)
	}
	h.mu.Unlock()
	h.hub.CloseClient(client)
}

// POST /api/sse/subscribe
func (h *RealtimeHandler) SSESubscribe(c *gin.Context) {
	client, channel, ok := h.resolve(c)
	if !ok {
		return
	}
	if !h.hub.AddChannel(client, channel) {
		response.RespondError(c, domainagg.Conflict("sse.subscribe", "SSE connection already closed"))
		return
	}
	response.RespondOK(c, "subscribed", gin.H{"channel": channel})
}

// POST /api/sse/unsubscribe
func (h *RealtimeHandler) SSEUnsubscribe(c *gin.Context) {
	client, channel, ok := h.resolve(c)
	if !ok {
		return
	}
	h.hub.RemoveChannel(client, channel)
	response.RespondOK(c, "unsubscribed", gin.H{"channel": channel})
}

func (h *RealtimeHandler) resolve(c *gin.Context) (*realtime.SSEClient, string, bool) {
	ctx := c.Request.Context()
	userID := ctxutil.UserID(ctx)
	if userID == uuid.Nil {
		response.Abort(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return nil, "", false
	}
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, errors.New("invalid channel"))
		return nil, "", false
	}
	channel := strings.TrimSpace(req.Channel)
	switch {
	case channel == realtime.UserChannel(userID):
	case strings.HasPrefix(channel, "user:"):
		response.RespondError(c, domainagg.Forbidden("sse.subscribe", "cannot listen on another user's channel"))
		return nil, "", false
	default:
		sessionID, err := realtime.ParseLiveSessionChannel(channel)
		if err != nil {
			response.BadRequest(c, errors.New("invalid channel"))
			return nil, "", false
		}
		if _, err := h.sessions.Get(ctx, sessionID); err != nil {
			response.RespondError(c, err)
			return nil, "", false
		}
	}

	h.mu.RLock()
	client, exists := h.clients[streamKey(userID, req.StreamID)]
	h.mu.RUnlock()
	if !exists {
		response.RespondError(c, domainagg.Conflict("sse.subscribe", "no active SSE connection for this stream"))
		return nil, "", false
	}
	return client, channel, true
}
