package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/domain/live"
	"github.com/yungbote/gonasi-backend/internal/http/response"
	"github.com/yungbote/gonasi-backend/internal/modules/live/statemachine"
	"github.com/yungbote/gonasi-backend/internal/platform/ctxutil"
	"github.com/yungbote/gonasi-backend/internal/services"
)

type LiveSessionHandler struct {
	svc services.LiveSessionService
}

func NewLiveSessionHandler(svc services.LiveSessionService) *LiveSessionHandler {
	RegisterValidators()
	return &LiveSessionHandler{svc: svc}
}

type createLiveSessionRequest struct {
	OrganizationID uuid.UUID  `json:"organization_id" binding:"required"`
	Name           string     `json:"name" binding:"required,max=200"`
	ControlMode    string     `json:"control_mode" binding:"omitempty,control_mode"`
	ChatMode       string     `json:"chat_mode" binding:"omitempty,chat_mode"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
}

type updateStateRequest struct {
	Status      *string `json:"status" binding:"omitempty,session_status"`
	PauseReason *string `json:"pause_reason" binding:"omitempty,pause_reason"`
	ControlMode *string `json:"control_mode" binding:"omitempty,control_mode"`
	ChatMode    *string `json:"chat_mode" binding:"omitempty,chat_mode"`
	PlayState   *string `json:"play_state" binding:"omitempty,play_state"`
}

func (r updateStateRequest) patch() statemachine.Patch {
	var p statemachine.Patch
	if r.Status != nil {
		v := live.Status(*r.Status)
		p.Status = &v
	}
	if r.PauseReason != nil {
		v := live.PauseReason(*r.PauseReason)
		p.PauseReason = &v
	}
	if r.ControlMode != nil {
		v := live.ControlMode(*r.ControlMode)
		p.ControlMode = &v
	}
	if r.ChatMode != nil {
		v := live.ChatMode(*r.ChatMode)
		p.ChatMode = &v
	}
	if r.PlayState != nil {
		v := live.PlayState(*r.PlayState)
		p.PlayState = &v
	}
	return p
}

type pauseRequest struct {
	Reason string `json:"reason" binding:"required,pause_reason"`
}

type controlModeRequest struct {
	ControlMode string `json:"control_mode" binding:"required,control_mode"`
}

type chatModeRequest struct {
	ChatMode string `json:"chat_mode" binding:"required,chat_mode"`
}

type playStateRequest struct {
	PlayState string `json:"play_state" binding:"required,play_state"`
}

type addLiveBlockRequest struct {
	PluginType string          `json:"plugin_type" binding:"required,plugin_type"`
	Content    json.RawMessage `json:"content"`
	TimeLimitS int             `json:"time_limit_seconds" binding:"gte=0,lte=3600"`
}

type blockStatusRequest struct {
	Status string `json:"status" binding:"required,block_status"`
}

// POST /api/live-sessions
func (h *LiveSessionHandler) Create(c *gin.Context) {
	var req createLiveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindError(err))
		return
	}
	row, err := h.svc.Create(c.Request.Context(), ctxutil.UserID(c.Request.Context()), services.CreateLiveSessionInput{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		ControlMode:    live.ControlMode(req.ControlMode),
		ChatMode:       live.ChatMode(req.ChatMode),
		ScheduledAt:    req.ScheduledAt,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, "live session created", gin.H{"session": row})
}

// GET /api/live-sessions/:id
func (h *LiveSessionHandler) Get(c *gin.Context) {
	sessionID, ok := pathID(c, "id", "session")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	row, err := h.svc.Get(ctx, sessionID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	blocks, err := h.svc.ListBlocks(ctx, sessionID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, "live session", gin.H{"session": row, "blocks": blocks})
}

// PATCH /api/live-sessions/:id/state
func (h *LiveSessionHandler) UpdateState(c *gin.Context) {
	var req updateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindError(err))
		return
	}
	h.mutate(c, "session state updated", func(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error) {
		return h.svc.UpdateSessionState(ctx, actorID, sessionID, req.patch())
	})
}

// POST /api/live-sessions/:id/lobby
func (h *LiveSessionHandler) OpenLobby(c *gin.Context) {
	h.mutate(c, "lobby opened", h.svc.OpenLobby)
}

// POST /api/live-sessions/:id/start
func (h *LiveSessionHandler) Start(c *gin.Context) {
	h.mutate(c, "session started", h.svc.Start)
}

// POST /api/live-sessions/:id/pause
func (h *LiveSessionHandler) Pause(c *gin.Context) {
	var req pauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindError(err))
		return
	}
	h.mutate(c, "session paused", func(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error) {
		return h.svc.Pause(ctx, actorID, sessionID, live.PauseReason(req.Reason))
	})
}

// POST /api/live-sessions/:id/resume
func (h *LiveSessionHandler) Resume(c *gin.Context) {
	h.mutate(c, "session resumed", h.svc.Resume)
}

// POST /api/live-sessions/:id/end
func (h *LiveSessionHandler) End(c *gin.Context) {
	h.mutate(c, "session ended", h.svc.End)
}

// PUT /api/live-sessions/:id/control-mode
func (h *LiveSessionHandler) SetControlMode(c *gin.Context) {
	var req controlModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindError(err))
		return
	}
	h.mutate(c, "control mode updated", func(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error) {
		return h.svc.SetControlMode(ctx, actorID, sessionID, live.ControlMode(req.ControlMode))
	})
}

// PUT /api/live-sessions/:id/chat-mode
func (h *LiveSessionHandler) SetChatMode(c *gin.Context) {
	var req chatModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindError(err))
		return
	}
	h.mutate(c, "chat mode updated", func(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error) {
		return h.svc.SetChatMode(ctx, actorID, sessionID, live.ChatMode(req.ChatMode))
	})
}

// PUT /api/live-sessions/:id/play-state
func (h *LiveSessionHandler) SetPlayState(c *gin.Context) {
	var req playStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindError(err))
		return
	}
	h.mutate(c, "play state updated", func(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error) {
		return h.svc.SetPlayState(ctx, actorID, sessionID, live.PlayState(req.PlayState))
	})
}

// POST /api/live-sessions/:id/blocks
func (h *LiveSessionHandler) AddBlock(c *gin.Context) {
	sessionID, ok := pathID(c, "id", "session")
	if !ok {
		return
	}
	var req addLiveBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindError(err))
		return
	}
	row, err := h.svc.AddBlock(c.Request.Context(), ctxutil.UserID(c.Request.Context()), sessionID, services.AddLiveBlockInput{
		PluginType: learning.PluginType(req.PluginType),
		Content:    req.Content,
		TimeLimitS: req.TimeLimitS,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, "block added", gin.H{"block": row})
}

// PUT /api/live-sessions/:id/blocks/:blockId/status
func (h *LiveSessionHandler) SetBlockStatus(c *gin.Context) {
	sessionID, ok := pathID(c, "id", "session")
	if !ok {
		return
	}
	blockID, ok := pathID(c, "blockId", "block")
	if !ok {
		return
	}
	var req blockStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindError(err))
		return
	}
	row, err := h.svc.SetBlockStatus(c.Request.Context(), ctxutil.UserID(c.Request.Context()), sessionID, blockID, live.BlockStatus(req.Status))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, "block status updated", gin.H{"block": row})
}

func (h *LiveSessionHandler) mutate(c *gin.Context, message string, fn func(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error)) {
	sessionID, ok := pathID(c, "id", "session")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	row, err := fn(ctx, ctxutil.UserID(ctx), sessionID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, message, gin.H{"session": row})
}
