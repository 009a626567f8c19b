package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/http/response"
	"github.com/yungbote/gonasi-backend/internal/platform/ctxutil"
	"github.com/yungbote/gonasi-backend/internal/services"
)

type LessonHandler struct {
	play   services.LessonPlayService
	blocks services.BlockService
}

func NewLessonHandler(play services.LessonPlayService, blocks services.BlockService) *LessonHandler {
	RegisterValidators()
	return &LessonHandler{play: play, blocks: blocks}
}

type createBlockRequest struct {
	PluginType string          `json:"plugin_type" binding:"required,plugin_type"`
	Weight     float64         `json:"weight" binding:"gte=0"`
	Content    json.RawMessage `json:"content"`
}

type reorderBlocksRequest struct {
	BlockIDs []uuid.UUID `json:"block_ids" binding:"required,min=1"`
}

type interactionRequest struct {
	BlockID    uuid.UUID       `json:"block_id" binding:"required"`
	IsComplete bool            `json:"is_complete"`
	IsCorrect  *bool           `json:"is_correct"`
	State      json.RawMessage `json:"state"`
}

// GET /api/lessons/:id/blocks
func (h *LessonHandler) ListBlocks(c *gin.Context) {
	lessonID, ok := pathID(c, "id", "lesson")
	if !ok {
		return
	}
	rows, err := h.blocks.ListBlocks(c.Request.Context(), lessonID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, "blocks", gin.H{"blocks": rows})
}

// POST /api/lessons/:id/blocks
func (h *LessonHandler) CreateBlock(c *gin.Context) {
	lessonID, ok := pathID(c, "id", "lesson")
	if !ok {
		return
	}
	var req createBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindError(err))
		return
	}
	row, err := h.blocks.CreateBlock(c.Request.Context(), ctxutil.UserID(c.Request.Context()), services.CreateBlockInput{
		LessonID:   lessonID,
		PluginType: learning.PluginType(req.PluginType),
		Weight:     req.Weight,
		Content:    req.Content,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, "block created", gin.H{"block": row})
}

// DELETE /api/lessons/:id/blocks/:blockId
func (h *LessonHandler) DeleteBlock(c *gin.Context) {
	lessonID, ok := pathID(c, "id", "lesson")
	if !ok {
		return
	}
	blockID, ok := pathID(c, "blockId", "block")
	if !ok {
		return
	}
	if err := h.blocks.DeleteBlock(c.Request.Context(), ctxutil.UserID(c.Request.Context()), lessonID, blockID); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, "block deleted", nil)
}

// PUT /api/lessons/:id/blocks/order
func (h *LessonHandler) ReorderBlocks(c *gin.Context) {
	lessonID, ok := pathID(c, "id", "lesson")
	if !ok {
		return
	}
	var req reorderBlocksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindError(err))
		return
	}
	rows, err := h.blocks.ReorderBlocks(c.Request.Context(), ctxutil.UserID(c.Request.Context()), lessonID, req.BlockIDs)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, "blocks reordered", gin.H{"blocks": rows})
}

// GET /api/lessons/:id/play
func (h *LessonHandler) Play(c *gin.Context) {
	lessonID, ok := pathID(c, "id", "lesson")
	if !ok {
		return
	}
	snap, err := h.play.Snapshot(c.Request.Context(), lessonID, ctxutil.UserID(c.Request.Context()))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, "lesson play state", snap)
}

// POST /api/lessons/:id/interactions
func (h *LessonHandler) WriteInteraction(c *gin.Context) {
	lessonID, ok := pathID(c, "id", "lesson")
	if !ok {
		return
	}
	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindError(err))
		return
	}
	snap, err := h.play.WriteInteraction(c.Request.Context(), services.WriteInteractionInput{
		LessonID:   lessonID,
		LearnerID:  ctxutil.UserID(c.Request.Context()),
		BlockID:    req.BlockID,
		IsComplete: req.IsComplete,
		IsCorrect:  req.IsCorrect,
		State:      req.State,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, "interaction recorded", snap)
}

// DELETE /api/lessons/:id/interactions
func (h *LessonHandler) ResetInteractions(c *gin.Context) {
	lessonID, ok := pathID(c, "id", "lesson")
	if !ok {
		return
	}
	snap, err := h.play.ResetInteractions(c.Request.Context(), lessonID, ctxutil.UserID(c.Request.Context()))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, "progress reset", snap)
}

func pathID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil || id == uuid.Nil {
		response.BadRequest(c, errors.New("invalid "+what+" id"))
		return uuid.Nil, false
	}
	return id, true
}
