// Package playflow holds the derived playback state of one learner in one lesson.
//
// A Controller is an explicit state container: callers create one per lesson visit
// and pass it around, there is no shared store. The controller never persists
// anything itself; it re-derives its state only from interactions the writer has
// confirmed.
package playflow

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/modules/learning/progress"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

// ErrReset is returned when the controller was reset while a write was in flight.
// The write itself may have succeeded; its result is simply not applied.
var ErrReset = errors.New("playflow: controller reset during write")

// InteractionWriter persists an interaction and returns the confirmed record.
type InteractionWriter interface {
	WriteInteraction(ctx context.Context, in progress.Interaction) (progress.Interaction, error)
}

// WriterFunc adapts a function to InteractionWriter.
type WriterFunc func(ctx context.Context, in progress.Interaction) (progress.Interaction, error)

func (f WriterFunc) WriteInteraction(ctx context.Context, in progress.Interaction) (progress.Interaction, error) {
	return f(ctx, in)
}

// State is the derived view of the lesson for the learner.
type State struct {
	VisibleBlocks     []progress.Block `json:"visible_blocks"`
	ActiveBlockID     *uuid.UUID       `json:"active_block_id"`
	LessonProgress    float64          `json:"lesson_progress"`
	IsComplete        bool             `json:"is_complete"`
	CompletedBlockIDs []uuid.UUID      `json:"completed_block_ids"`
}

func emptyState() State {
	return State{
		VisibleBlocks:     []progress.Block{},
		CompletedBlockIDs: []uuid.UUID{},
	}
}

func (s State) clone() State {
	out := State{
		VisibleBlocks:     append([]progress.Block{}, s.VisibleBlocks...),
		LessonProgress:    s.LessonProgress,
		IsComplete:        s.IsComplete,
		CompletedBlockIDs: append([]uuid.UUID{}, s.CompletedBlockIDs...),
	}
	if s.ActiveBlockID != nil {
		id := *s.ActiveBlockID
		out.ActiveBlockID = &id
	}
	return out
}

type Controller struct {
	mu     sync.Mutex
	log    *logger.Logger
	writer InteractionWriter

	blocks       []progress.Block
	interactions []progress.Interaction
	state        State
	generation   uint64
}

func NewController(log *logger.Logger, writer InteractionWriter) *Controller {
	if log == nil {
		log = logger.NewNop()
	}
	return &Controller{
		log:    log.With("component", "PlayFlowController"),
		writer: writer,
		state:  emptyState(),
	}
}

// Initialize replaces the inputs and re-derives. Calling it twice with the same
// inputs yields the same state. Invalid inputs leave the previous state in place.
func (c *Controller) Initialize(blocks []progress.Block, interactions []progress.Interaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sorted := progress.SortByPosition(blocks)
	latest := latestPerBlock(interactions)
	state, err := derive(sorted, latest)
	if err != nil {
		c.log.Warn("play flow derivation rejected input", "error", err, "blocks", len(blocks))
		return err
	}
	c.blocks = sorted
	c.interactions = latest
	c.state = state
	c.generation++
	return nil
}

// RecordInteraction writes in through the writer and, once confirmed, folds the
// confirmed interaction into the state. On any failure the state is unchanged.
func (c *Controller) RecordInteraction(ctx context.Context, in progress.Interaction) (State, error) {
	const op = "playflow.record_interaction"

	c.mu.Lock()
	if c.writer == nil {
		c.mu.Unlock()
		return c.State(), aggregates.NewError(aggregates.CodeInternal, op, "no interaction writer configured", nil)
	}
	if in.BlockID == uuid.Nil {
		c.mu.Unlock()
		return c.State(), aggregates.Validation(op, "block_id is required")
	}
	if !containsBlock(c.blocks, in.BlockID) {
		c.mu.Unlock()
		return c.State(), aggregates.NotFound(op, "block is not part of this lesson")
	}
	if !containsBlock(c.state.VisibleBlocks, in.BlockID) {
		c.mu.Unlock()
		return c.State(), aggregates.NewError(aggregates.CodePreconditionFailed, op, "block is not unlocked yet", nil)
	}
	gen := c.generation
	c.mu.Unlock()

	confirmed, err := c.writer.WriteInteraction(ctx, in)
	if err != nil {
		c.log.Warn("interaction write failed; state not advanced", "error", err, "block_id", in.BlockID.String())
		return c.State(), err
	}
	if confirmed.BlockID == uuid.Nil {
		confirmed.BlockID = in.BlockID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return c.state.clone(), ErrReset
	}
	next := replaceInteraction(c.interactions, confirmed)
	state, err := derive(c.blocks, next)
	if err != nil {
		c.log.Error("derivation failed after confirmed write", "error", err)
		return c.state.clone(), err
	}
	c.interactions = next
	c.state = state
	c.generation++
	return c.state.clone(), nil
}

// Reset clears inputs and derived state back to empty defaults.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = nil
	c.interactions = nil
	c.state = emptyState()
	c.generation++
}

// State returns a copy of the current derived state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Interactions returns a copy of the confirmed interactions (latest per block).
func (c *Controller) Interactions() []progress.Interaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]progress.Interaction{}, c.interactions...)
}

// ShouldClearActiveBlock reports whether every block is complete.
func (c *Controller) ShouldClearActiveBlock() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.IsComplete
}

func derive(blocks []progress.Block, interactions []progress.Interaction) (State, error) {
	if err := progress.Validate(blocks); err != nil {
		return State{}, aggregates.NewError(aggregates.CodeValidation, "playflow.derive", err.Error(), err)
	}
	completed := progress.CompletedBlockIDs(interactions)
	visible := progress.VisibleBlocks(blocks, interactions)

	completedIDs := make([]uuid.UUID, 0, len(completed))
	for _, b := range blocks {
		if completed.Has(b.ID) {
			completedIDs = append(completedIDs, b.ID)
		}
	}
	return State{
		VisibleBlocks:     visible,
		ActiveBlockID:     progress.ActiveBlock(visible),
		LessonProgress:    progress.Progress(blocks, completed),
		IsComplete:        progress.IsLessonFullyComplete(blocks, completed),
		CompletedBlockIDs: completedIDs,
	}, nil
}

// latestPerBlock keeps one interaction per block, preferring the newest timestamp.
func latestPerBlock(interactions []progress.Interaction) []progress.Interaction {
	out := make([]progress.Interaction, 0, len(interactions))
	for _, in := range interactions {
		out = upsertInteraction(out, in)
	}
	return out
}

func upsertInteraction(list []progress.Interaction, in progress.Interaction) []progress.Interaction {
	out := make([]progress.Interaction, 0, len(list)+1)
	replaced := false
	for _, cur := range list {
		if cur.BlockID == in.BlockID {
			if !replaced && !in.Timestamp.Before(cur.Timestamp) {
				out = append(out, in)
			} else {
				out = append(out, cur)
			}
			replaced = true
			continue
		}
		out = append(out, cur)
	}
	if !replaced {
		out = append(out, in)
	}
	return out
}

// replaceInteraction swaps in a confirmed interaction regardless of timestamps.
func replaceInteraction(list []progress.Interaction, in progress.Interaction) []progress.Interaction {
	out := make([]progress.Interaction, 0, len(list)+1)
	for _, cur := range list {
		if cur.BlockID != in.BlockID {
			out = append(out, cur)
		}
	}
	return append(out, in)
}

func containsBlock(blocks []progress.Block, id uuid.UUID) bool {
	for _, b := range blocks {
		if b.ID == id {
			return true
		}
	}
	return false
}
