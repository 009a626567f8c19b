package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/gonasi-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
	"github.com/yungbote/gonasi-backend/internal/realtime"
)

func TestSnapshotRevealsFirstBlockOnly(t *testing.T) {
	e := newEnv(t)
	f := e.seedLesson(t, 1, 1, 2)
	learner := uuid.New()

	snap, err := e.play.Snapshot(e.ctx, f.lessonID, learner)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.TotalBlocks != 3 || len(snap.Blocks) != 1 || snap.Blocks[0].ID != f.blockIDs[0] {
		t.Fatalf("want only the first block visible, got %d of %d", len(snap.Blocks), snap.TotalBlocks)
	}
	if snap.State.LessonProgress != 0 || snap.State.IsComplete {
		t.Fatalf("fresh learner state: %+v", snap.State)
	}
	if snap.State.ActiveBlockID == nil || *snap.State.ActiveBlockID != f.blockIDs[0] {
		t.Fatalf("active block should be the first block")
	}
}

func TestWriteInteractionAdvancesAndBroadcasts(t *testing.T) {
	e := newEnv(t)
	f := e.seedLesson(t, 1, 1, 2)
	learner := uuid.New()

	snap, err := e.play.WriteInteraction(e.ctx, WriteInteractionInput{
		LessonID:   f.lessonID,
		LearnerID:  learner,
		BlockID:    f.blockIDs[0],
		IsComplete: true,
		State:      json.RawMessage(`{"seen":true}`),
	})
	if err != nil {
		t.Fatalf("WriteInteraction: %v", err)
	}
	if len(snap.Blocks) != 2 || snap.State.LessonProgress != 25 {
		t.Fatalf("after first block: visible=%d progress=%v", len(snap.Blocks), snap.State.LessonProgress)
	}
	if len(snap.Interactions) != 1 || snap.Interactions[0].BlockID != f.blockIDs[0] {
		t.Fatalf("interactions not returned: %+v", snap.Interactions)
	}
	if got := e.emitter.events(realtime.UserChannel(learner)); len(got) != 1 || got[0] != string(realtime.SSEEventLessonProgress) {
		t.Fatalf("lesson progress event: %v", got)
	}

	// A locked block is refused before anything is written.
	_, err = e.play.WriteInteraction(e.ctx, WriteInteractionInput{
		LessonID: f.lessonID, LearnerID: learner, BlockID: f.blockIDs[2], IsComplete: true,
	})
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("locked block: want precondition_failed got=%v", err)
	}
	rows, _ := e.play.FetchInteractions(e.ctx, f.lessonID, learner)
	if len(rows) != 1 {
		t.Fatalf("locked write persisted: %d rows", len(rows))
	}
}

func TestRetryAppendsAttempts(t *testing.T) {
	e := newEnv(t)
	f := e.seedLesson(t, 1, 1)
	learner := uuid.New()

	for _, correct := range []bool{false, true} {
		if _, err := e.play.WriteInteraction(e.ctx, WriteInteractionInput{
			LessonID: f.lessonID, LearnerID: learner, BlockID: f.blockIDs[0],
			IsComplete: correct, IsCorrect: boolPtr(correct),
		}); err != nil {
			t.Fatalf("WriteInteraction: %v", err)
		}
	}
	rows, err := e.play.FetchInteractions(e.ctx, f.lessonID, learner)
	if err != nil || len(rows) != 1 {
		t.Fatalf("want one row, got %d err=%v", len(rows), err)
	}
	row := rows[0]
	if !row.IsComplete || row.AttemptCount != 2 || len(row.DecodeAttempts()) != 2 {
		t.Fatalf("unexpected row: complete=%v attempts=%d", row.IsComplete, row.AttemptCount)
	}
}

func TestCompletingLessonClearsActiveBlock(t *testing.T) {
	e := newEnv(t)
	f := e.seedLesson(t, 1, 3)
	learner := uuid.New()

	var snap *PlaySnapshot
	for _, id := range f.blockIDs {
		var err error
		snap, err = e.play.WriteInteraction(e.ctx, WriteInteractionInput{
			LessonID: f.lessonID, LearnerID: learner, BlockID: id, IsComplete: true,
		})
		if err != nil {
			t.Fatalf("WriteInteraction: %v", err)
		}
	}
	if !snap.State.IsComplete || !snap.ClearActiveBlock || snap.State.LessonProgress != 100 {
		t.Fatalf("lesson should be complete: %+v", snap.State)
	}
}

func TestFailedWriteLeavesStateUntouched(t *testing.T) {
	var calls int
	runner := dataagg.TxRunnerFunc(func(ctx context.Context, fn func(dbc dbctx.Context) error) error {
		calls++
		return errors.New("serialization failure")
	})
	e := newEnvWithRunner(t, runner)
	f := e.seedLesson(t, 1, 1)
	learner := uuid.New()

	_, err := e.play.WriteInteraction(e.ctx, WriteInteractionInput{
		LessonID: f.lessonID, LearnerID: learner, BlockID: f.blockIDs[0], IsComplete: true,
	})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("want retryable got=%v", err)
	}
	attempts := domainagg.InteractionAggregateContract.MaxAttempts
	if calls != attempts {
		t.Fatalf("transactions: want %d got=%d", attempts, calls)
	}
	if len(e.hooks.Retries) != attempts-1 || e.hooks.Retries[0] != "interaction.record" {
		t.Fatalf("retry hooks: %v", e.hooks.Retries)
	}
	snap, err := e.play.Snapshot(e.ctx, f.lessonID, learner)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Blocks) != 1 || snap.State.LessonProgress != 0 {
		t.Fatalf("state advanced after failed write: %+v", snap.State)
	}
	if got := e.emitter.events(realtime.UserChannel(learner)); len(got) != 0 {
		t.Fatalf("no progress event expected, got %v", got)
	}
}

func TestResetInteractions(t *testing.T) {
	e := newEnv(t)
	f := e.seedLesson(t, 1, 1)
	learner := uuid.New()
	other := uuid.New()
	for _, u := range []uuid.UUID{learner, other} {
		if _, err := e.play.WriteInteraction(e.ctx, WriteInteractionInput{
			LessonID: f.lessonID, LearnerID: u, BlockID: f.blockIDs[0], IsComplete: true,
		}); err != nil {
			t.Fatalf("WriteInteraction: %v", err)
		}
	}

	snap, err := e.play.ResetInteractions(e.ctx, f.lessonID, learner)
	if err != nil {
		t.Fatalf("ResetInteractions: %v", err)
	}
	if len(snap.Blocks) != 1 || len(snap.Interactions) != 0 || snap.State.LessonProgress != 0 {
		t.Fatalf("reset snapshot: %+v", snap.State)
	}
	rows, _ := e.play.FetchInteractions(e.ctx, f.lessonID, other)
	if len(rows) != 1 {
		t.Fatalf("other learner lost progress")
	}
	if _, err := e.play.ResetInteractions(e.ctx, uuid.New(), learner); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown lesson: want not_found got=%v", err)
	}
}

func TestBlockAuthoring(t *testing.T) {
	e := newEnv(t)
	f := e.seedLesson(t, 1, 1)

	created, err := e.block.CreateBlock(e.ctx, f.editorID, CreateBlockInput{
		LessonID:   f.lessonID,
		PluginType: learning.PluginTrueFalse,
		Content:    json.RawMessage(`{"statement":"go is compiled","answer":true}`),
	})
	if err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}
	if created.Position != 3 || created.Weight != 1 {
		t.Fatalf("appended block: position=%d weight=%v", created.Position, created.Weight)
	}

	if _, err := e.block.CreateBlock(e.ctx, uuid.New(), CreateBlockInput{LessonID: f.lessonID, PluginType: learning.PluginRichText}); !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("stranger: want forbidden got=%v", err)
	}
	if _, err := e.block.CreateBlock(e.ctx, f.editorID, CreateBlockInput{LessonID: f.lessonID, PluginType: "poll"}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("bad plugin: want validation got=%v", err)
	}

	order := []uuid.UUID{created.ID, f.blockIDs[1], f.blockIDs[0]}
	reordered, err := e.block.ReorderBlocks(e.ctx, f.editorID, f.lessonID, order)
	if err != nil {
		t.Fatalf("ReorderBlocks: %v", err)
	}
	for i, b := range reordered {
		if b.ID != order[i] || b.Position != i+1 {
			t.Fatalf("position %d: got %s@%d", i+1, b.ID, b.Position)
		}
	}

	if err := e.block.DeleteBlock(e.ctx, f.editorID, f.lessonID, f.blockIDs[1]); err != nil {
		t.Fatalf("DeleteBlock: %v", err)
	}
	left, err := e.block.ListBlocks(e.ctx, f.lessonID)
	if err != nil || len(left) != 2 || left[0].ID != created.ID || left[1].Position != 2 {
		t.Fatalf("after delete: %+v err=%v", left, err)
	}

	var ops []string
	for _, o := range e.hooks.Operations {
		ops = append(ops, o.Name)
	}
	if len(ops) < 3 {
		t.Fatalf("aggregate operations not observed: %v", ops)
	}
}
