package aggregates

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/gonasi-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
)

func newLessonBlocksAggregate(f *fixture) domainagg.LessonBlocksAggregate {
	return NewLessonBlocksAggregate(LessonBlocksAggregateDeps{
		Base:         f.base,
		Lessons:      f.lessons,
		Blocks:       f.blocks,
		Interactions: f.interactions,
	})
}

func positions(t *testing.T, f *fixture, lessonID uuid.UUID) map[uuid.UUID]int {
	t.Helper()
	rows, err := f.blocks.ListByLesson(dbctx.Context{Ctx: context.Background()}, lessonID)
	if err != nil {
		t.Fatalf("ListByLesson: %v", err)
	}
	out := map[uuid.UUID]int{}
	for _, b := range rows {
		out[b.ID] = b.Position
	}
	return out
}

func appendN(t *testing.T, agg domainagg.LessonBlocksAggregate, lessonID uuid.UUID, n int) []*learning.Block {
	t.Helper()
	var out []*learning.Block
	for i := 0; i < n; i++ {
		b, err := agg.Append(context.Background(), domainagg.AppendBlockInput{LessonID: lessonID, PluginType: learning.PluginRichText})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		out = append(out, b)
	}
	return out
}

func TestAppendAssignsNextPosition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := testutil.SeedOrganization(t, ctx, f.db)
	c := testutil.SeedCourse(t, ctx, f.db, o.ID)
	l := testutil.SeedLesson(t, ctx, f.db, c.ID)
	agg := newLessonBlocksAggregate(f)

	blocks := appendN(t, agg, l.ID, 3)
	for i, b := range blocks {
		if b.Position != i+1 {
			t.Fatalf("block %d: want position %d got=%d", i, i+1, b.Position)
		}
		if b.Weight != 1 {
			t.Fatalf("default weight: want 1 got=%v", b.Weight)
		}
	}
	if _, err := agg.Append(ctx, domainagg.AppendBlockInput{LessonID: uuid.New(), PluginType: learning.PluginRichText}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown lesson: want not_found got=%v", err)
	}
	if _, err := agg.Append(ctx, domainagg.AppendBlockInput{LessonID: l.ID, PluginType: "poll"}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("unknown plugin: want validation got=%v", err)
	}
}

func TestDeleteCompactsPositionsAndDropsInteractions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := testutil.SeedOrganization(t, ctx, f.db)
	c := testutil.SeedCourse(t, ctx, f.db, o.ID)
	l := testutil.SeedLesson(t, ctx, f.db, c.ID)
	agg := newLessonBlocksAggregate(f)
	blocks := appendN(t, agg, l.ID, 3)

	user := uuid.New()
	ia := newInteractionAggregate(f)
	if _, err := ia.Record(ctx, domainagg.RecordInteractionInput{UserID: user, LessonID: l.ID, BlockID: blocks[1].ID, IsComplete: true}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if err := agg.Delete(ctx, l.ID, blocks[1].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got := positions(t, f, l.ID)
	if len(got) != 2 || got[blocks[0].ID] != 1 || got[blocks[2].ID] != 2 {
		t.Fatalf("positions after delete: %v", got)
	}
	rows, err := f.interactions.ListByLessonAndUser(dbctx.Context{Ctx: ctx}, l.ID, user)
	if err != nil || len(rows) != 0 {
		t.Fatalf("interactions of deleted block: len=%d err=%v", len(rows), err)
	}
	if err := agg.Delete(ctx, uuid.New(), blocks[0].ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("wrong lesson: want not_found got=%v", err)
	}
}

func TestReorderAppliesPermutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := testutil.SeedOrganization(t, ctx, f.db)
	c := testutil.SeedCourse(t, ctx, f.db, o.ID)
	l := testutil.SeedLesson(t, ctx, f.db, c.ID)
	agg := newLessonBlocksAggregate(f)
	b := appendN(t, agg, l.ID, 3)

	out, err := agg.Reorder(ctx, l.ID, []uuid.UUID{b[2].ID, b[0].ID, b[1].ID})
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if len(out) != 3 || out[0].ID != b[2].ID || out[1].ID != b[0].ID || out[2].ID != b[1].ID {
		t.Fatalf("unexpected order: %v %v %v", out[0].ID, out[1].ID, out[2].ID)
	}

	bad := [][]uuid.UUID{
		{b[0].ID, b[1].ID},
		{b[0].ID, b[0].ID, b[1].ID},
		{b[0].ID, b[1].ID, uuid.New()},
	}
	for _, ids := range bad {
		if _, err := agg.Reorder(ctx, l.ID, ids); !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("bad permutation %v: want validation got=%v", ids, err)
		}
	}
	got := positions(t, f, l.ID)
	if got[b[2].ID] != 1 || got[b[0].ID] != 2 || got[b[1].ID] != 3 {
		t.Fatalf("rejected reorder changed positions: %v", got)
	}
}
