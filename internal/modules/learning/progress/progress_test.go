package progress

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
)

func threeBlocks() []Block {
	return []Block{
		{ID: uuid.New(), Position: 1, Weight: 1},
		{ID: uuid.New(), Position: 2, Weight: 1},
		{ID: uuid.New(), Position: 3, Weight: 2},
	}
}

func done(ids ...uuid.UUID) []Interaction {
	out := make([]Interaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, Interaction{BlockID: id, IsComplete: true})
	}
	return out
}

func ids(blocks []Block) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.ID)
	}
	return out
}

func TestFreshLessonRevealsFirstBlock(t *testing.T) {
	blocks := threeBlocks()
	visible := VisibleBlocks(blocks, nil)
	if len(visible) != 1 || visible[0].ID != blocks[0].ID {
		t.Fatalf("visible: want [block1] got=%v", ids(visible))
	}
	if a := ActiveBlock(visible); a == nil || *a != blocks[0].ID {
		t.Fatalf("active: want block1 got=%v", a)
	}
	if p := Progress(blocks, CompletedBlockIDs(nil)); p != 0 {
		t.Fatalf("progress: want=0 got=%v", p)
	}
}

func TestCompletingFirstBlockRevealsSecond(t *testing.T) {
	blocks := threeBlocks()
	in := done(blocks[0].ID)
	visible := VisibleBlocks(blocks, in)
	if len(visible) != 2 || visible[1].ID != blocks[1].ID {
		t.Fatalf("visible: want [block1 block2] got=%v", ids(visible))
	}
	if a := ActiveBlock(visible); a == nil || *a != blocks[1].ID {
		t.Fatalf("active: want block2 got=%v", a)
	}
	if p := Progress(blocks, CompletedBlockIDs(in)); p != 25 {
		t.Fatalf("progress: want=25 got=%v", p)
	}
}

func TestAllBlocksCompleteFinishesLesson(t *testing.T) {
	blocks := threeBlocks()
	in := done(ids(blocks)...)
	completed := CompletedBlockIDs(in)
	if p := Progress(blocks, completed); p != 100 {
		t.Fatalf("progress: want=100 got=%v", p)
	}
	if !IsLessonFullyComplete(blocks, completed) {
		t.Fatalf("expected lesson fully complete")
	}
	if a := ActiveBlock(VisibleBlocks(blocks, in)); a == nil || *a != blocks[2].ID {
		t.Fatalf("active: want block3 got=%v", a)
	}
	if !ShouldClearActiveBlock(blocks, completed) {
		t.Fatalf("expected active block to be cleared")
	}
}

func TestIncompleteInteractionsDoNotUnlock(t *testing.T) {
	blocks := threeBlocks()
	in := []Interaction{{BlockID: blocks[0].ID, IsComplete: false}}
	if got := VisibleBlocks(blocks, in); len(got) != 1 {
		t.Fatalf("visible: want 1 got=%d", len(got))
	}
}

func TestVisibleBlocksSortsUnorderedInput(t *testing.T) {
	blocks := threeBlocks()
	shuffled := []Block{blocks[2], blocks[0], blocks[1]}
	visible := VisibleBlocks(shuffled, done(blocks[0].ID, blocks[1].ID))
	if len(visible) != 3 {
		t.Fatalf("visible: want 3 got=%d", len(visible))
	}
	for i, b := range visible {
		if b.ID != blocks[i].ID {
			t.Fatalf("visible[%d]: want %s got %s", i, blocks[i].ID, b.ID)
		}
	}
}

func TestPositionGapStopsReveal(t *testing.T) {
	a := Block{ID: uuid.New(), Position: 1, Weight: 1}
	b := Block{ID: uuid.New(), Position: 3, Weight: 1}
	visible := VisibleBlocks([]Block{a, b}, done(a.ID))
	if len(visible) != 1 || visible[0].ID != a.ID {
		t.Fatalf("visible: want [a] got=%v", ids(visible))
	}
}

func TestMinimumPositionNeedNotBeOne(t *testing.T) {
	a := Block{ID: uuid.New(), Position: 10, Weight: 1}
	b := Block{ID: uuid.New(), Position: 11, Weight: 1}
	visible := VisibleBlocks([]Block{b, a}, done(a.ID))
	if len(visible) != 2 || visible[0].ID != a.ID {
		t.Fatalf("visible: want [a b] got=%v", ids(visible))
	}
}

func TestCompletionOutOfOrderDoesNotSkipAhead(t *testing.T) {
	blocks := threeBlocks()
	// block2 completed without block1: only block1 visible.
	visible := VisibleBlocks(blocks, done(blocks[1].ID))
	if len(visible) != 1 {
		t.Fatalf("visible: want 1 got=%d", len(visible))
	}
}

func TestEmptyInputs(t *testing.T) {
	if v := VisibleBlocks(nil, nil); len(v) != 0 {
		t.Fatalf("visible: want empty got=%d", len(v))
	}
	if a := ActiveBlock(nil); a != nil {
		t.Fatalf("active: want nil got=%v", a)
	}
	if IsLessonFullyComplete(nil, IDSet{}) {
		t.Fatalf("empty lesson must not be complete")
	}
	if p := Progress(nil, nil); p != 0 {
		t.Fatalf("progress: want=0 got=%v", p)
	}
}

func TestValidate(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name   string
		blocks []Block
		ok     bool
	}{
		{"ok", threeBlocks(), true},
		{"zero weight", []Block{{ID: uuid.New(), Position: 1, Weight: 0}}, false},
		{"nil id", []Block{{Position: 1, Weight: 1}}, false},
		{"duplicate id", []Block{{ID: id, Position: 1, Weight: 1}, {ID: id, Position: 2, Weight: 1}}, false},
	}
	for _, tc := range cases {
		err := Validate(tc.blocks)
		if (err == nil) != tc.ok {
			t.Fatalf("%s: ok=%v err=%v", tc.name, tc.ok, err)
		}
	}
}

func randomLesson(r *rand.Rand) ([]Block, []Interaction) {
	n := r.Intn(8)
	blocks := make([]Block, 0, n)
	pos := 1
	for i := 0; i < n; i++ {
		pos += r.Intn(2) // occasional gaps
		blocks = append(blocks, Block{ID: uuid.New(), Position: pos, Weight: float64(1 + r.Intn(5))})
		pos++
	}
	var in []Interaction
	for _, b := range blocks {
		if r.Intn(3) > 0 {
			in = append(in, Interaction{BlockID: b.ID, IsComplete: r.Intn(4) > 0})
		}
	}
	r.Shuffle(len(blocks), func(i, j int) { blocks[i], blocks[j] = blocks[j], blocks[i] })
	return blocks, in
}

func TestPropertiesOverRandomLessons(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for iter := 0; iter < 500; iter++ {
		blocks, in := randomLesson(r)
		completed := CompletedBlockIDs(in)
		sorted := SortByPosition(blocks)
		visible := VisibleBlocks(blocks, in)

		// visibility monotonicity: visible is a prefix of the sorted list
		if len(visible) > len(sorted) {
			t.Fatalf("iter %d: visible longer than lesson", iter)
		}
		for i := range visible {
			if visible[i].ID != sorted[i].ID {
				t.Fatalf("iter %d: visible is not a prefix at %d", iter, i)
			}
		}

		// progress bounds
		p := Progress(blocks, completed)
		if p < 0 || p > 100 {
			t.Fatalf("iter %d: progress out of bounds %v", iter, p)
		}
		if len(blocks) == 0 && p != 0 {
			t.Fatalf("iter %d: empty lesson progress %v", iter, p)
		}

		// completion closure with positive weights
		if IsLessonFullyComplete(blocks, completed) != (p == 100) {
			t.Fatalf("iter %d: fully complete=%v but progress=%v", iter, IsLessonFullyComplete(blocks, completed), p)
		}
	}
}
