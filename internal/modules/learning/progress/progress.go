// Package progress derives block visibility and lesson completion from a lesson's
// blocks and a learner's interactions. Every function is pure.
package progress

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Block is the slice of lesson block data the derivation needs.
type Block struct {
	ID       uuid.UUID `json:"id"`
	Position int       `json:"position"`
	Weight   float64   `json:"weight"`
}

// Interaction is the latest state of a learner on one block.
type Interaction struct {
	BlockID    uuid.UUID `json:"block_id"`
	IsComplete bool      `json:"is_complete"`
	IsCorrect  *bool     `json:"is_correct,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// IDSet is a set of block ids.
type IDSet map[uuid.UUID]struct{}

func (s IDSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// CompletedBlockIDs returns the ids of blocks whose interaction is complete.
func CompletedBlockIDs(interactions []Interaction) IDSet {
	out := make(IDSet, len(interactions))
	for _, in := range interactions {
		if in.IsComplete {
			out[in.BlockID] = struct{}{}
		}
	}
	return out
}

// Progress returns the weighted completion percentage in [0, 100].
// It is 0 when there are no blocks or the total weight is 0. No rounding is applied.
func Progress(blocks []Block, completed IDSet) float64 {
	var total, done float64
	for _, b := range blocks {
		if b.Weight <= 0 {
			continue
		}
		total += b.Weight
		if completed.Has(b.ID) {
			done += b.Weight
		}
	}
	if total == 0 {
		return 0
	}
	pct := done / total * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// SortByPosition returns a copy of blocks ordered by ascending position.
// Equal positions keep their input order.
func SortByPosition(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// VisibleBlocks returns the progressively revealed prefix of the lesson.
//
// The lowest position is always visible. Any other block is visible only when the
// block at position-1 exists, is itself visible, and has a completed interaction.
// A gap in numbering stops the reveal at the gap.
func VisibleBlocks(blocks []Block, interactions []Interaction) []Block {
	sorted := SortByPosition(blocks)
	if len(sorted) == 0 {
		return []Block{}
	}
	completed := CompletedBlockIDs(interactions)

	byPosition := make(map[int]Block, len(sorted))
	for _, b := range sorted {
		if _, dup := byPosition[b.Position]; !dup {
			byPosition[b.Position] = b
		}
	}

	visible := []Block{sorted[0]}
	prev := sorted[0]
	for _, b := range sorted[1:] {
		if b.Position == prev.Position {
			// Duplicate position: only the first encountered block takes the slot.
			continue
		}
		before, ok := byPosition[b.Position-1]
		if !ok || before.ID != prev.ID || !completed.Has(before.ID) {
			break
		}
		visible = append(visible, b)
		prev = b
	}
	return visible
}

// ActiveBlock returns the id of the last visible block, or nil.
func ActiveBlock(visible []Block) *uuid.UUID {
	if len(visible) == 0 {
		return nil
	}
	id := visible[len(visible)-1].ID
	return &id
}

// IsLessonFullyComplete reports whether blocks is non-empty and every block is completed.
func IsLessonFullyComplete(blocks []Block, completed IDSet) bool {
	if len(blocks) == 0 {
		return false
	}
	for _, b := range blocks {
		if !completed.Has(b.ID) {
			return false
		}
	}
	return true
}

// ShouldClearActiveBlock reports whether the caller should drop its active block
// because nothing remains to be revealed.
func ShouldClearActiveBlock(blocks []Block, completed IDSet) bool {
	return IsLessonFullyComplete(blocks, completed)
}

// Validate rejects input the derivation cannot reason about.
func Validate(blocks []Block) error {
	seen := make(map[uuid.UUID]struct{}, len(blocks))
	for _, b := range blocks {
		if b.ID == uuid.Nil {
			return fmt.Errorf("block at position %d has no id", b.Position)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("block %s listed twice", b.ID)
		}
		seen[b.ID] = struct{}{}
		if b.Weight <= 0 {
			return fmt.Errorf("block %s has non-positive weight %v", b.ID, b.Weight)
		}
	}
	return nil
}
