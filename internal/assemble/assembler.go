// Package assemble packs ranked chunks into a bounded generation context.
package assemble

import (
	"github.com/andina-labs/yachay/internal/models"
	"github.com/andina-labs/yachay/pkg/utils"
)

// Assembler greedily selects chunks in rank order until the budget (in runes)
// is exhausted. Order is never changed. A chunk that would overflow the budget
// is truncated to fit when the remaining space is at least minFragment runes,
// otherwise skipped. For a non-empty candidate list at least one chunk is
// always included, truncated to the budget if necessary.
type Assembler struct {
	budget      int
	minFragment int
}

// New creates an assembler with the given budget and minimum useful fragment size.
func New(budget, minFragment int) *Assembler {
	return &Assembler{budget: budget, minFragment: minFragment}
}

// Assemble returns the selected chunks in rank order and their cumulative size.
// The cumulative size never exceeds the budget.
func (a *Assembler) Assemble(ranked []*models.ScoredChunk) ([]*models.ScoredChunk, int) {
	if len(ranked) == 0 {
		return nil, 0
	}
	var out []*models.ScoredChunk
	used := 0
	for _, sc := range ranked {
		size := utils.RuneCount(sc.Chunk.Text)
		remaining := a.budget - used
		if remaining <= 0 {
			break
		}
		if size <= remaining {
			out = append(out, sc)
			used += size
			continue
		}
		if remaining >= a.minFragment {
			out = append(out, truncated(sc, remaining))
			used += remaining
		}
		// Too small to be useful: skip, but keep scanning for a smaller chunk.
	}
	if len(out) == 0 {
		// Hard floor: never return zero context for a non-empty candidate list.
		first := ranked[0]
		size := utils.RuneCount(first.Chunk.Text)
		if size <= a.budget {
			return []*models.ScoredChunk{first}, size
		}
		return []*models.ScoredChunk{truncated(first, a.budget)}, a.budget
	}
	return out, used
}

// truncated returns a copy of sc with its chunk text cut to n runes and the
// truncation flag set. The original chunk is not modified.
func truncated(sc *models.ScoredChunk, n int) *models.ScoredChunk {
	cut := *sc.Chunk
	cut.Text = utils.TruncateRunes(cut.Text, n)
	cut.End = cut.Start + utils.RuneCount(cut.Text)
	return &models.ScoredChunk{Chunk: &cut, Score: sc.Score, Truncated: true}
}
