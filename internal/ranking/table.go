// Package ranking resolves a cumulative point total to a level of an
// ordered threshold table. Tables are validated on construction and are
// read-only afterwards, so a *Table is safe for concurrent use.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"loyalty-ledger/internal/model"
)

// Level is one entry of a threshold table. Rank 1 is the top level.
type Level struct {
	Rank        int    `yaml:"rank" json:"rank"`
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Category    string `yaml:"category" json:"category"`
	MinPoints   int64  `yaml:"min_points" json:"min_points"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// Table is an immutable, validated threshold table.
type Table struct {
	// levels[i].Rank == i+1; MinPoints strictly decreasing.
	levels []Level
}

// NewTable validates levels and builds a table from a copy of them.
// Input order does not matter; levels are ordered by rank.
func NewTable(levels []Level) (*Table, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: threshold table is empty", model.ErrInvalidArgument)
	}

	sorted := make([]Level, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	ids := make(map[string]struct{}, len(sorted))
	for i, lvl := range sorted {
		if lvl.Rank != i+1 {
			return nil, fmt.Errorf("%w: ranks must be contiguous from 1, found rank %d at position %d",
				model.ErrInvalidArgument, lvl.Rank, i+1)
		}
		id := strings.TrimSpace(lvl.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: rank %d has no id", model.ErrInvalidArgument, lvl.Rank)
		}
		if _, dup := ids[id]; dup {
			return nil, fmt.Errorf("%w: duplicate level id %q", model.ErrInvalidArgument, id)
		}
		ids[id] = struct{}{}

		if i > 0 && lvl.MinPoints >= sorted[i-1].MinPoints {
			return nil, fmt.Errorf("%w: rank %d threshold %d is not below rank %d threshold %d",
				model.ErrInvalidArgument, lvl.Rank, lvl.MinPoints, sorted[i-1].Rank, sorted[i-1].MinPoints)
		}
	}

	if bottom := sorted[len(sorted)-1]; bottom.MinPoints != 0 {
		return nil, fmt.Errorf("%w: lowest rank %d must have threshold 0, got %d",
			model.ErrInvalidArgument, bottom.Rank, bottom.MinPoints)
	}

	return &Table{levels: sorted}, nil
}

// Len returns the number of levels.
func (t *Table) Len() int {
	return len(t.levels)
}

// Levels returns a copy of the levels, highest rank first.
func (t *Table) Levels() []Level {
	out := make([]Level, len(t.levels))
	copy(out, t.levels)
	return out
}

// Top returns the rank 1 level.
func (t *Table) Top() Level {
	return t.levels[0]
}

// Bottom returns the lowest level.
func (t *Table) Bottom() Level {
	return t.levels[len(t.levels)-1]
}

// ByID looks up a level by its id.
func (t *Table) ByID(id string) (Level, bool) {
	for _, lvl := range t.levels {
		if lvl.ID == id {
			return lvl, true
		}
	}
	return Level{}, false
}

// Lookup returns the level for points, clamping below the lowest threshold
// to the bottom level and above the highest to the top level.
func (t *Table) Lookup(points int64) Level {
	// First index whose threshold is <= points. Thresholds descend, so the
	// predicate is monotonic.
	i := sort.Search(len(t.levels), func(i int) bool {
		return t.levels[i].MinPoints <= points
	})
	if i == len(t.levels) {
		return t.Bottom()
	}
	return t.levels[i]
}

// CategoryCounts returns the number of levels per category.
func (t *Table) CategoryCounts() map[string]int {
	counts := make(map[string]int)
	for _, lvl := range t.levels {
		counts[lvl.Category]++
	}
	return counts
}
