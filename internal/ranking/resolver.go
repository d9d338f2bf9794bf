package ranking

import (
	"fmt"

	"loyalty-ledger/internal/model"
)

// Progress summarizes an account's standing against the table.
type Progress struct {
	Points       int64  `json:"points"`
	Current      Level  `json:"current"`
	Next         *Level `json:"next,omitempty"`
	PointsToNext int64  `json:"points_to_next"`
	// Percent is progress through the current band, 0..100. It is 100 at
	// the top level.
	Percent int `json:"percent"`
}

// Current returns the level held with points. A total exactly on a
// threshold belongs to that level. Negative points are rejected.
func (t *Table) Current(points int64) (Level, error) {
	if points < 0 {
		return Level{}, fmt.Errorf("%w: points must not be negative, got %d", model.ErrInvalidArgument, points)
	}
	return t.Lookup(points), nil
}

// Next returns the level directly above current, or false at the top.
func (t *Table) Next(current Level) (Level, bool) {
	if current.Rank <= 1 || current.Rank > len(t.levels) {
		return Level{}, false
	}
	return t.levels[current.Rank-2], true
}

// PointsToNext returns how many points are missing to reach the level
// above current, never less than zero.
func (t *Table) PointsToNext(points int64, current Level) int64 {
	next, ok := t.Next(current)
	if !ok {
		return 0
	}
	return max(0, next.MinPoints-points)
}

// Progress resolves points into a full Progress value.
func (t *Table) Progress(points int64) (Progress, error) {
	current, err := t.Current(points)
	if err != nil {
		return Progress{}, err
	}

	p := Progress{
		Points:  points,
		Current: current,
		Percent: 100,
	}

	if next, ok := t.Next(current); ok {
		p.Next = &next
		p.PointsToNext = t.PointsToNext(points, current)
		band := next.MinPoints - current.MinPoints
		p.Percent = int((points - current.MinPoints) * 100 / band)
	}

	return p, nil
}
