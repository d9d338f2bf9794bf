package leaderboard

import (
	"fmt"

	"loyalty-ledger/internal/model"
)

// Tier groups board positions for styling. It depends on the position,
// not on points.
type Tier string

const (
	TierTop3  Tier = "TOP3"
	TierLord  Tier = "LORD"
	TierGuard Tier = "GUARD"
)

type tierStyle struct {
	width    float64
	height   float64
	fontSize int
}

var tierStyles = map[Tier]tierStyle{
	TierTop3:  {width: 180, height: 45, fontSize: 20},
	TierLord:  {width: 120, height: 30, fontSize: 12},
	TierGuard: {width: 82.22, height: 20.56, fontSize: 9},
}

const darkBackground = "#181A19"

type placement struct {
	position   int
	x, y       float64
	tier       Tier
	background string
}

// SlotDescriptor is the static visual descriptor of one board position.
type SlotDescriptor struct {
	Position   int     `json:"position"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Tier       Tier    `json:"tier"`
	FontSize   int     `json:"font_size"`
	Background string  `json:"background"`
	TextColor  string  `json:"text_color"`
}

// SlotTable holds exactly one descriptor per position 1..Len().
type SlotTable struct {
	slots []SlotDescriptor
}

// NewSlotTable validates that positions are exactly 1..len(slots), in any
// order, and builds an immutable table.
func NewSlotTable(slots []SlotDescriptor) (*SlotTable, error) {
	ordered := make([]SlotDescriptor, len(slots))
	seen := make([]bool, len(slots))
	for _, s := range slots {
		if s.Position < 1 || s.Position > len(slots) {
			return nil, fmt.Errorf("%w: slot position %d outside 1..%d", model.ErrInvalidArgument, s.Position, len(slots))
		}
		if seen[s.Position-1] {
			return nil, fmt.Errorf("%w: duplicate slot position %d", model.ErrInvalidArgument, s.Position)
		}
		seen[s.Position-1] = true
		ordered[s.Position-1] = s
	}
	return &SlotTable{slots: ordered}, nil
}

// DefaultSlots returns the built-in 111-position board.
func DefaultSlots() *SlotTable {
	slots := make([]SlotDescriptor, 0, len(defaultPlacements))
	for _, p := range defaultPlacements {
		style := tierStyles[p.tier]
		text := "#000000"
		if p.background == darkBackground {
			text = "#FFFFFF"
		}
		slots = append(slots, SlotDescriptor{
			Position:   p.position,
			X:          p.x,
			Y:          p.y,
			Width:      style.width,
			Height:     style.height,
			Tier:       p.tier,
			FontSize:   style.fontSize,
			Background: p.background,
			TextColor:  text,
		})
	}

	t, err := NewSlotTable(slots)
	if err != nil {
		panic("leaderboard: built-in slot table is invalid: " + err.Error())
	}
	return t
}

// Len returns the number of positions in the table.
func (t *SlotTable) Len() int {
	return len(t.slots)
}

// Lookup returns the descriptor for position. Positions outside the table
// return false; callers skip rendering them.
func (t *SlotTable) Lookup(position int) (SlotDescriptor, bool) {
	if position < 1 || position > len(t.slots) {
		return SlotDescriptor{}, false
	}
	return t.slots[position-1], true
}

// TierRange returns the first and last position of tier.
func (t *SlotTable) TierRange(tier Tier) (first, last int, ok bool) {
	for _, s := range t.slots {
		if s.Tier != tier {
			continue
		}
		if !ok {
			first, ok = s.Position, true
		}
		last = s.Position
	}
	return first, last, ok
}
