// Package leaderboard maps a ranked participant list onto the fixed board
// positions. Everything here is pure and safe for concurrent use.
package leaderboard

import (
	"fmt"

	"loyalty-ledger/internal/model"
)

// OccupantKind tells what holds a position.
type OccupantKind string

const (
	KindEmpty       OccupantKind = "empty"
	KindAccount     OccupantKind = "account"
	KindPlaceholder OccupantKind = "placeholder"
)

// Participant is a real account as it enters the board.
type Participant struct {
	AccountID     int64  `json:"account_id"`
	DisplayName   string `json:"display_name"`
	LoyaltyPoints int64  `json:"loyalty_points"`
}

// Placeholder is a roster name filling a position. It has no account and
// always zero points; it must never be linked to a profile.
type Placeholder struct {
	Name   string `json:"name"`
	Index  int    `json:"index"`
	Points int64  `json:"points"`
}

// Assignment is the occupant of one position.
type Assignment struct {
	Position    int             `json:"position"`
	Kind        OccupantKind    `json:"kind"`
	Account     *Participant    `json:"account,omitempty"`
	Placeholder *Placeholder    `json:"placeholder,omitempty"`
	Slot        *SlotDescriptor `json:"slot,omitempty"`
}

// IsPlaceholder reports whether the position holds a roster name.
func (a Assignment) IsPlaceholder() bool {
	return a.Kind == KindPlaceholder
}

// Assign fills positions 1..slotCount. ranked must already be ordered by
// points descending. Positions 1..cut take ranked[:cut], the roster
// follows in its order, then ranked[cut:], and whatever remains is empty.
// The result always has exactly slotCount entries.
func Assign(ranked []Participant, roster Roster, cut, slotCount int) ([]Assignment, error) {
	if cut < 0 {
		return nil, fmt.Errorf("%w: cut must not be negative, got %d", model.ErrInvalidArgument, cut)
	}
	if slotCount < 0 {
		return nil, fmt.Errorf("%w: slot count must not be negative, got %d", model.ErrInvalidArgument, slotCount)
	}

	seen := make(map[int64]struct{}, len(ranked))
	for _, p := range ranked {
		if _, dup := seen[p.AccountID]; dup {
			return nil, fmt.Errorf("%w: account %d appears twice in ranking", model.ErrInvalidArgument, p.AccountID)
		}
		seen[p.AccountID] = struct{}{}
	}

	out := make([]Assignment, slotCount)
	for i := range out {
		out[i] = Assignment{Position: i + 1, Kind: KindEmpty}
	}

	head := min(cut, len(ranked))
	for i := 0; i < head && i < slotCount; i++ {
		p := ranked[i]
		out[i].Kind = KindAccount
		out[i].Account = &p
	}

	next := cut
	for i, name := range roster.names {
		if next >= slotCount {
			break
		}
		out[next].Kind = KindPlaceholder
		out[next].Placeholder = &Placeholder{Name: name, Index: i}
		next++
	}

	for _, p := range ranked[head:] {
		p := p
		if next >= slotCount {
			break
		}
		out[next].Kind = KindAccount
		out[next].Account = &p
		next++
	}

	return out, nil
}

// Board binds a slot table, roster and layout settings validated once at
// startup.
type Board struct {
	slots     *SlotTable
	roster    Roster
	cut       int
	slotCount int
}

// NewBoard validates the layout settings. slotCount may exceed the slot
// table; positions without a descriptor carry a nil Slot.
func NewBoard(slots *SlotTable, roster Roster, cut, slotCount int) (*Board, error) {
	if slots == nil {
		return nil, fmt.Errorf("%w: slot table is required", model.ErrInvalidArgument)
	}
	if cut < 0 || slotCount < 0 {
		return nil, fmt.Errorf("%w: cut=%d slot_count=%d", model.ErrInvalidArgument, cut, slotCount)
	}
	return &Board{slots: slots, roster: roster, cut: cut, slotCount: slotCount}, nil
}

// SlotCount returns the number of positions on the board.
func (b *Board) SlotCount() int {
	return b.slotCount
}

// Roster returns the board's placeholder roster.
func (b *Board) Roster() Roster {
	return b.roster
}

// Slots returns the board's slot table.
func (b *Board) Slots() *SlotTable {
	return b.slots
}

// Assign runs Assign with the board settings and attaches slot descriptors.
func (b *Board) Assign(ranked []Participant) ([]Assignment, error) {
	out, err := Assign(ranked, b.roster, b.cut, b.slotCount)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if s, ok := b.slots.Lookup(out[i].Position); ok {
			out[i].Slot = &s
		}
	}
	return out, nil
}
