// Package model defines the data models for the loyalty ledger.
package model

import "time"

// Account is one participant. ID is the canonical internal identifier;
// ExternalID is the subject issued by the identity provider and is only
// consulted at the authentication boundary.
type Account struct {
	ID             int64     `db:"id" json:"id"`
	ExternalID     string    `db:"external_id" json:"-"`
	DisplayName    string    `db:"display_name" json:"display_name"`
	Email          string    `db:"email" json:"email,omitempty"`
	LoyaltyPoints  int64     `db:"loyalty_points" json:"loyalty_points"`
	Coin           int64     `db:"coin" json:"coin"`
	CoinAdjustment int64     `db:"coin_adjustment" json:"coin_adjustment"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// InSync reports whether coin tracks loyalty points, allowing for any
// recorded one-sided coin correction.
func (a *Account) InSync() bool {
	return a.Coin == a.LoyaltyPoints+a.CoinAdjustment
}

// LedgerEntry is an immutable record of one applied mutation.
type LedgerEntry struct {
	ID           int64     `db:"id" json:"id"`
	AccountID    int64     `db:"account_id" json:"account_id"`
	LoyaltyDelta int64     `db:"loyalty_delta" json:"loyalty_delta"`
	CoinDelta    int64     `db:"coin_delta" json:"coin_delta"`
	Reason       string    `db:"reason" json:"reason"`
	Kind         EntryKind `db:"kind" json:"kind"`
	ActorID      *int64    `db:"actor_id" json:"actor_id,omitempty"`
	// Balances right after the entry was applied.
	LoyaltyAfter int64     `db:"loyalty_after" json:"loyalty_after"`
	CoinAfter    int64     `db:"coin_after" json:"coin_after"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// EntryKind categorizes ledger entries.
type EntryKind string

const (
	KindProfileCompletion   EntryKind = "profile_completion"    // One-time profile bonus
	KindBCVerification      EntryKind = "bc_verification"       // Beauty-consultant verification bonus
	KindDailyLogin          EntryKind = "daily_login"           // First login of the day
	KindTaskApproval        EntryKind = "task_approval"         // Approved task submission
	KindAdminGrant          EntryKind = "admin_grant"           // Manual admin grant
	KindAdminCorrection     EntryKind = "admin_correction"      // Signed admin correction, may go negative
	KindAdminCoinCorrection EntryKind = "admin_coin_correction" // One-sided coin correction
	KindSystem              EntryKind = "system"                // Default for direct ledger calls
)

// Mutation is the only shape in which balances may change. A regular
// mutation moves loyalty points and coin by the same Delta. A CoinOnly
// mutation moves coin and the recorded coin adjustment together, leaving
// loyalty points untouched.
type Mutation struct {
	AccountID     int64
	Delta         int64
	Reason        string
	Kind          EntryKind
	ActorID       *int64
	AllowNegative bool
	CoinOnly      bool
}

// LoyaltyDelta returns the change this mutation makes to loyalty points.
func (m Mutation) LoyaltyDelta() int64 {
	if m.CoinOnly {
		return 0
	}
	return m.Delta
}

// CoinDelta returns the change this mutation makes to coin.
func (m Mutation) CoinDelta() int64 {
	return m.Delta
}

// AdjustmentDelta returns the change this mutation makes to the recorded
// coin adjustment.
func (m Mutation) AdjustmentDelta() int64 {
	if m.CoinOnly {
		return m.Delta
	}
	return 0
}

// Discrepancy describes an account whose balances disagree with its
// ledger history or with each other.
type Discrepancy struct {
	AccountID      int64 `json:"account_id"`
	LoyaltyPoints  int64 `json:"loyalty_points"`
	Coin           int64 `json:"coin"`
	CoinAdjustment int64 `json:"coin_adjustment"`
	LedgerLoyalty  int64 `json:"ledger_loyalty"`
	LedgerCoin     int64 `json:"ledger_coin"`
}

// AwardEvent is emitted after a fresh award has been committed.
type AwardEvent struct {
	AccountID     int64     `json:"account_id"`
	DisplayName   string    `json:"display_name,omitempty"`
	Kind          EntryKind `json:"kind"`
	Reason        string    `json:"reason"`
	Delta         int64     `json:"delta"`
	LoyaltyPoints int64     `json:"loyalty_points"`
	Coin          int64     `json:"coin"`
	Level         string    `json:"level,omitempty"`
	PreviousLevel string    `json:"previous_level,omitempty"`
	At            time.Time `json:"at"`
}

// Promoted reports whether the award moved the account into a new level.
func (e AwardEvent) Promoted() bool {
	return e.PreviousLevel != "" && e.Level != "" && e.PreviousLevel != e.Level && e.Delta > 0
}
