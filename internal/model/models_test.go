package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMutationDeltas(t *testing.T) {
	regular := Mutation{Delta: 7}
	assert.Equal(t, int64(7), regular.LoyaltyDelta())
	assert.Equal(t, int64(7), regular.CoinDelta())
	assert.Equal(t, int64(0), regular.AdjustmentDelta())

	coinOnly := Mutation{Delta: -3, CoinOnly: true}
	assert.Equal(t, int64(0), coinOnly.LoyaltyDelta())
	assert.Equal(t, int64(-3), coinOnly.CoinDelta())
	assert.Equal(t, int64(-3), coinOnly.AdjustmentDelta())
}

// Any sequence of mutations keeps coin equal to loyalty plus adjustment.
func TestMutationPreservesSyncProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		acct := Account{}
		n := rapid.IntRange(1, 50).Draw(t, "n")
		for i := 0; i < n; i++ {
			m := Mutation{
				Delta:    rapid.Int64Range(-1000, 1000).Draw(t, "delta"),
				CoinOnly: rapid.Bool().Draw(t, "coinOnly"),
			}
			acct.LoyaltyPoints += m.LoyaltyDelta()
			acct.Coin += m.CoinDelta()
			acct.CoinAdjustment += m.AdjustmentDelta()
			if !acct.InSync() {
				t.Fatalf("account out of sync after %d mutations: %+v", i+1, acct)
			}
		}
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("apply: %w", ErrConcurrencyConflict)))
	assert.True(t, IsRetryable(fmt.Errorf("apply: %w", ErrStorageUnavailable)))
	assert.False(t, IsRetryable(fmt.Errorf("apply: %w", ErrDuplicateAward)))
	assert.False(t, IsRetryable(ErrInvalidArgument))
}

func TestAwardEventPromoted(t *testing.T) {
	assert.True(t, AwardEvent{Delta: 5, PreviousLevel: "laza", Level: "saqar"}.Promoted())
	assert.False(t, AwardEvent{Delta: 5, PreviousLevel: "laza", Level: "laza"}.Promoted())
	assert.False(t, AwardEvent{Delta: -5, PreviousLevel: "saqar", Level: "laza"}.Promoted())
	assert.False(t, AwardEvent{Delta: 5}.Promoted())
}
