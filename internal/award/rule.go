// Package award defines the catalog of award rules. A rule fixes how many
// points an event is worth and how its idempotency reason is derived.
package award

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"loyalty-ledger/internal/config"
	"loyalty-ledger/internal/model"
)

// Scope decides how often a rule can pay out for one account.
type Scope int

const (
	// ScopeLifetime pays once per account. The reason is the kind itself.
	ScopeLifetime Scope = iota
	// ScopeDaily pays once per account per calendar day.
	ScopeDaily
	// ScopePerSubject pays once per account per subject, e.g. a submission id.
	ScopePerSubject
	// ScopeUnique pays every time; the subject is an optional idempotency key.
	ScopeUnique
)

const maxSubjectLen = 200

// Rule describes one kind of award.
type Rule struct {
	Kind model.EntryKind
	// Points is the fixed amount. Zero means the caller supplies it.
	Points int64
	Scope  Scope
	// Deductible rules accept negative amounts.
	Deductible bool
	// AllowNegative lets the resulting balance drop below zero.
	AllowNegative bool
	CoinOnly      bool
	Description   string
}

// Reason derives the idempotency reason for an award at the given time.
func (r Rule) Reason(subject string, at time.Time) (string, error) {
	subject = strings.TrimSpace(subject)
	if len(subject) > maxSubjectLen {
		return "", fmt.Errorf("%w: subject longer than %d characters", model.ErrInvalidArgument, maxSubjectLen)
	}

	switch r.Scope {
	case ScopeLifetime:
		return string(r.Kind), nil
	case ScopeDaily:
		return fmt.Sprintf("%s:%s", r.Kind, at.Format(time.DateOnly)), nil
	case ScopePerSubject:
		if subject == "" {
			return "", fmt.Errorf("%w: %s requires a subject", model.ErrInvalidArgument, r.Kind)
		}
		return fmt.Sprintf("%s:%s", r.Kind, subject), nil
	case ScopeUnique:
		if subject == "" {
			subject = uuid.NewString()
		}
		return fmt.Sprintf("%s:%s", r.Kind, subject), nil
	default:
		return "", fmt.Errorf("%w: unknown scope %d", model.ErrInvalidArgument, r.Scope)
	}
}

// Amount resolves the delta to apply. Fixed-amount rules ignore a zero
// request and reject a conflicting one.
func (r Rule) Amount(requested int64) (int64, error) {
	if r.Points != 0 {
		if requested != 0 && requested != r.Points {
			return 0, fmt.Errorf("%w: %s is worth %d points, got %d", model.ErrInvalidArgument, r.Kind, r.Points, requested)
		}
		return r.Points, nil
	}
	if requested == 0 {
		return 0, fmt.Errorf("%w: %s needs a non-zero amount", model.ErrInvalidArgument, r.Kind)
	}
	if requested < 0 && !r.Deductible {
		return 0, fmt.Errorf("%w: %s cannot deduct points", model.ErrInvalidArgument, r.Kind)
	}
	return requested, nil
}

// DefaultRules returns the built-in rules with configured point values.
func DefaultRules(cfg config.AwardsConfig) []Rule {
	return []Rule{
		{Kind: model.KindProfileCompletion, Points: cfg.ProfileCompletion, Scope: ScopeLifetime, Description: "Profile completed"},
		{Kind: model.KindBCVerification, Points: cfg.BCVerification, Scope: ScopeLifetime, Description: "Beauty consultant verified"},
		{Kind: model.KindDailyLogin, Points: cfg.DailyLogin, Scope: ScopeDaily, Description: "Daily login"},
		{Kind: model.KindTaskApproval, Scope: ScopePerSubject, Description: "Task submission approved"},
		{Kind: model.KindAdminGrant, Scope: ScopeUnique, Description: "Manual grant"},
		{Kind: model.KindAdminCorrection, Scope: ScopeUnique, Deductible: true, AllowNegative: true, Description: "Admin correction"},
		{Kind: model.KindAdminCoinCorrection, Scope: ScopeUnique, Deductible: true, CoinOnly: true, Description: "Coin-only correction"},
	}
}
