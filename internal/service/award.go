package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"loyalty-ledger/internal/award"
	"loyalty-ledger/internal/model"
	"loyalty-ledger/internal/pkg/metrics"
	"loyalty-ledger/internal/ranking"
)

const notifyTimeout = 5 * time.Second

// Notifier receives an event for every freshly applied award.
type Notifier interface {
	NotifyAward(ctx context.Context, evt model.AwardEvent) error
}

// Outcome is the result of an award request. A duplicate is a successful
// no-op: the balances are the current ones and nothing was written.
type Outcome struct {
	Kind          model.EntryKind    `json:"kind"`
	Reason        string             `json:"reason"`
	Delta         int64              `json:"delta"`
	Duplicate     bool               `json:"duplicate"`
	LoyaltyPoints int64              `json:"loyalty_points"`
	Coin          int64              `json:"coin"`
	Level         string             `json:"level,omitempty"`
	Promoted      bool               `json:"promoted"`
	Entry         *model.LedgerEntry `json:"entry,omitempty"`
}

// AwardService turns external events into ledger mutations according to
// the award rules.
type AwardService struct {
	ledger   *LedgerService
	accounts AccountStore
	rules    *award.Registry
	levels   *ranking.Table
	notifier Notifier
	metrics  *metrics.Ledger
	location *time.Location
	now      func() time.Time
}

// NewAwardService creates a new AwardService instance. notifier and m may
// be nil; loc buckets daily awards and defaults to UTC.
func NewAwardService(
	ledger *LedgerService,
	accounts AccountStore,
	rules *award.Registry,
	levels *ranking.Table,
	notifier Notifier,
	m *metrics.Ledger,
	loc *time.Location,
) *AwardService {
	if loc == nil {
		loc = time.UTC
	}
	return &AwardService{
		ledger:   ledger,
		accounts: accounts,
		rules:    rules,
		levels:   levels,
		notifier: notifier,
		metrics:  m,
		location: loc,
		now:      time.Now,
	}
}

// Rules returns the registered award rules.
func (s *AwardService) Rules() []award.Rule {
	return s.rules.List()
}

// ProfileCompleted pays the one-time profile completion bonus.
func (s *AwardService) ProfileCompleted(ctx context.Context, accountID int64) (*Outcome, error) {
	return s.Grant(ctx, model.KindProfileCompletion, accountID, 0, "", nil)
}

// BeautyConsultantVerified pays the one-time verification bonus.
func (s *AwardService) BeautyConsultantVerified(ctx context.Context, actorID *int64, accountID int64) (*Outcome, error) {
	return s.Grant(ctx, model.KindBCVerification, accountID, 0, "", actorID)
}

// DailyLogin pays the login bonus once per calendar day in the configured
// timezone.
func (s *AwardService) DailyLogin(ctx context.Context, accountID int64) (*Outcome, error) {
	return s.Grant(ctx, model.KindDailyLogin, accountID, 0, "", nil)
}

// TaskApproved pays for an approved task submission, once per submission.
func (s *AwardService) TaskApproved(ctx context.Context, actorID *int64, accountID int64, submissionID string, points int64) (*Outcome, error) {
	return s.Grant(ctx, model.KindTaskApproval, accountID, points, submissionID, actorID)
}

// AdminGrant credits amount. key is an optional idempotency key.
func (s *AwardService) AdminGrant(ctx context.Context, actorID int64, accountID, amount int64, key string) (*Outcome, error) {
	return s.Grant(ctx, model.KindAdminGrant, accountID, amount, key, &actorID)
}

// AdminCorrection applies a signed correction that may leave the account
// below zero.
func (s *AwardService) AdminCorrection(ctx context.Context, actorID int64, accountID, amount int64, key string) (*Outcome, error) {
	return s.Grant(ctx, model.KindAdminCorrection, accountID, amount, key, &actorID)
}

// AdminCoinCorrection moves coin alone; loyalty points and level stay put.
func (s *AwardService) AdminCoinCorrection(ctx context.Context, actorID int64, accountID, amount int64, key string) (*Outcome, error) {
	return s.Grant(ctx, model.KindAdminCoinCorrection, accountID, amount, key, &actorID)
}

// Grant applies the rule registered for kind. amount is ignored by
// fixed-point rules unless it conflicts; subject feeds the idempotency
// reason.
func (s *AwardService) Grant(ctx context.Context, kind model.EntryKind, accountID, amount int64, subject string, actorID *int64) (*Outcome, error) {
	rule, ok := s.rules.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: no award rule for %q", model.ErrInvalidArgument, kind)
	}

	at := s.now().In(s.location)
	reason, err := rule.Reason(subject, at)
	if err != nil {
		return nil, err
	}
	delta, err := rule.Amount(amount)
	if err != nil {
		return nil, err
	}

	m := model.Mutation{
		AccountID:     accountID,
		Delta:         delta,
		Reason:        reason,
		Kind:          rule.Kind,
		ActorID:       actorID,
		AllowNegative: rule.AllowNegative,
		CoinOnly:      rule.CoinOnly,
	}

	res, err := s.ledger.Apply(ctx, m)
	if errors.Is(err, model.ErrDuplicateAward) {
		return s.duplicate(ctx, m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s award: %w", kind, err)
	}

	evt := s.event(res, m, at)
	out := &Outcome{
		Kind:          m.Kind,
		Reason:        m.Reason,
		Delta:         m.Delta,
		LoyaltyPoints: res.LoyaltyPoints,
		Coin:          res.Coin,
		Level:         evt.Level,
		Promoted:      evt.Promoted(),
		Entry:         res.Entry,
	}

	s.notify(ctx, evt)
	return out, nil
}

func (s *AwardService) duplicate(ctx context.Context, m model.Mutation) (*Outcome, error) {
	log.Info().
		Int64("account_id", m.AccountID).
		Str("kind", string(m.Kind)).
		Str("reason", m.Reason).
		Bool("duplicate", true).
		Msg("Award already applied, skipping")

	out := &Outcome{Kind: m.Kind, Reason: m.Reason, Duplicate: true}
	acct, err := s.accounts.GetByID(ctx, m.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account after duplicate award: %w", err)
	}
	out.LoyaltyPoints = acct.LoyaltyPoints
	out.Coin = acct.Coin
	out.Level = s.levels.Lookup(acct.LoyaltyPoints).Name
	return out, nil
}

func (s *AwardService) event(res *Result, m model.Mutation, at time.Time) model.AwardEvent {
	previous := res.LoyaltyPoints - m.LoyaltyDelta()
	evt := model.AwardEvent{
		AccountID:     m.AccountID,
		Kind:          m.Kind,
		Reason:        m.Reason,
		Delta:         m.Delta,
		LoyaltyPoints: res.LoyaltyPoints,
		Coin:          res.Coin,
		Level:         s.levels.Lookup(res.LoyaltyPoints).Name,
		PreviousLevel: s.levels.Lookup(previous).Name,
		At:            at,
	}
	if res.Account != nil {
		evt.DisplayName = res.Account.DisplayName
	}
	return evt
}

// notify never fails the award; a cancelled request still gets its
// notification.
func (s *AwardService) notify(ctx context.Context, evt model.AwardEvent) {
	if s.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := s.notifier.NotifyAward(ctx, evt); err != nil {
		s.metrics.NotifyFailed()
		log.Warn().
			Err(err).
			Int64("account_id", evt.AccountID).
			Str("kind", string(evt.Kind)).
			Msg("Failed to deliver award notification")
	}
}
