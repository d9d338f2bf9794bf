package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"loyalty-ledger/internal/config"
	"loyalty-ledger/internal/model"
	"loyalty-ledger/internal/pkg/metrics"
)

const (
	maxReasonLen       = 255
	defaultHistorySize = 50
	maxHistorySize     = 500
)

// Result is the state after an applied mutation.
type Result struct {
	LoyaltyPoints int64              `json:"loyalty_points"`
	Coin          int64              `json:"coin"`
	Account       *model.Account     `json:"-"`
	Entry         *model.LedgerEntry `json:"entry"`
	Attempts      int                `json:"-"`
}

// ApplyOption customizes a point mutation.
type ApplyOption func(*model.Mutation)

// WithKind records the mutation under kind instead of KindSystem.
func WithKind(kind model.EntryKind) ApplyOption {
	return func(m *model.Mutation) { m.Kind = kind }
}

// WithActor records who requested the mutation.
func WithActor(actorID int64) ApplyOption {
	return func(m *model.Mutation) { m.ActorID = &actorID }
}

// AllowNegative lets the resulting balances drop below zero.
func AllowNegative() ApplyOption {
	return func(m *model.Mutation) { m.AllowNegative = true }
}

// LedgerService is the single write path for loyalty points and coin.
type LedgerService struct {
	store   LedgerStore
	cfg     config.LedgerConfig
	metrics *metrics.Ledger
	tracer  trace.Tracer
}

// NewLedgerService creates a new LedgerService instance. m may be nil.
func NewLedgerService(store LedgerStore, cfg config.LedgerConfig, m *metrics.Ledger) *LedgerService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 3 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 25 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	return &LedgerService{
		store:   store,
		cfg:     cfg,
		metrics: m,
		tracer:  otel.Tracer("loyalty-ledger/internal/service"),
	}
}

// ApplyPointDelta moves loyalty points and coin of one account by delta
// in a single atomic unit and appends a ledger entry. A reason already
// applied to the account yields ErrDuplicateAward with nothing changed.
func (s *LedgerService) ApplyPointDelta(ctx context.Context, accountID, delta int64, reason string, opts ...ApplyOption) (*Result, error) {
	m := model.Mutation{
		AccountID: accountID,
		Delta:     delta,
		Reason:    reason,
		Kind:      model.KindSystem,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return s.Apply(ctx, m)
}

// ApplyCoinCorrection moves coin alone. The difference is kept in the
// account's coin adjustment so coin still equals loyalty points plus
// adjustment. actorID may be nil.
func (s *LedgerService) ApplyCoinCorrection(ctx context.Context, accountID, delta int64, reason string, actorID *int64) (*Result, error) {
	return s.Apply(ctx, model.Mutation{
		AccountID: accountID,
		Delta:     delta,
		Reason:    reason,
		Kind:      model.KindAdminCoinCorrection,
		ActorID:   actorID,
		CoinOnly:  true,
	})
}

// Apply validates m and runs it against the store, retrying contention and
// transient storage failures with exponential backoff.
func (s *LedgerService) Apply(ctx context.Context, m model.Mutation) (*Result, error) {
	m.Reason = strings.TrimSpace(m.Reason)
	if m.Kind == "" {
		m.Kind = model.KindSystem
	}

	start := time.Now()
	if err := validateMutation(m); err != nil {
		s.metrics.ObserveMutation(string(m.Kind), metrics.OutcomeInvalid, m.Delta, 0, time.Since(start))
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "ledger.apply", trace.WithAttributes(
		attribute.Int64("account_id", m.AccountID),
		attribute.Int64("delta", m.Delta),
		attribute.String("kind", string(m.Kind)),
		attribute.Bool("coin_only", m.CoinOnly),
	))
	defer span.End()

	var (
		attempts int
		acct     *model.Account
		entry    *model.LedgerEntry
	)
	op := func() error {
		attempts++
		opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
		defer cancel()

		a, e, err := s.store.Apply(opCtx, m)
		if err != nil {
			if model.IsRetryable(err) && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		acct, entry = a, e
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().
			Err(err).
			Int64("account_id", m.AccountID).
			Str("reason", m.Reason).
			Int("attempt", attempts).
			Dur("backoff", wait).
			Msg("Retrying ledger mutation")
	}

	err := backoff.RetryNotify(op, s.newBackOff(ctx), notify)
	if err != nil && !errors.Is(err, model.ErrStorageUnavailable) &&
		(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		err = fmt.Errorf("%w: %w", model.ErrStorageUnavailable, err)
	}

	elapsed := time.Since(start)
	outcome := outcomeOf(err)
	s.metrics.ObserveMutation(string(m.Kind), outcome, m.Delta, attempts, elapsed)
	span.SetAttributes(attribute.Int("attempts", attempts), attribute.String("outcome", outcome))
	s.logOutcome(m, outcome, attempts, elapsed, err)

	if err != nil {
		if outcome != metrics.OutcomeDuplicate {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		return nil, err
	}

	return &Result{
		LoyaltyPoints: acct.LoyaltyPoints,
		Coin:          acct.Coin,
		Account:       acct,
		Entry:         entry,
		Attempts:      attempts,
	}, nil
}

// History returns an account's ledger entries, newest first. limit is
// clamped to a sane page size.
func (s *LedgerService) History(ctx context.Context, accountID int64, limit int) ([]*model.LedgerEntry, error) {
	if accountID <= 0 {
		return nil, fmt.Errorf("%w: account id must be positive", model.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = defaultHistorySize
	}
	limit = min(limit, maxHistorySize)

	entries, err := s.store.History(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	return entries, nil
}

// HasReason reports whether reason was already applied to the account.
func (s *LedgerService) HasReason(ctx context.Context, accountID int64, reason string) (bool, error) {
	return s.store.HasReason(ctx, accountID, strings.TrimSpace(reason))
}

// Audit lists accounts whose balances disagree with their ledger.
func (s *LedgerService) Audit(ctx context.Context) ([]model.Discrepancy, error) {
	out, err := s.store.Audit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to audit ledger: %w", err)
	}
	if len(out) > 0 {
		log.Error().Int("accounts", len(out)).Msg("Ledger audit found discrepancies")
	}
	return out, nil
}

func (s *LedgerService) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialBackoff
	b.MaxInterval = s.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.MaxAttempts-1)), ctx)
}

func (s *LedgerService) logOutcome(m model.Mutation, outcome string, attempts int, elapsed time.Duration, err error) {
	var evt *zerolog.Event
	switch outcome {
	case metrics.OutcomeApplied:
		evt = log.Info()
	case metrics.OutcomeDuplicate:
		evt = log.Info().Bool("duplicate", true)
	case metrics.OutcomeInvalid:
		evt = log.Debug().Err(err)
	case metrics.OutcomeConflict:
		evt = log.Warn().Err(err)
	default:
		evt = log.Error().Err(err)
	}

	evt.Int64("account_id", m.AccountID).
		Int64("delta", m.Delta).
		Str("reason", m.Reason).
		Str("kind", string(m.Kind)).
		Int("attempts", attempts).
		Dur("elapsed", elapsed).
		Msg("Ledger mutation " + outcome)
}

func validateMutation(m model.Mutation) error {
	switch {
	case m.AccountID <= 0:
		return fmt.Errorf("%w: account id must be positive, got %d", model.ErrInvalidArgument, m.AccountID)
	case m.Delta == 0:
		return fmt.Errorf("%w: delta must not be zero", model.ErrInvalidArgument)
	case m.Reason == "":
		return fmt.Errorf("%w: reason is required", model.ErrInvalidArgument)
	case len(m.Reason) > maxReasonLen:
		return fmt.Errorf("%w: reason longer than %d characters", model.ErrInvalidArgument, maxReasonLen)
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeApplied
	case errors.Is(err, model.ErrDuplicateAward):
		return metrics.OutcomeDuplicate
	case errors.Is(err, model.ErrInvalidArgument), errors.Is(err, model.ErrAccountNotFound):
		return metrics.OutcomeInvalid
	case errors.Is(err, model.ErrConcurrencyConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, model.ErrStorageUnavailable):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeError
	}
}
