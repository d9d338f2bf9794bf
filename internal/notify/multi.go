package notify

import (
	"context"
	"errors"

	"loyalty-ledger/internal/model"
)

// Notifier matches service.Notifier.
type Notifier interface {
	NotifyAward(ctx context.Context, evt model.AwardEvent) error
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

// NotifyAward calls each notifier in order; one failure does not stop the rest.
func (m Multi) NotifyAward(ctx context.Context, evt model.AwardEvent) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.NotifyAward(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
