// Package worker applies queued summary increments against the store.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"plata/internal/events"
	"plata/internal/store"
)

// SummaryWorker consumes summary-increment messages and folds them into
// the denormalized monthly totals.
type SummaryWorker struct {
	store store.Store
}

func NewSummaryWorker(st store.Store) *SummaryWorker {
	return &SummaryWorker{store: st}
}

// HandleSummaryIncrement processes a single increment message. A
// malformed amount is dropped; a store failure is returned so the
// message gets requeued.
func (w *SummaryWorker) HandleSummaryIncrement(ctx context.Context, msg *events.SummaryIncrementMessage) error {
	delta, err := msg.Delta()
	if err != nil {
		slog.ErrorContext(ctx, "Dropping summary increment with malformed amount",
			"user_id", msg.UserID,
			"month_key", msg.MonthKey,
			"amount", msg.Amount,
			"error", err)
		return nil
	}

	slog.InfoContext(ctx, "Processing summary increment",
		"user_id", msg.UserID,
		"month_key", msg.MonthKey,
		"spend_type", msg.SpendType)

	if err := w.store.IncrementMonthlySummary(ctx, msg.UserID, msg.MonthKey, msg.SpendType, delta); err != nil {
		return fmt.Errorf("increment monthly summary: %w", err)
	}
	return nil
}
