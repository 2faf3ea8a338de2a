package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/centavohq/centavo-backend/internal/adapter/events"
	"github.com/centavohq/centavo-backend/internal/usecase/debt"
	"github.com/centavohq/centavo-backend/internal/usecase/envelope"
)

// LedgerWorker runs the background maintenance of the ledger: a periodic
// sweep that flips past-due debts to overdue, and a consumer that
// recomputes envelope figures when movements change.
type LedgerWorker struct {
	debts     *debt.Service
	envelopes *envelope.Service
	events    *events.Client
	interval  time.Duration
}

// NewLedgerWorker creates a ledger worker. A nil events client disables
// the consumer; the periodic sweep runs regardless.
func NewLedgerWorker(debts *debt.Service, envelopes *envelope.Service, events *events.Client, interval time.Duration) *LedgerWorker {
	return &LedgerWorker{
		debts:     debts,
		envelopes: envelopes,
		events:    events,
		interval:  interval,
	}
}

// Run blocks until the context ends, driving the sweep loop and the event
// consumer concurrently.
func (w *LedgerWorker) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return w.runRefreshLoop(ctx)
	})

	if w.events != nil {
		group.Go(func() error {
			return w.events.Consume(ctx, func(msg *events.LedgerMessage) error {
				return w.handleMessage(ctx, msg)
			})
		})
	}

	return group.Wait()
}

// runRefreshLoop sweeps all owners' pending debts on every tick. The
// first sweep runs immediately so a restart does not delay overdue
// detection by a full interval.
func (w *LedgerWorker) runRefreshLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.refreshOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.refreshOnce(ctx)
		}
	}
}

func (w *LedgerWorker) refreshOnce(ctx context.Context) {
	changed, err := w.debts.RefreshStatuses(ctx, uuid.Nil)
	if err != nil {
		slog.ErrorContext(ctx, "debt status sweep failed", "error", err)
		return
	}
	if changed > 0 {
		slog.InfoContext(ctx, "debt status sweep flipped debts to overdue", "count", changed)
	}
}

func (w *LedgerWorker) handleMessage(ctx context.Context, msg *events.LedgerMessage) error {
	switch msg.Type {
	case events.TypeMovementChanged:
		if _, err := w.envelopes.Recompute(ctx, msg.OwnerID, msg.EnvelopeID); err != nil {
			return fmt.Errorf("recompute envelope %s: %w", msg.EnvelopeID, err)
		}
		return nil
	case events.TypeDebtOverdue:
		// Informational for downstream consumers; nothing to do here.
		slog.InfoContext(ctx, "debt overdue", "debt_id", msg.DebtID, "owner_id", msg.OwnerID)
		return nil
	default:
		slog.WarnContext(ctx, "dropping message of unknown type", "type", msg.Type)
		return nil
	}
}
