// Package worker audits account balances against the transaction history.
//
// The stored balance on an account is a running figure maintained by the
// ledger services. The worker recomputes it from scratch, initial balance
// plus the signed sum of every transaction touching the account, and raises
// an alarm when the two disagree. Divergence means a bug or manual tampering
// and is never silently repaired.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/log"
	"tally/internal/services"
)

// ReconcileWorker verifies stored balances against recomputed ones.
type ReconcileWorker struct {
	accounts ledger.AccountStore
	txs      *services.TransactionService
}

func NewReconcileWorker(accounts ledger.AccountStore, txs *services.TransactionService) *ReconcileWorker {
	return &ReconcileWorker{
		accounts: accounts,
		txs:      txs,
	}
}

// HandleLedgerEvent audits every account a ledger mutation touched. An
// inconsistent balance fails the message so it is redelivered and stays
// visible until someone looks at it.
func (w *ReconcileWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, msg.Op,
		log.FieldTransactionID, msg.TransactionID)

	for _, accountID := range msg.AccountIDs() {
		if err := w.auditAccount(ctx, accountID); err != nil {
			return err
		}
	}
	return nil
}

// AuditAll sweeps every account. Used at startup and on the periodic timer
// as a backstop for lost messages.
func (w *ReconcileWorker) AuditAll(ctx context.Context) error {
	accounts, err := w.accounts.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	var divergent int
	for _, a := range accounts {
		if err := w.auditAccount(ctx, a.ID); err != nil {
			if errors.Is(err, core.ErrInconsistent) {
				divergent++
				continue
			}
			return err
		}
	}

	if divergent > 0 {
		return fmt.Errorf("%w: %d of %d accounts diverged", core.ErrInconsistent, divergent, len(accounts))
	}

	slog.InfoContext(ctx, "Balance audit completed",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpReconcile,
		"accounts", len(accounts))
	return nil
}

// RunPeriodic audits all accounts on a fixed interval until the context is
// cancelled. Audit failures are logged, not fatal, so one bad sweep does not
// stop the watch.
func (w *ReconcileWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.AuditAll(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic balance audit failed",
					log.FieldComponent, log.ComponentWorker,
					log.FieldError, err)
			}
		}
	}
}

func (w *ReconcileWorker) auditAccount(ctx context.Context, accountID int64) error {
	err := w.txs.CheckConsistency(ctx, accountID)
	if errors.Is(err, core.ErrNotFound) {
		// The account may have been deleted after the event was published.
		slog.WarnContext(ctx, "Account gone before audit",
			log.FieldComponent, log.ComponentWorker,
			log.FieldAccountID, accountID)
		return nil
	}
	return err
}
