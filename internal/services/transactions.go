package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/log"
)

// TransactionService is the balance maintainer: every transaction mutation
// goes through here so that the owning accounts' current balances stay equal
// to initial balance plus the signed sum of their extant transactions.
//
// The service computes signed balance deltas and hands them to the store,
// which commits them in the same atomic unit as the row write. An update is a
// reverse-old-apply-new pair merged into one delta set, so a half-applied
// update is never observable.
type TransactionService struct {
	store  ledger.Store
	events *amqp.Client
}

// NewTransactionService creates the service. events may be nil; event
// publishing is then skipped.
func NewTransactionService(store ledger.Store, events *amqp.Client) *TransactionService {
	return &TransactionService{store: store, events: events}
}

// Create validates the transaction, verifies its references and commits the
// row together with the balance deltas. For transfers the amount leaves the
// source account and arrives at the destination account in the same commit.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.Description = strings.TrimSpace(tx.Description)
	tx.Date = tx.Date.Normalize()
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkReferences(ctx, tx); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.InsertTransaction(ctx, tx, mutationDeltas(tx))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	s.publishEvent(ctx, amqp.OpCreate, created)
	return created, nil
}

// Update replaces a transaction. The old effect is reversed and the new one
// applied as a single merged delta set in one commit, covering amount, type,
// account and transfer-destination changes alike.
func (s *TransactionService) Update(ctx context.Context, id int64, tx core.Transaction) (core.Transaction, error) {
	old, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	tx.ID = id
	tx.Description = strings.TrimSpace(tx.Description)
	tx.Date = tx.Date.Normalize()
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkReferences(ctx, tx); err != nil {
		return core.Transaction{}, err
	}

	deltas := mergeDeltas(reversalDeltas(old), mutationDeltas(tx))
	if err := s.store.UpdateTransaction(ctx, tx, deltas); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.publishEvent(ctx, amqp.OpUpdate, tx)
	return tx, nil
}

// Delete reverses the transaction's past effect and removes the row in one
// commit.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	old, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteTransaction(ctx, id, reversalDeltas(old)); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publishEvent(ctx, amqp.OpDelete, old)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// List returns transactions matching the filter. An inverted date range is
// rejected before it reaches any aggregation.
func (s *TransactionService) List(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From.Time) {
		return nil, core.ErrInvalidDateRange
	}
	return s.store.ListTransactions(ctx, f)
}

// RecomputeBalance is the from-scratch oracle: initial balance plus the
// signed sum of every extant transaction touching the account, including
// incoming transfer legs.
func (s *TransactionService) RecomputeBalance(ctx context.Context, accountID int64) (core.Money, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Money{}, err
	}

	txs, err := s.store.ListTransactions(ctx, ledger.TransactionFilter{AccountID: accountID})
	if err != nil {
		return core.Money{}, fmt.Errorf("list transactions: %w", err)
	}

	total := account.InitialBalance.Cents
	for _, tx := range txs {
		if tx.AccountID == accountID {
			total += tx.SignedAmount()
		}
		if tx.Type == core.Transfer && tx.CounterAccountID == accountID {
			total += tx.Amount.Cents
		}
	}
	return core.Money{Cents: total}, nil
}

// CheckConsistency compares the incrementally maintained balance with the
// oracle. Divergence is a bug: it is logged loudly and returned as
// ErrInconsistent, never silently corrected.
func (s *TransactionService) CheckConsistency(ctx context.Context, accountID int64) error {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	recomputed, err := s.RecomputeBalance(ctx, accountID)
	if err != nil {
		return err
	}

	if recomputed.Cents != account.CurrentBalance.Cents {
		slog.ErrorContext(ctx, "Balance divergence detected",
			log.FieldComponent, log.ComponentLedger,
			log.FieldAccountID, accountID,
			"stored_balance", core.FormatCents(account.CurrentBalance.Cents),
			"recomputed_balance", core.FormatCents(recomputed.Cents))
		return fmt.Errorf("%w: account %d stored %d, recomputed %d",
			core.ErrInconsistent, accountID, account.CurrentBalance.Cents, recomputed.Cents)
	}
	return nil
}

func (s *TransactionService) checkReferences(ctx context.Context, tx core.Transaction) error {
	if _, err := s.store.GetAccount(ctx, tx.AccountID); err != nil {
		return fmt.Errorf("account %d: %w", tx.AccountID, err)
	}
	if tx.Type == core.Transfer {
		if tx.CounterAccountID == tx.AccountID {
			return fmt.Errorf("%w: transfer source and destination must differ", core.ErrInvalidArgument)
		}
		if _, err := s.store.GetAccount(ctx, tx.CounterAccountID); err != nil {
			return fmt.Errorf("destination account %d: %w", tx.CounterAccountID, err)
		}
		return nil
	}
	if _, err := s.store.GetCategory(ctx, tx.CategoryID); err != nil {
		return fmt.Errorf("category %d: %w", tx.CategoryID, err)
	}
	return nil
}

func (s *TransactionService) publishEvent(ctx context.Context, op string, tx core.Transaction) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, amqp.NewLedgerEventMessage(op, tx.ID, tx.AccountID, tx.CounterAccountID)); err != nil {
		// The mutation is already committed; auditing catches up later.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldComponent, log.ComponentLedger,
			log.FieldOperation, op,
			log.FieldTransactionID, tx.ID,
			log.FieldError, err)
	}
}

// mutationDeltas is the balance effect of applying tx: the signed amount on
// the owning account, plus the incoming leg on the destination for transfers.
func mutationDeltas(tx core.Transaction) []ledger.BalanceDelta {
	deltas := []ledger.BalanceDelta{{AccountID: tx.AccountID, Cents: tx.SignedAmount()}}
	if tx.Type == core.Transfer {
		deltas = append(deltas, ledger.BalanceDelta{AccountID: tx.CounterAccountID, Cents: tx.Amount.Cents})
	}
	return deltas
}

func reversalDeltas(tx core.Transaction) []ledger.BalanceDelta {
	deltas := mutationDeltas(tx)
	for i := range deltas {
		deltas[i].Cents = -deltas[i].Cents
	}
	return deltas
}

// mergeDeltas sums deltas per account and drops the zero ones, so an update
// that leaves an account's net effect unchanged does not touch its row.
func mergeDeltas(sets ...[]ledger.BalanceDelta) []ledger.BalanceDelta {
	perAccount := make(map[int64]int64)
	for _, set := range sets {
		for _, d := range set {
			perAccount[d.AccountID] += d.Cents
		}
	}
	merged := make([]ledger.BalanceDelta, 0, len(perAccount))
	for id, cents := range perAccount {
		if cents == 0 {
			continue
		}
		merged = append(merged, ledger.BalanceDelta{AccountID: id, Cents: cents})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].AccountID < merged[j].AccountID })
	return merged
}
