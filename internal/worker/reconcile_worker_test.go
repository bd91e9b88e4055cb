package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/ledger/memory"
	"tally/internal/services"
)

func newAudit(t *testing.T) (*memory.Store, *ReconcileWorker, core.Account) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	account, err := store.CreateAccount(ctx, core.Account{
		Name:           "Main",
		Type:           core.Checking,
		InitialBalance: core.Money{Cents: 50000},
		CurrentBalance: core.Money{Cents: 50000},
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	ledgerSvc := services.NewTransactionService(store, nil)
	return store, NewReconcileWorker(store, ledgerSvc), account
}

func TestHandleLedgerEventConsistentAccount(t *testing.T) {
	ctx := context.Background()
	store, w, account := newAudit(t)

	svc := services.NewTransactionService(store, nil)
	tx, err := svc.Create(ctx, core.Transaction{
		AccountID: account.ID,
		Type:      core.Expense,
		Amount:    core.Money{Cents: 2500},
		Date:      core.NewDate(2026, int(time.March), 10),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	msg := amqp.NewLedgerEventMessage(amqp.OpCreate, tx.ID, tx.AccountID, 0)
	if err := w.HandleLedgerEvent(ctx, msg); err != nil {
		t.Errorf("HandleLedgerEvent() = %v, want nil", err)
	}
}

func TestHandleLedgerEventDetectsDivergence(t *testing.T) {
	ctx := context.Background()
	store, w, account := newAudit(t)

	// Tamper with the stored balance behind the ledger's back.
	account.CurrentBalance = core.Money{Cents: 99999}
	if err := store.UpdateAccount(ctx, account); err != nil {
		t.Fatalf("corrupt account: %v", err)
	}

	msg := &amqp.LedgerEventMessage{Op: amqp.OpUpdate, TransactionID: 1, AccountID: account.ID}
	err := w.HandleLedgerEvent(ctx, msg)
	if !errors.Is(err, core.ErrInconsistent) {
		t.Errorf("HandleLedgerEvent() = %v, want ErrInconsistent", err)
	}
}

func TestHandleLedgerEventAuditsBothTransferLegs(t *testing.T) {
	ctx := context.Background()
	store, w, source := newAudit(t)

	dest, err := store.CreateAccount(ctx, core.Account{
		Name:           "Savings",
		Type:           core.Savings,
		InitialBalance: core.Money{Cents: 10000},
		CurrentBalance: core.Money{Cents: 10000},
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	svc := services.NewTransactionService(store, nil)
	tx, err := svc.Create(ctx, core.Transaction{
		AccountID:        source.ID,
		CounterAccountID: dest.ID,
		Type:             core.Transfer,
		Amount:           core.Money{Cents: 5000},
		Date:             core.NewDate(2026, int(time.March), 12),
	})
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}

	// Corrupt the destination leg only. The event must still catch it.
	dest.CurrentBalance = core.Money{Cents: 1}
	if err := store.UpdateAccount(ctx, dest); err != nil {
		t.Fatalf("corrupt account: %v", err)
	}

	msg := amqp.NewLedgerEventMessage(amqp.OpCreate, tx.ID, tx.AccountID, tx.CounterAccountID)
	if err := w.HandleLedgerEvent(ctx, msg); !errors.Is(err, core.ErrInconsistent) {
		t.Errorf("HandleLedgerEvent() = %v, want ErrInconsistent", err)
	}
}

func TestHandleLedgerEventToleratesDeletedAccount(t *testing.T) {
	ctx := context.Background()
	_, w, _ := newAudit(t)

	msg := &amqp.LedgerEventMessage{Op: amqp.OpDelete, TransactionID: 7, AccountID: 404}
	if err := w.HandleLedgerEvent(ctx, msg); err != nil {
		t.Errorf("HandleLedgerEvent() for missing account = %v, want nil", err)
	}
}

func TestAuditAll(t *testing.T) {
	ctx := context.Background()
	store, w, account := newAudit(t)

	if err := w.AuditAll(ctx); err != nil {
		t.Errorf("AuditAll() on clean ledger = %v, want nil", err)
	}

	account.CurrentBalance = core.Money{Cents: -1}
	if err := store.UpdateAccount(ctx, account); err != nil {
		t.Fatalf("corrupt account: %v", err)
	}

	if err := w.AuditAll(ctx); !errors.Is(err, core.ErrInconsistent) {
		t.Errorf("AuditAll() on corrupted ledger = %v, want ErrInconsistent", err)
	}
}
