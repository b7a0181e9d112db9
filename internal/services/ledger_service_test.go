package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kharcha/internal/core"
	"kharcha/internal/split"
	"kharcha/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "kharcha.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateTransactionAssignsDefaults(t *testing.T) {
	svc := NewLedgerService(newTestStorage(t), nil)
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, core.Transaction{
		Type:        core.Expense,
		Amount:      450,
		Category:    "food",
		Date:        core.NewDate(2025, 3, 10),
		Description: "groceries",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if created.ID == "" {
		t.Error("expected generated ID")
	}
	if created.Status != core.StatusPending {
		t.Errorf("status = %s, want pending", created.Status)
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	got, err := svc.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Amount != 450 {
		t.Errorf("amount = %v, want 450", got.Amount)
	}
}

func TestCreateTransactionRejectsInvalid(t *testing.T) {
	svc := NewLedgerService(newTestStorage(t), nil)

	_, err := svc.CreateTransaction(context.Background(), core.Transaction{
		Type:        "transfer",
		Amount:      100,
		Category:    "food",
		Date:        core.NewDate(2025, 3, 10),
		Description: "bad type",
	})
	if !errors.Is(err, core.ErrInvalidType) {
		t.Errorf("err = %v, want ErrInvalidType", err)
	}
}

func TestUpdateTransactionMergesPatch(t *testing.T) {
	svc := NewLedgerService(newTestStorage(t), nil)
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, core.Transaction{
		Type:        core.Expense,
		Amount:      450,
		Category:    "food",
		Date:        core.NewDate(2025, 3, 10),
		Description: "groceries",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	newAmount := core.Amount(500)
	updated, err := svc.UpdateTransaction(ctx, created.ID, core.TransactionPatch{Amount: &newAmount})
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}

	if updated.Amount != 500 {
		t.Errorf("amount = %v, want 500", updated.Amount)
	}
	if updated.Category != "food" {
		t.Errorf("category = %s, patch should not touch it", updated.Category)
	}
	if updated.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestUpdateTransactionNotFound(t *testing.T) {
	svc := NewLedgerService(newTestStorage(t), nil)

	amount := core.Amount(100)
	_, err := svc.UpdateTransaction(context.Background(), "missing", core.TransactionPatch{Amount: &amount})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestImportTransactionsRejectsBadRow(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()

	if _, err := svc.CreateTransaction(ctx, core.Transaction{
		Type:        core.Income,
		Amount:      1000,
		Category:    "salary",
		Date:        core.NewDate(2025, 3, 1),
		Description: "march salary",
	}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	_, err := svc.ImportTransactions(ctx, []core.Transaction{
		{Type: core.Expense, Amount: 100, Category: "food", Date: core.NewDate(2025, 3, 2), Description: "ok"},
		{Type: core.Expense, Amount: -5, Category: "food", Date: core.NewDate(2025, 3, 3), Description: "bad"},
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}

	// Failed import must leave the existing ledger untouched
	all, err := svc.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 1 || all[0].Description != "march salary" {
		t.Errorf("ledger modified by failed import: %+v", all)
	}
}

func TestImportTransactionsReplacesLedger(t *testing.T) {
	svc := NewLedgerService(newTestStorage(t), nil)
	ctx := context.Background()

	if _, err := svc.CreateTransaction(ctx, core.Transaction{
		Type: core.Expense, Amount: 100, Category: "food",
		Date: core.NewDate(2025, 1, 1), Description: "old",
	}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	count, err := svc.ImportTransactions(ctx, []core.Transaction{
		{Type: core.Income, Amount: 2000, Category: "salary", Date: core.NewDate(2025, 2, 1), Description: "imported"},
	})
	if err != nil {
		t.Fatalf("ImportTransactions: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	all, err := svc.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 1 || all[0].Description != "imported" {
		t.Errorf("got %+v, want only the imported transaction", all)
	}
}

func TestSplitServiceSettleFlow(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewSplitService(repo, nil, split.NewEngine())
	ctx := context.Background()

	created, err := svc.CreateSplit(ctx, 90, "dinner", []string{"asha", "ravi", "meera"}, core.Equal, nil)
	if err != nil {
		t.Fatalf("CreateSplit: %v", err)
	}
	if created.Status != core.SplitPending {
		t.Errorf("status = %s, want pending", created.Status)
	}

	for _, p := range []string{"asha", "ravi"} {
		if _, err := svc.SettleSplit(ctx, created.ID, p); err != nil {
			t.Fatalf("SettleSplit(%s): %v", p, err)
		}
	}

	partial, err := svc.GetSplit(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSplit: %v", err)
	}
	if partial.Status != core.SplitPending {
		t.Errorf("status = %s, want pending with one participant outstanding", partial.Status)
	}

	final, err := svc.SettleSplit(ctx, created.ID, "meera")
	if err != nil {
		t.Fatalf("SettleSplit(meera): %v", err)
	}
	if final.Status != core.SplitSettled {
		t.Errorf("status = %s, want settled", final.Status)
	}

	_, err = svc.SettleSplit(ctx, created.ID, "outsider")
	if !errors.Is(err, core.ErrUnknownParticipant) {
		t.Errorf("err = %v, want ErrUnknownParticipant", err)
	}
}
