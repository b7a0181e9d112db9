package worker

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/jsonstore"
	"kharcha/internal/storage"
)

func newTestWorker(t *testing.T) (*SnapshotWorker, *storage.SQLiteRepository, *jsonstore.Store) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "kharcha.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	store := jsonstore.New(t.TempDir())
	return NewSnapshotWorker(repo, store), repo, store
}

func TestHandleChangeMessageWritesSnapshot(t *testing.T) {
	w, repo, store := newTestWorker(t)
	ctx := context.Background()

	tx := core.Transaction{
		ID:          "tx-1",
		Type:        core.Expense,
		Amount:      450,
		Category:    "food",
		Date:        core.NewDate(2025, 3, 10),
		Description: "groceries",
		Status:      core.StatusPaid,
		CreatedAt:   time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		Version:     1,
	}
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	msg := amqp.NewChangeMessage(amqp.CollectionTransactions, "tx-1", amqp.OpCreate)
	if err := w.HandleChangeMessage(ctx, msg); err != nil {
		t.Fatalf("HandleChangeMessage: %v", err)
	}

	var snapshot []core.Transaction
	if err := store.Load(amqp.CollectionTransactions, &snapshot); err != nil {
		t.Fatalf("Load snapshot: %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].ID != "tx-1" {
		t.Errorf("snapshot = %+v, want the created transaction", snapshot)
	}
}

func TestHandleChangeMessageUnknownCollection(t *testing.T) {
	w, _, _ := newTestWorker(t)

	msg := amqp.NewChangeMessage("nonsense", "x", amqp.OpCreate)
	err := w.HandleChangeMessage(context.Background(), msg)
	if err == nil || !strings.Contains(err.Error(), "unknown collection") {
		t.Errorf("err = %v, want unknown collection error", err)
	}
}

func TestResyncAllWritesEveryCollection(t *testing.T) {
	w, repo, store := newTestWorker(t)
	ctx := context.Background()

	if err := repo.CreateSplit(ctx, core.ExpenseSplit{
		ID:                  "split-1",
		Description:         "dinner",
		TotalAmount:         90,
		Participants:        []string{"asha", "ravi"},
		SplitType:           core.Equal,
		Shares:              map[string]core.Amount{"asha": 45, "ravi": 45},
		SettledParticipants: []string{},
		Status:              core.SplitPending,
		CreatedAt:           time.Now().UTC(),
		LastUpdated:         time.Now().UTC(),
		Version:             1,
	}); err != nil {
		t.Fatalf("CreateSplit: %v", err)
	}

	if err := w.ResyncAll(ctx); err != nil {
		t.Fatalf("ResyncAll: %v", err)
	}

	var splits []core.ExpenseSplit
	if err := store.Load(amqp.CollectionSplits, &splits); err != nil {
		t.Fatalf("Load splits: %v", err)
	}
	if len(splits) != 1 || splits[0].Shares["ravi"] != 45 {
		t.Errorf("splits snapshot = %+v", splits)
	}

	// Empty collections still produce snapshots
	var bills []core.BillReminder
	if err := store.Load(amqp.CollectionBillReminders, &bills); err != nil {
		t.Fatalf("Load bills: %v", err)
	}
	if bills == nil {
		t.Error("empty collection should snapshot as [] not be missing")
	}
}

func TestHandleChangeMessageDeleteConverges(t *testing.T) {
	w, repo, store := newTestWorker(t)
	ctx := context.Background()

	tx := core.Transaction{
		ID:          "tx-1",
		Type:        core.Expense,
		Amount:      100,
		Category:    "food",
		Date:        core.NewDate(2025, 3, 1),
		Description: "snack",
		Status:      core.StatusPaid,
		CreatedAt:   time.Now().UTC(),
		Version:     1,
	}
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if err := w.HandleChangeMessage(ctx, amqp.NewChangeMessage(amqp.CollectionTransactions, "tx-1", amqp.OpCreate)); err != nil {
		t.Fatalf("HandleChangeMessage create: %v", err)
	}

	if err := repo.DeleteTransaction(ctx, "tx-1"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := w.HandleChangeMessage(ctx, amqp.NewChangeMessage(amqp.CollectionTransactions, "tx-1", amqp.OpDelete)); err != nil {
		t.Fatalf("HandleChangeMessage delete: %v", err)
	}

	var snapshot []core.Transaction
	if err := store.Load(amqp.CollectionTransactions, &snapshot); err != nil {
		t.Fatalf("Load snapshot: %v", err)
	}
	if len(snapshot) != 0 {
		t.Errorf("snapshot after delete = %+v, want empty", snapshot)
	}
}
