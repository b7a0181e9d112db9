package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kharcha/internal/amqp"
	"kharcha/internal/jsonstore"
	"kharcha/internal/storage"
)

// SnapshotWorker mirrors SQLite collections into per-collection JSON files.
// SQLite stays the source of truth, the snapshots exist for older tooling
// that still reads the JSON layout.
type SnapshotWorker struct {
	storage *storage.SQLiteRepository
	store   *jsonstore.Store
}

func NewSnapshotWorker(storage *storage.SQLiteRepository, store *jsonstore.Store) *SnapshotWorker {
	return &SnapshotWorker{
		storage: storage,
		store:   store,
	}
}

// HandleChangeMessage refreshes the snapshot of the collection named in the
// message. The message carries no row data, so stale and duplicate
// deliveries converge on the same result.
func (w *SnapshotWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.InfoContext(ctx, "Processing change message",
		"collection", msg.Collection,
		"id", msg.ID,
		"op", msg.Op)

	if err := w.resyncCollection(ctx, msg.Collection); err != nil {
		return fmt.Errorf("resync %s: %w", msg.Collection, err)
	}

	return nil
}

// ResyncAll rewrites every collection snapshot. Called at startup and on a
// timer to recover from missed AMQP messages or worker downtime.
func (w *SnapshotWorker) ResyncAll(ctx context.Context) error {
	collections := []string{
		amqp.CollectionTransactions,
		amqp.CollectionSplits,
		amqp.CollectionRecurring,
		amqp.CollectionSavingsGoals,
		amqp.CollectionGoals,
		amqp.CollectionBillReminders,
	}

	errorCount := 0
	for _, collection := range collections {
		if err := w.resyncCollection(ctx, collection); err != nil {
			slog.ErrorContext(ctx, "Failed to resync collection",
				"collection", collection,
				"error", err)
			errorCount++
		}
	}

	slog.InfoContext(ctx, "Full resync completed",
		"collections", len(collections),
		"errors", errorCount)

	if errorCount > 0 {
		return fmt.Errorf("full resync: %d of %d collections failed", errorCount, len(collections))
	}
	return nil
}

// RunPeriodicResync runs ResyncAll on the given interval until the context
// is cancelled.
func (w *SnapshotWorker) RunPeriodicResync(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Periodic resync started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Periodic resync stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.ResyncAll(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic resync failed", "error", err)
			}
		}
	}
}

func (w *SnapshotWorker) resyncCollection(ctx context.Context, collection string) error {
	switch collection {
	case amqp.CollectionTransactions:
		transactions, err := w.storage.ListTransactions(ctx)
		if err != nil {
			return err
		}
		return w.store.Save(collection, transactions)
	case amqp.CollectionSplits:
		splits, err := w.storage.ListSplits(ctx)
		if err != nil {
			return err
		}
		return w.store.Save(collection, splits)
	case amqp.CollectionRecurring:
		recurring, err := w.storage.ListRecurring(ctx)
		if err != nil {
			return err
		}
		return w.store.Save(collection, recurring)
	case amqp.CollectionSavingsGoals:
		goals, err := w.storage.ListSavingsGoals(ctx)
		if err != nil {
			return err
		}
		return w.store.Save(collection, goals)
	case amqp.CollectionGoals:
		goals, err := w.storage.ListGoals(ctx)
		if err != nil {
			return err
		}
		return w.store.Save(collection, goals)
	case amqp.CollectionBillReminders:
		bills, err := w.storage.ListBillReminders(ctx)
		if err != nil {
			return err
		}
		return w.store.Save(collection, bills)
	default:
		return fmt.Errorf("unknown collection: %s", collection)
	}
}
