package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/storage"
)

// LedgerService orchestrates transaction writes across SQLite and AMQP.
// The database write is the source of truth, the change message only tells
// the snapshot worker to refresh its mirror.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	now        func() time.Time
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		amqpClient: amqpClient,
		now:        time.Now,
	}
}

// CreateTransaction validates and saves a transaction, then publishes a
// change message
func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = core.StatusPending
	}
	t.CreatedAt = s.now()
	t.Version = 1

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.storage.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publishChange(ctx, amqp.CollectionTransactions, t.ID, amqp.OpCreate)
	return t, nil
}

// UpdateTransaction merges the patch into the stored transaction and writes
// it back with a version check
func (s *LedgerService) UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error) {
	t, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	t.Apply(patch)
	t.UpdatedAt = s.now()

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.storage.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publishChange(ctx, amqp.CollectionTransactions, id, amqp.OpUpdate)
	return updated, nil
}

// DeleteTransaction removes a transaction and publishes a delete message
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.storage.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	s.publishChange(ctx, amqp.CollectionTransactions, id, amqp.OpDelete)
	return nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return s.storage.GetTransaction(ctx, id)
}

func (s *LedgerService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx)
}

// ImportTransactions replaces the whole ledger with the supplied set. Every
// entry is validated before anything is written, a single bad row rejects
// the whole import.
func (s *LedgerService) ImportTransactions(ctx context.Context, transactions []core.Transaction) (int, error) {
	now := s.now()
	for i := range transactions {
		if transactions[i].ID == "" {
			transactions[i].ID = uuid.NewString()
		}
		if transactions[i].Status == "" {
			transactions[i].Status = core.StatusPending
		}
		if transactions[i].CreatedAt.IsZero() {
			transactions[i].CreatedAt = now
		}
		if err := transactions[i].Validate(); err != nil {
			return 0, fmt.Errorf("transaction %d: %w", i, err)
		}
	}

	if err := s.storage.ReplaceTransactions(ctx, transactions); err != nil {
		return 0, fmt.Errorf("import transactions: %w", err)
	}

	s.publishChange(ctx, amqp.CollectionTransactions, "", amqp.OpUpdate)
	return len(transactions), nil
}

func (s *LedgerService) ListCategories(ctx context.Context, typ core.TransactionType) ([]core.Category, error) {
	return s.storage.ListCategories(ctx, typ)
}

// CreateCategory adds a user-defined category alongside the seeded catalog.
func (s *LedgerService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	if err := s.storage.CreateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	return c, nil
}

func (s *LedgerService) publishChange(ctx context.Context, collection, id, op string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping change message",
			"collection", collection, "op", op)
		return
	}

	if err := s.amqpClient.PublishChange(ctx, collection, id, op); err != nil {
		// Don't fail the request, the write already succeeded locally
		slog.ErrorContext(ctx, "Failed to publish change message",
			"collection", collection,
			"id", id,
			"op", op,
			"error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
