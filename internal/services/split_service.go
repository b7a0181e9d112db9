package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/split"
	"kharcha/internal/storage"
)

// SplitService orchestrates shared-expense operations: the split engine
// decides shares and settlement, storage keeps versioned state, AMQP feeds
// the snapshot worker.
type SplitService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	engine     *split.Engine
}

func NewSplitService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, engine *split.Engine) *SplitService {
	return &SplitService{
		storage:    storage,
		amqpClient: amqpClient,
		engine:     engine,
	}
}

// CreateSplit builds a split through the engine and persists it
func (s *SplitService) CreateSplit(ctx context.Context, totalAmount core.Amount, description string, participants []string, splitType core.SplitType, shares map[string]core.Amount) (core.ExpenseSplit, error) {
	sp, err := s.engine.CreateSplit(totalAmount, description, participants, splitType, shares)
	if err != nil {
		return core.ExpenseSplit{}, err
	}
	sp.Version = 1

	if err := s.storage.CreateSplit(ctx, sp); err != nil {
		return core.ExpenseSplit{}, fmt.Errorf("save split: %w", err)
	}

	s.publishChange(ctx, sp.ID, amqp.OpCreate)
	return sp, nil
}

// SettleSplit marks a participant as settled. Lost version races are retried
// against fresh state, settlement is idempotent so a replay converges.
func (s *SplitService) SettleSplit(ctx context.Context, id, participant string) (core.ExpenseSplit, error) {
	const maxRetries = 3

	for attempt := 0; ; attempt++ {
		sp, err := s.storage.GetSplit(ctx, id)
		if err != nil {
			return core.ExpenseSplit{}, err
		}

		if err := s.engine.Settle(&sp, participant); err != nil {
			return core.ExpenseSplit{}, err
		}

		updated, err := s.storage.UpdateSplit(ctx, sp)
		if errors.Is(err, core.ErrVersionConflict) && attempt < maxRetries {
			slog.WarnContext(ctx, "Settle lost version race, retrying",
				"split_id", id,
				"participant", participant,
				"attempt", attempt+1)
			continue
		}
		if err != nil {
			return core.ExpenseSplit{}, err
		}

		s.publishChange(ctx, id, amqp.OpUpdate)
		return updated, nil
	}
}

func (s *SplitService) GetSplit(ctx context.Context, id string) (core.ExpenseSplit, error) {
	return s.storage.GetSplit(ctx, id)
}

func (s *SplitService) ListSplits(ctx context.Context) ([]core.ExpenseSplit, error) {
	return s.storage.ListSplits(ctx)
}

func (s *SplitService) publishChange(ctx context.Context, id, op string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping change message",
			"collection", amqp.CollectionSplits, "op", op)
		return
	}

	if err := s.amqpClient.PublishChange(ctx, amqp.CollectionSplits, id, op); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"collection", amqp.CollectionSplits,
			"id", id,
			"op", op,
			"error", err)
	}
}
