package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/storage"
)

// PlanningService covers the forward-looking collections: recurring
// transaction templates, savings goals, financial goals and bill reminders.
type PlanningService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	now        func() time.Time
}

func NewPlanningService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *PlanningService {
	return &PlanningService{
		storage:    storage,
		amqpClient: amqpClient,
		now:        time.Now,
	}
}

// --- Recurring transactions ---

func (s *PlanningService) CreateRecurring(ctx context.Context, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	rt.CreatedAt = s.now()
	rt.Version = 1

	if err := rt.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}

	if err := s.storage.CreateRecurring(ctx, rt); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("save recurring transaction: %w", err)
	}

	s.publishChange(ctx, amqp.CollectionRecurring, rt.ID, amqp.OpCreate)
	return rt, nil
}

func (s *PlanningService) ListRecurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	return s.storage.ListRecurring(ctx)
}

func (s *PlanningService) DeleteRecurring(ctx context.Context, id string) error {
	if err := s.storage.DeleteRecurring(ctx, id); err != nil {
		return err
	}
	s.publishChange(ctx, amqp.CollectionRecurring, id, amqp.OpDelete)
	return nil
}

// --- Savings goals ---

func (s *PlanningService) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := s.now()
	g.CreatedAt = now
	g.LastUpdated = now
	g.Version = 1
	if g.TargetAmount > 0 {
		g.Progress = float64(g.CurrentAmount) / float64(g.TargetAmount) * 100
	}

	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}

	if err := s.storage.CreateSavingsGoal(ctx, g); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("save savings goal: %w", err)
	}

	s.publishChange(ctx, amqp.CollectionSavingsGoals, g.ID, amqp.OpCreate)
	return g, nil
}

func (s *PlanningService) ListSavingsGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	return s.storage.ListSavingsGoals(ctx)
}

// ContributeToSavingsGoal adds an amount to a goal and recomputes progress.
// Version races are retried, contributions are additive so replays of stale
// state would otherwise lose money.
func (s *PlanningService) ContributeToSavingsGoal(ctx context.Context, id string, amount core.Amount) (core.SavingsGoal, error) {
	const maxRetries = 3

	for attempt := 0; ; attempt++ {
		g, err := s.storage.GetSavingsGoal(ctx, id)
		if err != nil {
			return core.SavingsGoal{}, err
		}

		if err := g.Contribute(amount, s.now()); err != nil {
			return core.SavingsGoal{}, err
		}

		updated, err := s.storage.UpdateSavingsGoal(ctx, g)
		if errors.Is(err, core.ErrVersionConflict) && attempt < maxRetries {
			slog.WarnContext(ctx, "Contribution lost version race, retrying",
				"goal_id", id,
				"attempt", attempt+1)
			continue
		}
		if err != nil {
			return core.SavingsGoal{}, err
		}

		s.publishChange(ctx, amqp.CollectionSavingsGoals, id, amqp.OpUpdate)
		return updated, nil
	}
}

func (s *PlanningService) DeleteSavingsGoal(ctx context.Context, id string) error {
	if err := s.storage.DeleteSavingsGoal(ctx, id); err != nil {
		return err
	}
	s.publishChange(ctx, amqp.CollectionSavingsGoals, id, amqp.OpDelete)
	return nil
}

// --- Financial goals ---

func (s *PlanningService) CreateGoal(ctx context.Context, g core.FinancialGoal) (core.FinancialGoal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.CreatedAt = s.now()
	g.Version = 1

	if err := g.Validate(); err != nil {
		return core.FinancialGoal{}, err
	}

	if err := s.storage.CreateGoal(ctx, g); err != nil {
		return core.FinancialGoal{}, fmt.Errorf("save goal: %w", err)
	}

	s.publishChange(ctx, amqp.CollectionGoals, g.ID, amqp.OpCreate)
	return g, nil
}

func (s *PlanningService) ListGoals(ctx context.Context) ([]core.FinancialGoal, error) {
	return s.storage.ListGoals(ctx)
}

func (s *PlanningService) UpdateGoal(ctx context.Context, g core.FinancialGoal) (core.FinancialGoal, error) {
	if err := g.Validate(); err != nil {
		return core.FinancialGoal{}, err
	}

	// Clients do not carry versions, so load the current row and write
	// against its version.
	existing, err := s.storage.GetGoal(ctx, g.ID)
	if err != nil {
		return core.FinancialGoal{}, err
	}
	g.CreatedAt = existing.CreatedAt
	g.Version = existing.Version

	updated, err := s.storage.UpdateGoal(ctx, g)
	if err != nil {
		return core.FinancialGoal{}, err
	}

	s.publishChange(ctx, amqp.CollectionGoals, g.ID, amqp.OpUpdate)
	return updated, nil
}

func (s *PlanningService) DeleteGoal(ctx context.Context, id string) error {
	if err := s.storage.DeleteGoal(ctx, id); err != nil {
		return err
	}
	s.publishChange(ctx, amqp.CollectionGoals, id, amqp.OpDelete)
	return nil
}

// --- Bill reminders ---

func (s *PlanningService) CreateBillReminder(ctx context.Context, b core.BillReminder) (core.BillReminder, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = core.StatusPending
	}
	now := s.now()
	b.CreatedAt = now
	b.LastUpdated = now
	b.Version = 1

	if err := b.Validate(); err != nil {
		return core.BillReminder{}, err
	}

	if err := s.storage.CreateBillReminder(ctx, b); err != nil {
		return core.BillReminder{}, fmt.Errorf("save bill reminder: %w", err)
	}

	s.publishChange(ctx, amqp.CollectionBillReminders, b.ID, amqp.OpCreate)
	return b, nil
}

func (s *PlanningService) ListBillReminders(ctx context.Context) ([]core.BillReminder, error) {
	return s.storage.ListBillReminders(ctx)
}

// UpdateBillReminder merges the patch into the stored reminder. Marking a
// bill paid is a patch with just the status field set.
func (s *PlanningService) UpdateBillReminder(ctx context.Context, id string, patch core.BillReminderPatch) (core.BillReminder, error) {
	b, err := s.storage.GetBillReminder(ctx, id)
	if err != nil {
		return core.BillReminder{}, err
	}

	b.Apply(patch)
	b.LastUpdated = s.now()

	if err := b.Validate(); err != nil {
		return core.BillReminder{}, err
	}

	updated, err := s.storage.UpdateBillReminder(ctx, b)
	if err != nil {
		return core.BillReminder{}, err
	}

	s.publishChange(ctx, amqp.CollectionBillReminders, id, amqp.OpUpdate)
	return updated, nil
}

func (s *PlanningService) DeleteBillReminder(ctx context.Context, id string) error {
	if err := s.storage.DeleteBillReminder(ctx, id); err != nil {
		return err
	}
	s.publishChange(ctx, amqp.CollectionBillReminders, id, amqp.OpDelete)
	return nil
}

func (s *PlanningService) publishChange(ctx context.Context, collection, id, op string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping change message",
			"collection", collection, "op", op)
		return
	}

	if err := s.amqpClient.PublishChange(ctx, collection, id, op); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"collection", collection,
			"id", id,
			"op", op,
			"error", err)
	}
}
