package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kharcha/internal/core"
	"kharcha/internal/storage"
)

// RecurringProcessor materializes due recurring templates into real ledger
// transactions.
type RecurringProcessor struct {
	storage *storage.SQLiteRepository
	ledger  *LedgerService
}

// NewRecurringProcessor creates a new recurring transaction processor
func NewRecurringProcessor(storage *storage.SQLiteRepository, ledger *LedgerService) *RecurringProcessor {
	return &RecurringProcessor{
		storage: storage,
		ledger:  ledger,
	}
}

// ProcessDue processes all recurring templates that are due for execution
// and returns how many transactions were created.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil || p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.storage.ListRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"total_templates", len(templates),
		"processing_date", now.Format("2006-01-02"))

	processedCount := 0

	for _, rt := range templates {
		if rt.StartDate.After(now) {
			continue
		}
		if !rt.EndDate.IsZero() && rt.EndDate.Before(now) {
			continue
		}

		checker, err := GetDuenessChecker(rt.Every)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping template with unknown frequency",
				"id", rt.ID,
				"frequency", rt.Every,
				"error", err)
			continue
		}

		if !checker.IsDue(rt.LastExecutedAt, now, rt.StartDate) {
			continue
		}

		// Claim the template before creating the transaction. Losing the
		// version race means another worker got there first.
		if err := p.storage.MarkRecurringExecuted(ctx, rt.ID, now, rt.Version); err != nil {
			slog.WarnContext(ctx, "Could not claim recurring template",
				"id", rt.ID,
				"error", err)
			continue
		}

		transaction := core.Transaction{
			Type:        rt.Type,
			Amount:      rt.Amount,
			Category:    rt.Category,
			Date:        core.Date{Time: now},
			Description: rt.Description,
			Status:      core.StatusPaid,
		}

		if _, err := p.ledger.CreateTransaction(ctx, transaction); err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from recurring template",
				"recurring_id", rt.ID,
				"description", rt.Description,
				"error", err)
			continue
		}

		processedCount++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"recurring_id", rt.ID,
			"description", rt.Description,
			"amount", rt.Amount,
			"frequency", rt.Every)
	}

	slog.InfoContext(ctx, "Recurring transaction processing complete",
		"processed", processedCount,
		"total_checked", len(templates))

	return processedCount, nil
}
