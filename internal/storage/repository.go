package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"kharcha/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// formatTime stores timestamps as RFC 3339 text. The zero time becomes the
// empty string so optional columns stay distinguishable.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func marshalField(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal field: %w", err)
	}
	return string(b), nil
}

// resolveUpdateMiss distinguishes a missing row from a stale version after an
// UPDATE matched zero rows.
func (r *SQLiteRepository) resolveUpdateMiss(ctx context.Context, table, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check %s row: %w", table, err)
	}
	return core.ErrVersionConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

// --- Transactions ---

const transactionColumns = "id, type, amount, category, date, description, notes, status, created_at, updated_at, version"

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                          core.Transaction
		date, createdAt, updatedAt string
	)
	if err := row.Scan(&t.ID, &t.Type, &t.Amount, &t.Category, &date, &t.Description,
		&t.Notes, &t.Status, &createdAt, &updatedAt, &t.Version); err != nil {
		return core.Transaction{}, err
	}
	t.Date = core.Date{Time: parseTime(date)}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, type, amount, category, date, description, notes, status, created_at, updated_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		t.ID, t.Type, t.Amount, t.Category, formatTime(t.Date.Time), t.Description,
		t.Notes, t.Status, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"type", t.Type,
		"amount", t.Amount,
		"category", t.Category)

	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions ORDER BY date DESC, created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return transactions, nil
}

// UpdateTransaction writes t back only if its version still matches the
// stored row. A stale version returns core.ErrVersionConflict so the caller
// can retry against fresh state instead of silently losing a concurrent
// update.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET type = ?, amount = ?, category = ?, date = ?, description = ?, notes = ?, status = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		t.Type, t.Amount, t.Category, formatTime(t.Date.Time), t.Description,
		t.Notes, t.Status, formatTime(t.UpdatedAt), t.ID, t.Version)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction rows affected: %w", err)
	}
	if affected == 0 {
		return core.Transaction{}, r.resolveUpdateMiss(ctx, "transactions", t.ID)
	}

	t.Version++
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ReplaceTransactions swaps the whole transaction set atomically. Used by the
// import endpoint.
func (r *SQLiteRepository) ReplaceTransactions(ctx context.Context, transactions []core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM transactions"); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}

	for _, t := range transactions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, type, amount, category, date, description, notes, status, created_at, updated_at, version)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			t.ID, t.Type, t.Amount, t.Category, formatTime(t.Date.Time), t.Description,
			t.Notes, t.Status, formatTime(t.CreatedAt), formatTime(t.UpdatedAt)); err != nil {
			return fmt.Errorf("insert imported transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Transactions replaced", "count", len(transactions))
	return nil
}

// --- Expense splits ---

const splitColumns = "id, description, total_amount, participants, split_type, shares, settled_participants, status, created_at, last_updated, version"

func scanSplit(row rowScanner) (core.ExpenseSplit, error) {
	var (
		s                             core.ExpenseSplit
		participants, shares, settled string
		createdAt, lastUpdated        string
	)
	if err := row.Scan(&s.ID, &s.Description, &s.TotalAmount, &participants, &s.SplitType,
		&shares, &settled, &s.Status, &createdAt, &lastUpdated, &s.Version); err != nil {
		return core.ExpenseSplit{}, err
	}
	if err := json.Unmarshal([]byte(participants), &s.Participants); err != nil {
		return core.ExpenseSplit{}, fmt.Errorf("unmarshal participants: %w", err)
	}
	if err := json.Unmarshal([]byte(shares), &s.Shares); err != nil {
		return core.ExpenseSplit{}, fmt.Errorf("unmarshal shares: %w", err)
	}
	if err := json.Unmarshal([]byte(settled), &s.SettledParticipants); err != nil {
		return core.ExpenseSplit{}, fmt.Errorf("unmarshal settled participants: %w", err)
	}
	s.CreatedAt = parseTime(createdAt)
	s.LastUpdated = parseTime(lastUpdated)
	return s, nil
}

func (r *SQLiteRepository) CreateSplit(ctx context.Context, s core.ExpenseSplit) error {
	participants, err := marshalField(s.Participants)
	if err != nil {
		return err
	}
	shares, err := marshalField(s.Shares)
	if err != nil {
		return err
	}
	settled, err := marshalField(s.SettledParticipants)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO expense_splits (id, description, total_amount, participants, split_type, shares, settled_participants, status, created_at, last_updated, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		s.ID, s.Description, s.TotalAmount, participants, s.SplitType, shares,
		settled, s.Status, formatTime(s.CreatedAt), formatTime(s.LastUpdated))
	if err != nil {
		return fmt.Errorf("create expense split: %w", err)
	}

	slog.InfoContext(ctx, "Expense split saved",
		"id", s.ID,
		"total_amount", s.TotalAmount,
		"participants", len(s.Participants),
		"split_type", s.SplitType)

	return nil
}

func (r *SQLiteRepository) GetSplit(ctx context.Context, id string) (core.ExpenseSplit, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+splitColumns+" FROM expense_splits WHERE id = ?", id)
	s, err := scanSplit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseSplit{}, core.ErrNotFound
	}
	if err != nil {
		return core.ExpenseSplit{}, fmt.Errorf("get expense split: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListSplits(ctx context.Context) ([]core.ExpenseSplit, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+splitColumns+" FROM expense_splits ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list expense splits: %w", err)
	}
	defer rows.Close()

	splits := []core.ExpenseSplit{}
	for rows.Next() {
		s, err := scanSplit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense split: %w", err)
		}
		splits = append(splits, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense splits: %w", err)
	}
	return splits, nil
}

func (r *SQLiteRepository) UpdateSplit(ctx context.Context, s core.ExpenseSplit) (core.ExpenseSplit, error) {
	settled, err := marshalField(s.SettledParticipants)
	if err != nil {
		return core.ExpenseSplit{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE expense_splits
		 SET settled_participants = ?, status = ?, last_updated = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		settled, s.Status, formatTime(s.LastUpdated), s.ID, s.Version)
	if err != nil {
		return core.ExpenseSplit{}, fmt.Errorf("update expense split: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return core.ExpenseSplit{}, fmt.Errorf("update expense split rows affected: %w", err)
	}
	if affected == 0 {
		return core.ExpenseSplit{}, r.resolveUpdateMiss(ctx, "expense_splits", s.ID)
	}

	s.Version++
	return s, nil
}

// --- Recurring transactions ---

const recurringColumns = "id, type, amount, category, description, every, start_date, end_date, last_executed_at, created_at, version"

func scanRecurring(row rowScanner) (core.RecurringTransaction, error) {
	var (
		rt                                          core.RecurringTransaction
		startDate, endDate, lastExecuted, createdAt string
	)
	if err := row.Scan(&rt.ID, &rt.Type, &rt.Amount, &rt.Category, &rt.Description,
		&rt.Every, &startDate, &endDate, &lastExecuted, &createdAt, &rt.Version); err != nil {
		return core.RecurringTransaction{}, err
	}
	rt.StartDate = core.Date{Time: parseTime(startDate)}
	rt.EndDate = core.Date{Time: parseTime(endDate)}
	rt.LastExecutedAt = parseTime(lastExecuted)
	rt.CreatedAt = parseTime(createdAt)
	return rt, nil
}

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, rt core.RecurringTransaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_transactions (id, type, amount, category, description, every, start_date, end_date, last_executed_at, created_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		rt.ID, rt.Type, rt.Amount, rt.Category, rt.Description, rt.Every,
		formatTime(rt.StartDate.Time), formatTime(rt.EndDate.Time),
		formatTime(rt.LastExecutedAt), formatTime(rt.CreatedAt))
	if err != nil {
		return fmt.Errorf("create recurring transaction: %w", err)
	}

	slog.InfoContext(ctx, "Recurring transaction saved",
		"id", rt.ID,
		"description", rt.Description,
		"every", rt.Every)

	return nil
}

func (r *SQLiteRepository) GetRecurring(ctx context.Context, id string) (core.RecurringTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+recurringColumns+" FROM recurring_transactions WHERE id = ?", id)
	rt, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTransaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("get recurring transaction: %w", err)
	}
	return rt, nil
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+recurringColumns+" FROM recurring_transactions ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()

	recurring := []core.RecurringTransaction{}
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		recurring = append(recurring, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring transactions: %w", err)
	}
	return recurring, nil
}

// MarkRecurringExecuted advances the execution watermark. The version check
// keeps two worker instances from materializing the same occurrence twice.
func (r *SQLiteRepository) MarkRecurringExecuted(ctx context.Context, id string, executedAt time.Time, version int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions
		 SET last_executed_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		formatTime(executedAt), id, version)
	if err != nil {
		return fmt.Errorf("mark recurring executed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark recurring executed rows affected: %w", err)
	}
	if affected == 0 {
		return r.resolveUpdateMiss(ctx, "recurring_transactions", id)
	}
	return nil
}

func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM recurring_transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete recurring transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete recurring transaction rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- Savings goals ---

const savingsGoalColumns = "id, name, target_amount, current_amount, progress, deadline, created_at, last_updated, version"

func scanSavingsGoal(row rowScanner) (core.SavingsGoal, error) {
	var (
		g                                core.SavingsGoal
		deadline, createdAt, lastUpdated string
	)
	if err := row.Scan(&g.ID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.Progress,
		&deadline, &createdAt, &lastUpdated, &g.Version); err != nil {
		return core.SavingsGoal{}, err
	}
	g.Deadline = core.Date{Time: parseTime(deadline)}
	g.CreatedAt = parseTime(createdAt)
	g.LastUpdated = parseTime(lastUpdated)
	return g, nil
}

func (r *SQLiteRepository) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (id, name, target_amount, current_amount, progress, deadline, created_at, last_updated, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		g.ID, g.Name, g.TargetAmount, g.CurrentAmount, g.Progress,
		formatTime(g.Deadline.Time), formatTime(g.CreatedAt), formatTime(g.LastUpdated))
	if err != nil {
		return fmt.Errorf("create savings goal: %w", err)
	}

	slog.InfoContext(ctx, "Savings goal saved",
		"id", g.ID,
		"name", g.Name,
		"target_amount", g.TargetAmount)

	return nil
}

func (r *SQLiteRepository) GetSavingsGoal(ctx context.Context, id string) (core.SavingsGoal, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+savingsGoalColumns+" FROM savings_goals WHERE id = ?", id)
	g, err := scanSavingsGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, core.ErrNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get savings goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListSavingsGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+savingsGoalColumns+" FROM savings_goals ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	goals := []core.SavingsGoal{}
	for rows.Next() {
		g, err := scanSavingsGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate savings goals: %w", err)
	}
	return goals, nil
}

func (r *SQLiteRepository) UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_goals
		 SET name = ?, target_amount = ?, current_amount = ?, progress = ?, deadline = ?, last_updated = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		g.Name, g.TargetAmount, g.CurrentAmount, g.Progress,
		formatTime(g.Deadline.Time), formatTime(g.LastUpdated), g.ID, g.Version)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("update savings goal: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("update savings goal rows affected: %w", err)
	}
	if affected == 0 {
		return core.SavingsGoal{}, r.resolveUpdateMiss(ctx, "savings_goals", g.ID)
	}

	g.Version++
	return g, nil
}

func (r *SQLiteRepository) DeleteSavingsGoal(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM savings_goals WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete savings goal rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- Financial goals ---

const goalColumns = "id, name, target_amount, notes, created_at, version"

func scanGoal(row rowScanner) (core.FinancialGoal, error) {
	var (
		g         core.FinancialGoal
		createdAt string
	)
	if err := row.Scan(&g.ID, &g.Name, &g.TargetAmount, &g.Notes, &createdAt, &g.Version); err != nil {
		return core.FinancialGoal{}, err
	}
	g.CreatedAt = parseTime(createdAt)
	return g, nil
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.FinancialGoal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (id, name, target_amount, notes, created_at, version)
		 VALUES (?, ?, ?, ?, ?, 1)`,
		g.ID, g.Name, g.TargetAmount, g.Notes, formatTime(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal saved", "id", g.ID, "name", g.Name)
	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (core.FinancialGoal, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE id = ?", id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FinancialGoal{}, core.ErrNotFound
	}
	if err != nil {
		return core.FinancialGoal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.FinancialGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+goalColumns+" FROM goals ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := []core.FinancialGoal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.FinancialGoal) (core.FinancialGoal, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE goals
		 SET name = ?, target_amount = ?, notes = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		g.Name, g.TargetAmount, g.Notes, g.ID, g.Version)
	if err != nil {
		return core.FinancialGoal{}, fmt.Errorf("update goal: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return core.FinancialGoal{}, fmt.Errorf("update goal rows affected: %w", err)
	}
	if affected == 0 {
		return core.FinancialGoal{}, r.resolveUpdateMiss(ctx, "goals", g.ID)
	}

	g.Version++
	return g, nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM goals WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete goal rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- Bill reminders ---

const billColumns = "id, name, amount, due_date, status, created_at, last_updated, version"

func scanBill(row rowScanner) (core.BillReminder, error) {
	var (
		b                               core.BillReminder
		dueDate, createdAt, lastUpdated string
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Amount, &dueDate, &b.Status,
		&createdAt, &lastUpdated, &b.Version); err != nil {
		return core.BillReminder{}, err
	}
	b.DueDate = core.Date{Time: parseTime(dueDate)}
	b.CreatedAt = parseTime(createdAt)
	b.LastUpdated = parseTime(lastUpdated)
	return b, nil
}

func (r *SQLiteRepository) CreateBillReminder(ctx context.Context, b core.BillReminder) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bill_reminders (id, name, amount, due_date, status, created_at, last_updated, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		b.ID, b.Name, b.Amount, formatTime(b.DueDate.Time), b.Status,
		formatTime(b.CreatedAt), formatTime(b.LastUpdated))
	if err != nil {
		return fmt.Errorf("create bill reminder: %w", err)
	}

	slog.InfoContext(ctx, "Bill reminder saved",
		"id", b.ID,
		"name", b.Name,
		"due_date", b.DueDate.Format(time.RFC3339))

	return nil
}

func (r *SQLiteRepository) GetBillReminder(ctx context.Context, id string) (core.BillReminder, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+billColumns+" FROM bill_reminders WHERE id = ?", id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BillReminder{}, core.ErrNotFound
	}
	if err != nil {
		return core.BillReminder{}, fmt.Errorf("get bill reminder: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBillReminders(ctx context.Context) ([]core.BillReminder, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+billColumns+" FROM bill_reminders ORDER BY due_date")
	if err != nil {
		return nil, fmt.Errorf("list bill reminders: %w", err)
	}
	defer rows.Close()

	bills := []core.BillReminder{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill reminder: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bill reminders: %w", err)
	}
	return bills, nil
}

func (r *SQLiteRepository) UpdateBillReminder(ctx context.Context, b core.BillReminder) (core.BillReminder, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bill_reminders
		 SET name = ?, amount = ?, due_date = ?, status = ?, last_updated = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		b.Name, b.Amount, formatTime(b.DueDate.Time), b.Status,
		formatTime(b.LastUpdated), b.ID, b.Version)
	if err != nil {
		return core.BillReminder{}, fmt.Errorf("update bill reminder: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return core.BillReminder{}, fmt.Errorf("update bill reminder rows affected: %w", err)
	}
	if affected == 0 {
		return core.BillReminder{}, r.resolveUpdateMiss(ctx, "bill_reminders", b.ID)
	}

	b.Version++
	return b, nil
}

func (r *SQLiteRepository) DeleteBillReminder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM bill_reminders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete bill reminder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bill reminder rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- Categories ---

// CreateCategory adds a user-defined category to the catalog.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (id, label, type) VALUES (?, ?, ?)",
		c.ID, c.Label, c.Type)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Created category",
		"id", c.ID,
		"label", c.Label,
		"type", c.Type)
	return nil
}

// ListCategories returns the category catalog, optionally filtered by
// transaction type. An empty typ returns everything.
func (r *SQLiteRepository) ListCategories(ctx context.Context, typ core.TransactionType) ([]core.Category, error) {
	query := "SELECT id, label, type FROM categories"
	args := []any{}
	if typ != "" {
		query += " WHERE type = ?"
		args = append(args, typ)
	}
	query += " ORDER BY type, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Label, &c.Type); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}
