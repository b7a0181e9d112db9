package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Equal  SplitType = "equal"
	Custom SplitType = "custom"

	SplitPending SplitStatus = "pending"
	SplitSettled SplitStatus = "settled"

	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"

	StatusPending = "pending"
	StatusPaid    = "paid"
)

type (
	TransactionType string
	SplitType       string
	SplitStatus     string
	Frequency       string

	// Amount is a monetary quantity in INR base units. It is deliberately a
	// float64 behind a named type: engine arithmetic matches the observed
	// floating-point behavior, and the representation can be swapped for a
	// fixed-point one without touching engine logic.
	Amount float64

	// Date accepts both full RFC 3339 timestamps and bare "2006-01-02"
	// strings on input, since clients send either.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      Amount          `json:"amount"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Notes       string          `json:"notes,omitempty"`
		Status      string          `json:"status"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt,omitempty"`
		Version     int64           `json:"-"`
	}

	// TransactionPatch carries the fields of an update request. Nil fields
	// are left untouched (merge semantics: supplied fields overwrite).
	TransactionPatch struct {
		Type        *TransactionType `json:"type"`
		Amount      *Amount          `json:"amount"`
		Category    *string          `json:"category"`
		Date        *Date            `json:"date"`
		Description *string          `json:"description"`
		Notes       *string          `json:"notes"`
		Status      *string          `json:"status"`
	}

	ExpenseSplit struct {
		ID                  string            `json:"id"`
		Description         string            `json:"description"`
		TotalAmount         Amount            `json:"totalAmount"`
		Participants        []string          `json:"participants"`
		SplitType           SplitType         `json:"splitType"`
		Shares              map[string]Amount `json:"shares"`
		SettledParticipants []string          `json:"settledParticipants"`
		Status              SplitStatus       `json:"status"`
		CreatedAt           time.Time         `json:"createdAt"`
		LastUpdated         time.Time         `json:"lastUpdated"`
		Version             int64             `json:"-"`
	}

	RecurringTransaction struct {
		ID             string          `json:"id"`
		Type           TransactionType `json:"type"`
		Amount         Amount          `json:"amount"`
		Category       string          `json:"category"`
		Description    string          `json:"description"`
		Every          Frequency       `json:"every"`
		StartDate      Date            `json:"startDate"`
		EndDate        Date            `json:"endDate,omitempty"`
		LastExecutedAt time.Time       `json:"lastExecutedAt,omitempty"`
		CreatedAt      time.Time       `json:"createdAt"`
		Version        int64           `json:"-"`
	}

	SavingsGoal struct {
		ID            string    `json:"id"`
		Name          string    `json:"name"`
		TargetAmount  Amount    `json:"targetAmount"`
		CurrentAmount Amount    `json:"currentAmount"`
		Progress      float64   `json:"progress"`
		Deadline      Date      `json:"deadline,omitempty"`
		CreatedAt     time.Time `json:"createdAt"`
		LastUpdated   time.Time `json:"lastUpdated"`
		Version       int64     `json:"-"`
	}

	FinancialGoal struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		TargetAmount Amount    `json:"targetAmount"`
		Notes        string    `json:"notes,omitempty"`
		CreatedAt    time.Time `json:"createdAt"`
		Version      int64     `json:"-"`
	}

	BillReminder struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Amount      Amount    `json:"amount"`
		DueDate     Date      `json:"dueDate"`
		Status      string    `json:"status"`
		CreatedAt   time.Time `json:"createdAt"`
		LastUpdated time.Time `json:"lastUpdated"`
		Version     int64     `json:"-"`
	}

	// BillReminderPatch carries the fields of a reminder update. Same merge
	// semantics as TransactionPatch.
	BillReminderPatch struct {
		Name    *string `json:"name"`
		Amount  *Amount `json:"amount"`
		DueDate *Date   `json:"dueDate"`
		Status  *string `json:"status"`
	}

	Category struct {
		ID    string          `json:"id"`
		Label string          `json:"label"`
		Type  TransactionType `json:"type"`
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrInvalidDate          = errors.New("invalid date")
	ErrEmptyDescription     = errors.New("empty description")
	ErrEmptyName            = errors.New("empty name")
	ErrTooFewParticipants   = errors.New("at least 2 participants required")
	ErrEmptyParticipant     = errors.New("empty participant name")
	ErrDuplicateParticipant = errors.New("duplicate participant name")
	ErrInvalidSplitType     = errors.New("invalid split type")
	ErrMissingShares        = errors.New("shares required for custom split")
	ErrShareMismatch        = errors.New("shares do not sum to total amount")
	ErrUnknownParticipant   = errors.New("participant not part of split")
	ErrInvalidFrequency     = errors.New("invalid frequency")

	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
)

var validationErrors = []error{
	ErrInvalidAmount,
	ErrInvalidType,
	ErrInvalidDate,
	ErrEmptyDescription,
	ErrEmptyName,
	ErrTooFewParticipants,
	ErrEmptyParticipant,
	ErrDuplicateParticipant,
	ErrInvalidSplitType,
	ErrMissingShares,
	ErrShareMismatch,
	ErrUnknownParticipant,
	ErrInvalidFrequency,
}

// IsValidation reports whether err belongs to the validation error family.
// HTTP handlers use it to map engine failures to 4xx responses.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// Validate checks that the amount is a finite non-negative number.
func (a Amount) Validate() error {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsFinite reports whether the amount is representable (not NaN or Inf).
func (a Amount) IsFinite() bool {
	f := float64(a)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format(time.RFC3339) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return ErrInvalidDate
}

// SameMonth reports whether the date falls in the given calendar year+month.
func (d Date) SameMonth(year int, month time.Month) bool {
	return d.Year() == year && d.Month() == month
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

// Validate enforces the transaction invariants before persistence: a finite
// non-negative amount, a known type, and a usable date.
func (t Transaction) Validate() error {
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// Apply merges the patch into the transaction. Only supplied fields
// overwrite; the result still needs Validate before persistence.
func (t *Transaction) Apply(p TransactionPatch) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

// Settled reports whether every participant appears in settledParticipants.
func (s ExpenseSplit) Settled() bool {
	settled := make(map[string]bool, len(s.SettledParticipants))
	for _, p := range s.SettledParticipants {
		settled[p] = true
	}
	for _, p := range s.Participants {
		if !settled[p] {
			return false
		}
	}
	return true
}

func (r RecurringTransaction) Validate() error {
	if err := r.Type.Validate(); err != nil {
		return err
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if err := r.Every.Validate(); err != nil {
		return err
	}
	if err := r.StartDate.Validate(); err != nil {
		return err
	}
	if !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate.Time) {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(r.Description)) == 0 {
		return ErrEmptyDescription
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if g.TargetAmount == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Contribute adds amount to the goal and recomputes progress as a percentage
// of the target.
func (g *SavingsGoal) Contribute(amount Amount, now time.Time) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	g.CurrentAmount += amount
	g.Progress = float64(g.CurrentAmount) / float64(g.TargetAmount) * 100
	g.LastUpdated = now
	return nil
}

func (g FinancialGoal) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	return g.TargetAmount.Validate()
}

// Apply merges the patch into the reminder. Only supplied fields overwrite.
func (b *BillReminder) Apply(p BillReminderPatch) {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.DueDate != nil {
		b.DueDate = *p.DueDate
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Label)) == 0 {
		return ErrEmptyName
	}
	return c.Type.Validate()
}

func (b BillReminder) Validate() error {
	if len(strings.TrimSpace(b.Name)) == 0 {
		return ErrEmptyName
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	return b.DueDate.Validate()
}
