// Package split implements the shared-expense ledger: share computation at
// creation time and settlement tracking afterwards.
package split

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"kharcha/internal/core"
)

// ShareEpsilon is the tolerance within which custom shares must sum to the
// total amount.
const ShareEpsilon = 0.01

// Engine computes shares and processes settlements. It operates purely on
// in-memory records; persistence stays with the caller.
type Engine struct {
	// AllowUnknownSettler restores the legacy behavior of recording a
	// settlement for a name outside the participant list instead of
	// rejecting it.
	AllowUnknownSettler bool

	// now is swappable for tests.
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// CreateSplit builds a new split record with computed shares.
//
// Equal splits divide totalAmount by the participant count with plain
// floating-point division; there is no cent-level remainder redistribution,
// so the shares may drift from the total by a few ULPs. Custom splits take
// the supplied shares but must sum to totalAmount within ShareEpsilon.
func (e *Engine) CreateSplit(totalAmount core.Amount, description string, participants []string, splitType core.SplitType, shares map[string]core.Amount) (core.ExpenseSplit, error) {
	if !totalAmount.IsFinite() || totalAmount <= 0 {
		return core.ExpenseSplit{}, core.ErrInvalidAmount
	}
	if err := validateParticipants(participants); err != nil {
		return core.ExpenseSplit{}, err
	}

	computed := make(map[string]core.Amount, len(participants))
	switch splitType {
	case core.Equal:
		perPerson := totalAmount / core.Amount(len(participants))
		for _, p := range participants {
			computed[p] = perPerson
		}
	case core.Custom:
		if len(shares) == 0 {
			return core.ExpenseSplit{}, core.ErrMissingShares
		}
		if err := validateShares(totalAmount, participants, shares); err != nil {
			return core.ExpenseSplit{}, err
		}
		for p, s := range shares {
			computed[p] = s
		}
	default:
		return core.ExpenseSplit{}, core.ErrInvalidSplitType
	}

	now := e.now()
	return core.ExpenseSplit{
		ID:                  uuid.NewString(),
		Description:         description,
		TotalAmount:         totalAmount,
		Participants:        participants,
		SplitType:           splitType,
		Shares:              computed,
		SettledParticipants: []string{},
		Status:              core.SplitPending,
		CreatedAt:           now,
		LastUpdated:         now,
	}, nil
}

// Settle records that participantName has paid their share. Settling the
// same participant twice is a no-op; the call still refreshes lastUpdated.
// After the membership update the status is rederived: settled exactly when
// every participant has confirmed.
func (e *Engine) Settle(s *core.ExpenseSplit, participantName string) error {
	if strings.TrimSpace(participantName) == "" {
		return core.ErrEmptyParticipant
	}
	if !e.AllowUnknownSettler && !contains(s.Participants, participantName) {
		return core.ErrUnknownParticipant
	}

	if !contains(s.SettledParticipants, participantName) {
		s.SettledParticipants = append(s.SettledParticipants, participantName)
	}

	if s.Settled() {
		s.Status = core.SplitSettled
	} else {
		s.Status = core.SplitPending
	}
	s.LastUpdated = e.now()
	return nil
}

func validateParticipants(participants []string) error {
	if len(participants) < 2 {
		return core.ErrTooFewParticipants
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if strings.TrimSpace(p) == "" {
			return core.ErrEmptyParticipant
		}
		if seen[p] {
			return core.ErrDuplicateParticipant
		}
		seen[p] = true
	}
	return nil
}

func validateShares(total core.Amount, participants []string, shares map[string]core.Amount) error {
	known := make(map[string]bool, len(participants))
	for _, p := range participants {
		known[p] = true
	}
	var sum core.Amount
	for p, s := range shares {
		if !known[p] {
			return core.ErrUnknownParticipant
		}
		if err := s.Validate(); err != nil {
			return err
		}
		sum += s
	}
	if math.Abs(float64(sum-total)) >= ShareEpsilon {
		return core.ErrShareMismatch
	}
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
