package carnets

import (
	"strconv"
	"strings"
	"time"
)

// MarkDayCommand is the intent to flip one day of a carnet.
// Un-paying a paid day is a reversal and must say so, with a motif.
type MarkDayCommand struct {
	Jour                 int    `json:"jour"`
	Paye                 bool   `json:"paye"`
	Montant              *int64 `json:"montant,omitempty"`
	ReferenceTransaction string `json:"reference_transaction,omitempty"`
	Reversal             bool   `json:"reversal,omitempty"`
	Motif                string `json:"motif,omitempty"`
}

func (cmd MarkDayCommand) Validate() error {
	if cmd.Jour < 1 || cmd.Jour > CycleLength {
		return &ValidationError{
			Code:    CodeOutOfRange,
			Field:   "jour",
			Message: "day must be between 1 and " + strconv.Itoa(CycleLength) + ", got " + strconv.Itoa(cmd.Jour),
		}
	}
	if cmd.Reversal && cmd.Paye {
		return &ValidationError{Code: CodeInvalidCommand, Field: "reversal", Message: "a reversal cannot mark a day paid"}
	}
	// the commission slot is a flag, amounts are not checked there
	if cmd.Paye && cmd.Jour != CommissionDay && cmd.Montant != nil && *cmd.Montant <= 0 {
		return &ValidationError{Code: CodeInvalidAmount, Field: "montant", Message: "amount must be positive"}
	}
	return nil
}

// MarkDay applies cmd to a copy of c. Marking a day to the state it already has
// is a no-op that returns c unchanged, so replays from the transaction feed are safe.
func MarkDay(c Carnet, cmd MarkDayCommand, now time.Time) (Carnet, error) {
	if err := c.Validate(); err != nil {
		return Carnet{}, err
	}
	if err := cmd.Validate(); err != nil {
		return Carnet{}, err
	}

	paid := c.IsPaid(cmd.Jour)
	switch {
	case cmd.Paye == paid:
		return c.Clone(), nil
	case paid && !cmd.Paye:
		if !cmd.Reversal || strings.TrimSpace(cmd.Motif) == "" {
			return Carnet{}, &ValidationError{
				Code:    CodeReversalNotExplicit,
				Field:   "reversal",
				Message: "day " + strconv.Itoa(cmd.Jour) + " is paid; un-marking it requires reversal=true and a motif",
			}
		}
	}

	out := c.Clone()
	out.MisesCochees[DayKey(cmd.Jour)] = cmd.Paye
	out.ModifiedAt = now
	return out, nil
}

// Changed reports whether after differs from before on the commanded day.
func Changed(before, after Carnet, day int) bool {
	return before.IsPaid(day) != after.IsPaid(day)
}

// Mutation turns the carnet as currently stored into its next state.
// A nil entry means the carnet already is in the requested state and nothing must be written.
type Mutation func(current Carnet) (Carnet, *Transaction, error)

// MarkMutation applies cmd on behalf of actorID. Repositories run it on the
// row they hold locked, so concurrent marks never work from a stale copy.
func MarkMutation(cmd MarkDayCommand, actorID string, now time.Time) Mutation {
	return func(current Carnet) (Carnet, *Transaction, error) {
		next, err := MarkDay(current, cmd, now)
		if err != nil {
			return Carnet{}, nil, err
		}
		if !Changed(current, next, cmd.Jour) {
			return current, nil, nil
		}
		entry := NewTransaction(current, cmd, actorID, now)
		return next, &entry, nil
	}
}
