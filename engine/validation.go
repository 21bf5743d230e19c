package engine

import (
	"errors"
	"fmt"
)

// RejectReason classifies a synchronous rejection returned to callers.
type RejectReason string

const (
	ReasonTableNotFound       RejectReason = "table_not_found"
	ReasonPlayerNotFound      RejectReason = "player_not_found"
	ReasonPlayerNotAtTable    RejectReason = "player_not_at_table"
	ReasonPlayerAtOtherTable  RejectReason = "player_at_other_table"
	ReasonTableNotAccepting   RejectReason = "table_not_accepting_bets"
	ReasonInvalidBet          RejectReason = "invalid_bet"
	ReasonBetOutOfRange       RejectReason = "bet_out_of_range"
	ReasonInsufficientBalance RejectReason = "insufficient_balance"
)

// Rejection is a validation failure: the request was refused and no state
// was changed.
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// Is matches any rejection with the same reason, so callers can write
// errors.Is(err, engine.ErrBetOutOfRange).
func (r *Rejection) Is(target error) bool {
	var other *Rejection
	if errors.As(target, &other) {
		return other.Reason == r.Reason
	}
	return false
}

var (
	ErrTableNotFound       = &Rejection{Reason: ReasonTableNotFound}
	ErrPlayerNotFound      = &Rejection{Reason: ReasonPlayerNotFound}
	ErrPlayerNotAtTable    = &Rejection{Reason: ReasonPlayerNotAtTable}
	ErrPlayerAtOtherTable  = &Rejection{Reason: ReasonPlayerAtOtherTable}
	ErrTableNotAccepting   = &Rejection{Reason: ReasonTableNotAccepting}
	ErrInvalidBet          = &Rejection{Reason: ReasonInvalidBet}
	ErrBetOutOfRange       = &Rejection{Reason: ReasonBetOutOfRange}
	ErrInsufficientBalance = &Rejection{Reason: ReasonInsufficientBalance}
)

func reject(reason RejectReason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ValidateBetAmount checks amount against the table limits.
func ValidateBetAmount(amount, minBet, maxBet int) error {
	if amount < minBet || amount > maxBet {
		return reject(ReasonBetOutOfRange, "bet must be between %d and %d", minBet, maxBet)
	}
	return nil
}
