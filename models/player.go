package models

import "time"

type Player struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Balance      int       `json:"balance"`
	CurrentTable string    `json:"currentTable,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DefaultStartingBalance is credited to players created without an explicit balance.
const DefaultStartingBalance = 1000

// BalanceReason tags a balance adjustment for the audit ledger.
type BalanceReason string

const (
	ReasonBetStake        BalanceReason = "bet_stake"
	ReasonRoundPayout     BalanceReason = "round_payout"
	ReasonStakeRefund     BalanceReason = "stake_refund"
	ReasonAdminAdjustment BalanceReason = "admin_adjustment"
	ReasonInitialDeposit  BalanceReason = "initial_deposit"
)
