package currency

import (
	"errors"
	"time"
)

// Constants for currency system
const (
	MinimumBalance     = 0
	MaximumTransaction = 1000000000
)

// TransactionType represents the type of chip transaction
type TransactionType string

const (
	TxTypeBetStake        TransactionType = "bet_stake"
	TxTypeRoundPayout     TransactionType = "round_payout"
	TxTypeStakeRefund     TransactionType = "stake_refund"
	TxTypeAdminAdjustment TransactionType = "admin_adjustment"
	TxTypeInitialDeposit  TransactionType = "initial_deposit"
)

// Transaction represents a chip transaction record
type Transaction struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	PlayerID        string          `gorm:"type:varchar(36);not null;index" json:"player_id"`
	Amount          int             `gorm:"not null" json:"amount"`
	BalanceBefore   int             `gorm:"not null" json:"balance_before"`
	BalanceAfter    int             `gorm:"not null" json:"balance_after"`
	TransactionType TransactionType `gorm:"type:varchar(50);not null;index" json:"transaction_type"`
	ReferenceID     *string         `gorm:"type:varchar(64);index" json:"reference_id,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Transaction) TableName() string {
	return "chip_transactions"
}

// Errors
var (
	ErrInsufficientChips = errors.New("insufficient chips")
	ErrZeroAmount        = errors.New("adjustment amount cannot be zero")
	ErrExceedsMaximum    = errors.New("amount exceeds maximum transaction limit")
	ErrPlayerNotFound    = errors.New("player not found")
)
