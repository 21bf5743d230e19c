// Package store persists players, tables, the casino aggregate and round
// history. Both implementations satisfy the engine's Store contract.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casino-engine/models"
)

// ErrInvalidInput wraps every provisioning validation failure.
var ErrInvalidInput = errors.New("invalid input")

// TableParams describes a table to create. Zero limits take the defaults.
type TableParams struct {
	Name   string             `json:"name"`
	Game   models.GameVariant `json:"game"`
	MinBet int                `json:"minBet"`
	MaxBet int                `json:"maxBet"`
}

// TableUpdate patches a table. Nil fields are left unchanged.
type TableUpdate struct {
	Name   *string `json:"name,omitempty"`
	MinBet *int    `json:"minBet,omitempty"`
	MaxBet *int    `json:"maxBet,omitempty"`
}

// LedgerEntry is one audited balance change.
type LedgerEntry struct {
	PlayerID     string               `json:"playerId"`
	Amount       int                  `json:"amount"`
	BalanceAfter int                  `json:"balanceAfter"`
	Reason       models.BalanceReason `json:"reason"`
	Reference    string               `json:"reference,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
}

type Store interface {
	GetPlayer(ctx context.Context, playerID string) (*models.Player, error)
	ListPlayers(ctx context.Context) ([]models.Player, error)
	CreatePlayer(ctx context.Context, name string, balance int) (*models.Player, error)
	DeletePlayer(ctx context.Context, playerID string) error
	AdjustPlayerBalance(ctx context.Context, playerID string, delta int, reason models.BalanceReason, refID string) (*models.Player, error)
	Ledger(ctx context.Context, playerID string, limit int) ([]LedgerEntry, error)

	GetTable(ctx context.Context, tableID string) (*models.Table, error)
	ListTables(ctx context.Context) ([]models.Table, error)
	CreateTable(ctx context.Context, params TableParams) (*models.Table, error)
	UpdateTable(ctx context.Context, tableID string, update TableUpdate) (*models.Table, error)
	SetTableState(ctx context.Context, tableID string, state models.TableState) error
	AddPlayerToTable(ctx context.Context, tableID, playerID string) (*models.Table, error)
	RemovePlayerFromTable(ctx context.Context, tableID, playerID string) (*models.Table, error)
	DeleteTable(ctx context.Context, tableID string) error

	GetCasinoAggregate(ctx context.Context) (*models.CasinoAggregate, error)
	AdjustCasinoAggregate(ctx context.Context, deltaHouse, deltaBets, deltaPayouts int) (*models.CasinoAggregate, error)

	SaveRoundResult(ctx context.Context, record models.RoundRecord) error
	ListRounds(ctx context.Context, tableID string, limit int) ([]models.RoundRecord, error)
	LastRound(ctx context.Context, tableID string) (*models.RoundRecord, error)

	Close() error
}

// ErrNoRounds is returned by LastRound for a table without completed rounds.
var ErrNoRounds = errors.New("no completed rounds")

// applyTableDefaults fills zero limits and validates the result.
func applyTableDefaults(params TableParams) (TableParams, error) {
	if params.Name == "" {
		return params, fmt.Errorf("%w: table name is required", ErrInvalidInput)
	}
	if !params.Game.Valid() {
		return params, fmt.Errorf("%w: unknown game %q", ErrInvalidInput, params.Game)
	}
	if params.MinBet == 0 {
		params.MinBet = models.DefaultMinBet
	}
	if params.MaxBet == 0 {
		params.MaxBet = models.DefaultMaxBet
	}
	if err := models.ValidateBetLimits(params.MinBet, params.MaxBet); err != nil {
		return params, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return params, nil
}

// applyTableUpdate merges update into t and validates the merged limits.
func applyTableUpdate(t *models.Table, update TableUpdate) error {
	name, minBet, maxBet := t.Name, t.MinBet, t.MaxBet
	if update.Name != nil {
		if *update.Name == "" {
			return fmt.Errorf("%w: table name cannot be empty", ErrInvalidInput)
		}
		name = *update.Name
	}
	if update.MinBet != nil {
		minBet = *update.MinBet
	}
	if update.MaxBet != nil {
		maxBet = *update.MaxBet
	}
	if err := models.ValidateBetLimits(minBet, maxBet); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	t.Name, t.MinBet, t.MaxBet = name, minBet, maxBet
	return nil
}

func validatePlayer(name string, balance int) error {
	if name == "" {
		return fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	if balance < 0 {
		return fmt.Errorf("%w: starting balance cannot be negative", ErrInvalidInput)
	}
	return nil
}
