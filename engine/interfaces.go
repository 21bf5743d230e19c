package engine

import (
	"context"

	"casino-engine/models"
)

// Store is the persistence the engine depends on. Every method is atomic
// for the single entity it touches; the engine never needs a transaction
// spanning entities.
type Store interface {
	GetPlayer(ctx context.Context, playerID string) (*models.Player, error)
	// AdjustPlayerBalance applies a relative change. It fails with
	// models.ErrInsufficientBalance rather than letting the balance go negative.
	AdjustPlayerBalance(ctx context.Context, playerID string, delta int, reason models.BalanceReason, refID string) (*models.Player, error)

	GetTable(ctx context.Context, tableID string) (*models.Table, error)
	SetTableState(ctx context.Context, tableID string, state models.TableState) error
	AddPlayerToTable(ctx context.Context, tableID, playerID string) (*models.Table, error)
	RemovePlayerFromTable(ctx context.Context, tableID, playerID string) (*models.Table, error)
	DeleteTable(ctx context.Context, tableID string) error

	GetCasinoAggregate(ctx context.Context) (*models.CasinoAggregate, error)
	AdjustCasinoAggregate(ctx context.Context, deltaHouse, deltaBets, deltaPayouts int) (*models.CasinoAggregate, error)

	SaveRoundResult(ctx context.Context, record models.RoundRecord) error
}

// Publisher broadcasts lifecycle events. Publish is called from a single
// delivery goroutine, never under a table lock; the engine logs and drops any
// error it returns.
type Publisher interface {
	Publish(ctx context.Context, channel string, event models.Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, channel string, event models.Event) error

func (f PublisherFunc) Publish(ctx context.Context, channel string, event models.Event) error {
	return f(ctx, channel, event)
}
