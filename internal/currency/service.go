package currency

import (
	"context"
	"errors"
	"fmt"

	"casino-engine/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles all balance changes. Every change locks the player row,
// applies the delta and writes a ledger row in the same transaction.
type Service struct {
	db *gorm.DB
}

// NewService creates a new currency service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetBalance retrieves the current chip balance for a player
func (s *Service) GetBalance(ctx context.Context, playerID string) (int, error) {
	var player models.Player
	if err := s.db.WithContext(ctx).Select("balance").First(&player, "id = ?", playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrPlayerNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return player.Balance, nil
}

// ValidateDelta checks that a relative adjustment is usable
func ValidateDelta(delta int) error {
	if delta == 0 {
		return ErrZeroAmount
	}
	if delta > MaximumTransaction || delta < -MaximumTransaction {
		return ErrExceedsMaximum
	}
	return nil
}

// AdjustInTx applies delta to the player's balance inside an existing
// transaction and returns the locked, updated row.
func (s *Service) AdjustInTx(ctx context.Context, tx *gorm.DB, playerID string, delta int, txType TransactionType, refID string) (*models.Player, error) {
	if err := ValidateDelta(delta); err != nil {
		return nil, err
	}

	var player models.Player
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&player, "id = ?", playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to lock player record: %w", err)
	}

	balanceBefore := player.Balance
	balanceAfter := balanceBefore + delta
	if balanceAfter < MinimumBalance {
		return nil, ErrInsufficientChips
	}

	if err := tx.Model(&player).Update("balance", balanceAfter).Error; err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	transaction := Transaction{
		ID:              uuid.New().String(),
		PlayerID:        playerID,
		Amount:          delta,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    balanceAfter,
		TransactionType: txType,
	}
	if refID != "" {
		transaction.ReferenceID = &refID
	}

	if err := tx.Create(&transaction).Error; err != nil {
		return nil, fmt.Errorf("failed to create transaction record: %w", err)
	}

	player.Balance = balanceAfter
	return &player, nil
}

// Adjust applies delta in its own transaction. A negative delta larger than
// the balance fails with ErrInsufficientChips and changes nothing.
func (s *Service) Adjust(ctx context.Context, playerID string, delta int, txType TransactionType, refID string) (*models.Player, error) {
	var updated *models.Player
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.AdjustInTx(ctx, tx, playerID, delta, txType, refID)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetTransactionHistory retrieves the newest ledger rows for a player
func (s *Service) GetTransactionHistory(ctx context.Context, playerID string, limit int) ([]Transaction, error) {
	var transactions []Transaction
	query := s.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}

	return transactions, nil
}
