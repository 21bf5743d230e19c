package currency

import (
	"context"
	"errors"
	"sync"
	"testing"

	"casino-engine/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?mode=memory"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.Player{}, &Transaction{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func createTestPlayer(t *testing.T, db *gorm.DB, playerID string, balance int) {
	player := models.Player{
		ID:      playerID,
		Name:    "player_" + playerID,
		Balance: balance,
	}
	if err := db.Create(&player).Error; err != nil {
		t.Fatalf("Failed to create test player: %v", err)
	}
}

func getBalance(t *testing.T, db *gorm.DB, playerID string) int {
	var player models.Player
	if err := db.First(&player, "id = ?", playerID).Error; err != nil {
		t.Fatalf("Failed to get player balance: %v", err)
	}
	return player.Balance
}

func countTransactions(db *gorm.DB) int64 {
	var n int64
	db.Model(&Transaction{}).Count(&n)
	return n
}

func TestAdjust_Debit(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	createTestPlayer(t, db, "p1", 1000)

	player, err := service.Adjust(ctx, "p1", -200, TxTypeBetStake, "table-1#1")
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if player.Balance != 800 {
		t.Errorf("Expected returned balance 800, got %d", player.Balance)
	}
	if balance := getBalance(t, db, "p1"); balance != 800 {
		t.Errorf("Expected stored balance 800, got %d", balance)
	}

	var tx Transaction
	if err := db.First(&tx, "player_id = ?", "p1").Error; err != nil {
		t.Fatalf("Failed to get transaction record: %v", err)
	}
	if tx.Amount != -200 || tx.BalanceBefore != 1000 || tx.BalanceAfter != 800 {
		t.Errorf("Unexpected ledger row: %+v", tx)
	}
	if tx.TransactionType != TxTypeBetStake {
		t.Errorf("Expected type %s, got %s", TxTypeBetStake, tx.TransactionType)
	}
	if tx.ReferenceID == nil || *tx.ReferenceID != "table-1#1" {
		t.Errorf("Expected reference table-1#1, got %v", tx.ReferenceID)
	}
}

func TestAdjust_Credit(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	createTestPlayer(t, db, "p1", 0)

	if _, err := service.Adjust(ctx, "p1", 350, TxTypeRoundPayout, ""); err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if balance := getBalance(t, db, "p1"); balance != 350 {
		t.Errorf("Expected balance 350, got %d", balance)
	}

	var tx Transaction
	if err := db.First(&tx, "player_id = ?", "p1").Error; err != nil {
		t.Fatalf("Failed to get transaction record: %v", err)
	}
	if tx.ReferenceID != nil {
		t.Errorf("Expected no reference, got %q", *tx.ReferenceID)
	}
}

// A debit past zero must be refused and leave no trace.
func TestAdjust_InsufficientChips(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	createTestPlayer(t, db, "p1", 100)

	_, err := service.Adjust(ctx, "p1", -101, TxTypeBetStake, "")
	if !errors.Is(err, ErrInsufficientChips) {
		t.Fatalf("Expected ErrInsufficientChips, got %v", err)
	}
	if balance := getBalance(t, db, "p1"); balance != 100 {
		t.Errorf("Balance changed after failed debit: %d", balance)
	}
	if n := countTransactions(db); n != 0 {
		t.Errorf("Expected 0 transaction records after rollback, got %d", n)
	}
}

func TestAdjust_ExactBalance(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	createTestPlayer(t, db, "p1", 100)

	player, err := service.Adjust(context.Background(), "p1", -100, TxTypeBetStake, "")
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if player.Balance != 0 {
		t.Errorf("Expected balance 0, got %d", player.Balance)
	}
}

func TestAdjust_PlayerNotFound(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	_, err := service.Adjust(context.Background(), "ghost", 10, TxTypeAdminAdjustment, "")
	if !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("Expected ErrPlayerNotFound, got %v", err)
	}
}

// Rolling back the outer transaction must undo the adjustment and its ledger row.
func TestAdjustInTx_Rollback(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	createTestPlayer(t, db, "p1", 500)

	rollback := errors.New("rollback")
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := service.AdjustInTx(ctx, tx, "p1", 250, TxTypeRoundPayout, ""); err != nil {
			return err
		}
		return rollback
	})
	if !errors.Is(err, rollback) {
		t.Fatalf("Expected rollback error, got %v", err)
	}

	if balance := getBalance(t, db, "p1"); balance != 500 {
		t.Errorf("Expected balance 500 after rollback, got %d", balance)
	}
	if n := countTransactions(db); n != 0 {
		t.Errorf("Expected 0 transaction records after rollback, got %d", n)
	}
}

func TestAdjust_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	createTestPlayer(t, db, "p1", 1000)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.Adjust(ctx, "p1", -10, TxTypeBetStake, ""); err != nil {
				t.Errorf("Adjust failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if balance := getBalance(t, db, "p1"); balance != 800 {
		t.Errorf("Expected balance 800, got %d", balance)
	}
	if n := countTransactions(db); n != 20 {
		t.Errorf("Expected 20 transaction records, got %d", n)
	}
}

func TestValidateDelta_EdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		delta int
		want  error
	}{
		{"zero", 0, ErrZeroAmount},
		{"credit", 1, nil},
		{"debit", -1, nil},
		{"max credit", MaximumTransaction, nil},
		{"over max credit", MaximumTransaction + 1, ErrExceedsMaximum},
		{"over max debit", -MaximumTransaction - 1, ErrExceedsMaximum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateDelta(tt.delta); !errors.Is(err, tt.want) {
				t.Errorf("ValidateDelta(%d) = %v, want %v", tt.delta, err, tt.want)
			}
		})
	}
}

func TestGetTransactionHistory(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	createTestPlayer(t, db, "p1", 1000)
	for i := 0; i < 3; i++ {
		if _, err := service.Adjust(ctx, "p1", -10, TxTypeBetStake, ""); err != nil {
			t.Fatalf("Adjust failed: %v", err)
		}
	}

	history, err := service.GetTransactionHistory(ctx, "p1", 2)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("Expected 2 records, got %d", len(history))
	}
}
