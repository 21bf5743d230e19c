package store

import (
	"context"
	"errors"
	"fmt"

	"casino-engine/internal/currency"
	"casino-engine/internal/db"
	"casino-engine/internal/history"
	rows "casino-engine/internal/models"
	"casino-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore persists through gorm. Balance changes go through the currency
// service so every one of them leaves a ledger row.
type SQLStore struct {
	db       *db.DB
	currency *currency.Service
	history  *history.Tracker
}

func NewSQLStore(database *db.DB) *SQLStore {
	return &SQLStore{
		db:       database,
		currency: currency.NewService(database.DB),
		history:  history.NewTracker(database),
	}
}

func mapCurrencyErr(err error) error {
	switch {
	case errors.Is(err, currency.ErrPlayerNotFound):
		return models.ErrPlayerNotFound
	case errors.Is(err, currency.ErrInsufficientChips):
		return models.ErrInsufficientBalance
	}
	return err
}

func toPlayer(row rows.Player, currentTable string) *models.Player {
	return &models.Player{
		ID:           row.ID,
		Name:         row.Name,
		Balance:      row.Balance,
		CurrentTable: currentTable,
		CreatedAt:    row.CreatedAt,
	}
}

func toTable(row rows.Table, players []string) *models.Table {
	if players == nil {
		players = []string{}
	}
	return &models.Table{
		ID:        row.ID,
		Name:      row.Name,
		Game:      models.GameVariant(row.Game),
		Players:   players,
		MinBet:    row.MinBet,
		MaxBet:    row.MaxBet,
		State:     models.TableState(row.State),
		CreatedAt: row.CreatedAt,
	}
}

func (s *SQLStore) seatOf(tx *gorm.DB, playerID string) (string, error) {
	var seat rows.TableSeat
	err := tx.Where("player_id = ?", playerID).Limit(1).Find(&seat).Error
	if err != nil {
		return "", fmt.Errorf("failed to load seat: %w", err)
	}
	return seat.TableID, nil
}

func (s *SQLStore) seatedPlayers(tx *gorm.DB, tableID string) ([]string, error) {
	var seats []rows.TableSeat
	if err := tx.Where("table_id = ?", tableID).Order("id ASC").Find(&seats).Error; err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}
	ids := make([]string, 0, len(seats))
	for _, seat := range seats {
		ids = append(ids, seat.PlayerID)
	}
	return ids, nil
}

func (s *SQLStore) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	tx := s.db.WithContext(ctx)
	var row rows.Player
	if err := tx.First(&row, "id = ?", playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	tableID, err := s.seatOf(tx, playerID)
	if err != nil {
		return nil, err
	}
	return toPlayer(row, tableID), nil
}

func (s *SQLStore) ListPlayers(ctx context.Context) ([]models.Player, error) {
	tx := s.db.WithContext(ctx)
	var playerRows []rows.Player
	if err := tx.Order("created_at ASC, id ASC").Find(&playerRows).Error; err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	var seats []rows.TableSeat
	if err := tx.Find(&seats).Error; err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", err)
	}
	seatByPlayer := make(map[string]string, len(seats))
	for _, seat := range seats {
		seatByPlayer[seat.PlayerID] = seat.TableID
	}

	players := make([]models.Player, 0, len(playerRows))
	for _, row := range playerRows {
		players = append(players, *toPlayer(row, seatByPlayer[row.ID]))
	}
	return players, nil
}

// CreatePlayer inserts the player at zero and credits the starting balance
// through the ledger in the same transaction.
func (s *SQLStore) CreatePlayer(ctx context.Context, name string, balance int) (*models.Player, error) {
	if err := validatePlayer(name, balance); err != nil {
		return nil, err
	}

	row := rows.Player{ID: uuid.New().String(), Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create player: %w", err)
		}
		if balance == 0 {
			return nil
		}
		updated, err := s.currency.AdjustInTx(ctx, tx, row.ID, balance, currency.TxTypeInitialDeposit, "")
		if err != nil {
			return err
		}
		row.Balance = updated.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toPlayer(row, ""), nil
}

func (s *SQLStore) DeletePlayer(ctx context.Context, playerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("player_id = ?", playerID).Delete(&rows.TableSeat{}).Error; err != nil {
			return fmt.Errorf("failed to delete seat: %w", err)
		}
		res := tx.Delete(&rows.Player{}, "id = ?", playerID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete player: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.ErrPlayerNotFound
		}
		return nil
	})
}

func (s *SQLStore) AdjustPlayerBalance(ctx context.Context, playerID string, delta int, reason models.BalanceReason, refID string) (*models.Player, error) {
	if delta == 0 {
		return s.GetPlayer(ctx, playerID)
	}
	row, err := s.currency.Adjust(ctx, playerID, delta, currency.TransactionType(reason), refID)
	if err != nil {
		return nil, mapCurrencyErr(err)
	}
	tableID, err := s.seatOf(s.db.WithContext(ctx), playerID)
	if err != nil {
		return nil, err
	}
	return toPlayer(*row, tableID), nil
}

func (s *SQLStore) Ledger(ctx context.Context, playerID string, limit int) ([]LedgerEntry, error) {
	if _, err := s.currency.GetBalance(ctx, playerID); err != nil {
		return nil, mapCurrencyErr(err)
	}
	txs, err := s.currency.GetTransactionHistory(ctx, playerID, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]LedgerEntry, 0, len(txs))
	for _, tx := range txs {
		entry := LedgerEntry{
			PlayerID:     tx.PlayerID,
			Amount:       tx.Amount,
			BalanceAfter: tx.BalanceAfter,
			Reason:       models.BalanceReason(tx.TransactionType),
			CreatedAt:    tx.CreatedAt,
		}
		if tx.ReferenceID != nil {
			entry.Reference = *tx.ReferenceID
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *SQLStore) loadTable(tx *gorm.DB, tableID string, lock bool) (*rows.Table, error) {
	var row rows.Table
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&row, "id = ?", tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return &row, nil
}

func (s *SQLStore) GetTable(ctx context.Context, tableID string) (*models.Table, error) {
	tx := s.db.WithContext(ctx)
	row, err := s.loadTable(tx, tableID, false)
	if err != nil {
		return nil, err
	}
	players, err := s.seatedPlayers(tx, tableID)
	if err != nil {
		return nil, err
	}
	return toTable(*row, players), nil
}

func (s *SQLStore) ListTables(ctx context.Context) ([]models.Table, error) {
	tx := s.db.WithContext(ctx)
	var tableRows []rows.Table
	if err := tx.Order("created_at ASC, id ASC").Find(&tableRows).Error; err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	var seats []rows.TableSeat
	if err := tx.Order("id ASC").Find(&seats).Error; err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", err)
	}
	byTable := make(map[string][]string)
	for _, seat := range seats {
		byTable[seat.TableID] = append(byTable[seat.TableID], seat.PlayerID)
	}

	tables := make([]models.Table, 0, len(tableRows))
	for _, row := range tableRows {
		tables = append(tables, *toTable(row, byTable[row.ID]))
	}
	return tables, nil
}

func (s *SQLStore) CreateTable(ctx context.Context, params TableParams) (*models.Table, error) {
	params, err := applyTableDefaults(params)
	if err != nil {
		return nil, err
	}
	row := rows.Table{
		ID:     uuid.New().String(),
		Name:   params.Name,
		Game:   string(params.Game),
		State:  string(models.StateWaiting),
		MinBet: params.MinBet,
		MaxBet: params.MaxBet,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return toTable(row, nil), nil
}

func (s *SQLStore) UpdateTable(ctx context.Context, tableID string, update TableUpdate) (*models.Table, error) {
	var result *models.Table
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.loadTable(tx, tableID, true)
		if err != nil {
			return err
		}
		table := toTable(*row, nil)
		if err := applyTableUpdate(table, update); err != nil {
			return err
		}
		err = tx.Model(row).Updates(map[string]interface{}{
			"name":    table.Name,
			"min_bet": table.MinBet,
			"max_bet": table.MaxBet,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update table: %w", err)
		}
		players, err := s.seatedPlayers(tx, tableID)
		if err != nil {
			return err
		}
		table.Players = players
		result = table
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLStore) SetTableState(ctx context.Context, tableID string, state models.TableState) error {
	res := s.db.WithContext(ctx).Model(&rows.Table{}).Where("id = ?", tableID).Update("state", string(state))
	if res.Error != nil {
		return fmt.Errorf("failed to set table state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrTableNotFound
	}
	return nil
}

func (s *SQLStore) AddPlayerToTable(ctx context.Context, tableID, playerID string) (*models.Table, error) {
	var result *models.Table
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.loadTable(tx, tableID, true)
		if err != nil {
			return err
		}
		var player rows.Player
		if err := tx.Select("id").First(&player, "id = ?", playerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrPlayerNotFound
			}
			return fmt.Errorf("failed to get player: %w", err)
		}

		current, err := s.seatOf(tx, playerID)
		if err != nil {
			return err
		}
		switch current {
		case tableID:
		case "":
			if err := tx.Create(&rows.TableSeat{TableID: tableID, PlayerID: playerID}).Error; err != nil {
				return fmt.Errorf("failed to create seat: %w", err)
			}
		default:
			return models.ErrPlayerAtOtherTable
		}

		players, err := s.seatedPlayers(tx, tableID)
		if err != nil {
			return err
		}
		result = toTable(*row, players)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLStore) RemovePlayerFromTable(ctx context.Context, tableID, playerID string) (*models.Table, error) {
	var result *models.Table
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.loadTable(tx, tableID, true)
		if err != nil {
			return err
		}
		var player rows.Player
		if err := tx.Select("id").First(&player, "id = ?", playerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrPlayerNotFound
			}
			return fmt.Errorf("failed to get player: %w", err)
		}

		res := tx.Where("table_id = ? AND player_id = ?", tableID, playerID).Delete(&rows.TableSeat{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete seat: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.ErrPlayerNotSeated
		}

		players, err := s.seatedPlayers(tx, tableID)
		if err != nil {
			return err
		}
		result = toTable(*row, players)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteTable removes the table with its seats and round history.
func (s *SQLStore) DeleteTable(ctx context.Context, tableID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadTable(tx, tableID, true); err != nil {
			return err
		}
		if err := tx.Where("table_id = ?", tableID).Delete(&rows.TableSeat{}).Error; err != nil {
			return fmt.Errorf("failed to delete seats: %w", err)
		}
		if err := s.history.DeleteTable(tx, tableID); err != nil {
			return err
		}
		if err := tx.Delete(&rows.Table{}, "id = ?", tableID).Error; err != nil {
			return fmt.Errorf("failed to delete table: %w", err)
		}
		return nil
	})
}

func toAggregate(row rows.CasinoState) *models.CasinoAggregate {
	return &models.CasinoAggregate{
		HouseBalance: row.HouseBalance,
		TotalBets:    row.TotalBets,
		TotalPayouts: row.TotalPayouts,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (s *SQLStore) GetCasinoAggregate(ctx context.Context) (*models.CasinoAggregate, error) {
	var row rows.CasinoState
	err := s.db.WithContext(ctx).
		Where(rows.CasinoState{ID: rows.CasinoStateID}).
		FirstOrCreate(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get casino state: %w", err)
	}
	return toAggregate(row), nil
}

// AdjustCasinoAggregate moves all three counters in one locked update.
func (s *SQLStore) AdjustCasinoAggregate(ctx context.Context, deltaHouse, deltaBets, deltaPayouts int) (*models.CasinoAggregate, error) {
	var row rows.CasinoState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(rows.CasinoState{ID: rows.CasinoStateID}).
			FirstOrCreate(&row).Error
		if err != nil {
			return fmt.Errorf("failed to lock casino state: %w", err)
		}
		row.HouseBalance += deltaHouse
		row.TotalBets += deltaBets
		row.TotalPayouts += deltaPayouts
		err = tx.Model(&row).Updates(map[string]interface{}{
			"house_balance": row.HouseBalance,
			"total_bets":    row.TotalBets,
			"total_payouts": row.TotalPayouts,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update casino state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toAggregate(row), nil
}

func (s *SQLStore) SaveRoundResult(ctx context.Context, record models.RoundRecord) error {
	_, err := s.history.Record(ctx, record)
	return err
}

func (s *SQLStore) ListRounds(ctx context.Context, tableID string, limit int) ([]models.RoundRecord, error) {
	return s.history.Recent(ctx, tableID, limit)
}

func (s *SQLStore) LastRound(ctx context.Context, tableID string) (*models.RoundRecord, error) {
	rec, err := s.history.Last(ctx, tableID)
	if errors.Is(err, history.ErrNoRounds) {
		return nil, ErrNoRounds
	}
	return rec, err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
