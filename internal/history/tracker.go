package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"casino-engine/internal/db"
	"casino-engine/internal/models"
	domain "casino-engine/models"

	"gorm.io/gorm"
)

// DefaultLimit caps round listings when the caller passes no limit.
const DefaultLimit = 50

// ErrNoRounds is returned by Last when a table has not completed a round.
var ErrNoRounds = errors.New("no completed rounds")

// Tracker records completed rounds and serves the per-table history
type Tracker struct {
	db *db.DB
}

// NewTracker creates a new round history tracker
func NewTracker(database *db.DB) *Tracker {
	return &Tracker{db: database}
}

// Record persists a completed round and returns its id
func (t *Tracker) Record(ctx context.Context, record domain.RoundRecord) (int64, error) {
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal round result: %w", err)
	}
	payoutsJSON, err := json.Marshal(record.Payouts)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payouts: %w", err)
	}

	row := models.RoundRecord{
		TableID:      record.TableID,
		Game:         string(record.Game),
		Result:       string(resultJSON),
		Payouts:      string(payoutsJSON),
		TotalBets:    record.TotalBets,
		TotalPayouts: record.TotalPayouts,
		CompletedAt:  record.CompletedAt.UTC(),
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to save round for table %s: %w", record.TableID, err)
	}
	return row.ID, nil
}

// Recent returns the newest rounds of a table, newest first
func (t *Tracker) Recent(ctx context.Context, tableID string, limit int) ([]domain.RoundRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var rows []models.RoundRecord
	err := t.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}

	records := make([]domain.RoundRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toDomain(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Last returns the most recent round of a table
func (t *Tracker) Last(ctx context.Context, tableID string) (*domain.RoundRecord, error) {
	var row models.RoundRecord
	err := t.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Order("id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoRounds
		}
		return nil, fmt.Errorf("failed to load last round: %w", err)
	}
	rec, err := toDomain(row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteTable removes the history of a deleted table inside tx
func (t *Tracker) DeleteTable(tx *gorm.DB, tableID string) error {
	if err := tx.Where("table_id = ?", tableID).Delete(&models.RoundRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete round history: %w", err)
	}
	return nil
}

// toDomain decodes the stored JSON. Result comes back as generic JSON since
// its concrete type depends on the game.
func toDomain(row models.RoundRecord) (domain.RoundRecord, error) {
	rec := domain.RoundRecord{
		ID:           row.ID,
		TableID:      row.TableID,
		Game:         domain.GameVariant(row.Game),
		TotalBets:    row.TotalBets,
		TotalPayouts: row.TotalPayouts,
		CompletedAt:  row.CompletedAt,
	}
	if row.Result != "" {
		var result json.RawMessage
		if err := json.Unmarshal([]byte(row.Result), &result); err != nil {
			return rec, fmt.Errorf("failed to decode round %d result: %w", row.ID, err)
		}
		rec.Result = result
	}
	if row.Payouts != "" {
		if err := json.Unmarshal([]byte(row.Payouts), &rec.Payouts); err != nil {
			return rec, fmt.Errorf("failed to decode round %d payouts: %w", row.ID, err)
		}
	}
	return rec, nil
}
