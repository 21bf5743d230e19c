package models

import (
	"time"
)

// Player represents a casino player account
type Player struct {
	ID        string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Balance   int       `gorm:"column:balance;not null;default:0" json:"balance"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Player model
func (Player) TableName() string {
	return "players"
}

// Table represents a casino table running one game variant
type Table struct {
	ID        string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Game      string    `gorm:"column:game;type:varchar(32);not null" json:"game"`
	State     string    `gorm:"column:state;type:varchar(16);not null;default:waiting;index:idx_table_state" json:"state"`
	MinBet    int       `gorm:"column:min_bet;not null" json:"min_bet"`
	MaxBet    int       `gorm:"column:max_bet;not null" json:"max_bet"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Table model
func (Table) TableName() string {
	return "casino_tables"
}

// TableSeat records a player seated at a table. A player holds at most one seat.
type TableSeat struct {
	ID       int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TableID  string    `gorm:"column:table_id;type:varchar(36);not null;index:idx_seat_table" json:"table_id"`
	PlayerID string    `gorm:"column:player_id;type:varchar(36);not null;uniqueIndex:unique_seat_player" json:"player_id"`
	JoinedAt time.Time `gorm:"column:joined_at;autoCreateTime" json:"joined_at"`
}

// TableName specifies the table name for TableSeat model
func (TableSeat) TableName() string {
	return "table_seats"
}

// CasinoStateID is the primary key of the single casino_state row.
const CasinoStateID = 1

// CasinoState holds the casino-wide aggregate
type CasinoState struct {
	ID           int       `gorm:"column:id;primaryKey" json:"id"`
	HouseBalance int       `gorm:"column:house_balance;not null;default:0" json:"house_balance"`
	TotalBets    int       `gorm:"column:total_bets;not null;default:0" json:"total_bets"`
	TotalPayouts int       `gorm:"column:total_payouts;not null;default:0" json:"total_payouts"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for CasinoState model
func (CasinoState) TableName() string {
	return "casino_state"
}

// RoundRecord represents one completed round
type RoundRecord struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TableID      string    `gorm:"column:table_id;type:varchar(36);not null;index:idx_round_table" json:"table_id"`
	Game         string    `gorm:"column:game;type:varchar(32);not null" json:"game"`
	Result       string    `gorm:"column:result;type:text" json:"result"`
	Payouts      string    `gorm:"column:payouts;type:text" json:"payouts"`
	TotalBets    int       `gorm:"column:total_bets;not null" json:"total_bets"`
	TotalPayouts int       `gorm:"column:total_payouts;not null" json:"total_payouts"`
	CompletedAt  time.Time `gorm:"column:completed_at;not null;index:idx_round_completed" json:"completed_at"`
}

// TableName specifies the table name for RoundRecord model
func (RoundRecord) TableName() string {
	return "round_records"
}

// All lists every row model for auto-migration.
func All() []interface{} {
	return []interface{}{
		&Player{},
		&Table{},
		&TableSeat{},
		&CasinoState{},
		&RoundRecord{},
	}
}
