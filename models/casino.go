package models

import "time"

// CasinoAggregate holds the casino-wide running totals. All three counters
// move together, once per settled round.
type CasinoAggregate struct {
	HouseBalance int       `json:"houseBalance"`
	TotalBets    int       `json:"totalBets"`
	TotalPayouts int       `json:"totalPayout"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RoundRecord is the persisted summary of a completed round.
type RoundRecord struct {
	ID           int64       `json:"id"`
	TableID      string      `json:"tableId"`
	Game         GameVariant `json:"game"`
	Result       any         `json:"result"`
	Payouts      []Payout    `json:"payouts"`
	TotalBets    int         `json:"totalBets"`
	TotalPayouts int         `json:"totalPayouts"`
	CompletedAt  time.Time   `json:"completedAt"`
}
