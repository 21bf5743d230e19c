package models

import (
	"errors"
	"fmt"
	"time"
)

type BetType string

const (
	// Roulette
	BetNumber BetType = "number"
	BetRed    BetType = "red"
	BetBlack  BetType = "black"
	BetOdd    BetType = "odd"
	BetEven   BetType = "even"
	BetLow    BetType = "low"
	BetHigh   BetType = "high"
	BetDozen  BetType = "dozen"
	BetColumn BetType = "column"

	// Baccarat
	BetPlayer BetType = "player"
	BetBanker BetType = "banker"
	BetTie    BetType = "tie"

	// Blackjack
	BetMain BetType = "main"

	// Three card poker
	BetAnte     BetType = "ante"
	BetPairPlus BetType = "pair-plus"
)

var (
	ErrInvalidBetType  = errors.New("bet type not valid for this game")
	ErrInvalidBetValue = errors.New("invalid bet value")
	ErrInvalidAmount   = errors.New("bet amount must be positive")
)

// valueRange describes the optional value a bet type carries. A zero
// valueRange means the type takes no value.
type valueRange struct {
	required bool
	min, max int
}

var betTypes = map[GameVariant]map[BetType]valueRange{
	GameRoulette: {
		BetNumber: {required: true, min: 0, max: 36},
		BetRed:    {},
		BetBlack:  {},
		BetOdd:    {},
		BetEven:   {},
		BetLow:    {},
		BetHigh:   {},
		BetDozen:  {required: true, min: 1, max: 3},
		BetColumn: {required: true, min: 1, max: 3},
	},
	GameBaccarat: {
		BetPlayer: {},
		BetBanker: {},
		BetTie:    {},
	},
	GameBlackjack: {
		BetMain: {},
	},
	GameThreeCardPoker: {
		BetAnte:     {},
		BetPairPlus: {},
	},
}

// BetTypesFor returns the bet types a game accepts.
func BetTypesFor(game GameVariant) []BetType {
	types := make([]BetType, 0, len(betTypes[game]))
	for t := range betTypes[game] {
		types = append(types, t)
	}
	return types
}

// Bet is immutable once created; build it with NewBet.
type Bet struct {
	PlayerID string    `json:"playerId"`
	TableID  string    `json:"tableId"`
	Amount   int       `json:"amount"`
	Type     BetType   `json:"type"`
	Value    *int      `json:"value,omitempty"`
	PlacedAt time.Time `json:"placedAt"`
}

// NewBet validates the bet type against the game and the optional value
// against the bet type. Table limits are checked by the engine.
func NewBet(game GameVariant, playerID, tableID string, amount int, betType BetType, value *int) (Bet, error) {
	if amount <= 0 {
		return Bet{}, ErrInvalidAmount
	}
	types, ok := betTypes[game]
	if !ok {
		return Bet{}, fmt.Errorf("unknown game %q", game)
	}
	vr, ok := types[betType]
	if !ok {
		return Bet{}, fmt.Errorf("%w: %q on %s", ErrInvalidBetType, betType, game)
	}
	switch {
	case vr.required && value == nil:
		return Bet{}, fmt.Errorf("%w: %s bet requires a value", ErrInvalidBetValue, betType)
	case !vr.required && value != nil:
		return Bet{}, fmt.Errorf("%w: %s bet takes no value", ErrInvalidBetValue, betType)
	case vr.required && (*value < vr.min || *value > vr.max):
		return Bet{}, fmt.Errorf("%w: %s bet value %d outside %d-%d", ErrInvalidBetValue, betType, *value, vr.min, vr.max)
	}

	bet := Bet{
		PlayerID: playerID,
		TableID:  tableID,
		Amount:   amount,
		Type:     betType,
	}
	if value != nil {
		v := *value
		bet.Value = &v
	}
	return bet, nil
}

// ValueOr returns the bet value, or def when the bet carries none.
func (b Bet) ValueOr(def int) int {
	if b.Value == nil {
		return def
	}
	return *b.Value
}

// TotalStake sums the amounts of bets.
func TotalStake(bets []Bet) int {
	total := 0
	for _, b := range bets {
		total += b.Amount
	}
	return total
}
